package docqa

import "io"

// File is one Markdown or plain-text document to ingest.
type File struct {
	Name string
	Body io.Reader
}

// IngestResult summarizes a successful ingestion.
type IngestResult struct {
	Files  int
	Chunks int
}

// Source is a citation backing an answer.
type Source struct {
	Doc     string
	Snippet string
}

// Answer is the structured reply to a question.
type Answer struct {
	Text       string
	Category   string // api, security, pricing, support or other
	Confidence float64
	Sources    []Source
}

// Hit is one retrieved chunk.
type Hit struct {
	Key          string
	Score        float64
	Text         string
	DocumentName string
	SectionName  string
	Heading      string
	SubHeading   string
	Position     int
}

// SearchOptions tunes a single Search call. Zero values use the client defaults.
type SearchOptions struct {
	K      int
	FetchK int
	// Filter is a boolean expression over chunk metadata, e.g.
	// `document_name == "faq.md" and position < 10`.
	Filter string
	// Sparse fuses with the ranker tuned for keyword-dominated documents.
	Sparse bool
}
