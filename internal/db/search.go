package db

import "github.com/kailas-cloud/docqa/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to "vector"
	Filters      filter.Expression
	Vector       []float32
	K            int
	EFRuntime    int // HNSW search breadth; 0 keeps the index default
	ReturnFields []string
}

// TextQuery is the input for BM25 text search. Terms are OR-joined.
type TextQuery struct {
	IndexName    string
	TextField    string
	Terms        []string
	Filters      filter.Expression
	TopK         int
	Scorer       string // e.g. BM25STD; empty keeps the server default
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
