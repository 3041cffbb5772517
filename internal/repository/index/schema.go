package index

import (
	"strings"

	"github.com/kailas-cloud/docqa/internal/db"
	"github.com/kailas-cloud/docqa/internal/domain"
)

// Chunk hash fields.
const (
	FieldText         = "text"
	FieldDocumentName = "document_name"
	FieldSectionName  = "section_name"
	FieldHeading      = "heading"
	FieldSubHeading   = "sub_heading"
	FieldPosition     = "position"
	FieldVector       = "vector"
)

// TagSeparator splits multi-valued TAG fields. Metadata values are single-valued,
// so the separator is the ASCII unit separator, which Markdown headings do not
// carry. Headings such as "Pricing | Plans" stay one tag.
const TagSeparator = "\x1f"

// tagValue removes TagSeparator from a metadata value so it is indexed as one tag.
func tagValue(v string) string {
	return strings.ReplaceAll(v, TagSeparator, " ")
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// buildIndex creates the IndexDefinition of a chunk collection:
// TEXT for the sparse side, case-sensitive TAGs for metadata filters,
// NUMERIC position and an HNSW/COSINE vector for the dense side.
func buildIndex(ns domain.Namespace, vectorDim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	b := db.NewIndex(ns.IndexName()).
		Prefix(ns.ChunkPrefix()).
		Text(FieldText)
	for _, name := range []string{FieldDocumentName, FieldSectionName, FieldHeading, FieldSubHeading} {
		b = b.TagWithOpts(name, TagSeparator, true)
	}
	return b.
		Numeric(FieldPosition).
		VectorHNSW(FieldVector, vectorDim, db.DistanceCosine, hnsw.M, hnsw.EFConstruct).
		Build()
}
