package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/docqa/internal/db"
	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/search/filter"
	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
	"github.com/kailas-cloud/docqa/internal/repository/index"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Config tunes the two sub-searches.
type Config struct {
	EFRuntime int    // HNSW query-time candidate list; 0 = server default
	Scorer    string // FT.SEARCH SCORER for the sparse side; "" = server default
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
	cfg   Config
}

// New creates a search repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

var returnFields = []string{
	index.FieldText,
	index.FieldDocumentName,
	index.FieldSectionName,
	index.FieldHeading,
	index.FieldSubHeading,
	index.FieldPosition,
}

// SearchDense performs a KNN (vector similarity) search with filter pre-filtering.
// Scores are cosine similarities, best first.
func (r *Repo) SearchDense(
	ctx context.Context, ns domain.Namespace,
	vector []float32, filters filter.Expression, topK int,
) ([]hit.Hit, error) {
	q := &db.KNNQuery{
		IndexName:    ns.IndexName(),
		VectorField:  index.FieldVector,
		Filters:      filters,
		Vector:       vector,
		K:            topK,
		EFRuntime:    r.cfg.EFRuntime,
		ReturnFields: append(returnFields[:len(returnFields):len(returnFields)], "__vector_score"),
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", ns.Collection, err)
	}

	return toHits(sr, ns), nil
}

// SearchSparse performs a BM25 keyword search; a chunk matches when it contains any query term.
// A query without searchable terms returns no hits and no error.
func (r *Repo) SearchSparse(
	ctx context.Context, ns domain.Namespace,
	query string, filters filter.Expression, topK int,
) ([]hit.Hit, error) {
	terms := Terms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	q := &db.TextQuery{
		IndexName:    ns.IndexName(),
		TextField:    index.FieldText,
		Terms:        terms,
		Filters:      filters,
		TopK:         topK,
		Scorer:       r.cfg.Scorer,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search bm25 %s: %w", ns.Collection, err)
	}

	return toHits(sr, ns), nil
}

// toHits converts db.SearchResult into hits, keeping store order.
func toHits(sr *db.SearchResult, ns domain.Namespace) []hit.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	prefix := ns.ChunkPrefix()
	hits := make([]hit.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, prefix)
		hits = append(hits, parseEntry(id, entry))
	}
	return hits
}

func parseEntry(id string, entry db.SearchEntry) hit.Hit {
	f := entry.Fields
	meta := chunk.Metadata{
		DocumentName: f[index.FieldDocumentName],
		SectionName:  f[index.FieldSectionName],
		Heading:      f[index.FieldHeading],
		SubHeading:   f[index.FieldSubHeading],
	}

	position, err := strconv.Atoi(f[index.FieldPosition])
	if err != nil {
		position = -1
	}

	return hit.New(id, entry.Score, f[index.FieldText], meta, position)
}
