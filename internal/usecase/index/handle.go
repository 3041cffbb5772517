package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/search/filter"
	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
)

// Handle is a live, initialized connection to one collection index.
// Safe for concurrent use.
type Handle struct {
	ns        domain.Namespace
	writer    Writer
	searcher  Searcher
	embedder  domain.Embedder
	created   bool
	closeFn   func()
	closeOnce sync.Once
}

// NewHandle binds resources to a namespace.
func NewHandle(ns domain.Namespace, res Resources, created bool) *Handle {
	return &Handle{
		ns:       ns,
		writer:   res.Writer,
		searcher: res.Searcher,
		embedder: res.Embedder,
		created:  created,
		closeFn:  res.Close,
	}
}

// Namespace returns the selected database and collection.
func (h *Handle) Namespace() domain.Namespace { return h.ns }

// Created reports whether initialization created the collection index.
func (h *Handle) Created() bool { return h.created }

// AddChunks appends chunks to the collection.
func (h *Handle) AddChunks(ctx context.Context, chunks []chunk.Chunk) error {
	return h.writer.AddChunks(ctx, h.ns, chunks)
}

// Count returns the number of chunks in the named collection of the selected
// database, -1 on lookup failure. An empty name counts the handle's collection.
func (h *Handle) Count(ctx context.Context, collection string) int {
	ns := h.ns
	if collection != "" {
		ns = ns.WithCollection(collection)
	}
	return h.writer.Count(ctx, ns)
}

// Embed vectorizes a query.
func (h *Handle) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := h.embedder.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed query: %w", err)
	}
	return res, nil
}

// SearchDense runs the vector side of a hybrid query.
func (h *Handle) SearchDense(
	ctx context.Context, vector []float32, filters filter.Expression, topK int,
) ([]hit.Hit, error) {
	return h.searcher.SearchDense(ctx, h.ns, vector, filters, topK)
}

// SearchSparse runs the keyword side of a hybrid query.
func (h *Handle) SearchSparse(
	ctx context.Context, query string, filters filter.Expression, topK int,
) ([]hit.Hit, error) {
	return h.searcher.SearchSparse(ctx, h.ns, query, filters, topK)
}

// Close releases the underlying connection. Safe to call more than once.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		if h.closeFn != nil {
			h.closeFn()
		}
	})
}
