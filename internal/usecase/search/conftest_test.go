package search

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/search/filter"
	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
	"github.com/kailas-cloud/docqa/internal/domain/search/profile"
	"github.com/kailas-cloud/docqa/internal/domain/search/ranker"
	"github.com/kailas-cloud/docqa/internal/usecase/index"
)

// --- Mocks ---

type mockSearcher struct {
	mu          sync.Mutex
	dense       []hit.Hit
	denseErr    error
	sparse      []hit.Hit
	sparseErr   error
	denseTopK   int
	sparseTopK  int
	lastFilters filter.Expression
}

func (m *mockSearcher) SearchDense(
	_ context.Context, _ domain.Namespace, _ []float32, filters filter.Expression, topK int,
) ([]hit.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denseTopK = topK
	m.lastFilters = filters
	return limit(m.dense, topK), m.denseErr
}

func (m *mockSearcher) SearchSparse(
	_ context.Context, _ domain.Namespace, _ string, _ filter.Expression, topK int,
) ([]hit.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sparseTopK = topK
	return limit(m.sparse, topK), m.sparseErr
}

func limit(hits []hit.Hit, n int) []hit.Hit {
	if len(hits) > n {
		return hits[:n]
	}
	return hits
}

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 7}, nil
}

type mockWriter struct{}

func (mockWriter) EnsureIndex(context.Context, domain.Namespace) (bool, error) { return false, nil }
func (mockWriter) AddChunks(context.Context, domain.Namespace, []chunk.Chunk) error {
	return nil
}
func (mockWriter) Count(context.Context, domain.Namespace) int { return 0 }

type mockHandles struct {
	h   *index.Handle
	err error
}

func (m *mockHandles) Get(context.Context) (*index.Handle, error) { return m.h, m.err }

func newTestService(t *testing.T, cfg Config) (*Service, *mockSearcher, *mockEmbedder) {
	t.Helper()
	ms := &mockSearcher{}
	me := &mockEmbedder{}
	h := index.NewHandle(
		domain.Namespace{Prefix: "docqa:", Database: "hv_doc", Collection: "collection"},
		index.Resources{Writer: mockWriter{}, Searcher: ms, Embedder: me},
		false,
	)
	if cfg.K == 0 {
		cfg.K = 10
	}
	if cfg.FetchK == 0 {
		cfg.FetchK = 50
	}
	if cfg.Rankers.Default.Type == "" {
		cfg.Rankers = profile.Rankers{
			Default: ranker.Config{Type: ranker.RRF},
			Sparse:  ranker.Config{Type: ranker.Weighted, Params: map[string]any{"weights": []float64{0.2, 0.8}}},
		}
	}
	svc, err := New(&mockHandles{h: h}, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc, ms, me
}

// makeHits returns n hits keyed prefix-0..n-1 with descending scores.
func makeHits(prefix string, n int) []hit.Hit {
	hits := make([]hit.Hit, n)
	for i := range hits {
		key := fmt.Sprintf("%s-%d", prefix, i)
		hits[i] = hit.New(key, float64(n-i), "text "+key, chunk.Metadata{DocumentName: "faq.md"}, i)
	}
	return hits
}

func keys(hits []hit.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Key()
	}
	return out
}
