package index

import (
	"context"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/search/filter"
	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
)

type mockWriter struct {
	ensureFn  func(ctx context.Context, ns domain.Namespace) (bool, error)
	added     []chunk.Chunk
	addErr    error
	countNS   domain.Namespace
	countResp int
}

func (m *mockWriter) EnsureIndex(ctx context.Context, ns domain.Namespace) (bool, error) {
	if m.ensureFn != nil {
		return m.ensureFn(ctx, ns)
	}
	return true, nil
}

func (m *mockWriter) AddChunks(_ context.Context, _ domain.Namespace, chunks []chunk.Chunk) error {
	m.added = append(m.added, chunks...)
	return m.addErr
}

func (m *mockWriter) Count(_ context.Context, ns domain.Namespace) int {
	m.countNS = ns
	return m.countResp
}

type mockSearcher struct{}

func (mockSearcher) SearchDense(
	context.Context, domain.Namespace, []float32, filter.Expression, int,
) ([]hit.Hit, error) {
	return nil, nil
}

func (mockSearcher) SearchSparse(
	context.Context, domain.Namespace, string, filter.Expression, int,
) ([]hit.Hit, error) {
	return nil, nil
}

type mockHealth struct{ err error }

func (m mockHealth) HealthCheck(context.Context) error { return m.err }

// mockConnector hands out fresh resources and counts opens and closes.
type mockConnector struct {
	writer  *mockWriter
	health  domain.HealthChecker
	err     error
	opened  atomic.Int32
	closed  atomic.Int32
	connect func(ctx context.Context) error
}

func (m *mockConnector) Connect(ctx context.Context) (Resources, error) {
	if m.connect != nil {
		if err := m.connect(ctx); err != nil {
			return Resources{}, err
		}
	}
	if m.err != nil {
		return Resources{}, m.err
	}
	m.opened.Add(1)
	return Resources{
		Writer:   m.writer,
		Searcher: mockSearcher{},
		Health:   m.health,
		Close:    func() { m.closed.Add(1) },
	}, nil
}

func testNamespace() domain.Namespace {
	return domain.Namespace{Prefix: "docqa:", Database: "hv_doc", Collection: "collection"}
}

func newTestManager(t *testing.T) (*Manager, *mockConnector) {
	t.Helper()
	conn := &mockConnector{writer: &mockWriter{}}
	return NewManager(conn, testNamespace(), zap.NewNop()), conn
}
