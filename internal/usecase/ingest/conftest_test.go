package ingest

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/chunker"
	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/usecase/index"
)

// --- Mocks ---

type mockWriter struct {
	batches   [][]chunk.Chunk
	addErr    error
	counts    map[string]int
	countedNS []domain.Namespace
}

func (m *mockWriter) EnsureIndex(context.Context, domain.Namespace) (bool, error) {
	return false, nil
}

func (m *mockWriter) AddChunks(_ context.Context, _ domain.Namespace, chunks []chunk.Chunk) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.batches = append(m.batches, chunks)
	return nil
}

func (m *mockWriter) Count(_ context.Context, ns domain.Namespace) int {
	m.countedNS = append(m.countedNS, ns)
	n, ok := m.counts[ns.Collection]
	if !ok {
		return -1
	}
	return n
}

type mockHandles struct {
	h   *index.Handle
	err error
}

func (m *mockHandles) Get(context.Context) (*index.Handle, error) { return m.h, m.err }

var testNS = domain.Namespace{Prefix: "docqa:", Database: "hv_doc", Collection: "collection"}

func newTestService(w *mockWriter) *Service {
	h := index.NewHandle(testNS, index.Resources{Writer: w}, false)
	return New(&mockHandles{h: h}, chunker.New(), zap.NewNop())
}

func file(name, body string) File {
	return File{Name: name, Body: strings.NewReader(body)}
}
