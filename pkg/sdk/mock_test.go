package docqa

import (
	"context"
	"io"

	"github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
	"github.com/kailas-cloud/docqa/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docqa/internal/usecase/ingest"
)

// --- askUseCase mock ---

type mockAskUC struct {
	askFn func(ctx context.Context, question string) (answer.Payload, error)
}

func (m *mockAskUC) Ask(ctx context.Context, question string) (answer.Payload, error) {
	return m.askFn(ctx, question)
}

// --- ingestUseCase mock ---

type mockIngestUC struct {
	ingestFn func(ctx context.Context, files []ingestuc.File) (ingestuc.Result, error)
	countFn  func(ctx context.Context, collection string) (int, error)
}

func (m *mockIngestUC) Ingest(ctx context.Context, files []ingestuc.File) (ingestuc.Result, error) {
	return m.ingestFn(ctx, files)
}

func (m *mockIngestUC) Count(ctx context.Context, collection string) (int, error) {
	return m.countFn(ctx, collection)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req request.Request) ([]hit.Hit, error)
}

func (m *mockSearchUC) Request(query string, opts ...request.Option) (request.Request, error) {
	return request.New(query, opts...)
}

func (m *mockSearchUC) Search(ctx context.Context, req request.Request) ([]hit.Hit, error) {
	return m.searchFn(ctx, req)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- store mock ---

type mockStore struct {
	pingErr error
	closed  bool
}

func (m *mockStore) Ping(context.Context) error { return m.pingErr }
func (m *mockStore) Close()                     { m.closed = true }

// --- embedder mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchCalls int
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	m.batchCalls++
	out := BatchEmbeddingResult{Embeddings: make([][]float32, len(texts)), TotalTokens: len(texts)}
	for i := range texts {
		out.Embeddings[i] = []float32{float32(i)}
	}
	return out, nil
}

// --- helpers ---

func readAll(r io.Reader) string {
	b, _ := io.ReadAll(r)
	return string(b)
}

func testClient(ask askUseCase, ingest ingestUseCase, search searchUseCase) *Client {
	return &Client{
		askSvc:    ask,
		ingestSvc: ingest,
		searchSvc: search,
	}
}
