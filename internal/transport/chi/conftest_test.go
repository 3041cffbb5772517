package chi

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
	"github.com/kailas-cloud/docqa/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docqa/internal/usecase/ingest"
)

// --- Mocks ---

type mockAsker struct {
	askFn        func(ctx context.Context, question string) (answer.Payload, error)
	lastQuestion string
}

func (m *mockAsker) Ask(ctx context.Context, question string) (answer.Payload, error) {
	m.lastQuestion = question
	if m.askFn != nil {
		return m.askFn(ctx, question)
	}
	return answer.Payload{Answer: "ok", Category: answer.CategoryOther, Confidence: 0.5}, nil
}

type uploaded struct {
	name, body string
}

type mockIngester struct {
	ingestErr      error
	files          []uploaded
	count          int
	countErr       error
	lastCollection string
}

func (m *mockIngester) Ingest(_ context.Context, files []ingestuc.File) (ingestuc.Result, error) {
	for _, f := range files {
		data, _ := io.ReadAll(f.Body)
		m.files = append(m.files, uploaded{name: f.Name, body: string(data)})
	}
	if m.ingestErr != nil {
		return ingestuc.Result{}, m.ingestErr
	}
	return ingestuc.Result{Files: len(files), Chunks: 2 * len(files)}, nil
}

func (m *mockIngester) Count(_ context.Context, collection string) (int, error) {
	m.lastCollection = collection
	return m.count, m.countErr
}

type mockRetriever struct {
	hits    []hit.Hit
	err     error
	lastReq *request.Request
}

func (m *mockRetriever) Request(query string, opts ...request.Option) (request.Request, error) {
	return request.New(query, opts...)
}

func (m *mockRetriever) Search(_ context.Context, req request.Request) ([]hit.Hit, error) {
	m.lastReq = &req
	return m.hits, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type testDeps struct {
	asker     *mockAsker
	ingester  *mockIngester
	retriever *mockRetriever
	health    *mockHealth
}

func newTestServer(maxUpload int64) (*Server, *testDeps) {
	d := &testDeps{
		asker:     &mockAsker{},
		ingester:  &mockIngester{},
		retriever: &mockRetriever{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}},
	}
	return NewServer(d.asker, d.ingester, d.retriever, d.health, maxUpload, zap.NewNop()), d
}
