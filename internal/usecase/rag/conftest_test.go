package rag

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
	"github.com/kailas-cloud/docqa/internal/domain/search/request"
)

// --- Mocks ---

type mockRetriever struct {
	mu       sync.Mutex
	hitsFn   func(req request.Request) []hit.Hit
	requests []request.Request
}

func (m *mockRetriever) Request(query string, opts ...request.Option) (request.Request, error) {
	return request.New(query, opts...)
}

func (m *mockRetriever) Retrieve(_ context.Context, req request.Request) []hit.Hit {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.hitsFn == nil {
		return []hit.Hit{}
	}
	return m.hitsFn(req)
}

type mockCompleter struct {
	out        string
	err        error
	lastSystem string
	lastUser   string
}

func (m *mockCompleter) Complete(_ context.Context, system, user string) (string, error) {
	m.lastSystem, m.lastUser = system, user
	return m.out, m.err
}

// --- Helpers ---

const validAnswer = `{"answer":"Refunds within 30 days.","category":"pricing","confidence":0.8,` +
	`"sources":[{"doc":"faq.md","snippet":"30 days"}]}`

func newHit(key, text string, meta chunk.Metadata) hit.Hit {
	if meta.DocumentName == "" {
		meta.DocumentName = "faq.md"
	}
	return hit.New(key, 1, text, meta, 0)
}

func newTestService(r *mockRetriever, llm *mockCompleter, cfg Config) *Service {
	logger := zap.NewNop()
	return New(r, NewAssembler(logger), NewSynthesizer(llm, logger), cfg, logger)
}

// wordCounter counts whitespace-separated words; stands in for a tokenizer.
func wordCounter(s string) int { return len(strings.Fields(s)) }
