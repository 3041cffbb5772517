package rag

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
	"github.com/kailas-cloud/docqa/internal/domain/search/request"
)

// Retriever runs hybrid retrieval. Failures yield an empty result.
type Retriever interface {
	Request(query string, opts ...request.Option) (request.Request, error)
	Retrieve(ctx context.Context, req request.Request) []hit.Hit
}

// Completer sends one system and one user message to a chat model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
