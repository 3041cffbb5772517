package chi

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
	"github.com/kailas-cloud/docqa/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docqa/internal/usecase/ingest"
)

// Asker answers questions.
type Asker interface {
	Ask(ctx context.Context, question string) (answer.Payload, error)
}

// Ingester indexes documents and counts collections.
type Ingester interface {
	Ingest(ctx context.Context, files []ingestuc.File) (ingestuc.Result, error)
	Count(ctx context.Context, collection string) (int, error)
}

// Retriever runs hybrid retrieval with errors surfaced.
type Retriever interface {
	Request(query string, opts ...request.Option) (request.Request, error)
	Search(ctx context.Context, req request.Request) ([]hit.Hit, error)
}

// HealthChecker aggregates dependency checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
