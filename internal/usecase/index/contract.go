package index

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/search/filter"
	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
)

// Writer defines the storage contract for the chunk index.
type Writer interface {
	EnsureIndex(ctx context.Context, ns domain.Namespace) (bool, error)
	AddChunks(ctx context.Context, ns domain.Namespace, chunks []chunk.Chunk) error
	Count(ctx context.Context, ns domain.Namespace) int
}

// Searcher defines the storage contract for the two sub-searches of a hybrid query.
type Searcher interface {
	SearchDense(
		ctx context.Context, ns domain.Namespace,
		vector []float32, filters filter.Expression, topK int,
	) ([]hit.Hit, error)

	SearchSparse(
		ctx context.Context, ns domain.Namespace,
		query string, filters filter.Expression, topK int,
	) ([]hit.Hit, error)
}

// Resources is one freshly opened connection with the repositories bound to it.
type Resources struct {
	Writer   Writer
	Searcher Searcher
	Embedder domain.Embedder
	// Health probes the embedding provider. May be nil.
	Health domain.HealthChecker
	// Close releases the connection. May be nil.
	Close func()
}

// Connector opens a connection to the store and waits until it answers.
type Connector interface {
	Connect(ctx context.Context) (Resources, error)
}
