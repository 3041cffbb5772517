package search

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/usecase/index"
)

// HandleProvider returns the live index handle.
type HandleProvider interface {
	Get(ctx context.Context) (*index.Handle, error)
}
