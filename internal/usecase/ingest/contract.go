package ingest

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/usecase/index"
)

// HandleProvider returns the live index handle.
type HandleProvider interface {
	Get(ctx context.Context) (*index.Handle, error)
}

// Chunker splits a decoded document into chunks.
type Chunker interface {
	Chunk(text, documentName string) ([]chunk.Chunk, error)
}
