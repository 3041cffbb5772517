// Package ingest loads, chunks and indexes uploaded documents.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/chunker"
	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// File is one uploaded document.
type File struct {
	Name string
	Body io.Reader
}

// Result summarizes a successful ingestion.
type Result struct {
	Files  int
	Chunks int
}

// Service ingests document batches into the index.
type Service struct {
	handles HandleProvider
	chunker Chunker
	logger  *zap.Logger
}

// New creates an ingestion service.
func New(handles HandleProvider, c Chunker, logger *zap.Logger) *Service {
	return &Service{handles: handles, chunker: c, logger: logger}
}

// Ingest loads and chunks every file in order, then appends all chunks in one write.
// The first failing file aborts the batch with a *domain.DocumentError and nothing is indexed.
func (s *Service) Ingest(ctx context.Context, files []File) (Result, error) {
	if len(files) == 0 {
		return Result{}, domain.ErrNoDocuments
	}

	start := time.Now()

	var all []chunk.Chunk
	for _, f := range files {
		chunks, err := s.prepare(f)
		if err != nil {
			s.logger.Warn("Document rejected, aborting batch",
				zap.String("document_name", f.Name),
				zap.Int("files", len(files)),
				zap.Error(err),
			)
			return Result{}, domain.NewDocumentError(f.Name, err)
		}
		all = append(all, chunks...)
	}

	h, err := s.handles.Get(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("get index: %w", err)
	}
	if err := h.AddChunks(ctx, all); err != nil {
		return Result{}, fmt.Errorf("add chunks: %w", err)
	}

	metrics.IngestedChunksTotal.Add(float64(len(all)))
	s.logger.Info("Documents ingested",
		zap.Int("files", len(files)),
		zap.Int("chunks", len(all)),
		zap.String("index", h.Namespace().IndexName()),
		zap.Duration("duration", time.Since(start)),
	)

	return Result{Files: len(files), Chunks: len(all)}, nil
}

// Count returns the number of chunks in a collection of the current database.
// An empty name counts the configured collection; -1 means the lookup failed.
func (s *Service) Count(ctx context.Context, collection string) (int, error) {
	h, err := s.handles.Get(ctx)
	if err != nil {
		return -1, fmt.Errorf("get index: %w", err)
	}
	return h.Count(ctx, collection), nil
}

func (s *Service) prepare(f File) ([]chunk.Chunk, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("%w: file name is required", domain.ErrContentLoad)
	}
	text, err := chunker.Load(f.Body, f.Name)
	if err != nil {
		return nil, err
	}
	chunks, err := s.chunker.Chunk(text, f.Name)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	return chunks, nil
}
