package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
	"github.com/kailas-cloud/docqa/internal/domain/search/profile"
	"github.com/kailas-cloud/docqa/internal/domain/search/ranker"
	"github.com/kailas-cloud/docqa/internal/domain/search/request"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// Config holds retrieval defaults.
type Config struct {
	K      int
	FetchK int
	// DropRatioSearch is the fraction of lowest-scoring sparse candidates dropped before fusion.
	DropRatioSearch float64
	Rankers         profile.Rankers
}

// Service runs hybrid dense + sparse retrieval with rank fusion.
type Service struct {
	handles HandleProvider
	cfg     Config
	logger  *zap.Logger
}

// New creates a retrieval service. Ranker configurations are validated up front.
func New(handles HandleProvider, cfg Config, logger *zap.Logger) (*Service, error) {
	if cfg.DropRatioSearch < 0 || cfg.DropRatioSearch >= 1 {
		return nil, fmt.Errorf("drop ratio must be in [0, 1), got %g", cfg.DropRatioSearch)
	}
	for _, p := range []profile.Profile{profile.Default, profile.Sparse} {
		if _, err := ranker.New(cfg.Rankers.For(p)); err != nil {
			return nil, fmt.Errorf("%s ranker: %w", p, err)
		}
	}
	return &Service{handles: handles, cfg: cfg, logger: logger}, nil
}

// Request builds a validated request with the service defaults applied first,
// so opts override them.
func (s *Service) Request(query string, opts ...request.Option) (request.Request, error) {
	all := make([]request.Option, 0, len(opts)+2)
	all = append(all, request.WithK(s.cfg.K), request.WithFetchK(s.cfg.FetchK))
	all = append(all, opts...)

	req, err := request.New(query, all...)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
	}
	return req, nil
}

// Retrieve returns at most req.K() fused hits, best first.
// Any failure is logged and yields an empty result.
func (s *Service) Retrieve(ctx context.Context, req request.Request) []hit.Hit {
	hits, err := s.Search(ctx, req)
	if err != nil {
		s.logger.Error("Retrieval failed, continuing without context",
			zap.Int("query_len", len(req.Query())),
			zap.String("profile", string(req.Profile())),
			zap.Error(err),
		)
		return []hit.Hit{}
	}
	return hits
}

// Search is Retrieve with the failure returned, wrapped in domain.ErrRetrieval.
func (s *Service) Search(ctx context.Context, req request.Request) ([]hit.Hit, error) {
	start := time.Now()

	rk, err := s.rankerFor(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrieval, err)
	}

	h, err := s.handles.Get(ctx)
	if err != nil {
		metrics.RetrievalFailuresTotal.WithLabelValues("handle").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrieval, err)
	}

	var dense, sparse []hit.Hit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		emb, err := h.Embed(gctx, req.Query())
		if err != nil {
			return &stageError{stage: "embed", err: err}
		}
		domain.UsageFromContext(ctx).AddEmbeddingTokens(emb.TotalTokens)

		dense, err = h.SearchDense(gctx, emb.Embedding, req.Filters(), req.FetchK())
		if err != nil {
			return &stageError{stage: "dense", err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sparse, err = h.SearchSparse(gctx, req.Query(), req.Filters(), req.FetchK())
		if err != nil {
			return &stageError{stage: "sparse", err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		var se *stageError
		if errors.As(err, &se) {
			metrics.RetrievalFailuresTotal.WithLabelValues(se.stage).Inc()
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrieval, err)
	}

	sparse = DropTail(sparse, s.cfg.DropRatioSearch)

	metrics.RetrievalCandidates.WithLabelValues("dense").Observe(float64(len(dense)))
	metrics.RetrievalCandidates.WithLabelValues("sparse").Observe(float64(len(sparse)))

	fused := rk.Fuse(dense, sparse, req.K())

	metrics.RetrievalResults.WithLabelValues(string(rk.Type())).Observe(float64(len(fused)))
	metrics.RetrievalDuration.WithLabelValues(string(req.Profile())).Observe(time.Since(start).Seconds())

	s.logger.Debug("Hybrid retrieval",
		zap.Int("dense", len(dense)),
		zap.Int("sparse", len(sparse)),
		zap.Int("fused", len(fused)),
		zap.String("ranker", string(rk.Type())),
	)

	return fused, nil
}

// rankerFor resolves the per-request override, else the profile's ranker.
func (s *Service) rankerFor(req request.Request) (ranker.Ranker, error) {
	cfg := s.cfg.Rankers.For(req.Profile())
	if override := req.Ranker(); override != nil {
		cfg = *override
	}
	return ranker.New(cfg)
}

// DropTail removes the lowest-scoring ratio of a list sorted best first.
func DropTail(hits []hit.Hit, ratio float64) []hit.Hit {
	if ratio <= 0 || len(hits) == 0 {
		return hits
	}
	drop := int(float64(len(hits)) * ratio)
	return hits[:len(hits)-drop]
}

// stageError tags a sub-search failure with where it happened.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }
