package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/config"
	dbRedis "github.com/kailas-cloud/docqa/internal/db/redis"
	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/metrics"
	"github.com/kailas-cloud/docqa/internal/repository/embcache"
	indexrepo "github.com/kailas-cloud/docqa/internal/repository/index"
	searchrepo "github.com/kailas-cloud/docqa/internal/repository/search"
	openaiTransport "github.com/kailas-cloud/docqa/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/docqa/internal/usecase/embedding"
	indexuc "github.com/kailas-cloud/docqa/internal/usecase/index"
)

// redisConnector opens a fresh rueidis store per (re)initialization and binds
// the index and search repositories plus the embedder chain to it.
type redisConnector struct {
	cfg    config.Config
	logger *zap.Logger
}

func (c *redisConnector) Connect(ctx context.Context) (indexuc.Resources, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    c.cfg.Database.Addrs,
		Username: c.cfg.Database.Username,
		Password: c.cfg.Database.Password,
	})
	if err != nil {
		return indexuc.Resources{}, fmt.Errorf("create store: %w", err)
	}

	timeout := time.Duration(c.cfg.Database.ConnectTimeoutSec) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return indexuc.Resources{}, err
	}

	base, embedder := buildEmbedder(c.cfg, store, c.logger)

	writer := indexrepo.New(store, embedder, c.cfg.Embedding.Dimensions, c.logger).
		WithHNSW(indexrepo.HNSWConfig{
			M:           c.cfg.Index.HNSWM,
			EFConstruct: c.cfg.Index.HNSWEFConstruct,
		}).
		WithBatchSize(c.cfg.Index.EmbedBatchSize)

	searcher := searchrepo.New(store, searchrepo.Config{
		EFRuntime: c.cfg.Index.EFRuntime,
		Scorer:    c.cfg.Sparse.Scorer,
	})

	return indexuc.Resources{
		Writer:   writer,
		Searcher: searcher,
		Embedder: embedder,
		Health:   base,
		Close:    store.Close,
	}, nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// The bare provider is returned as well for health probes.
func buildEmbedder(cfg config.Config, store *dbRedis.Store, logger *zap.Logger) (*openaiTransport.Embedder, domain.Embedder) {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cfg.Embedding.Cache && store != nil {
		embedder = embcache.New(base, store, cfg.Index.KeyPrefix, cfg.Embedding.Model,
			metrics.EmbeddingCacheTotal, logger)
	}

	return base, embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Index.EmbedBatchSize, logger,
	)
}
