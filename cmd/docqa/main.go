package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/chunker"
	"github.com/kailas-cloud/docqa/internal/config"
	dbRedis "github.com/kailas-cloud/docqa/internal/db/redis"
	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/search/profile"
	"github.com/kailas-cloud/docqa/internal/domain/search/ranker"
	logpkg "github.com/kailas-cloud/docqa/internal/logger"
	"github.com/kailas-cloud/docqa/internal/metrics"
	chiTransport "github.com/kailas-cloud/docqa/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/docqa/internal/transport/openai"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	indexuc "github.com/kailas-cloud/docqa/internal/usecase/index"
	ingestuc "github.com/kailas-cloud/docqa/internal/usecase/ingest"
	raguc "github.com/kailas-cloud/docqa/internal/usecase/rag"
	searchuc "github.com/kailas-cloud/docqa/internal/usecase/search"
	"github.com/kailas-cloud/docqa/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docqa API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("database", cfg.Database.Name),
		zap.String("collection", cfg.Database.Collection),
	)

	// Register provider and retrieval metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterLLMMetrics()
	metrics.RegisterRetrievalMetrics()

	ctx := context.Background()
	connectTimeout := time.Duration(cfg.Database.ConnectTimeoutSec) * time.Second

	ns := domain.Namespace{
		Prefix:     cfg.Index.KeyPrefix,
		Database:   cfg.Database.Name,
		Collection: cfg.Database.Collection,
	}
	manager := indexuc.NewManager(&redisConnector{cfg: cfg, logger: logger}, ns, logger,
		indexuc.WithConnectTimeout(connectTimeout))
	defer manager.Close()

	handle, err := manager.Reinit(ctx)
	if err != nil {
		logger.Fatal("Index initialization failed", zap.Error(err))
	}
	logger.Info("Connected to index",
		zap.String("index", handle.Namespace().IndexName()),
		zap.Bool("created", handle.Created()),
	)

	// Separate connection for liveness probes, independent of handle swaps.
	probe, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create probe store", zap.Error(err))
	}
	defer probe.Close()

	searchSvc, err := searchuc.New(manager, searchuc.Config{
		K:               cfg.Retrieval.K,
		FetchK:          cfg.Retrieval.FetchK,
		DropRatioSearch: cfg.Sparse.DropRatioSearch,
		Rankers: profile.Rankers{
			Default: rankerConfig(cfg.Retrieval.Ranker),
			Sparse:  rankerConfig(cfg.Retrieval.SparseRanker),
		},
	}, logger)
	if err != nil {
		logger.Fatal("Invalid retrieval config", zap.Error(err))
	}

	chat, err := openaiTransport.NewChat(&openaiTransport.ChatConfig{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		ResponseFormat: cfg.LLM.ResponseFormat,
		Provider:       cfg.LLM.Provider,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Invalid LLM config", zap.Error(err))
	}

	var assemblerOpts []raguc.AssemblerOption
	if cfg.Context.MaxTokens > 0 {
		counter, err := raguc.TiktokenCounter(cfg.Context.Encoding)
		if err != nil {
			logger.Fatal("Failed to load tokenizer", zap.String("encoding", cfg.Context.Encoding), zap.Error(err))
		}
		assemblerOpts = append(assemblerOpts, raguc.WithTokenBudget(cfg.Context.MaxTokens, counter))
	}

	ragSvc := raguc.New(
		searchSvc,
		raguc.NewAssembler(logger, assemblerOpts...),
		raguc.NewSynthesizer(chat, logger),
		raguc.Config{
			K:                cfg.Answer.K,
			SparseDocuments:  cfg.Retrieval.SparseDocuments,
			SparseDocumentsK: cfg.Retrieval.SparseDocsK,
		},
		logger,
	)

	ingestSvc := ingestuc.New(manager, chunker.New(chunker.WithMaxChunkBytes(cfg.Ingest.MaxChunkBytes)), logger)

	embeddingProbe, _ := buildEmbedder(cfg, nil, logger)
	healthSvc := healthuc.New(probe, manager, embeddingProbe)

	server := chiTransport.NewServer(ragSvc, ingestSvc, searchSvc, healthSvc,
		int64(cfg.Ingest.MaxUploadMB)<<20, logger).
		WithSparseDocuments(cfg.Retrieval.SparseDocuments)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func rankerConfig(rc config.RankerConfig) ranker.Config {
	return ranker.Config{Type: ranker.Type(rc.Type), Params: rc.Params}
}
