package docqa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/chunker"
	dbRedis "github.com/kailas-cloud/docqa/internal/db/redis"
	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/domain/search/filter"
	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
	"github.com/kailas-cloud/docqa/internal/domain/search/profile"
	"github.com/kailas-cloud/docqa/internal/domain/search/ranker"
	"github.com/kailas-cloud/docqa/internal/domain/search/request"
	indexrepo "github.com/kailas-cloud/docqa/internal/repository/index"
	searchrepo "github.com/kailas-cloud/docqa/internal/repository/search"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	indexuc "github.com/kailas-cloud/docqa/internal/usecase/index"
	ingestuc "github.com/kailas-cloud/docqa/internal/usecase/ingest"
	raguc "github.com/kailas-cloud/docqa/internal/usecase/rag"
	searchuc "github.com/kailas-cloud/docqa/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces for substitution in tests.
type askUseCase interface {
	Ask(ctx context.Context, question string) (answer.Payload, error)
}

type ingestUseCase interface {
	Ingest(ctx context.Context, files []ingestuc.File) (ingestuc.Result, error)
	Count(ctx context.Context, collection string) (int, error)
}

type searchUseCase interface {
	Request(query string, opts ...request.Option) (request.Request, error)
	Search(ctx context.Context, req request.Request) ([]hit.Hit, error)
}

type store interface {
	Ping(ctx context.Context) error
	Close()
}

// Client is the docqa SDK entry point.
type Client struct {
	store     store
	handles   interface{ Close() }
	askSvc    askUseCase
	ingestSvc ingestUseCase
	searchSvc searchUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a docqa Client, connects to Redis and ensures the collection index exists.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("docqa: database address required (use WithRedis)")
	}

	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("docqa: create redis store: %w", err)
	}

	if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("docqa: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		s.Close()
		return nil, err
	}

	c, err := wireClient(ctx, s, cfg, obs)
	if err != nil {
		s.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(ctx context.Context, s *dbRedis.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	logger := zap.NewNop()
	embedder := adaptEmbedder(cfg.embedder)

	ns := domain.Namespace{Prefix: cfg.prefix, Database: cfg.database, Collection: cfg.collection}
	manager := indexuc.NewManager(&storeConnector{store: s, cfg: cfg, embedder: embedder}, ns, logger)
	if _, err := manager.Reinit(ctx); err != nil {
		return nil, fmt.Errorf("docqa: %w", err)
	}

	sparse := cfg.ranker
	if cfg.sparseRanker != nil {
		sparse = *cfg.sparseRanker
	}
	searchSvc, err := searchuc.New(manager, searchuc.Config{
		K:      cfg.k,
		FetchK: cfg.fetchK,
		Rankers: profile.Rankers{
			Default: toRankerConfig(cfg.ranker),
			Sparse:  toRankerConfig(sparse),
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("docqa: %w", err)
	}

	var assemblerOpts []raguc.AssemblerOption
	if cfg.contextTokens > 0 {
		counter, err := raguc.TiktokenCounter(cfg.contextEncoding)
		if err != nil {
			return nil, fmt.Errorf("docqa: %w", err)
		}
		assemblerOpts = append(assemblerOpts, raguc.WithTokenBudget(cfg.contextTokens, counter))
	}

	var completer Completer = noopCompleter{}
	if cfg.completer != nil {
		completer = cfg.completer
	}

	askSvc := raguc.New(
		searchSvc,
		raguc.NewAssembler(logger, assemblerOpts...),
		raguc.NewSynthesizer(completer, logger),
		raguc.Config{K: cfg.answerK},
		logger,
	)
	ingestSvc := ingestuc.New(manager, chunker.New(chunker.WithMaxChunkBytes(cfg.maxChunkBytes)), logger)

	// nil interface, not a typed nil, when the embedder cannot be probed
	var embeddingChecker healthuc.EmbeddingChecker
	if hc, ok := cfg.embedder.(domain.HealthChecker); ok {
		embeddingChecker = hc
	}

	return &Client{
		store:     s,
		handles:   manager,
		askSvc:    askSvc,
		ingestSvc: ingestSvc,
		searchSvc: searchSvc,
		healthSvc: healthuc.New(s, manager, embeddingChecker),
		obs:       obs,
	}, nil
}

// storeConnector binds the repositories to the client's single connection.
// Closing a replaced handle leaves the connection open; the client owns it.
type storeConnector struct {
	store    *dbRedis.Store
	cfg      *clientConfig
	embedder domain.Embedder
}

func (c *storeConnector) Connect(ctx context.Context) (indexuc.Resources, error) {
	if err := c.store.Ping(ctx); err != nil {
		return indexuc.Resources{}, fmt.Errorf("ping: %w", err)
	}

	writer := indexrepo.New(c.store, c.embedder, c.cfg.vectorDimensions, zap.NewNop())
	if c.cfg.hnswM > 0 || c.cfg.hnswEFConstruct > 0 {
		writer = writer.WithHNSW(indexrepo.HNSWConfig{
			M:           c.cfg.hnswM,
			EFConstruct: c.cfg.hnswEFConstruct,
		})
	}

	var health domain.HealthChecker
	if hc, ok := c.cfg.embedder.(domain.HealthChecker); ok {
		health = hc
	}

	return indexuc.Resources{
		Writer:   writer,
		Searcher: searchrepo.New(c.store, searchrepo.Config{}),
		Embedder: c.embedder,
		Health:   health,
	}, nil
}

func toRankerConfig(rc RankerConfig) ranker.Config {
	return ranker.Config{Type: ranker.Type(rc.Type), Params: rc.Params}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.handles != nil {
		c.handles.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err, nil) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Ingest chunks every file and appends all chunks to the index in one write.
// The first rejected file aborts the whole call; see DocumentError.
func (c *Client) Ingest(ctx context.Context, files ...File) (res IngestResult, err error) {
	ctx, usage := domain.NewContextWithUsage(ctx)
	start := time.Now()
	defer func() { c.obs.observe("ingest", start, err, usage) }()

	in := make([]ingestuc.File, len(files))
	for i, f := range files {
		in[i] = ingestuc.File{Name: f.Name, Body: f.Body}
	}

	out, err := c.ingestSvc.Ingest(ctx, in)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest: %w", err)
	}
	return IngestResult{Files: out.Files, Chunks: out.Chunks}, nil
}

// Ask answers question from the indexed documents.
func (c *Client) Ask(ctx context.Context, question string) (ans Answer, err error) {
	ctx, usage := domain.NewContextWithUsage(ctx)
	start := time.Now()
	defer func() { c.obs.observe("ask", start, err, usage) }()

	p, err := c.askSvc.Ask(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}

	sources := make([]Source, len(p.Sources))
	for i, s := range p.Sources {
		sources[i] = Source{Doc: s.Doc, Snippet: s.Snippet}
	}
	return Answer{
		Text:       p.Answer,
		Category:   string(p.Category),
		Confidence: p.Confidence,
		Sources:    sources,
	}, nil
}

// Search runs hybrid retrieval and returns the fused hits, best first.
// Unlike Ask, retrieval failures are returned.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (hits []Hit, err error) {
	ctx, usage := domain.NewContextWithUsage(ctx)
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, usage) }()

	var reqOpts []request.Option
	if opts.K > 0 {
		reqOpts = append(reqOpts, request.WithK(opts.K))
	}
	if opts.FetchK > 0 {
		reqOpts = append(reqOpts, request.WithFetchK(opts.FetchK))
	}
	if opts.Sparse {
		reqOpts = append(reqOpts, request.WithProfile(profile.Sparse))
	}
	if opts.Filter != "" {
		expr, err := filter.Parse(opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		reqOpts = append(reqOpts, request.WithFilter(expr))
	}

	req, err := c.searchSvc.Request(query, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	found, err := c.searchSvc.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits = make([]Hit, len(found))
	for i, h := range found {
		meta := h.Metadata()
		hits[i] = Hit{
			Key:          h.Key(),
			Score:        h.Score(),
			Text:         h.Text(),
			DocumentName: meta.DocumentName,
			SectionName:  meta.SectionName,
			Heading:      meta.Heading,
			SubHeading:   meta.SubHeading,
			Position:     h.Position(),
		}
	}
	return hits, nil
}

// Count returns the number of chunks in collection; "" selects the client's collection.
func (c *Client) Count(ctx context.Context, collection string) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("count", start, err, nil) }()

	n, err = c.ingestSvc.Count(ctx, collection)
	if err != nil {
		return -1, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
