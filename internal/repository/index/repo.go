package index

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/db"
	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
)

// DefaultEmbedBatchSize is the number of texts embedded per provider call.
const DefaultEmbedBatchSize = 128

// store is the consumer interface for the chunk index (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo writes chunks into a hybrid FT index. It never updates stored chunks and
// deletes only the chunks of a failed AddChunks call.
type Repo struct {
	store     store
	embedder  domain.Embedder
	vectorDim int
	hnsw      HNSWConfig
	batchSize int
	logger    *zap.Logger
}

// New creates an index repository.
func New(s store, embedder domain.Embedder, vectorDim int, logger *zap.Logger) *Repo {
	return &Repo{
		store:     s,
		embedder:  embedder,
		vectorDim: vectorDim,
		hnsw:      HNSWConfig{M: 32, EFConstruct: 250},
		batchSize: DefaultEmbedBatchSize,
		logger:    logger,
	}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// WithBatchSize configures how many chunks are embedded and written per round-trip.
func (r *Repo) WithBatchSize(n int) *Repo {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

// EnsureIndex creates the logical database and the collection index when absent.
// Reports whether the collection index was created by this call.
func (r *Repo) EnsureIndex(ctx context.Context, ns domain.Namespace) (bool, error) {
	regKey := ns.RegistryKey()
	exists, err := r.store.Exists(ctx, regKey)
	if err != nil {
		return false, fmt.Errorf("check database %s: %w", ns.Database, err)
	}
	if !exists {
		if err := r.store.HSet(ctx, regKey, map[string]string{"name": ns.Database}); err != nil {
			return false, fmt.Errorf("create database %s: %w", ns.Database, err)
		}
		r.logger.Info("Database created", zap.String("database", ns.Database))
	}

	idxName := ns.IndexName()
	idxExists, err := r.store.IndexExists(ctx, idxName)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", idxName, err)
	}
	if idxExists {
		return false, nil
	}

	def, err := buildIndex(ns, r.vectorDim, r.hnsw)
	if err != nil {
		return false, fmt.Errorf("index definition %s: %w", idxName, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		// lost a creation race with another process
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", idxName, err)
	}

	r.logger.Info("Collection index created",
		zap.String("index", idxName),
		zap.Int("vector_dim", r.vectorDim),
	)
	return true, nil
}

// AddChunks embeds and appends chunks, one embedding call and one pipelined
// HSET per batch. When a batch fails, the chunks of this call written so far
// are deleted again.
func (r *Repo) AddChunks(ctx context.Context, ns domain.Namespace, chunks []chunk.Chunk) error {
	for start := 0; start < len(chunks); start += r.batchSize {
		end := min(start+r.batchSize, len(chunks))
		if err := r.addBatch(ctx, ns, chunks[start:end]); err != nil {
			r.rollback(ctx, ns, chunks[:end])
			return fmt.Errorf("%w: chunks [%d:%d]: %w", domain.ErrIndexWrite, start, end, err)
		}
	}
	return nil
}

// rollback deletes the keys of chunks, including a partially written last batch.
// The write error is what the caller sees; a failed rollback is only logged.
func (r *Repo) rollback(ctx context.Context, ns domain.Namespace, chunks []chunk.Chunk) {
	keys := make([]string, len(chunks))
	for i, c := range chunks {
		keys[i] = ns.ChunkKey(c.ID())
	}
	if err := r.store.Del(context.WithoutCancel(ctx), keys...); err != nil {
		r.logger.Error("Failed to remove chunks of a failed write",
			zap.String("collection", ns.Collection),
			zap.Int("chunks", len(keys)),
			zap.Error(err))
		return
	}
	r.logger.Warn("Removed chunks of a failed write",
		zap.String("collection", ns.Collection), zap.Int("chunks", len(keys)))
}

func (r *Repo) addBatch(ctx context.Context, ns domain.Namespace, batch []chunk.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text()
	}

	res, err := domain.EmbedAll(ctx, r.embedder, texts, len(texts))
	if err != nil {
		return err
	}

	items := make([]db.HashSetItem, len(batch))
	for i, c := range batch {
		vec := res.Embeddings[i]
		if len(vec) != r.vectorDim {
			return fmt.Errorf("vector dim %d, index expects %d: %w",
				len(vec), r.vectorDim, domain.ErrEmbeddingProviderError)
		}
		items[i] = db.HashSetItem{Key: ns.ChunkKey(c.ID()), Fields: chunkToHash(c, vec)}
	}

	return r.store.HSetMulti(ctx, items)
}

// Count returns the number of indexed chunks in the collection, -1 on failure.
func (r *Repo) Count(ctx context.Context, ns domain.Namespace) int {
	n, err := r.store.SearchCount(ctx, ns.IndexName(), "*")
	if err != nil {
		r.logger.Warn("Failed to count collection",
			zap.String("collection", ns.Collection), zap.Error(err))
		return -1
	}
	return n
}

func chunkToHash(c chunk.Chunk, vec []float32) map[string]string {
	return map[string]string{
		FieldText:         c.Text(),
		FieldDocumentName: tagValue(c.DocumentName()),
		FieldSectionName:  tagValue(c.SectionName()),
		FieldHeading:      tagValue(c.Heading()),
		FieldSubHeading:   tagValue(c.SubHeading()),
		FieldPosition:     strconv.Itoa(c.Position()),
		FieldVector:       vectorToBytes(vec),
	}
}

// vectorToBytes serializes a vector as little-endian FLOAT32, the HASH vector encoding.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
