package docqa

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// RankerConfig selects a fusion ranker: "rrf" (param "k") or "weighted"
// (params "weights" and "norm_score").
type RankerConfig struct {
	Type   string
	Params map[string]any
}

type clientConfig struct {
	addrs    []string
	username string
	password string

	prefix     string
	database   string
	collection string

	embedder         Embedder
	vectorDimensions int
	completer        Completer

	hnswM           int
	hnswEFConstruct int

	k            int
	fetchK       int
	answerK      int
	ranker       RankerConfig
	sparseRanker *RankerConfig

	contextTokens   int
	contextEncoding string
	maxChunkBytes   int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		prefix:           "docqa:",
		database:         "hv_doc",
		collection:       "collection",
		vectorDimensions: 1024,
		answerK:          2,
		ranker:           RankerConfig{Type: "rrf"},
		contextEncoding:  "cl100k_base",
	}
}

// WithRedis configures the client to connect to a Redis instance with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithACLUser sets the Redis ACL user name.
func WithACLUser(username string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
	})
}

// WithNamespace selects the logical database and collection.
// Defaults: database "hv_doc", collection "collection".
func WithNamespace(database, collection string) Option {
	return optionFunc(func(c *clientConfig) {
		if database != "" {
			c.database = database
		}
		if collection != "" {
			c.collection = collection
		}
	})
}

// WithKeyPrefix prefixes every key the client writes. Default: "docqa:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.prefix = prefix
	})
}

// WithEmbedder sets the text embedding provider and the vector dimension it produces.
func WithEmbedder(e Embedder, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		if dimensions > 0 {
			c.vectorDimensions = dimensions
		}
	})
}

// WithCompleter sets the chat model used to synthesize answers.
func WithCompleter(cmp Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = cmp
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=32, EFConstruct=250.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithRetrieval sets the default result count and per-side candidate count of Search.
// Defaults: k=10, fetchK=50.
func WithRetrieval(k, fetchK int) Option {
	return optionFunc(func(c *clientConfig) {
		c.k = k
		c.fetchK = fetchK
	})
}

// WithAnswerK sets how many chunks back an answer. Default: 2.
func WithAnswerK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.answerK = k
	})
}

// WithRanker sets the default fusion ranker. Default: rrf with k=60.
func WithRanker(rc RankerConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.ranker = rc
	})
}

// WithSparseRanker sets the ranker of the sparse profile. Defaults to the default ranker.
func WithSparseRanker(rc RankerConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.sparseRanker = &rc
	})
}

// WithContextTokenBudget bounds the answer context to maxTokens tokens of the
// given tiktoken encoding. Zero disables the bound (default).
func WithContextTokenBudget(maxTokens int, encoding string) Option {
	return optionFunc(func(c *clientConfig) {
		c.contextTokens = maxTokens
		if encoding != "" {
			c.contextEncoding = encoding
		}
	})
}

// WithMaxChunkBytes rejects documents producing a chunk larger than n bytes. Zero means unlimited.
func WithMaxChunkBytes(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxChunkBytes = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
