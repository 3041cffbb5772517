package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the docqa service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Index     IndexConfig     `yaml:"index"`
	Sparse    SparseConfig    `yaml:"sparse"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Answer    AnswerConfig    `yaml:"answer"`
	Context   ContextConfig   `yaml:"context"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds index store connection settings.
type DatabaseConfig struct {
	Addrs             []string `yaml:"addrs" validate:"min=1"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	Name              string   `yaml:"db_name"`
	Collection        string   `yaml:"collection"`
	ConnectTimeoutSec int      `yaml:"connect_timeout_sec"`
}

// IndexConfig holds HNSW tuning and write batching.
type IndexConfig struct {
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	EFRuntime       int    `yaml:"ef_runtime"`
	EmbedBatchSize  int    `yaml:"embed_batch_size"`
	KeyPrefix       string `yaml:"key_prefix"`
}

// SparseConfig holds BM25 settings for the lexical side.
type SparseConfig struct {
	Scorer          string  `yaml:"scorer"`
	DropRatioSearch float64 `yaml:"drop_ratio_search" validate:"gte=0,lt=1"`
}

// RankerConfig names a fusion ranker and its parameters.
type RankerConfig struct {
	Type   string         `yaml:"type"` // rrf | weighted
	Params map[string]any `yaml:"params"`
}

// RetrievalConfig holds hybrid search defaults.
type RetrievalConfig struct {
	K               int          `yaml:"k"`
	FetchK          int          `yaml:"fetch_k"`
	Ranker          RankerConfig `yaml:"ranker"`
	SparseRanker    RankerConfig `yaml:"sparse_ranker"`
	SparseDocuments []string     `yaml:"sparse_documents"`
	SparseDocsK     int          `yaml:"sparse_documents_k"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model" validate:"required"`
	Dimensions int    `yaml:"dimensions" validate:"gt=0"`
	Cache      bool   `yaml:"cache"`
}

// LLMConfig holds the chat model settings.
type LLMConfig struct {
	Provider       string  `yaml:"provider"`
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model" validate:"required"`
	Temperature    float32 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens      int     `yaml:"max_tokens"`
	ResponseFormat string  `yaml:"response_format" validate:"oneof=json_schema json_object text"`
}

// AnswerConfig holds question-answering settings.
type AnswerConfig struct {
	K int `yaml:"k"`
}

// ContextConfig bounds the assembled context.
type ContextConfig struct {
	MaxTokens int    `yaml:"max_tokens"` // 0 = unbounded
	Encoding  string `yaml:"encoding"`
}

// IngestConfig holds ingestion limits.
type IngestConfig struct {
	MaxChunkBytes int `yaml:"max_chunk_bytes"` // 0 = unlimited
	MaxUploadMB   int `yaml:"max_upload_mb"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory is loaded first when present.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML config bytes, expanding ${VAR} references.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8098
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Name == "" {
		c.Database.Name = "hv_doc"
	}
	if c.Database.Collection == "" {
		c.Database.Collection = "collection"
	}
	if c.Database.ConnectTimeoutSec <= 0 {
		c.Database.ConnectTimeoutSec = 30
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 32
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 250
	}
	if c.Index.EFRuntime <= 0 {
		c.Index.EFRuntime = 250
	}
	if c.Index.EmbedBatchSize <= 0 {
		c.Index.EmbedBatchSize = 128
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "docqa:"
	}
	if c.Sparse.Scorer == "" {
		c.Sparse.Scorer = "BM25STD"
	}
	if c.Retrieval.K <= 0 {
		c.Retrieval.K = 10
	}
	if c.Retrieval.FetchK <= 0 {
		c.Retrieval.FetchK = 50
	}
	if c.Retrieval.Ranker.Type == "" {
		c.Retrieval.Ranker.Type = "rrf"
	}
	if c.Retrieval.SparseRanker.Type == "" {
		c.Retrieval.SparseRanker.Type = c.Retrieval.Ranker.Type
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = "EMPTY"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = "EMPTY"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 4000
	}
	if c.LLM.ResponseFormat == "" {
		c.LLM.ResponseFormat = "json_schema"
	}
	if c.Answer.K <= 0 {
		c.Answer.K = 2
	}
	if c.Context.Encoding == "" {
		c.Context.Encoding = "cl100k_base"
	}
	if c.Ingest.MaxUploadMB <= 0 {
		c.Ingest.MaxUploadMB = 32
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("%s failed on %q (value %v)", e.Namespace(), e.Tag(), e.Value())
		}
		return fmt.Errorf("validate: %w", err)
	}
	for name, rc := range map[string]RankerConfig{
		"retrieval.ranker":        c.Retrieval.Ranker,
		"retrieval.sparse_ranker": c.Retrieval.SparseRanker,
	} {
		switch rc.Type {
		case "rrf", "weighted":
			// ok
		default:
			return fmt.Errorf("%s.type must be \"rrf\" or \"weighted\", got %q", name, rc.Type)
		}
	}
	if c.Retrieval.SparseDocsK < 0 {
		return fmt.Errorf("retrieval.sparse_documents_k must be >= 0, got %d", c.Retrieval.SparseDocsK)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
