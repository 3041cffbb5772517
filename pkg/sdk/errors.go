package docqa

import "github.com/kailas-cloud/docqa/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrContentLoad            = domain.ErrContentLoad
	ErrChunking               = domain.ErrChunking
	ErrEmptyDocument          = domain.ErrEmptyDocument
	ErrNoDocuments            = domain.ErrNoDocuments
	ErrIndexInit              = domain.ErrIndexInit
	ErrIndexWrite             = domain.ErrIndexWrite
	ErrRetrieval              = domain.ErrRetrieval
	ErrAnswerFormat           = domain.ErrAnswerFormat
	ErrInvalidQuestion        = domain.ErrInvalidQuestion
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrLLMProviderError       = domain.ErrLLMProviderError
)

// DocumentError names the document that aborted an ingestion. Use errors.As() to extract it.
type DocumentError = domain.DocumentError
