package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrContentLoad signals an unreadable or undecodable document.
	ErrContentLoad = errors.New("content load failed")
	// ErrChunking signals a splitter failure after a successful load.
	ErrChunking = errors.New("chunking failed")
	// ErrEmptyDocument signals a document that produced no chunks.
	ErrEmptyDocument = errors.New("no valid content")
	// ErrIndexInit signals that the index handle could not be established.
	ErrIndexInit = errors.New("index initialization failed")
	// ErrIndexWrite signals an append failure after a successful init.
	ErrIndexWrite = errors.New("index write failed")
	// ErrRetrieval signals a failed hybrid query. Logged, never returned to callers of Ask.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrAnswerFormat signals model output that does not match the answer schema.
	ErrAnswerFormat = errors.New("invalid answer format")

	// ErrInvalidQuestion signals a missing or oversized question.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidSchema signals an invalid request parameter.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrNoDocuments signals an ingestion request without files.
	ErrNoDocuments = errors.New("no documents provided")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMProviderError signals a chat model provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
)

// DocumentError attributes an ingestion failure to a single document.
type DocumentError struct {
	Document string
	Err      error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %q: %s", e.Document, e.Err.Error())
}

func (e *DocumentError) Unwrap() error { return e.Err }

// NewDocumentError wraps err with the document name.
func NewDocumentError(document string, err error) error {
	return &DocumentError{Document: document, Err: err}
}
