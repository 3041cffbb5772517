package chi

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeInvalidQuestion        ErrorCode = "invalid_question"
	ErrorCodeNoDocuments            ErrorCode = "no_documents"
	ErrorCodeDocumentRejected       ErrorCode = "document_rejected"
	ErrorCodeIndexUnavailable       ErrorCode = "index_unavailable"
	ErrorCodeIndexWriteFailed       ErrorCode = "index_write_failed"
	ErrorCodeRetrievalFailed        ErrorCode = "retrieval_failed"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeLLMProviderError       ErrorCode = "llm_provider_error"
	ErrorCodeAnswerFormat           ErrorCode = "answer_format_error"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// IngestResponse is the reply of POST /ingest.
type IngestResponse struct {
	Status string `json:"status"`
	Files  int    `json:"files"`
	Chunks int    `json:"chunks"`
}

// CountResponse is the reply of GET /collections/count.
type CountResponse struct {
	Collection string `json:"collection,omitempty"`
	Count      int    `json:"count"`
}

// HealthResponse is the reply of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SearchHit is one retrieved chunk in GET /api/search.
type SearchHit struct {
	Key          string  `json:"key"`
	Score        float64 `json:"score"`
	DocumentName string  `json:"document_name"`
	SectionName  string  `json:"section_name"`
	Heading      string  `json:"heading"`
	SubHeading   string  `json:"sub_heading"`
	Position     int     `json:"position"`
	Text         string  `json:"text"`
}

// SearchResponse is the reply of GET /api/search.
type SearchResponse struct {
	Items []SearchHit `json:"items"`
	Total int         `json:"total"`
}
