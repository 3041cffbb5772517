// Package chi exposes the question-answering API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/search/filter"
	"github.com/kailas-cloud/docqa/internal/domain/search/profile"
	"github.com/kailas-cloud/docqa/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/docqa/internal/logger"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docqa/internal/usecase/ingest"
)

// multipartMemory is the part of an upload kept in memory; the rest spills to temp files.
const multipartMemory = 8 << 20

// answerFormatMessage replaces the details of a rejected model output.
const answerFormatMessage = "the model returned an answer in an unexpected format"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements the HTTP handlers.
type Server struct {
	asker          Asker
	ingester       Ingester
	retriever      Retriever
	health         HealthChecker
	maxUploadBytes int64
	sparseDocs     []string
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server. maxUploadBytes bounds a whole ingestion request.
func NewServer(
	asker Asker,
	ingester Ingester,
	retriever Retriever,
	health HealthChecker,
	maxUploadBytes int64,
	logger *zap.Logger,
) *Server {
	s := &Server{
		asker:          asker,
		ingester:       ingester,
		retriever:      retriever,
		health:         health,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
	s.errorHandlers = []errorHandler{
		documentErrorHandler,
		answerFormatHandler,
		sentinelHandler(domain.ErrInvalidQuestion, http.StatusBadRequest, ErrorCodeInvalidQuestion),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrNoDocuments, http.StatusBadRequest, ErrorCodeNoDocuments),
		sentinelHandler(domain.ErrIndexInit, http.StatusServiceUnavailable, ErrorCodeIndexUnavailable),
		sentinelHandler(domain.ErrIndexWrite, http.StatusServiceUnavailable, ErrorCodeIndexWriteFailed),
		sentinelHandler(domain.ErrRetrieval, http.StatusServiceUnavailable, ErrorCodeRetrievalFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, ErrorCodeLLMProviderError),
	}
	return s
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// Ingest handles POST /ingest with one or more multipart "file" fields.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorCodeBadRequest,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["file"]
	files := make([]ingestuc.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
				fmt.Sprintf("cannot read upload %q", fh.Filename))
			return
		}
		defer closeQuietly(f)
		files = append(files, ingestuc.File{Name: fh.Filename, Body: f})
	}

	res, err := s.ingester.Ingest(r.Context(), files)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{Status: "success", Files: res.Files, Chunks: res.Chunks})
}

// Ask handles POST /api/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	payload, err := s.asker.Ask(ctx, req.Question)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, payload)
}

// CountChunks handles GET /collections/count.
func (s *Server) CountChunks(w http.ResponseWriter, r *http.Request) {
	var collection *string
	if err := runtime.BindQueryParameter("form", true, false, "collection", r.URL.Query(), &collection); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid parameter collection: "+err.Error())
		return
	}

	name := ""
	if collection != nil {
		name = *collection
	}

	count, err := s.ingester.Count(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CountResponse{Collection: name, Count: count})
}

// searchParams are the query parameters of GET /api/search.
type searchParams struct {
	Query   string
	K       *int
	FetchK  *int
	Profile *string
	Filter  *string
}

// Search handles GET /api/search; retrieval failures are returned, not hidden.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var p searchParams
	q := r.URL.Query()
	for _, b := range []struct {
		name     string
		required bool
		dest     any
	}{
		{"query", true, &p.Query},
		{"k", false, &p.K},
		{"fetch_k", false, &p.FetchK},
		{"profile", false, &p.Profile},
		{"filter", false, &p.Filter},
	} {
		if err := runtime.BindQueryParameter("form", true, b.required, b.name, q, b.dest); err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
				fmt.Sprintf("Invalid parameter %s: %s", b.name, err.Error()))
			return
		}
	}

	opts, err := s.searchOptions(p)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	req, err := s.retriever.Request(p.Query, opts...)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	hits, err := s.retriever.Search(ctx, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]SearchHit, len(hits))
	for i, h := range hits {
		meta := h.Metadata()
		items[i] = SearchHit{
			Key:          h.Key(),
			Score:        h.Score(),
			DocumentName: meta.DocumentName,
			SectionName:  meta.SectionName,
			Heading:      meta.Heading,
			SubHeading:   meta.SubHeading,
			Position:     h.Position(),
			Text:         h.Text(),
		}
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{Items: items, Total: len(items)})
}

// WithSparseDocuments sets the keyword-dominated documents. A search filtered to
// one of them without an explicit profile uses the sparse profile.
func (s *Server) WithSparseDocuments(names []string) *Server {
	s.sparseDocs = names
	return s
}

func (s *Server) searchOptions(p searchParams) ([]request.Option, error) {
	var opts []request.Option
	if p.K != nil {
		if *p.K <= 0 || *p.K > request.MaxK {
			return nil, fmt.Errorf("k must be between 1 and %d", request.MaxK)
		}
		opts = append(opts, request.WithK(*p.K))
	}
	if p.FetchK != nil {
		if *p.FetchK <= 0 || *p.FetchK > request.MaxK {
			return nil, fmt.Errorf("fetch_k must be between 1 and %d", request.MaxK)
		}
		opts = append(opts, request.WithFetchK(*p.FetchK))
	}
	if p.Profile != nil {
		opts = append(opts, request.WithProfile(profile.Profile(*p.Profile)))
	}
	if p.Filter != nil && *p.Filter != "" {
		expr, err := filter.Parse(*p.Filter)
		if err != nil {
			return nil, fmt.Errorf("parse filter: %w", err)
		}
		opts = append(opts, request.WithFilter(expr))
		if p.Profile == nil {
			if doc, ok := singleDocument(expr); ok {
				opts = append(opts, request.WithProfile(profile.ForDocument(doc, s.sparseDocs)))
			}
		}
	}
	return opts, nil
}

// singleDocument reports the document a filter pins with one document_name match.
func singleDocument(expr filter.Expression) (string, bool) {
	var doc string
	for _, c := range expr.Must() {
		if c.Key() != filter.FieldDocumentName || !c.IsMatch() || len(c.Values()) != 1 {
			continue
		}
		if doc != "" {
			return "", false
		}
		doc = c.Values()[0]
	}
	return doc, doc != ""
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if tokens, used := usage.EmbeddingTokens(); used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(tokens))
	}
	if tokens := usage.CompletionTokens(); tokens > 0 {
		w.Header().Set("X-Completion-Tokens", strconv.Itoa(tokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func closeQuietly(f multipart.File) {
	_ = f.Close()
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrContentLoad,
		domain.ErrChunking,
		domain.ErrEmptyDocument,
		domain.ErrInvalidQuestion,
		domain.ErrInvalidSchema,
		domain.ErrNoDocuments,
		domain.ErrIndexInit,
		domain.ErrIndexWrite,
		domain.ErrRetrieval,
		domain.ErrEmbeddingProviderError,
		domain.ErrLLMProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// documentErrorHandler names the rejected file and the cause of an ingestion failure.
func documentErrorHandler(w http.ResponseWriter, err error, _ string) bool {
	var de *domain.DocumentError
	if !errors.As(err, &de) {
		return false
	}
	writeError(w, http.StatusUnprocessableEntity, ErrorCodeDocumentRejected,
		fmt.Sprintf("document %q: %s", de.Document, safeDomainMessage(de.Err)))
	return true
}

// answerFormatHandler hides the rejected model output behind a generic message.
func answerFormatHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrAnswerFormat) {
		return false
	}
	writeError(w, http.StatusBadGateway, ErrorCodeAnswerFormat, answerFormatMessage)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
