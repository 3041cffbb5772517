// Package rag answers questions from retrieved document context.
package rag

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/domain/search/filter"
	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
	"github.com/kailas-cloud/docqa/internal/domain/search/profile"
	"github.com/kailas-cloud/docqa/internal/domain/search/request"
)

// MaxQuestionLength bounds the question in characters. The question is the
// retrieval query, so it shares the query limit.
const MaxQuestionLength = request.MaxQueryLength

// Config holds question-answering settings.
type Config struct {
	// K is the number of hits retrieved for the context.
	K int
	// SparseDocuments lists documents whose content is keyword dominated.
	SparseDocuments []string
	// SparseDocumentsK enables a second, sparse-profile pass over SparseDocuments when > 0.
	SparseDocumentsK int
}

// Service runs retrieve, assemble and synthesize for one question.
type Service struct {
	retriever   Retriever
	assembler   *Assembler
	synthesizer *Synthesizer
	cfg         Config
	logger      *zap.Logger
}

// New creates a question-answering service.
func New(retriever Retriever, assembler *Assembler, synthesizer *Synthesizer, cfg Config, logger *zap.Logger) *Service {
	if cfg.K <= 0 {
		cfg.K = 2
	}
	return &Service{
		retriever:   retriever,
		assembler:   assembler,
		synthesizer: synthesizer,
		cfg:         cfg,
		logger:      logger,
	}
}

// Ask answers question. Retrieval failures degrade to an empty context;
// model and format failures are returned.
func (s *Service) Ask(ctx context.Context, question string) (answer.Payload, error) {
	if strings.TrimSpace(question) == "" {
		return answer.Payload{}, fmt.Errorf("%w: question is required", domain.ErrInvalidQuestion)
	}
	if utf8.RuneCountInString(question) > MaxQuestionLength {
		return answer.Payload{}, fmt.Errorf("%w: question too long (max %d chars)",
			domain.ErrInvalidQuestion, MaxQuestionLength)
	}

	hits := s.retrieve(ctx, question, request.WithK(s.cfg.K))
	if extra := s.sparseDocumentHits(ctx, question); len(extra) > 0 {
		hits = append(hits, extra...)
	}

	contextText := s.assembler.Assemble(ctx, hits)
	s.logger.Debug("Prepared context",
		zap.Int("hits", len(hits)),
		zap.Int("context_len", len(contextText)),
	)

	payload, err := s.synthesizer.Synthesize(ctx, question, contextText)
	if err != nil {
		return answer.Payload{}, err
	}

	if contextText == "" && len(payload.Sources) > 0 {
		s.logger.Warn("Dropping sources cited without context", zap.Int("sources", len(payload.Sources)))
		payload.Sources = []answer.Source{}
	}
	return payload, nil
}

// sparseDocumentHits retrieves from the allow-listed keyword-dominated documents
// with the sparse profile.
func (s *Service) sparseDocumentHits(ctx context.Context, question string) []hit.Hit {
	if s.cfg.SparseDocumentsK <= 0 || len(s.cfg.SparseDocuments) == 0 {
		return nil
	}

	cond, err := filter.NewMatchAny(filter.FieldDocumentName, s.cfg.SparseDocuments...)
	if err != nil {
		s.logger.Error("Invalid sparse document allow-list", zap.Error(err))
		return nil
	}
	expr, err := filter.NewExpression([]filter.Condition{cond}, nil, nil)
	if err != nil {
		s.logger.Error("Invalid sparse document filter", zap.Error(err))
		return nil
	}

	return s.retrieve(ctx, question,
		request.WithK(s.cfg.SparseDocumentsK),
		request.WithProfile(profile.Sparse),
		request.WithFilter(expr),
	)
}

func (s *Service) retrieve(ctx context.Context, question string, opts ...request.Option) []hit.Hit {
	req, err := s.retriever.Request(question, opts...)
	if err != nil {
		s.logger.Error("Invalid retrieval request", zap.Error(err))
		return []hit.Hit{}
	}
	return s.retriever.Retrieve(ctx, req)
}
