package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// systemPrompt fixes the output schema and the category set.
var systemPrompt = buildSystemPrompt()

func buildSystemPrompt() string {
	cats := make([]string, len(answer.Categories))
	for i, c := range answer.Categories {
		cats[i] = string(c)
	}
	return "You are an expert assistant. Given a user question and context, " +
		"answer it along with citations for each source.\n" +
		"Answer strictly in this JSON format:\n" +
		`{"answer": "<string>", "category": "<` + strings.Join(cats, "|") + `>", ` +
		`"confidence": <float 0-1>, "sources": [{"doc": "<document_name>", "snippet": "<source_snippet>"}]}`
}

// UserPrompt embeds the context and the verbatim question.
func UserPrompt(contextText, question string) string {
	return "Context: " + contextText + "\nUser Question: " + question + "\nJSON Output:"
}

// Synthesizer prompts the chat model and validates its structured answer.
type Synthesizer struct {
	llm    Completer
	logger *zap.Logger
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(llm Completer, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{llm: llm, logger: logger}
}

// Synthesize asks the model for an answer grounded in contextText.
// Output that does not match the answer schema fails with domain.ErrAnswerFormat;
// it is not retried.
func (s *Synthesizer) Synthesize(ctx context.Context, question, contextText string) (answer.Payload, error) {
	raw, err := s.llm.Complete(ctx, systemPrompt, UserPrompt(contextText, question))
	if err != nil {
		return answer.Payload{}, fmt.Errorf("complete: %w", err)
	}

	payload, err := answer.Parse(raw)
	if err != nil {
		metrics.AnswerFormatErrorsTotal.Inc()
		s.logger.Debug("Model output rejected", zap.String("raw", raw), zap.Error(err))
		return answer.Payload{}, fmt.Errorf("%w: %w", domain.ErrAnswerFormat, err)
	}
	return payload, nil
}
