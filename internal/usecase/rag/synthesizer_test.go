package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

func TestSynthesize_Success(t *testing.T) {
	llm := &mockCompleter{out: "```json\n" + validAnswer + "\n```"}
	s := NewSynthesizer(llm, zap.NewNop())

	got, err := s.Synthesize(context.Background(), "What is the refund policy?", "ctx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Category != answer.CategoryPricing || got.Confidence != 0.8 || len(got.Sources) != 1 {
		t.Errorf("unexpected payload: %+v", got)
	}

	if llm.lastUser != "Context: ctx\nUser Question: What is the refund policy?\nJSON Output:" {
		t.Errorf("unexpected user prompt: %q", llm.lastUser)
	}
	for _, c := range answer.Categories {
		if !strings.Contains(llm.lastSystem, string(c)) {
			t.Errorf("system prompt must list category %q", c)
		}
	}
	if !strings.Contains(llm.lastSystem, `"confidence": <float 0-1>`) {
		t.Errorf("system prompt must fix the schema: %q", llm.lastSystem)
	}
}

func TestSynthesize_InvalidCategory(t *testing.T) {
	llm := &mockCompleter{out: `{"answer":"...", "category":"unknown", "confidence":0.9, "sources":[]}`}
	s := NewSynthesizer(llm, zap.NewNop())

	before := testutil.ToFloat64(metrics.AnswerFormatErrorsTotal)

	_, err := s.Synthesize(context.Background(), "q", "")
	if !errors.Is(err, domain.ErrAnswerFormat) {
		t.Fatalf("expected ErrAnswerFormat, got %v", err)
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("error should name the failed rule, got %v", err)
	}
	if after := testutil.ToFloat64(metrics.AnswerFormatErrorsTotal); after != before+1 {
		t.Errorf("expected format error counter to increment, got %v -> %v", before, after)
	}
}

func TestSynthesize_RejectsBadOutput(t *testing.T) {
	tests := []struct {
		name string
		out  string
	}{
		{"not json", "I think the answer is yes."},
		{"confidence too high", `{"answer":"a","category":"api","confidence":1.5,"sources":[]}`},
		{"missing answer", `{"category":"api","confidence":0.5,"sources":[]}`},
		{"unknown field", `{"answer":"a","category":"api","confidence":0.5,"sources":[],"extra":1}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSynthesizer(&mockCompleter{out: tc.out}, zap.NewNop())
			if _, err := s.Synthesize(context.Background(), "q", "c"); !errors.Is(err, domain.ErrAnswerFormat) {
				t.Errorf("expected ErrAnswerFormat, got %v", err)
			}
		})
	}
}

func TestSynthesize_ProviderError(t *testing.T) {
	llm := &mockCompleter{err: domain.ErrLLMProviderError}
	s := NewSynthesizer(llm, zap.NewNop())

	_, err := s.Synthesize(context.Background(), "q", "c")
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
	if errors.Is(err, domain.ErrAnswerFormat) {
		t.Error("provider errors are not format errors")
	}
}
