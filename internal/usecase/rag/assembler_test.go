package rag

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
)

func TestAssemble_Empty(t *testing.T) {
	a := NewAssembler(zap.NewNop())
	if got := a.Assemble(context.Background(), nil); got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
	if got := a.Assemble(context.Background(), []hit.Hit{}); got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
}

func TestAssemble_BlockFormat(t *testing.T) {
	a := NewAssembler(zap.NewNop())
	hits := []hit.Hit{
		newHit("k1", "## Refunds\nWithin 30 days.", chunk.Metadata{
			DocumentName: "faq.md", SectionName: "FAQ", Heading: "Refunds",
		}),
		newHit("k2", "Plain text", chunk.Metadata{DocumentName: "notes.md"}),
	}

	want := "document_name: faq.md\n" +
		"section_name: FAQ\n" +
		"heading: Refunds\n" +
		"sub_heading: \n" +
		"page_content: ## Refunds\nWithin 30 days.\n" +
		"\n" +
		"document_name: notes.md\n" +
		"section_name: \n" +
		"heading: \n" +
		"sub_heading: \n" +
		"page_content: Plain text"

	if got := a.Assemble(context.Background(), hits); got != want {
		t.Errorf("unexpected context:\n%s\nwant:\n%s", got, want)
	}
}

func TestAssemble_DeduplicatesByText(t *testing.T) {
	a := NewAssembler(zap.NewNop())
	hits := []hit.Hit{
		newHit("k1", "Same text", chunk.Metadata{DocumentName: "a.md"}),
		newHit("k2", "Other", chunk.Metadata{}),
		newHit("k3", "Same text", chunk.Metadata{DocumentName: "b.md"}),
		newHit("k4", "same text", chunk.Metadata{}),
	}

	got := a.Assemble(context.Background(), hits)

	if n := strings.Count(got, "page_content: Same text"); n != 1 {
		t.Errorf("expected one block for duplicated text, got %d", n)
	}
	if !strings.Contains(got, "document_name: a.md") || strings.Contains(got, "document_name: b.md") {
		t.Errorf("first occurrence must be kept:\n%s", got)
	}
	if !strings.Contains(got, "page_content: same text") {
		t.Error("dedup is case-sensitive")
	}
	if n := strings.Count(got, "document_name:"); n != 3 {
		t.Errorf("expected 3 blocks, got %d", n)
	}
}

func TestAssemble_SkipsMalformedHits(t *testing.T) {
	a := NewAssembler(zap.NewNop())
	hits := []hit.Hit{
		newHit("k1", "  \n", chunk.Metadata{}),
		newHit("k2", "Bad heading", chunk.Metadata{Heading: "two\nlines"}),
		newHit("k3", "Good", chunk.Metadata{}),
	}

	got := a.Assemble(context.Background(), hits)
	if n := strings.Count(got, "document_name:"); n != 1 {
		t.Fatalf("expected only the valid hit, got %d blocks:\n%s", n, got)
	}
	if !strings.HasSuffix(got, "page_content: Good") {
		t.Errorf("unexpected context: %q", got)
	}
}

func TestAssemble_MalformedDuplicateDoesNotShadowLaterValidHit(t *testing.T) {
	a := NewAssembler(zap.NewNop())
	hits := []hit.Hit{
		newHit("k1", "Shared", chunk.Metadata{SubHeading: "bad\r"}),
		newHit("k2", "Shared", chunk.Metadata{}),
	}
	if got := a.Assemble(context.Background(), hits); !strings.Contains(got, "page_content: Shared") {
		t.Errorf("valid hit must survive a malformed earlier copy, got %q", got)
	}
}

func TestAssemble_TokenBudget(t *testing.T) {
	// each block below is 11 words: 5 labels, 4 metadata values, 2 content words
	meta := chunk.Metadata{DocumentName: "faq.md", SectionName: "S", Heading: "H", SubHeading: "X"}
	hits := []hit.Hit{
		newHit("k1", "first block", meta),
		newHit("k2", "second block", meta),
		newHit("k3", "third block", meta),
	}

	tests := []struct {
		name      string
		maxTokens int
		want      int
	}{
		{"unbounded", 0, 3},
		{"exactly two", 22, 2},
		{"below one block", 10, 0},
		{"room for all", 100, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAssembler(zap.NewNop(), WithTokenBudget(tc.maxTokens, wordCounter))
			got := a.Assemble(context.Background(), hits)
			if n := strings.Count(got, "page_content:"); n != tc.want {
				t.Errorf("expected %d blocks, got %d", tc.want, n)
			}
			if tc.want > 0 && !strings.Contains(got, "first block") {
				t.Error("budget must keep blocks in rank order")
			}
		})
	}
}
