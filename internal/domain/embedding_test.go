package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	calls []string
	err   error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.calls = append(s.calls, text)
	if s.err != nil {
		return EmbeddingResult{}, s.err
	}
	return EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: 1}, nil
}

type stubBatchEmbedder struct {
	stubEmbedder
	batches [][]string
	short   bool
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batches = append(s.batches, texts)
	n := len(texts)
	if s.short {
		n--
	}
	out := BatchEmbeddingResult{TotalTokens: len(texts)}
	for i := 0; i < n; i++ {
		out.Embeddings = append(out.Embeddings, []float32{float32(len(texts[i]))})
	}
	return out, nil
}

func TestBatchFallback_SumsUsage(t *testing.T) {
	e := &stubEmbedder{}
	res, err := BatchFallback(context.Background(), e, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 || res.TotalTokens != 3 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Embeddings[2][0] != 3 {
		t.Errorf("order not preserved: %v", res.Embeddings)
	}
}

func TestBatchFallback_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	_, err := BatchFallback(context.Background(), &stubEmbedder{err: innerErr}, []string{"a"})
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestEmbedAll_SlicesBatches(t *testing.T) {
	e := &stubBatchEmbedder{}
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}

	res, err := EmbedAll(context.Background(), e, texts, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(e.batches))
	}
	if len(res.Embeddings) != 5 {
		t.Fatalf("expected 5 vectors, got %d", len(res.Embeddings))
	}
	for i, v := range res.Embeddings {
		if int(v[0]) != i+1 {
			t.Errorf("vector %d out of order: %v", i, v)
		}
	}
	if res.TotalTokens != 5 {
		t.Errorf("expected 5 tokens, got %d", res.TotalTokens)
	}
}

func TestEmbedAll_FallbackWithoutBatch(t *testing.T) {
	e := &stubEmbedder{}
	res, err := EmbedAll(context.Background(), e, []string{"a", "b", "c"}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.calls) != 3 || len(res.Embeddings) != 3 {
		t.Errorf("expected 3 single calls, got %d", len(e.calls))
	}
}

func TestEmbedAll_CountMismatch(t *testing.T) {
	e := &stubBatchEmbedder{short: true}
	_, err := EmbedAll(context.Background(), e, []string{"a", "b"}, 10)
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestUsage_NilSafe(t *testing.T) {
	var u *Usage
	u.AddEmbeddingTokens(3)
	u.AddCompletionTokens(4)
	if n, used := u.EmbeddingTokens(); n != 0 || used {
		t.Error("nil usage should report nothing")
	}

	ctx, usage := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddEmbeddingTokens(0)
	UsageFromContext(ctx).AddCompletionTokens(12)
	if _, used := usage.EmbeddingTokens(); !used {
		t.Error("embedding should be marked used on cache hit")
	}
	if usage.CompletionTokens() != 12 {
		t.Errorf("expected 12 completion tokens, got %d", usage.CompletionTokens())
	}
}

func TestDocumentError_Unwrap(t *testing.T) {
	err := NewDocumentError("faq.md", ErrEmptyDocument)
	if !errors.Is(err, ErrEmptyDocument) {
		t.Error("expected ErrEmptyDocument in chain")
	}
	var de *DocumentError
	if !errors.As(err, &de) || de.Document != "faq.md" {
		t.Errorf("expected DocumentError for faq.md, got %v", err)
	}
	if err.Error() != `document "faq.md": no valid content` {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestNamespace_Keys(t *testing.T) {
	ns := Namespace{Prefix: "docqa:", Database: "hv_doc", Collection: "collection"}

	if got := ns.RegistryKey(); got != "docqa:db:hv_doc" {
		t.Errorf("RegistryKey() = %q", got)
	}
	if got := ns.IndexName(); got != "docqa:hv_doc:collection:idx" {
		t.Errorf("IndexName() = %q", got)
	}
	if got := ns.ChunkKey("abc"); got != "docqa:hv_doc:collection:chunk:abc" {
		t.Errorf("ChunkKey() = %q", got)
	}
	if got := ns.WithCollection("faq").IndexName(); got != "docqa:hv_doc:faq:idx" {
		t.Errorf("WithCollection().IndexName() = %q", got)
	}
	if ns.Collection != "collection" {
		t.Error("WithCollection must not mutate the receiver")
	}
}
