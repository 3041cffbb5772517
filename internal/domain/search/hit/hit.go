package hit

import "github.com/kailas-cloud/docqa/internal/domain/chunk"

// Hit is a single retrieved chunk.
type Hit struct {
	key      string
	score    float64
	text     string
	meta     chunk.Metadata
	position int
}

// New creates a search hit.
func New(key string, score float64, text string, meta chunk.Metadata, position int) Hit {
	return Hit{key: key, score: score, text: text, meta: meta, position: position}
}

// Key returns the storage key, unique per chunk.
func (h Hit) Key() string { return h.key }

// Score returns the relevance score (higher is better).
func (h Hit) Score() float64 { return h.score }

// Text returns the chunk content.
func (h Hit) Text() string { return h.text }

// Metadata returns the heading context.
func (h Hit) Metadata() chunk.Metadata { return h.meta }

// Position returns the chunk order within its document.
func (h Hit) Position() int { return h.position }

// WithScore returns a copy of the hit carrying a different score.
func (h Hit) WithScore(score float64) Hit {
	h.score = score
	return h
}
