// Package ranker fuses the dense and sparse candidate lists of a hybrid search.
package ranker

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
)

// Type names a fusion strategy.
type Type string

// Supported fusion strategies.
const (
	RRF      Type = "rrf"
	Weighted Type = "weighted"
)

// DefaultRRFK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const DefaultRRFK = 60

// Config selects a fusion strategy and its parameters.
// RRF reads "k"; Weighted reads "weights" (dense, sparse) and "norm_score".
type Config struct {
	Type   Type
	Params map[string]any
}

// Ranker merges candidate lists into one ranking.
type Ranker interface {
	// Fuse returns at most k hits ordered by fused score, highest first.
	// Hits are identified by Key; ties keep first-seen order, dense list first.
	Fuse(dense, sparse []hit.Hit, k int) []hit.Hit
	Type() Type
}

// New validates cfg and builds the matching ranker.
func New(cfg Config) (Ranker, error) {
	switch cfg.Type {
	case RRF, "":
		k := float64(DefaultRRFK)
		if v, ok := cfg.Params["k"]; ok {
			f, err := toFloat(v)
			if err != nil {
				return nil, fmt.Errorf("rrf param k: %w", err)
			}
			if f <= 0 || f >= 16384 {
				return nil, fmt.Errorf("rrf param k must be in (0, 16384), got %g", f)
			}
			k = f
		}
		return rrf{k: k}, nil

	case Weighted:
		w := weighted{dense: 0.5, sparse: 0.5, norm: true}
		if v, ok := cfg.Params["weights"]; ok {
			ws, err := toFloats(v)
			if err != nil {
				return nil, fmt.Errorf("weighted param weights: %w", err)
			}
			if len(ws) != 2 {
				return nil, fmt.Errorf("weighted param weights needs 2 values (dense, sparse), got %d", len(ws))
			}
			for _, x := range ws {
				if x < 0 || x > 1 {
					return nil, fmt.Errorf("weighted param weights must be in [0, 1], got %g", x)
				}
			}
			w.dense, w.sparse = ws[0], ws[1]
		}
		if v, ok := cfg.Params["norm_score"]; ok {
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("weighted param norm_score must be a bool, got %T", v)
			}
			w.norm = b
		}
		return w, nil

	default:
		return nil, fmt.Errorf("unknown ranker type %q", cfg.Type)
	}
}

type rrf struct {
	k float64
}

func (r rrf) Type() Type { return RRF }

// Fuse scores each hit as sum of 1/(k + rank) over the lists it appears in (rank is 1-based).
func (r rrf) Fuse(dense, sparse []hit.Hit, k int) []hit.Hit {
	return fuse(dense, sparse, k, func(rank int, _ hit.Hit) float64 {
		return 1.0 / (r.k + float64(rank+1))
	}, func(rank int, _ hit.Hit) float64 {
		return 1.0 / (r.k + float64(rank+1))
	})
}

type weighted struct {
	dense, sparse float64
	norm          bool
}

func (w weighted) Type() Type { return Weighted }

// Fuse scores each hit as the weighted sum of its per-list scores.
// With norm_score, sparse (BM25) scores are mapped into [0, 1) by 2/pi*atan(s);
// dense cosine similarity is already in [0, 1].
func (w weighted) Fuse(dense, sparse []hit.Hit, k int) []hit.Hit {
	return fuse(dense, sparse, k, func(_ int, h hit.Hit) float64 {
		return w.dense * h.Score()
	}, func(_ int, h hit.Hit) float64 {
		s := h.Score()
		if w.norm {
			s = ArctanNorm(s)
		}
		return w.sparse * s
	})
}

// ArctanNorm maps a non-negative unbounded score into [0, 1).
func ArctanNorm(s float64) float64 {
	return 2 / math.Pi * math.Atan(s)
}

type contribution func(rank int, h hit.Hit) float64

func fuse(dense, sparse []hit.Hit, k int, denseScore, sparseScore contribution) []hit.Hit {
	type scored struct {
		h     hit.Hit
		score float64
	}

	merged := make(map[string]*scored, len(dense)+len(sparse))
	order := make([]*scored, 0, len(dense)+len(sparse))

	add := func(list []hit.Hit, score contribution) {
		for rank, h := range list {
			s := score(rank, h)
			if existing, ok := merged[h.Key()]; ok {
				existing.score += s
				continue
			}
			entry := &scored{h: h, score: s}
			merged[h.Key()] = entry
			order = append(order, entry)
		}
	}
	add(dense, denseScore)
	add(sparse, sparseScore)

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].score > order[j].score
	})

	if k >= 0 && len(order) > k {
		order = order[:k]
	}

	out := make([]hit.Hit, len(order))
	for i, s := range order {
		out[i] = s.h.WithScore(s.score)
	}
	return out
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func toFloats(v any) ([]float64, error) {
	switch vs := v.(type) {
	case []float64:
		return vs, nil
	case []any:
		out := make([]float64, len(vs))
		for i, x := range vs {
			f, err := toFloat(x)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list of numbers, got %T", v)
	}
}
