package request

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/docqa/internal/domain/search/filter"
	"github.com/kailas-cloud/docqa/internal/domain/search/profile"
	"github.com/kailas-cloud/docqa/internal/domain/search/ranker"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in characters.
	MaxQueryLength = 4096
	DefaultK       = 10
	DefaultFetchK  = 50
	MaxK           = 500
)

// Request is a validated hybrid retrieval query.
type Request struct {
	query   string
	k       int
	fetchK  int
	filters filter.Expression
	profile profile.Profile
	ranker  *ranker.Config
}

// Option configures a Request.
type Option func(*Request)

// WithK sets the number of fused hits to return.
func WithK(k int) Option {
	return func(r *Request) { r.k = k }
}

// WithFetchK sets the number of candidates each sub-search contributes.
func WithFetchK(fetchK int) Option {
	return func(r *Request) { r.fetchK = fetchK }
}

// WithFilter sets the metadata pre-filter.
func WithFilter(expr filter.Expression) Option {
	return func(r *Request) { r.filters = expr }
}

// WithProfile selects the retrieval profile.
func WithProfile(p profile.Profile) Option {
	return func(r *Request) { r.profile = p }
}

// WithRanker overrides the profile's ranker for this request.
func WithRanker(cfg ranker.Config) Option {
	return func(r *Request) { r.ranker = &cfg }
}

// New validates and normalizes retrieval parameters.
// Defaults: k=10, fetch_k=50, profile=default. fetch_k may be below k; it caps
// each sub-search independently of the final cut.
func New(query string, opts ...Option) (Request, error) {
	r := Request{query: query}
	for _, opt := range opts {
		opt(&r)
	}

	if strings.TrimSpace(r.query) == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if utf8.RuneCountInString(r.query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if r.k < 0 || r.fetchK < 0 {
		return Request{}, fmt.Errorf("k and fetch_k must be non-negative")
	}
	if r.k == 0 {
		r.k = DefaultK
	}
	if r.k > MaxK {
		r.k = MaxK
	}
	if r.fetchK == 0 {
		r.fetchK = DefaultFetchK
	}
	if r.fetchK > MaxK {
		r.fetchK = MaxK
	}
	if r.profile == "" {
		r.profile = profile.Default
	}
	if !r.profile.IsValid() {
		return Request{}, fmt.Errorf("invalid retrieval profile: %q", r.profile)
	}
	if r.ranker != nil {
		if _, err := ranker.New(*r.ranker); err != nil {
			return Request{}, fmt.Errorf("invalid ranker: %w", err)
		}
	}

	return r, nil
}

// Query returns the query text.
func (r *Request) Query() string { return r.query }

// K returns the number of fused hits to return.
func (r *Request) K() int { return r.k }

// FetchK returns the number of candidates per sub-search.
func (r *Request) FetchK() int { return r.fetchK }

// Filters returns the pre-filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// Profile returns the retrieval profile.
func (r *Request) Profile() profile.Profile { return r.profile }

// Ranker returns the per-request ranker override, or nil.
func (r *Request) Ranker() *ranker.Config { return r.ranker }
