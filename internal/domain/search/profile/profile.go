package profile

import (
	"slices"

	"github.com/kailas-cloud/docqa/internal/domain/search/ranker"
)

// Profile selects the fusion ranker used by a retrieval.
type Profile string

// Retrieval profiles.
const (
	// Default fuses with the general-purpose ranker.
	Default Profile = "default"
	// Sparse fuses with the ranker tuned for keyword-dominated documents.
	Sparse Profile = "sparse"
)

// IsValid checks if the profile is one of the supported values.
func (p Profile) IsValid() bool {
	return p == Default || p == Sparse
}

// ForDocument returns Sparse when name is on the allow-list of sparse-dominated documents.
func ForDocument(name string, allowList []string) Profile {
	if slices.Contains(allowList, name) {
		return Sparse
	}
	return Default
}

// Rankers maps each profile to its ranker configuration.
type Rankers struct {
	Default ranker.Config
	Sparse  ranker.Config
}

// For returns the ranker configuration of p. Unknown profiles use Default.
func (r Rankers) For(p Profile) ranker.Config {
	if p == Sparse {
		return r.Sparse
	}
	return r.Default
}
