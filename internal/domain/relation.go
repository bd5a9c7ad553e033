package domain

import (
	"crypto/sha256"
	"fmt"
	"unicode/utf8"
)

// Relation is a labeled, undirected connection between two entities.
// Endpoints are stored normalized so that Source <= Target.
type Relation struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"relation"`
}

// NewRelation creates a relation with normalized endpoints and a generated ID
func NewRelation(a, b, label string) *Relation {
	src, dst := NormalizePair(a, b)
	return &Relation{
		ID:     PairID(src, dst),
		Source: src,
		Target: dst,
		Label:  label,
	}
}

// Validate rejects empty endpoints, self-loops and non-UTF-8 labels
func (r *Relation) Validate() error {
	if err := ValidateID(r.Source); err != nil {
		return fmt.Errorf("%w: empty endpoint", ErrInvalidRelation)
	}
	if err := ValidateID(r.Target); err != nil {
		return fmt.Errorf("%w: empty endpoint", ErrInvalidRelation)
	}
	if r.Source == r.Target {
		return fmt.Errorf("%w: self-loop on %q", ErrInvalidRelation, r.Source)
	}
	if !utf8.ValidString(r.Label) {
		return fmt.Errorf("%w: label is not valid UTF-8", ErrInvalidRelation)
	}
	return nil
}

// Other returns the endpoint opposite id
func (r *Relation) Other(id string) string {
	if r.Source == id {
		return r.Target
	}
	return r.Source
}

// NormalizePair orders two identifiers so the pair has one canonical form
func NormalizePair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// PairID creates a deterministic ID for the unordered pair. The label is
// not part of the key: a pair carries at most one relation.
func PairID(a, b string) string {
	a, b = NormalizePair(a, b)
	key := fmt.Sprintf("%s\x00%s", a, b)
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", hash[:8])
}
