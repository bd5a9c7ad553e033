package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEntity is returned for empty or duplicate entity identifiers
	ErrInvalidEntity = errors.New("invalid entity")
	// ErrInvalidRelation is returned for self-loops and empty endpoints
	ErrInvalidRelation = errors.New("invalid relation")
	// ErrNotFound is returned when a requested entity or session does not exist
	ErrNotFound = errors.New("not found")
	// ErrGraphTooLarge is returned when an exponential analysis exceeds its
	// configured node bound
	ErrGraphTooLarge = errors.New("graph too large")
)

// CapabilityError reports a failure of an external capability (NLP,
// language model, outlier model). It is scoped to the one call that failed.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s capability failed: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// NewCapabilityError wraps err for the named capability
func NewCapabilityError(capability string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return err
	}
	return &CapabilityError{Capability: capability, Err: err}
}
