package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Entity is a uniquely identified subject of investigation (person, IP,
// domain, email) with producer-supplied attributes
type Entity struct {
	ID         string     `json:"id" yaml:"id"`
	Attributes Attributes `json:"attributes" yaml:"attributes"`
}

// NewEntity creates an entity with an initialized attribute map
func NewEntity(id string, attrs Attributes) *Entity {
	e := &Entity{ID: id, Attributes: make(Attributes, len(attrs))}
	e.Merge(attrs)
	return e
}

// Validate checks the identifier and the attributes
func (e *Entity) Validate() error {
	if err := ValidateID(e.ID); err != nil {
		return err
	}
	return e.Attributes.Validate()
}

// Merge writes attrs over the existing attributes, last write wins per key
func (e *Entity) Merge(attrs Attributes) {
	if e.Attributes == nil {
		e.Attributes = make(Attributes, len(attrs))
	}
	for k, v := range attrs {
		e.Attributes[k] = v.Clone()
	}
}

// Set sets an attribute value
func (e *Entity) Set(key string, value Value) {
	if e.Attributes == nil {
		e.Attributes = make(Attributes)
	}
	e.Attributes[key] = value
}

// Get gets an attribute value
func (e Entity) Get(key string) (Value, bool) {
	if e.Attributes == nil {
		return Value{}, false
	}
	v, ok := e.Attributes[key]
	return v, ok
}

// GetString gets an attribute as a string
func (e Entity) GetString(key string) string {
	v, ok := e.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.Str()
	return s
}

// Clone returns a deep copy
func (e Entity) Clone() Entity {
	return Entity{ID: e.ID, Attributes: e.Attributes.Clone()}
}

// ValidateID rejects empty, whitespace-only and non-UTF-8 identifiers
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidEntity
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%w: id is not valid UTF-8", ErrInvalidEntity)
	}
	return nil
}
