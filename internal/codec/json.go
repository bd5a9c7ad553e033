package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"osintgraph/internal/domain"
)

// JSONCodec handles the node-link interchange document in JSON
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Decode reads a graph document from JSON
func (c *JSONCodec) Decode(r io.Reader) (*domain.Document, error) {
	var doc domain.Document
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if doc.Nodes == nil {
		doc.Nodes = make([]domain.DocumentNode, 0)
	}
	if doc.Links == nil {
		doc.Links = make([]domain.DocumentLink, 0)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph document: %w", err)
	}
	return &doc, nil
}

// Parse imports a graph document as observations
func (c *JSONCodec) Parse(r io.Reader) (*domain.Fragment, error) {
	doc, err := c.Decode(r)
	if err != nil {
		return nil, err
	}
	return doc.Fragment(c.Format()), nil
}

// Export writes the graph document as indented JSON
func (c *JSONCodec) Export(doc *domain.Document, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
