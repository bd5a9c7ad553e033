package codec

import (
	"fmt"
	"io"

	"osintgraph/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles the node-link interchange document in YAML
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlDocument represents the YAML structure for graph data
type yamlDocument struct {
	Nodes []yamlNode `yaml:"nodes"`
	Links []yamlLink `yaml:"links"`
}

type yamlNode struct {
	ID         string            `yaml:"id"`
	Attributes domain.Attributes `yaml:"attributes,omitempty"`
}

type yamlLink struct {
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	Relation string `yaml:"relation"`
}

// Decode reads a graph document from YAML
func (c *YAMLCodec) Decode(r io.Reader) (*domain.Document, error) {
	var yd yamlDocument
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yd); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	doc := domain.NewDocument()
	for _, yn := range yd.Nodes {
		attrs := yn.Attributes
		if attrs == nil {
			attrs = domain.Attributes{}
		}
		doc.Nodes = append(doc.Nodes, domain.DocumentNode{ID: yn.ID, Attributes: attrs})
	}
	for _, yl := range yd.Links {
		doc.Links = append(doc.Links, domain.DocumentLink{
			Source:   yl.Source,
			Target:   yl.Target,
			Relation: yl.Relation,
		})
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph document: %w", err)
	}
	return doc, nil
}

// Parse imports a graph document as observations
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Fragment, error) {
	doc, err := c.Decode(r)
	if err != nil {
		return nil, err
	}
	return doc.Fragment(c.Format()), nil
}

// Export writes the graph document as YAML
func (c *YAMLCodec) Export(doc *domain.Document, w io.Writer) error {
	yd := yamlDocument{
		Nodes: make([]yamlNode, 0, len(doc.Nodes)),
		Links: make([]yamlLink, 0, len(doc.Links)),
	}

	for _, n := range doc.Nodes {
		yd.Nodes = append(yd.Nodes, yamlNode{ID: n.ID, Attributes: n.Attributes})
	}
	for _, l := range doc.Links {
		yd.Links = append(yd.Links, yamlLink{
			Source:   l.Source,
			Target:   l.Target,
			Relation: l.Relation,
		})
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&yd); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
