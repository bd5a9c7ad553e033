package domain

import "fmt"

// Document is the node-link interchange form of a graph, consumed by
// visualizers and the session archive
type Document struct {
	Nodes []DocumentNode `json:"nodes" yaml:"nodes"`
	Links []DocumentLink `json:"links" yaml:"links"`
}

// DocumentNode is one entity in a Document
type DocumentNode struct {
	ID         string     `json:"id" yaml:"id"`
	Attributes Attributes `json:"attributes" yaml:"attributes"`
}

// DocumentLink is one relation in a Document
type DocumentLink struct {
	Source   string `json:"source" yaml:"source"`
	Target   string `json:"target" yaml:"target"`
	Relation string `json:"relation" yaml:"relation"`
}

// NewDocument creates an empty document
func NewDocument() *Document {
	return &Document{
		Nodes: make([]DocumentNode, 0),
		Links: make([]DocumentLink, 0),
	}
}

// Fragment converts the document to a fragment for applying to a store
func (d *Document) Fragment(source string) *Fragment {
	f := NewFragment(source)
	for _, n := range d.Nodes {
		f.AddEntity(n.ID, n.Attributes)
	}
	for _, l := range d.Links {
		f.AddRelation(l.Source, l.Target, l.Relation)
	}
	return f
}

// Validate checks ids, attributes, links and duplicate nodes
func (d *Document) Validate() error {
	seen := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if err := ValidateID(n.ID); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		if err := n.Attributes.Validate(); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		if seen[n.ID] {
			return fmt.Errorf("node %d: %w: duplicate id %q", i, ErrInvalidEntity, n.ID)
		}
		seen[n.ID] = true
	}
	for i, l := range d.Links {
		r := Relation{Source: l.Source, Target: l.Target, Label: l.Relation}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("link %d: %w", i, err)
		}
	}
	return nil
}
