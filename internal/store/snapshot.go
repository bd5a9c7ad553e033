package store

import (
	"sort"

	"osintgraph/internal/domain"
)

// Snapshot is a point-in-time copy of the graph. It is never mutated after
// construction, so analyses may read it from any number of goroutines.
type Snapshot struct {
	entities  []domain.Entity
	relations []domain.Relation
	index     map[string]int
	adjacency map[string]map[string]string
}

func newSnapshot(entities []domain.Entity, relations []domain.Relation) *Snapshot {
	snap := &Snapshot{
		entities:  entities,
		relations: relations,
		index:     make(map[string]int, len(entities)),
		adjacency: make(map[string]map[string]string, len(entities)),
	}
	for i, e := range entities {
		snap.index[e.ID] = i
		snap.adjacency[e.ID] = make(map[string]string)
	}
	for _, r := range relations {
		snap.adjacency[r.Source][r.Target] = r.Label
		snap.adjacency[r.Target][r.Source] = r.Label
	}
	return snap
}

// NewSnapshot builds a snapshot directly from a document, without a store
func NewSnapshot(doc *domain.Document) (*Snapshot, error) {
	s := New()
	if _, err := s.Replace(doc); err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// Len returns the number of entities
func (s *Snapshot) Len() int { return len(s.entities) }

// Entities returns entities in insertion order. The slice must not be
// mutated.
func (s *Snapshot) Entities() []domain.Entity { return s.entities }

// Relations returns relations in insertion order. The slice must not be
// mutated.
func (s *Snapshot) Relations() []domain.Relation { return s.relations }

// IDs returns entity IDs in insertion order
func (s *Snapshot) IDs() []string {
	ids := make([]string, len(s.entities))
	for i, e := range s.entities {
		ids[i] = e.ID
	}
	return ids
}

// Entity looks up one entity
func (s *Snapshot) Entity(id string) (domain.Entity, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.Entity{}, false
	}
	return s.entities[i], true
}

// Label returns the relation label between a and b
func (s *Snapshot) Label(a, b string) (string, bool) {
	label, ok := s.adjacency[a][b]
	return label, ok
}

// Neighbors returns the IDs adjacent to id, sorted
func (s *Snapshot) Neighbors(id string) []string {
	adj := s.adjacency[id]
	out := make([]string, 0, len(adj))
	for n := range adj {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Degree returns the number of relations touching id
func (s *Snapshot) Degree(id string) int {
	return len(s.adjacency[id])
}

// Document renders the snapshot in the node-link interchange form
func (s *Snapshot) Document() *domain.Document {
	doc := domain.NewDocument()
	for _, e := range s.entities {
		attrs := e.Attributes.Clone()
		if attrs == nil {
			attrs = domain.Attributes{}
		}
		doc.Nodes = append(doc.Nodes, domain.DocumentNode{ID: e.ID, Attributes: attrs})
	}
	for _, r := range s.relations {
		doc.Links = append(doc.Links, domain.DocumentLink{
			Source:   r.Source,
			Target:   r.Target,
			Relation: r.Label,
		})
	}
	return doc
}
