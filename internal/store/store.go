package store

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"osintgraph/internal/domain"
)

// ChangeKind describes what a mutation did to the graph
type ChangeKind string

const (
	ChangeCreated   ChangeKind = "created"
	ChangeMerged    ChangeKind = "merged"
	ChangeRelabeled ChangeKind = "relabeled"
	ChangeUnchanged ChangeKind = "unchanged"
)

// RelationChange reports the outcome of AddRelation
type RelationChange struct {
	Relation      domain.Relation `json:"relation"`
	Kind          ChangeKind      `json:"kind"`
	PreviousLabel string          `json:"previous_label,omitempty"`
	// Endpoints created implicitly because they were absent
	CreatedEndpoints []string `json:"created_endpoints,omitempty"`
}

// ApplyResult counts the effect of applying a fragment
type ApplyResult struct {
	EntitiesCreated    int              `json:"entities_created"`
	EntitiesMerged     int              `json:"entities_merged"`
	RelationsCreated   int              `json:"relations_created"`
	RelationsRelabeled int              `json:"relations_relabeled"`
	Relabels           []RelationChange `json:"relabels,omitempty"`
}

// Store is the entity graph: entities keyed by ID and at most one
// undirected relation per pair. Mutations are serialized behind a single
// writer lock; Snapshot readers proceed concurrently.
type Store struct {
	mu sync.RWMutex

	entities map[string]*domain.Entity
	order    []string

	relations map[string]*domain.Relation
	relOrder  []string

	logger *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for relabel warnings
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.entities = make(map[string]*domain.Entity)
	s.order = make([]string, 0)
	s.relations = make(map[string]*domain.Relation)
	s.relOrder = make([]string, 0)
}

// AddEntity inserts a new entity or merges attrs into an existing one,
// last write wins per key. It reports whether the entity was created.
func (s *Store) AddEntity(id string, attrs domain.Attributes) (bool, error) {
	if err := domain.ValidateID(id); err != nil {
		return false, err
	}
	if err := attrs.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addEntityLocked(id, attrs), nil
}

func (s *Store) addEntityLocked(id string, attrs domain.Attributes) bool {
	if e, ok := s.entities[id]; ok {
		e.Merge(attrs)
		return false
	}
	s.entities[id] = domain.NewEntity(id, attrs)
	s.order = append(s.order, id)
	return true
}

// AddRelation creates or overwrites the single relation between a and b,
// creating missing endpoints with empty attributes. Self-loops and empty
// endpoints are rejected with domain.ErrInvalidRelation and leave the graph
// unchanged.
func (s *Store) AddRelation(a, b, label string) (RelationChange, error) {
	rel := domain.NewRelation(a, b, label)
	if err := rel.Validate(); err != nil {
		return RelationChange{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	change := s.addRelationLocked(rel)
	return change, nil
}

func (s *Store) addRelationLocked(rel *domain.Relation) RelationChange {
	change := RelationChange{Relation: *rel}
	for _, id := range []string{rel.Source, rel.Target} {
		if s.addEntityLocked(id, nil) {
			change.CreatedEndpoints = append(change.CreatedEndpoints, id)
		}
	}

	existing, ok := s.relations[rel.ID]
	switch {
	case !ok:
		s.relations[rel.ID] = rel
		s.relOrder = append(s.relOrder, rel.ID)
		change.Kind = ChangeCreated
	case existing.Label == rel.Label:
		change.Kind = ChangeUnchanged
	default:
		change.Kind = ChangeRelabeled
		change.PreviousLabel = existing.Label
		existing.Label = rel.Label
		s.logger.Warn("relation relabeled",
			zap.String("source", rel.Source),
			zap.String("target", rel.Target),
			zap.String("previous", change.PreviousLabel),
			zap.String("label", rel.Label))
	}
	return change
}

// Apply validates every observation in f and then applies them all under
// one write lock. An invalid fragment leaves the graph unchanged.
func (s *Store) Apply(f *domain.Fragment) (*ApplyResult, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("fragment %q: %w", f.Source, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyLocked(f), nil
}

func (s *Store) applyLocked(f *domain.Fragment) *ApplyResult {
	result := &ApplyResult{}
	for i := range f.Entities {
		if s.addEntityLocked(f.Entities[i].ID, f.Entities[i].Attributes) {
			result.EntitiesCreated++
		} else {
			result.EntitiesMerged++
		}
	}
	for i := range f.Relations {
		r := f.Relations[i]
		change := s.addRelationLocked(domain.NewRelation(r.Source, r.Target, r.Label))
		result.EntitiesCreated += len(change.CreatedEndpoints)
		switch change.Kind {
		case ChangeCreated:
			result.RelationsCreated++
		case ChangeRelabeled:
			result.RelationsRelabeled++
			result.Relabels = append(result.Relabels, change)
		}
	}
	return result
}

// Replace discards the current graph and loads doc in its place. An
// invalid document leaves the graph unchanged.
func (s *Store) Replace(doc *domain.Document) (*ApplyResult, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	f := doc.Fragment("import")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return s.applyLocked(f), nil
}

// Reset empties the graph
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// Entity returns a copy of one entity
func (s *Store) Entity(id string) (domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return domain.Entity{}, fmt.Errorf("entity %q: %w", id, domain.ErrNotFound)
	}
	return e.Clone(), nil
}

// Counts returns the number of entities and relations
func (s *Store) Counts() (entities, relations int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), len(s.relOrder)
}

// Snapshot returns an immutable deep copy of the current graph
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entities := make([]domain.Entity, len(s.order))
	for i, id := range s.order {
		entities[i] = s.entities[id].Clone()
	}
	relations := make([]domain.Relation, len(s.relOrder))
	for i, id := range s.relOrder {
		relations[i] = *s.relations[id]
	}
	return newSnapshot(entities, relations)
}
