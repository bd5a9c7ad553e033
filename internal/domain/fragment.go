package domain

// Fragment is a batch of observations from one producer: entities with
// attributes and relations between them. Relations may reference entities
// not present in the fragment.
type Fragment struct {
	Source    string     `json:"source,omitempty"`
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// NewFragment creates an empty fragment
func NewFragment(source string) *Fragment {
	return &Fragment{
		Source:    source,
		Entities:  make([]Entity, 0),
		Relations: make([]Relation, 0),
	}
}

// AddEntity adds an entity observation to the fragment
func (f *Fragment) AddEntity(id string, attrs Attributes) {
	f.Entities = append(f.Entities, *NewEntity(id, attrs))
}

// AddRelation adds a relation observation to the fragment
func (f *Fragment) AddRelation(a, b, label string) {
	f.Relations = append(f.Relations, *NewRelation(a, b, label))
}

// Validate checks every observation without applying anything
func (f *Fragment) Validate() error {
	for i := range f.Entities {
		if err := f.Entities[i].Validate(); err != nil {
			return err
		}
	}
	for i := range f.Relations {
		if err := f.Relations[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Empty reports whether the fragment carries no observations
func (f *Fragment) Empty() bool {
	return len(f.Entities) == 0 && len(f.Relations) == 0
}
