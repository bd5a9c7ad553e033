package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osintgraph/internal/domain"
)

func TestAddEntity(t *testing.T) {
	t.Run("second call merges attributes", func(t *testing.T) {
		s := New()
		created, err := s.AddEntity("alice", domain.Attributes{"email": domain.String("a@x.io")})
		require.NoError(t, err)
		assert.True(t, created)

		created, err = s.AddEntity("alice", domain.Attributes{"username": domain.String("al1ce")})
		require.NoError(t, err)
		assert.False(t, created)

		e, err := s.Entity("alice")
		require.NoError(t, err)
		assert.Len(t, e.Attributes, 2)
		assert.Equal(t, "a@x.io", e.GetString("email"))
		assert.Equal(t, "al1ce", e.GetString("username"))

		n, _ := s.Counts()
		assert.Equal(t, 1, n)
	})

	t.Run("last write wins per key", func(t *testing.T) {
		s := New()
		_, _ = s.AddEntity("ip", domain.Attributes{"country": domain.String("NO")})
		_, _ = s.AddEntity("ip", domain.Attributes{"country": domain.String("SE")})

		e, _ := s.Entity("ip")
		assert.Equal(t, "SE", e.GetString("country"))
	})

	t.Run("rejects empty id", func(t *testing.T) {
		s := New()
		_, err := s.AddEntity("", nil)
		assert.True(t, errors.Is(err, domain.ErrInvalidEntity))
	})

	t.Run("rejects attributes that cannot be exported unchanged", func(t *testing.T) {
		s := New()
		_, err := s.AddEntity("alice", domain.Attributes{"handle": domain.String("\xff\xfe")})
		assert.ErrorIs(t, err, domain.ErrInvalidEntity)

		_, err = s.AddEntity("\xff", nil)
		assert.ErrorIs(t, err, domain.ErrInvalidEntity)

		_, err = s.AddRelation("alice", "bob", "\xfe")
		assert.ErrorIs(t, err, domain.ErrInvalidRelation)

		entities, relations := s.Counts()
		assert.Zero(t, entities)
		assert.Zero(t, relations)
	})

	t.Run("caller map is not retained", func(t *testing.T) {
		s := New()
		attrs := domain.Attributes{"k": domain.Int(1)}
		_, _ = s.AddEntity("a", attrs)
		attrs["k"] = domain.Int(2)

		e, _ := s.Entity("a")
		assert.True(t, e.Attributes["k"].Equal(domain.Int(1)))
	})
}

func TestAddRelation(t *testing.T) {
	t.Run("creates missing endpoints", func(t *testing.T) {
		s := New()
		change, err := s.AddRelation("a", "b", "knows")
		require.NoError(t, err)
		assert.Equal(t, ChangeCreated, change.Kind)
		assert.ElementsMatch(t, []string{"a", "b"}, change.CreatedEndpoints)

		e, err := s.Entity("b")
		require.NoError(t, err)
		assert.Empty(t, e.Attributes)
	})

	t.Run("last write wins without duplicating the edge", func(t *testing.T) {
		s := New()
		_, err := s.AddRelation("a", "b", "email_association")
		require.NoError(t, err)
		change, err := s.AddRelation("b", "a", "ip_association")
		require.NoError(t, err)

		assert.Equal(t, ChangeRelabeled, change.Kind)
		assert.Equal(t, "email_association", change.PreviousLabel)

		snap := s.Snapshot()
		require.Len(t, snap.Relations(), 1)
		assert.Equal(t, "ip_association", snap.Relations()[0].Label)
	})

	t.Run("same label is a no-op", func(t *testing.T) {
		s := New()
		_, _ = s.AddRelation("a", "b", "x")
		change, err := s.AddRelation("a", "b", "x")
		require.NoError(t, err)
		assert.Equal(t, ChangeUnchanged, change.Kind)
	})

	t.Run("rejects self-loops and leaves graph unchanged", func(t *testing.T) {
		s := New()
		_, err := s.AddRelation("a", "a", "self")
		assert.True(t, errors.Is(err, domain.ErrInvalidRelation))

		entities, relations := s.Counts()
		assert.Zero(t, entities)
		assert.Zero(t, relations)
	})
}

func TestApply(t *testing.T) {
	t.Run("applies all observations", func(t *testing.T) {
		s := New()
		_, _ = s.AddEntity("a", nil)

		f := domain.NewFragment("test")
		f.AddEntity("a", domain.Attributes{"k": domain.Bool(true)})
		f.AddEntity("b", nil)
		f.AddRelation("a", "b", "r1")
		f.AddRelation("a", "c", "r2")
		f.AddRelation("b", "a", "r3")

		result, err := s.Apply(f)
		require.NoError(t, err)
		assert.Equal(t, 2, result.EntitiesCreated)
		assert.Equal(t, 1, result.EntitiesMerged)
		assert.Equal(t, 2, result.RelationsCreated)
		assert.Equal(t, 1, result.RelationsRelabeled)
		require.Len(t, result.Relabels, 1)
		assert.Equal(t, "r1", result.Relabels[0].PreviousLabel)
	})

	t.Run("invalid fragment is rejected atomically", func(t *testing.T) {
		s := New()
		f := domain.NewFragment("bad")
		f.AddEntity("a", nil)
		f.AddRelation("b", "b", "self")

		_, err := s.Apply(f)
		assert.True(t, errors.Is(err, domain.ErrInvalidRelation))

		entities, _ := s.Counts()
		assert.Zero(t, entities)
	})
}

func TestReplace(t *testing.T) {
	s := New()
	_, _ = s.AddEntity("old", nil)

	doc := &domain.Document{
		Nodes: []domain.DocumentNode{{ID: "x"}, {ID: "y"}},
		Links: []domain.DocumentLink{{Source: "x", Target: "y", Relation: "r"}},
	}
	_, err := s.Replace(doc)
	require.NoError(t, err)

	_, err = s.Entity("old")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, []string{"x", "y"}, s.Snapshot().IDs())

	_, err = s.Replace(&domain.Document{Nodes: []domain.DocumentNode{{ID: ""}}})
	assert.Error(t, err)
	assert.Equal(t, []string{"x", "y"}, s.Snapshot().IDs(), "failed replace keeps graph")
}

func TestSnapshotIsolation(t *testing.T) {
	s := New()
	_, _ = s.AddEntity("a", domain.Attributes{"k": domain.Int(1)})
	_, _ = s.AddRelation("a", "b", "r")

	snap := s.Snapshot()
	_, _ = s.AddEntity("a", domain.Attributes{"k": domain.Int(2)})
	_, _ = s.AddRelation("a", "c", "r")
	_, _ = s.AddRelation("a", "b", "changed")

	e, ok := snap.Entity("a")
	require.True(t, ok)
	assert.True(t, e.Attributes["k"].Equal(domain.Int(1)))
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, []string{"b"}, snap.Neighbors("a"))

	label, ok := snap.Label("b", "a")
	assert.True(t, ok)
	assert.Equal(t, "r", label)
}

func TestConcurrentWriters(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = s.AddRelation("hub", string(rune('a'+i)), "r")
				_ = s.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	entities, relations := s.Counts()
	assert.Equal(t, 9, entities)
	assert.Equal(t, 8, relations)
}

func TestSnapshotDocument(t *testing.T) {
	s := New()
	_, _ = s.AddEntity("a", domain.Attributes{"k": domain.String("v")})
	_, _ = s.AddRelation("b", "a", "r")

	doc := s.Snapshot().Document()
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "a", doc.Nodes[0].ID)
	assert.NotNil(t, doc.Nodes[1].Attributes)
	assert.Equal(t, []domain.DocumentLink{{Source: "a", Target: "b", Relation: "r"}}, doc.Links)

	round, err := NewSnapshot(doc)
	require.NoError(t, err)
	assert.Equal(t, doc, round.Document())
}
