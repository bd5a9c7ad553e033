package pattern

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osintgraph/internal/domain"
	"osintgraph/internal/store"
)

func snapshotOf(t *testing.T, nodes []string, edges [][2]string) *store.Snapshot {
	t.Helper()
	s := store.New()
	for _, n := range nodes {
		_, err := s.AddEntity(n, nil)
		require.NoError(t, err)
	}
	for _, e := range edges {
		_, err := s.AddRelation(e[0], e[1], "linked")
		require.NoError(t, err)
	}
	return s.Snapshot()
}

func TestCliques(t *testing.T) {
	t.Run("triangle with pendant", func(t *testing.T) {
		snap := snapshotOf(t, nil, [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}, {"A", "D"}})

		cliques, err := NewFinder().Cliques(context.Background(), snap)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"A", "B", "C"}, {"A", "D"}}, cliques)
	})

	t.Run("no clique is a subset of another", func(t *testing.T) {
		snap := snapshotOf(t, nil, [][2]string{
			{"a", "b"}, {"a", "c"}, {"a", "d"}, {"b", "c"}, {"b", "d"}, {"c", "d"},
			{"d", "e"}, {"e", "f"}, {"f", "d"}, {"f", "g"},
		})
		cliques, err := NewFinder().Cliques(context.Background(), snap)
		require.NoError(t, err)

		for i, ci := range cliques {
			for j, cj := range cliques {
				if i == j {
					continue
				}
				assert.False(t, subset(ci, cj), "%v is contained in %v", ci, cj)
			}
		}
		assert.Equal(t, []string{"a", "b", "c", "d"}, cliques[0])
	})

	t.Run("isolated entities are singleton cliques", func(t *testing.T) {
		snap := snapshotOf(t, []string{"solo"}, [][2]string{{"x", "y"}})
		cliques, err := NewFinder().Cliques(context.Background(), snap)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"x", "y"}, {"solo"}}, cliques)
	})

	t.Run("empty graph yields empty result", func(t *testing.T) {
		cliques, err := NewFinder().Cliques(context.Background(), store.New().Snapshot())
		require.NoError(t, err)
		assert.Empty(t, cliques)
	})

	t.Run("independent of insertion order", func(t *testing.T) {
		a := snapshotOf(t, nil, [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}, {"A", "D"}})
		b := snapshotOf(t, []string{"D", "C"}, [][2]string{{"D", "A"}, {"C", "A"}, {"C", "B"}, {"B", "A"}})

		ca, err := NewFinder().Cliques(context.Background(), a)
		require.NoError(t, err)
		cb, err := NewFinder().Cliques(context.Background(), b)
		require.NoError(t, err)
		assert.Equal(t, ca, cb)
	})

	t.Run("bounded by graph size", func(t *testing.T) {
		snap := snapshotOf(t, []string{"a", "b", "c"}, nil)
		_, err := NewFinder(WithMaxCliqueNodes(2)).Cliques(context.Background(), snap)
		assert.True(t, errors.Is(err, domain.ErrGraphTooLarge))
	})

	t.Run("honors cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewFinder().Cliques(ctx, snapshotOf(t, []string{"a"}, nil))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCommunities(t *testing.T) {
	t.Run("two triangles joined by a bridge", func(t *testing.T) {
		snap := snapshotOf(t, nil, [][2]string{
			{"a1", "a2"}, {"a2", "a3"}, {"a3", "a1"},
			{"b1", "b2"}, {"b2", "b3"}, {"b3", "b1"},
			{"a1", "b1"},
		})
		groups, q, err := NewFinder().Communities(context.Background(), snap)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a1", "a2", "a3"}, {"b1", "b2", "b3"}}, groups)
		assert.InDelta(t, 5.0/14.0, q, 1e-9)
	})

	t.Run("result is a partition of the node set", func(t *testing.T) {
		var edges [][2]string
		for i := 0; i < 30; i++ {
			edges = append(edges, [2]string{fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", (i*7+3)%30)})
			edges = append(edges, [2]string{fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", (i+1)%30)})
		}
		snap := snapshotOf(t, []string{"lonely"}, filterLoops(edges))

		groups, _, err := NewFinder().Communities(context.Background(), snap)
		require.NoError(t, err)

		seen := make(map[string]int)
		for _, g := range groups {
			for _, id := range g {
				seen[id]++
			}
		}
		assert.Len(t, seen, snap.Len())
		for id, count := range seen {
			assert.Equal(t, 1, count, "%s appears in %d communities", id, count)
		}
	})

	t.Run("no edges gives singletons", func(t *testing.T) {
		snap := snapshotOf(t, []string{"b", "a"}, nil)
		groups, q, err := NewFinder().Communities(context.Background(), snap)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a"}, {"b"}}, groups)
		assert.Zero(t, q)
	})

	t.Run("empty graph", func(t *testing.T) {
		groups, q, err := NewFinder().Communities(context.Background(), store.New().Snapshot())
		require.NoError(t, err)
		assert.Empty(t, groups)
		assert.Zero(t, q)
	})
}

func TestFind(t *testing.T) {
	snap := snapshotOf(t, nil, [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}, {"A", "D"}})
	res, err := NewFinder().Find(context.Background(), snap)
	require.NoError(t, err)
	assert.Len(t, res.Cliques, 2)
	assert.NotEmpty(t, res.Communities)
}

func subset(a, b []string) bool {
	if len(a) > len(b) {
		return false
	}
	in := make(map[string]bool, len(b))
	for _, x := range b {
		in[x] = true
	}
	for _, x := range a {
		if !in[x] {
			return false
		}
	}
	return true
}

func filterLoops(edges [][2]string) [][2]string {
	out := edges[:0]
	for _, e := range edges {
		if e[0] != e[1] {
			out = append(out, e)
		}
	}
	return out
}
