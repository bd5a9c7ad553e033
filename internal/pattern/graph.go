package pattern

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"osintgraph/internal/store"
)

// view is the gonum analysis view of a snapshot. Node n carries ids[n];
// ids are sorted so that node numbering depends only on the graph content.
type view struct {
	g   *simple.UndirectedGraph
	ids []string
	num map[string]int64
}

func newView(snap *store.Snapshot) *view {
	ids := snap.IDs()
	sort.Strings(ids)

	v := &view{
		g:   simple.NewUndirectedGraph(),
		ids: ids,
		num: make(map[string]int64, len(ids)),
	}
	for i, id := range ids {
		v.num[id] = int64(i)
		v.g.AddNode(simple.Node(i))
	}
	for _, r := range snap.Relations() {
		from, to := v.num[r.Source], v.num[r.Target]
		if from == to {
			continue
		}
		v.g.SetEdge(v.g.NewEdge(simple.Node(from), simple.Node(to)))
	}
	return v
}

func (v *view) edges() int {
	return v.g.Edges().Len()
}

// names maps gonum nodes back to sorted entity IDs
func (v *view) names(nodes []graph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = v.ids[n.ID()]
	}
	sort.Strings(out)
	return out
}

// nodes maps entity IDs to gonum nodes
func (v *view) nodes(ids []string) []graph.Node {
	out := make([]graph.Node, len(ids))
	for i, id := range ids {
		out[i] = simple.Node(v.num[id])
	}
	return out
}

// sortGroups orders groups by size descending, then lexicographically by
// their (already sorted) members
func sortGroups(groups [][]string) {
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
}
