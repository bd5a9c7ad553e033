package pattern

import (
	"context"
	"sort"
)

// greedyModularity is the Clauset-Newman-Moore agglomeration. Every entity
// starts in its own community; the connected pair of communities whose
// merge gives the largest modularity gain is merged until no merge gains.
// Ties go to the lowest (i, j) pair over sorted IDs, which keeps the
// partition deterministic.
func greedyModularity(ctx context.Context, v *view) ([][]string, error) {
	n := len(v.ids)
	if n == 0 {
		return [][]string{}, nil
	}

	members := make([][]string, n)
	for i, id := range v.ids {
		members[i] = []string{id}
	}

	m := float64(v.edges())
	if m == 0 {
		return finishGroups(members), nil
	}

	// e[i][j] is the fraction of edge ends joining community i to j
	// (i != j); a[i] is the fraction of edge ends attached to i.
	e := make([]map[int]float64, n)
	a := make([]float64, n)
	for i := range e {
		e[i] = make(map[int]float64)
	}
	edges := v.g.Edges()
	for edges.Next() {
		edge := edges.Edge()
		i, j := int(edge.From().ID()), int(edge.To().ID())
		e[i][j] += 1 / (2 * m)
		e[j][i] += 1 / (2 * m)
	}
	for i := range e {
		a[i] = float64(len(e[i])) / (2 * m)
	}

	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bi, bj, best := -1, -1, 0.0
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j, eij := range e[i] {
				if j <= i {
					continue
				}
				dq := 2 * (eij - a[i]*a[j])
				if dq <= 0 {
					continue
				}
				if bi < 0 || dq > best || (dq == best && (i < bi || (i == bi && j < bj))) {
					bi, bj, best = i, j, dq
				}
			}
		}
		if bi < 0 {
			break
		}

		// merge bj into bi
		for k, ejk := range e[bj] {
			delete(e[k], bj)
			if k == bi {
				continue
			}
			e[bi][k] += ejk
			e[k][bi] += ejk
		}
		delete(e[bi], bj)
		e[bj] = nil
		a[bi] += a[bj]
		a[bj] = 0
		members[bi] = append(members[bi], members[bj]...)
		members[bj] = nil
		active[bj] = false
	}

	groups := make([][]string, 0)
	for i := range members {
		if active[i] {
			groups = append(groups, members[i])
		}
	}
	return finishGroups(groups), nil
}

func finishGroups(groups [][]string) [][]string {
	for _, g := range groups {
		sort.Strings(g)
	}
	sortGroups(groups)
	return groups
}
