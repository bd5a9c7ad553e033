package pattern

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/topo"

	"osintgraph/internal/domain"
	"osintgraph/internal/store"
)

// Result holds both pattern result sets for one snapshot
type Result struct {
	Cliques     [][]string `json:"cliques"`
	Communities [][]string `json:"communities"`
	Modularity  float64    `json:"modularity"`
}

// Finder runs structural graph algorithms over snapshots
type Finder struct {
	maxCliqueNodes int
	logger         *zap.Logger
}

// Option configures a Finder
type Option func(*Finder)

// WithMaxCliqueNodes bounds clique enumeration by graph size. Zero means
// unbounded.
func WithMaxCliqueNodes(n int) Option {
	return func(f *Finder) {
		f.maxCliqueNodes = n
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(f *Finder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFinder creates a pattern finder
func NewFinder(opts ...Option) *Finder {
	f := &Finder{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Find computes cliques and communities for snap
func (f *Finder) Find(ctx context.Context, snap *store.Snapshot) (*Result, error) {
	v := newView(snap)

	cliques, err := f.cliques(ctx, v)
	if err != nil {
		return nil, err
	}
	communities, modularity, err := f.communities(ctx, v)
	if err != nil {
		return nil, err
	}
	return &Result{
		Cliques:     cliques,
		Communities: communities,
		Modularity:  modularity,
	}, nil
}

// Cliques enumerates every maximal clique of snap. Members are sorted;
// cliques are ordered by size descending, then by members. An isolated
// entity is its own maximal clique.
func (f *Finder) Cliques(ctx context.Context, snap *store.Snapshot) ([][]string, error) {
	return f.cliques(ctx, newView(snap))
}

func (f *Finder) cliques(ctx context.Context, v *view) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.maxCliqueNodes > 0 && len(v.ids) > f.maxCliqueNodes {
		return nil, fmt.Errorf("%w: %d entities exceeds clique bound %d",
			domain.ErrGraphTooLarge, len(v.ids), f.maxCliqueNodes)
	}

	start := time.Now()
	found := topo.BronKerbosch(v.g)

	cliques := make([][]string, 0, len(found))
	for _, c := range found {
		cliques = append(cliques, v.names(c))
	}
	sortGroups(cliques)

	f.logger.Debug("cliques enumerated",
		zap.Int("entities", len(v.ids)),
		zap.Int("cliques", len(cliques)),
		zap.Duration("elapsed", time.Since(start)))
	return cliques, nil
}

// Communities partitions snap by greedy modularity merging and returns the
// partition with its modularity score
func (f *Finder) Communities(ctx context.Context, snap *store.Snapshot) ([][]string, float64, error) {
	return f.communities(ctx, newView(snap))
}

func (f *Finder) communities(ctx context.Context, v *view) ([][]string, float64, error) {
	start := time.Now()
	groups, err := greedyModularity(ctx, v)
	if err != nil {
		return nil, 0, err
	}
	q := modularity(v, groups)

	f.logger.Debug("communities detected",
		zap.Int("entities", len(v.ids)),
		zap.Int("communities", len(groups)),
		zap.Float64("modularity", q),
		zap.Duration("elapsed", time.Since(start)))
	return groups, q, nil
}

// modularity scores a partition with unit edge weights. A graph without
// edges scores zero.
func modularity(v *view, groups [][]string) float64 {
	if v.edges() == 0 || len(groups) == 0 {
		return 0
	}
	parts := make([][]graph.Node, len(groups))
	for i, g := range groups {
		parts[i] = v.nodes(g)
	}
	return community.Q(v.g, parts, 1)
}
