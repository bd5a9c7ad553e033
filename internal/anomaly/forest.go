package anomaly

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultTrees      = 100
	DefaultSampleSize = 256
	DefaultSeed       = 42

	eulerGamma = 0.5772156649
)

// IsolationForest is the built-in outlier model: an ensemble of random
// partitioning trees in which points that separate from the population in
// few splits score as anomalous.
type IsolationForest struct {
	Trees      int
	SampleSize int
	Seed       int64
}

// NewIsolationForest returns a forest with the default parameters
func NewIsolationForest() *IsolationForest {
	return &IsolationForest{
		Trees:      DefaultTrees,
		SampleSize: DefaultSampleSize,
		Seed:       DefaultSeed,
	}
}

type itreeNode struct {
	feature     int
	split       float64
	size        int
	left, right *itreeNode
}

func (n *itreeNode) leaf() bool { return n.left == nil }

// FitPredict flags the rows whose anomaly score falls in the top fraction
// of the population
func (f *IsolationForest) FitPredict(ctx context.Context, rows [][]float64, fraction float64) ([]bool, error) {
	scores, err := f.Scores(ctx, rows)
	if err != nil {
		return nil, err
	}

	// Follow the usual convention of thresholding the negated score at the
	// fraction percentile; lower is more abnormal.
	neg := make([]float64, len(scores))
	for i, s := range scores {
		neg[i] = -s
	}
	threshold := percentile(neg, fraction)

	flags := make([]bool, len(rows))
	for i := range neg {
		flags[i] = neg[i] < threshold
	}
	return flags, nil
}

// Scores fits the forest on rows and returns each row's anomaly score in
// (0, 1]. Scores near 1 are anomalous; scores well below 0.5 are normal.
func (f *IsolationForest) Scores(ctx context.Context, rows [][]float64) ([]float64, error) {
	if len(rows) == 0 {
		return []float64{}, nil
	}
	width := len(rows[0])
	for i, r := range rows {
		if len(r) != width {
			return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(r), width)
		}
	}

	trees := f.Trees
	if trees <= 0 {
		trees = DefaultTrees
	}
	sampleSize := f.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	if sampleSize > len(rows) {
		sampleSize = len(rows)
	}
	maxDepth := int(math.Ceil(math.Log2(math.Max(float64(sampleSize), 2))))

	forest := make([]*itreeNode, trees)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := 0; t < trees; t++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(f.Seed + int64(t)))
			sample := rng.Perm(len(rows))[:sampleSize]
			forest[t] = buildTree(rng, rows, sample, 0, maxDepth)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	norm := averagePathLength(sampleSize)
	scores := make([]float64, len(rows))
	for i, r := range rows {
		var total float64
		for _, tree := range forest {
			total += pathLength(tree, r, 0)
		}
		mean := total / float64(trees)
		if norm == 0 {
			scores[i] = 0.5
			continue
		}
		scores[i] = math.Pow(2, -mean/norm)
	}
	return scores, nil
}

func buildTree(rng *rand.Rand, rows [][]float64, idx []int, depth, maxDepth int) *itreeNode {
	if depth >= maxDepth || len(idx) <= 1 {
		return &itreeNode{size: len(idx)}
	}

	// only features that vary inside this node can split it
	width := len(rows[idx[0]])
	candidates := make([]int, 0, width)
	lows := make([]float64, width)
	highs := make([]float64, width)
	for j := 0; j < width; j++ {
		lo, hi := rows[idx[0]][j], rows[idx[0]][j]
		for _, i := range idx[1:] {
			v := rows[i][j]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		lows[j], highs[j] = lo, hi
		if hi > lo {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return &itreeNode{size: len(idx)}
	}

	feature := candidates[rng.Intn(len(candidates))]
	lo, hi := lows[feature], highs[feature]
	split := lo + rng.Float64()*(hi-lo)

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if rows[i][feature] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	// the split can land on lo when the range is tiny; keep both sides
	// non-empty so recursion always shrinks
	if len(left) == 0 || len(right) == 0 {
		return &itreeNode{size: len(idx)}
	}

	return &itreeNode{
		feature: feature,
		split:   split,
		size:    len(idx),
		left:    buildTree(rng, rows, left, depth+1, maxDepth),
		right:   buildTree(rng, rows, right, depth+1, maxDepth),
	}
}

func pathLength(n *itreeNode, row []float64, depth int) float64 {
	for !n.leaf() {
		if row[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// binary search tree lookup among n points
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	m := float64(n - 1)
	return 2*(math.Log(m)+eulerGamma) - 2*m/float64(n)
}

// percentile returns the q-quantile (0..1) of values with linear
// interpolation between closest ranks
func percentile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}
