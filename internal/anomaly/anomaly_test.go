package anomaly

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

type fakeModel struct {
	flags []bool
	err   error
	rows  [][]float64
}

func (m *fakeModel) FitPredict(_ context.Context, rows [][]float64, _ float64) ([]bool, error) {
	m.rows = rows
	return m.flags, m.err
}

func TestEncode(t *testing.T) {
	s := store.New()
	_, _ = s.AddEntity("a", domain.Attributes{
		"port":   domain.Int(22),
		"open":   domain.Bool(true),
		"banner": domain.String("OpenSSH"),
		"meta":   domain.Null(),
	})
	_, _ = s.AddEntity("b", domain.Attributes{
		"tags": domain.List(domain.String("x")),
		"open": domain.Bool(false),
	})

	f := Encode(s.Snapshot())
	assert.Equal(t, []string{"banner", "meta", "open", "port", "tags"}, f.Columns)
	assert.Equal(t, []string{"a", "b"}, f.IDs)
	require.Len(t, f.Rows, 2)

	a := f.Rows[0]
	assert.GreaterOrEqual(t, a[0], 0.0)
	assert.Less(t, a[0], 1000.0)
	assert.Equal(t, 0.0, a[1])
	assert.Equal(t, 1.0, a[2])
	assert.Equal(t, 22.0, a[3])
	assert.Equal(t, -1.0, a[4])

	b := f.Rows[1]
	assert.Equal(t, -1.0, b[0])
	assert.Equal(t, 0.0, b[2])
	assert.GreaterOrEqual(t, b[4], 0.0)

	t.Run("encoding is stable", func(t *testing.T) {
		again := Encode(s.Snapshot())
		assert.Equal(t, f, again)
		assert.Equal(t, EncodeValue(domain.String("OpenSSH")), a[0])
	})

	t.Run("maps encode canonically", func(t *testing.T) {
		m1 := domain.MustValue(map[string]any{"x": 1, "y": "z"})
		m2 := domain.MustValue(map[string]any{"y": "z", "x": 1})
		assert.Equal(t, EncodeValue(m1), EncodeValue(m2))
	})
}

func TestIsolationForest(t *testing.T) {
	rows := make([][]float64, 0, 41)
	for i := 0; i < 40; i++ {
		rows = append(rows, []float64{float64(i % 5), float64(i % 3), 10})
	}
	rows = append(rows, []float64{500, 900, -40})

	t.Run("flags the far point", func(t *testing.T) {
		flags, err := NewIsolationForest().FitPredict(context.Background(), rows, 0.1)
		require.NoError(t, err)
		require.Len(t, flags, len(rows))
		assert.True(t, flags[40])

		count := 0
		for _, f := range flags {
			if f {
				count++
			}
		}
		assert.LessOrEqual(t, count, 5)
	})

	t.Run("scores are reproducible", func(t *testing.T) {
		s1, err := NewIsolationForest().Scores(context.Background(), rows)
		require.NoError(t, err)
		s2, err := NewIsolationForest().Scores(context.Background(), rows)
		require.NoError(t, err)
		assert.Equal(t, s1, s2)

		for i := 0; i < 40; i++ {
			assert.Greater(t, s1[40], s1[i])
		}
	})

	t.Run("identical rows produce no outliers", func(t *testing.T) {
		same := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
		flags, err := NewIsolationForest().FitPredict(context.Background(), same, 0.25)
		require.NoError(t, err)
		assert.Equal(t, []bool{false, false, false, false}, flags)
	})

	t.Run("rejects ragged rows", func(t *testing.T) {
		_, err := NewIsolationForest().Scores(context.Background(), [][]float64{{1}, {1, 2}})
		assert.Error(t, err)
	})

	t.Run("honors cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewIsolationForest().Scores(ctx, rows)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestAveragePathLength(t *testing.T) {
	assert.Equal(t, 0.0, averagePathLength(1))
	assert.Equal(t, 1.0, averagePathLength(2))
	assert.InDelta(t, 10.244770, averagePathLength(256), 1e-5)
}

func TestPercentile(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	assert.Equal(t, 1.0, percentile(values, 0))
	assert.Equal(t, 4.0, percentile(values, 1))
	assert.InDelta(t, 1.3, percentile(values, 0.1), 1e-9)
	assert.Equal(t, []float64{4, 1, 3, 2}, values, "input is not reordered")
}

func TestDetector(t *testing.T) {
	t.Run("single entity is insufficient data", func(t *testing.T) {
		s := store.New()
		_, _ = s.AddEntity("only", domain.Attributes{"k": domain.Int(1)})

		res, err := NewDetector(NewIsolationForest(), 0.1, nil).Detect(context.Background(), s.Snapshot())
		require.NoError(t, err)
		assert.Equal(t, StatusInsufficientData, res.Status)
		assert.Equal(t, MessageInsufficientData, res.Summary())
		assert.Empty(t, res.Outliers)
	})

	t.Run("empty graph is insufficient data", func(t *testing.T) {
		res, err := NewDetector(NewIsolationForest(), 0.1, nil).Detect(context.Background(), store.New().Snapshot())
		require.NoError(t, err)
		assert.Equal(t, StatusInsufficientData, res.Status)
	})

	t.Run("nil model is not configured", func(t *testing.T) {
		res, err := NewDetector(nil, 0.1, nil).Detect(context.Background(), store.New().Snapshot())
		require.NoError(t, err)
		assert.Equal(t, StatusNotConfigured, res.Status)
		assert.Equal(t, MessageNotConfigured, res.Summary())
	})

	t.Run("outliers follow snapshot order", func(t *testing.T) {
		s := store.New()
		for _, id := range []string{"z", "a", "m"} {
			_, _ = s.AddEntity(id, domain.Attributes{"n": domain.Int(1)})
		}
		model := &fakeModel{flags: []bool{true, false, true}}

		res, err := NewDetector(model, 0.1, nil).Detect(context.Background(), s.Snapshot())
		require.NoError(t, err)
		assert.Equal(t, StatusOK, res.Status)
		assert.Equal(t, []string{"z", "m"}, res.Outliers)
		assert.Equal(t, `["z","m"]`, res.Summary())
		assert.Len(t, model.rows, 3)
	})

	t.Run("model failure is a capability error", func(t *testing.T) {
		s := store.New()
		_, _ = s.AddEntity("a", nil)
		_, _ = s.AddEntity("b", nil)

		_, err := NewDetector(&fakeModel{err: errors.New("remote down")}, 0.1, nil).Detect(context.Background(), s.Snapshot())
		var ce *domain.CapabilityError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "anomaly model", ce.Capability)
	})

	t.Run("mismatched flag count is a capability error", func(t *testing.T) {
		s := store.New()
		_, _ = s.AddEntity("a", nil)
		_, _ = s.AddEntity("b", nil)

		_, err := NewDetector(&fakeModel{flags: []bool{true}}, 0.1, nil).Detect(context.Background(), s.Snapshot())
		var ce *domain.CapabilityError
		assert.True(t, errors.As(err, &ce))
	})

	t.Run("invalid fraction falls back to default", func(t *testing.T) {
		for _, f := range []float64{0, -1, 0.9} {
			assert.Equal(t, DefaultOutlierFraction, NewDetector(nil, f, nil).Fraction(), fmt.Sprint(f))
		}
	})

	t.Run("end to end with the forest", func(t *testing.T) {
		s := store.New()
		for i := 0; i < 30; i++ {
			_, _ = s.AddEntity(fmt.Sprintf("user%02d", i), domain.Attributes{
				"followers": domain.Int(100 + i%7),
				"verified":  domain.Bool(false),
			})
		}
		_, _ = s.AddEntity("bot", domain.Attributes{
			"followers": domain.Int(250000),
			"verified":  domain.Bool(true),
		})

		res, err := NewDetector(NewIsolationForest(), 0.1, nil).Detect(context.Background(), s.Snapshot())
		require.NoError(t, err)
		assert.Contains(t, res.Outliers, "bot")
	})
}
