package xmatch

import (
	"context"
	"math"
	"testing"

	"github.com/nbrsim/xmatch/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_Scenarios(t *testing.T) {
	tests := []struct {
		name           string
		x1, y1, x2, y2 []float64
		ep             float64
		allow          int
		wantI1, wantI2 []int
	}{
		{
			name: "SingleWithinTolerance",
			x1:   []float64{10}, y1: []float64{10},
			x2: []float64{10.5}, y2: []float64{10.4},
			ep: 8, allow: 1,
			wantI1: []int{0}, wantI2: []int{0},
		},
		{
			name: "OutsideTightTolerance",
			x1:   []float64{10}, y1: []float64{10},
			x2: []float64{10.5}, y2: []float64{10.4},
			ep: 0.1, allow: 1,
		},
		{
			name: "KeepTwoClosest",
			x1:   []float64{0}, y1: []float64{0},
			x2: []float64{1, 2, 6}, y2: []float64{1, 2, 6},
			ep: 8, allow: 2,
			wantI1: []int{0, 0}, wantI2: []int{0, 1},
		},
		{
			name: "JustInsideUpperEdge",
			x1:   []float64{10}, y1: []float64{10},
			x2: []float64{10 + 8 - 1e-9}, y2: []float64{10},
			ep: 8, allow: 1,
			wantI1: []int{0}, wantI2: []int{0},
		},
		{
			name: "OnUpperEdge",
			x1:   []float64{10}, y1: []float64{10},
			x2: []float64{18}, y2: []float64{10},
			ep: 8, allow: 1,
		},
		{
			name: "OnLowerEdge",
			x1:   []float64{10}, y1: []float64{10},
			x2: []float64{2}, y2: []float64{10},
			ep: 8, allow: 1,
		},
		{
			name: "JustInsideLowerEdge",
			x1:   []float64{10}, y1: []float64{10},
			x2: []float64{2 + 1e-9}, y2: []float64{10},
			ep: 8, allow: 1,
			wantI1: []int{0}, wantI2: []int{0},
		},
		{
			name: "OnYEdge",
			x1:   []float64{10}, y1: []float64{10},
			x2: []float64{10}, y2: []float64{18},
			ep: 8, allow: 1,
		},
		{
			name: "WindowStartsBeforeArray",
			x1:   []float64{0, 100}, y1: []float64{0, 0},
			x2: []float64{3, 4, 50}, y2: []float64{0, 0, 0},
			ep: 5, allow: 1,
			wantI1: []int{0}, wantI2: []int{0},
		},
		{
			name: "PrimaryBeyondArrayEnd",
			x1:   []float64{1000}, y1: []float64{0},
			x2: []float64{1, 2, 3}, y2: []float64{0, 0, 0},
			ep: 5, allow: 1,
		},
		{
			name: "CandidatesOutOfInputOrder",
			x1:   []float64{5, 20}, y1: []float64{5, 20},
			x2: []float64{21, 9, 5.5, 100}, y2: []float64{20, 9, 5, 100},
			ep: 8, allow: 3,
			wantI1: []int{0, 0, 1}, wantI2: []int{2, 1, 0},
		},
		{
			name: "XWindowButYFilter",
			x1:   []float64{0}, y1: []float64{0},
			x2: []float64{0.5, 1}, y2: []float64{20, 1},
			ep: 2, allow: 5,
			wantI1: []int{0}, wantI2: []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Match(tt.x1, tt.y1, tt.x2, tt.y2, tt.ep, tt.allow)
			require.NoError(t, err)
			if len(tt.wantI1) == 0 {
				assert.Equal(t, 0, res.Len())
				return
			}
			assert.Equal(t, tt.wantI1, res.I1)
			assert.Equal(t, tt.wantI2, res.I2)
		})
	}
}

func TestMatch_InvalidArguments(t *testing.T) {
	one := []float64{1}
	two := []float64{1, 2}

	tests := []struct {
		name           string
		x1, y1, x2, y2 []float64
		ep             float64
		allow          int
		target         any
	}{
		{"PrimaryLength", two, one, one, one, 1, 1, new(*ErrLengthMismatch)},
		{"SecondaryLength", one, one, one, two, 1, 1, new(*ErrLengthMismatch)},
		{"ZeroTolerance", one, one, one, one, 0, 1, new(*ErrInvalidTolerance)},
		{"NegativeTolerance", one, one, one, one, -1, 1, new(*ErrInvalidTolerance)},
		{"NaNTolerance", one, one, one, one, math.NaN(), 1, new(*ErrInvalidTolerance)},
		{"InfTolerance", one, one, one, one, math.Inf(1), 1, new(*ErrInvalidTolerance)},
		{"ZeroAllow", one, one, one, one, 1, 0, new(*ErrInvalidMultiplicity)},
		{"NegativeAllow", one, one, one, one, 1, -3, new(*ErrInvalidMultiplicity)},
		{"InvalidEvenWhenEmpty", nil, one, nil, nil, 1, 1, new(*ErrLengthMismatch)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Match(tt.x1, tt.y1, tt.x2, tt.y2, tt.ep, tt.allow)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.ErrorAs(t, err, tt.target)
		})
	}
}

func TestMatch_LengthMismatchNamesSet(t *testing.T) {
	_, err := Match([]float64{1}, []float64{1}, []float64{1, 2}, []float64{1}, 1, 1)

	var lm *ErrLengthMismatch
	require.ErrorAs(t, err, &lm)
	assert.Equal(t, "secondary", lm.Set)
	assert.Equal(t, 2, lm.X)
	assert.Equal(t, 1, lm.Y)
}

func TestMatch_EmptyInputs(t *testing.T) {
	rng := testutil.NewRNG(1)
	x, y := rng.UniformPoints(50, 100, 100)

	for _, ep := range []float64{0.5, 8, 1e6} {
		for _, allow := range []int{1, 3, 100} {
			res, err := Match(x, y, nil, nil, ep, allow)
			require.NoError(t, err)
			assert.Equal(t, 0, res.Len())
			assert.Empty(t, res.Pairs())

			res, err = Match(nil, nil, x, y, ep, allow)
			require.NoError(t, err)
			assert.Equal(t, 0, res.Len())
		}
	}
}

func TestMatch_SingleSecondary(t *testing.T) {
	x1 := []float64{0, 5, 10, 15, 20}
	y1 := []float64{0, 0, 0, 0, 0}

	res, err := Match(x1, y1, []float64{10}, []float64{0}, 6, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, res.I1)
	assert.Equal(t, []int{0, 0, 0}, res.I2)
}

func TestMatch_LargeCoordinates(t *testing.T) {
	// Adjacent float64 values near 1e16 are 2 apart, so x±ep rounds.
	const big = 1e16
	x2 := []float64{big, big + 2, big - 2}
	y2 := []float64{0, 0, 0}

	res, err := Match([]float64{big}, []float64{0}, x2, y2, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []Pair{{I1: 0, I2: 0}}, res.Pairs())

	res, err = Match([]float64{big}, []float64{0}, x2, y2, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, res.I2)

	m := New(WithShardSize(1), WithWorkers(2))
	sharded, err := m.Match(context.Background(), []float64{big, big}, []float64{0, 0}, x2, y2, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, sharded.I1)
	assert.Equal(t, []int{0, 0}, sharded.I2)
}

func TestMatch_DoesNotMutateInputs(t *testing.T) {
	x2 := []float64{3, 1, 2}
	y2 := []float64{0, 0, 0}

	_, err := Match([]float64{2}, []float64{0}, x2, y2, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, x2)
}

func TestMatch_AgreesWithBruteForce(t *testing.T) {
	rng := testutil.NewRNG(4711)

	for _, tc := range []struct {
		n1, n2 int
		ep     float64
		allow  int
	}{
		{200, 300, 5, 1},
		{200, 300, 12, 3},
		{500, 50, 30, 2},
		{50, 1000, 3, 10},
	} {
		x1, y1 := rng.UniformPoints(tc.n1, 200, 200)
		x2, y2 := rng.UniformPoints(tc.n2, 200, 200)

		res, err := Match(x1, y1, x2, y2, tc.ep, tc.allow)
		require.NoError(t, err)

		wantI1, wantI2 := testutil.BruteForceMatch(x1, y1, x2, y2, tc.ep, tc.allow)
		assert.Equal(t, wantI1, nilIfEmpty(res.I1))
		assert.Equal(t, wantI2, nilIfEmpty(res.I2))
	}
}

func TestMatch_GridTies(t *testing.T) {
	x2, y2 := testutil.GridPoints(10, 10, 1)
	x1 := []float64{4.5, 0, 9}
	y1 := []float64{4.5, 0, 9}

	res, err := Match(x1, y1, x2, y2, 1.1, 3)
	require.NoError(t, err)

	wantI1, wantI2 := testutil.BruteForceMatch(x1, y1, x2, y2, 1.1, 3)
	assert.Equal(t, wantI1, res.I1)
	assert.Equal(t, wantI2, res.I2)
}

func TestMatch_Properties(t *testing.T) {
	rng := testutil.NewRNG(99)
	x1, y1 := rng.UniformPoints(300, 100, 100)
	x2, y2 := rng.UniformPoints(300, 100, 100)
	const ep = 6.0
	const allow = 2

	res, err := Match(x1, y1, x2, y2, ep, allow)
	require.NoError(t, err)
	require.Positive(t, res.Len())

	perPrimary := make(map[int][]int)
	for _, p := range res.Pairs() {
		// Tolerance invariant.
		assert.Less(t, math.Abs(x1[p.I1]-x2[p.I2]), ep)
		assert.Less(t, math.Abs(y1[p.I1]-y2[p.I2]), ep)
		perPrimary[p.I1] = append(perPrimary[p.I1], p.I2)
	}

	for i1, kept := range perPrimary {
		// Multiplicity bound.
		assert.LessOrEqual(t, len(kept), allow)

		// Closest-kept invariant.
		worstKept := 0.0
		for _, i2 := range kept {
			worstKept = math.Max(worstKept, math.Hypot(x1[i1]-x2[i2], y1[i1]-y2[i2]))
		}
		for j := range x2 {
			if contains(kept, j) {
				continue
			}
			dx, dy := math.Abs(x1[i1]-x2[j]), math.Abs(y1[i1]-y2[j])
			if dx < ep && dy < ep {
				assert.GreaterOrEqual(t, math.Hypot(dx, dy)+1e-12, worstKept)
			}
		}
	}

	// Symmetry: with an unbounded multiplicity the reverse match finds every
	// forward pair.
	rev, err := Match(x2, y2, x1, y1, ep, len(x1))
	require.NoError(t, err)
	reverse := make(map[Pair]bool, rev.Len())
	for _, p := range rev.Pairs() {
		reverse[Pair{I1: p.I2, I2: p.I1}] = true
	}
	for _, p := range res.Pairs() {
		assert.True(t, reverse[p], "pair %v missing from reverse match", p)
	}
}

func TestResult_ForPrimary(t *testing.T) {
	res := &Result{I1: []int{0, 0, 2, 5, 5, 5}, I2: []int{3, 1, 4, 7, 8, 9}}

	assert.Equal(t, []int{3, 1}, res.ForPrimary(0))
	assert.Nil(t, res.ForPrimary(1))
	assert.Equal(t, []int{4}, res.ForPrimary(2))
	assert.Equal(t, []int{7, 8, 9}, res.ForPrimary(5))
	assert.Nil(t, res.ForPrimary(6))

	var empty *Result
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, empty.ForPrimary(0))
}

func TestMatcher_ShardedEqualsSequential(t *testing.T) {
	rng := testutil.NewRNG(2024)
	x1, y1 := rng.UniformPoints(1000, 500, 500)
	x2, y2 := rng.UniformPoints(800, 500, 500)

	want, err := Match(x1, y1, x2, y2, 4, 2)
	require.NoError(t, err)

	for _, shard := range []int{1, 7, 64, 999, 1000, 5000} {
		m := New(WithShardSize(shard), WithWorkers(4))
		got, err := m.Match(context.Background(), x1, y1, x2, y2, 4, 2)
		require.NoError(t, err)
		assert.Equal(t, want.I1, got.I1, "shard size %d", shard)
		assert.Equal(t, want.I2, got.I2, "shard size %d", shard)
	}
}

func TestMatcher_Sequential(t *testing.T) {
	m := New(WithWorkers(1), WithShardSize(1))
	res, err := m.Match(context.Background(), []float64{0, 1}, []float64{0, 1}, []float64{0.5}, []float64{0.5}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.I1)
	assert.Equal(t, []int{0, 0}, res.I2)
}

func TestMatcher_CanceledContext(t *testing.T) {
	rng := testutil.NewRNG(5)
	x1, y1 := rng.UniformPoints(100, 10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := New(WithShardSize(10), WithWorkers(2))
	_, err := m.Match(ctx, x1, y1, x1, y1, 1, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMatcher_RecordsMetrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	m := New(WithMetricsCollector(metrics))

	_, err := m.Match(context.Background(), []float64{0}, []float64{0}, []float64{0}, []float64{0}, 1, 1)
	require.NoError(t, err)
	_, err = m.Match(context.Background(), []float64{0}, []float64{0}, []float64{0}, []float64{0}, 0, 1)
	require.Error(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.MatchCount)
	assert.Equal(t, int64(1), stats.MatchErrors)
	assert.Equal(t, int64(1), stats.MatchPairs)
}

func nilIfEmpty(s []int) []int {
	if len(s) == 0 {
		return nil
	}
	return s
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
