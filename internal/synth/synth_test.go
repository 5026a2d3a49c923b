package synth

import (
	"testing"

	"github.com/nbrsim/xmatch/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformPoints(t *testing.T) {
	g := New(4711)

	x, y := g.UniformPoints(64, 100, 50)

	require.Len(t, x, 64)
	require.Len(t, y, 64)
	for i := range x {
		assert.GreaterOrEqual(t, x[i], 0.0)
		assert.Less(t, x[i], 100.0)
		assert.GreaterOrEqual(t, y[i], 0.0)
		assert.Less(t, y[i], 50.0)
	}
}

func TestGenerator_Reset(t *testing.T) {
	g := New(42)
	a := g.Float64()
	g.Reset()
	assert.Equal(t, a, g.Float64())
	assert.Equal(t, int64(42), g.Seed())
}

func TestGenerator_Deterministic(t *testing.T) {
	a := New(9).TruthField(50, 100, 100, 0.05, 3)
	b := New(9).TruthField(50, 100, 100, 0.05, 3)
	assert.Equal(t, a, b)
}

func TestTruthField(t *testing.T) {
	g := New(7)
	ts := g.TruthField(100, 200, 200, 0.05, 4)

	require.Len(t, ts, 100)
	require.NoError(t, ts.Validate())
	for _, tr := range ts {
		assert.GreaterOrEqual(t, tr.ShearIndex, int16(0))
		assert.Less(t, tr.ShearIndex, int16(4))
		assert.LessOrEqual(t, tr.Shear1, 0.05)
		assert.GreaterOrEqual(t, tr.Shear2, -0.05)
	}
}

func TestDetectTruths(t *testing.T) {
	g := New(7)
	ts := catalog.Truths{{X: 10, Y: 20}, {X: 30, Y: 40}}

	ds := g.DetectTruths(ts, 1, 0)
	require.Len(t, ds, 2)
	assert.Equal(t, 11.0, ds[0].XWinImage)
	assert.Equal(t, 21.0, ds[0].YWinImage)
	assert.Equal(t, int64(2), ds[1].Number)

	assert.Empty(t, g.DetectTruths(ts, 0, 0))
}
