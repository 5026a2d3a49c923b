package window

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_SortsAndMaps(t *testing.T) {
	x := []float64{5, 1, 3, 1}
	y := []float64{50, 10, 30, 11}

	ix := Build(x, y)
	require.Equal(t, 4, ix.Len())

	wantX := []float64{1, 1, 3, 5}
	wantY := []float64{10, 11, 30, 50}
	wantOrig := []int{1, 3, 2, 0}
	for j := 0; j < ix.Len(); j++ {
		assert.Equal(t, wantX[j], ix.X(j), "x at %d", j)
		assert.Equal(t, wantY[j], ix.Y(j), "y at %d", j)
		assert.Equal(t, wantOrig[j], ix.Orig(j), "orig at %d", j)
	}
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	x := []float64{3, 2, 1}
	y := []float64{30, 20, 10}
	_ = Build(x, y)
	assert.Equal(t, []float64{3, 2, 1}, x)
	assert.Equal(t, []float64{30, 20, 10}, y)
}

func TestBelow(t *testing.T) {
	ix := Build([]float64{1, 2, 4, 8}, make([]float64, 4))

	tests := []struct {
		name    string
		probe   float64
		wantPos int
		wantLoc Location
	}{
		{"BeforeStart", 0.5, -1, BeforeStart},
		{"ExactFirst", 1, -1, Exact},
		{"Inside", 3, 1, Inside},
		{"ExactMiddle", 4, 1, Exact},
		{"ExactLast", 8, 2, Exact},
		{"AfterEnd", 9, 3, AfterEnd},
		{"JustAboveFirst", math.Nextafter(1, 2), 0, Inside},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, loc := ix.Below(tt.probe)
			assert.Equal(t, tt.wantPos, pos)
			assert.Equal(t, tt.wantLoc, loc)
		})
	}
}

func TestBelow_Empty(t *testing.T) {
	ix := Build(nil, nil)
	pos, loc := ix.Below(0)
	assert.Equal(t, -1, pos)
	assert.Equal(t, Empty, loc)
}

func TestBelow_Duplicates(t *testing.T) {
	ix := Build([]float64{2, 2, 2, 5}, make([]float64, 4))

	pos, loc := ix.Below(2)
	assert.Equal(t, -1, pos)
	assert.Equal(t, Exact, loc)

	pos, loc = ix.Below(3)
	assert.Equal(t, 2, pos)
	assert.Equal(t, Inside, loc)
}

func TestBelow_AgreesWithLinearScan(t *testing.T) {
	xs := []float64{-3, -1, -1, 0, 2, 2.5, 7, 7, 7, 10}
	ix := Build(xs, make([]float64, len(xs)))

	for probe := -5.0; probe <= 12; probe += 0.25 {
		want := -1
		for j := 0; j < ix.Len(); j++ {
			if ix.X(j) < probe {
				want = j
			}
		}
		got, _ := ix.Below(probe)
		require.Equal(t, want, got, "probe %v", probe)
	}
}

func TestWindow(t *testing.T) {
	ix := Build([]float64{0, 1, 2, 3, 4, 5}, make([]float64, 6))

	tests := []struct {
		name     string
		lo, hi   float64
		wantFrom int
		wantTo   int
	}{
		{"Middle", 1.5, 3.5, 2, 4},
		{"LowerEdgeInclusive", 1, 3, 1, 3},
		{"UpperEdgeExclusive", 0.5, 3, 1, 3},
		{"BeforeStart", -10, 1.5, 0, 2},
		{"CoversAll", -10, 10, 0, 6},
		{"AfterEnd", 6, 9, 0, 0},
		{"Gap", 3.2, 3.8, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := ix.Window(tt.lo, tt.hi)
			assert.Equal(t, tt.wantFrom, lo)
			assert.Equal(t, tt.wantTo, hi)
		})
	}
}

func TestWindow_SingleElement(t *testing.T) {
	ix := Build([]float64{10}, []float64{10})

	lo, hi := ix.Window(2, 18)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 1, hi)

	lo, hi = ix.Window(10, 11)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 1, hi)

	// Upper bound equal to the element excludes it.
	lo, hi = ix.Window(2, 10)
	assert.Equal(t, lo, hi)

	lo, hi = ix.Window(10.5, 20)
	assert.Equal(t, lo, hi)
}

func TestWindow_Empty(t *testing.T) {
	ix := Build(nil, nil)
	lo, hi := ix.Window(-1, 1)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 0, hi)
}

func TestLocation_String(t *testing.T) {
	assert.Equal(t, "BeforeStart", BeforeStart.String())
	assert.Equal(t, "Unknown(42)", Location(42).String())
}
