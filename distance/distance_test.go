package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEuclidean2D(t *testing.T) {
	tests := []struct {
		name     string
		dx, dy   float64
		expected float64
	}{
		{"Zero", 0, 0, 0},
		{"Pythagorean", 3, 4, 5},
		{"Negative", -3, -4, 5},
		{"AxisOnly", 0, 2.5, 2.5},
		{"ScenarioA", 0.5, 0.4, math.Sqrt(0.41)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Euclidean2D(tt.dx, tt.dy), 1e-12)
		})
	}
}

func TestWithinBox(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float64
		ep     float64
		want   bool
	}{
		{"Inside", 0.5, 0.4, 8, true},
		{"OutsideX", 0.5, 0.4, 0.1, false},
		{"OnEdgeExcluded", 8, 0, 8, false},
		{"JustInside", 8 - 1e-9, 0, 8, true},
		{"DiagonalCorner", 7.9, 7.9, 8, true},
		{"OutsideY", 1, 9, 8, false},
		{"NaNOffset", math.NaN(), 0, 8, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinBox(tt.dx, tt.dy, tt.ep))
			assert.Equal(t, tt.want, WithinBox(-tt.dx, -tt.dy, tt.ep), "symmetric")
		})
	}
}
