package distance

import "math"

// Euclidean2D returns sqrt(dx² + dy²).
func Euclidean2D(dx, dy float64) float64 {
	return math.Sqrt(dx*dx + dy*dy)
}

// WithinBox reports whether both axis offsets are strictly less than ep in
// magnitude. This is the match tolerance test.
func WithinBox(dx, dy, ep float64) bool {
	return math.Abs(dx) < ep && math.Abs(dy) < ep
}
