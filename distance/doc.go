// Package distance provides the planar distance tests used by the matcher.
//
// Both functions work on per-axis offsets of a candidate pair:
//
//	if distance.WithinBox(dx, dy, ep) {
//		d := distance.Euclidean2D(dx, dy)
//	}
package distance
