package testutil

import (
	"cmp"
	"math"
	"slices"

	"github.com/nbrsim/xmatch/internal/synth"
)

// RNG is a seeded generator of point sets and catalogs for tests.
// It is thread-safe.
type RNG struct {
	*synth.Generator
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{Generator: synth.New(seed)}
}

// GridPoints returns points on an integer grid with the given spacing.
// Grids produce exact distance ties, which exercises tie ordering.
func GridPoints(nx, ny int, spacing float64) (x, y []float64) {
	x = make([]float64, 0, nx*ny)
	y = make([]float64, 0, nx*ny)
	for i := range nx {
		for j := range ny {
			x = append(x, float64(i)*spacing)
			y = append(y, float64(j)*spacing)
		}
	}
	return x, y
}

// BruteForceMatch is the exhaustive reference for xmatch.Match. It compares
// every primary point with every secondary point. Candidates are ordered by
// distance, then by secondary x, then by secondary index, which reproduces
// the ordering of the indexed matcher.
func BruteForceMatch(x1, y1, x2, y2 []float64, ep float64, allow int) (i1s, i2s []int) {
	type cand struct {
		j    int
		dist float64
	}

	var cands []cand
	for i := range x1 {
		cands = cands[:0]
		for j := range x2 {
			dx := math.Abs(x1[i] - x2[j])
			dy := math.Abs(y1[i] - y2[j])
			if dx < ep && dy < ep {
				cands = append(cands, cand{j: j, dist: math.Sqrt(dx*dx + dy*dy)})
			}
		}
		slices.SortFunc(cands, func(a, b cand) int {
			if c := cmp.Compare(a.dist, b.dist); c != 0 {
				return c
			}
			if c := cmp.Compare(x2[a.j], x2[b.j]); c != 0 {
				return c
			}
			return cmp.Compare(a.j, b.j)
		})
		if len(cands) > allow {
			cands = cands[:allow]
		}
		for _, c := range cands {
			i1s = append(i1s, i)
			i2s = append(i2s, c.j)
		}
	}
	return i1s, i2s
}
