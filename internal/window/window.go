package window

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
)

// Location classifies a probe value relative to the sorted coordinates.
type Location int

const (
	// Empty means the index holds no points.
	Empty Location = iota
	// BeforeStart means every element is >= the probe.
	BeforeStart
	// Inside means the probe falls strictly between two elements.
	Inside
	// Exact means an element equals the probe.
	Exact
	// AfterEnd means every element is < the probe.
	AfterEnd
)

func (l Location) String() string {
	switch l {
	case Empty:
		return "Empty"
	case BeforeStart:
		return "BeforeStart"
	case Inside:
		return "Inside"
	case Exact:
		return "Exact"
	case AfterEnd:
		return "AfterEnd"
	default:
		return fmt.Sprintf("Unknown(%d)", int(l))
	}
}

// Index is a point set sorted by x with a map back to the original order.
type Index struct {
	xs   []float64
	ys   []float64
	perm []int
}

// Build sorts the points (x[i], y[i]) by x. Points with equal x keep their
// original relative order. x and y must have the same length.
func Build(x, y []float64) *Index {
	n := len(x)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	slices.SortStableFunc(perm, func(a, b int) int {
		return cmp.Compare(x[a], x[b])
	})

	xs := make([]float64, n)
	ys := make([]float64, n)
	for j, i := range perm {
		xs[j] = x[i]
		ys[j] = y[i]
	}

	return &Index{xs: xs, ys: ys, perm: perm}
}

// Len returns the number of indexed points.
func (ix *Index) Len() int { return len(ix.xs) }

// X returns the x coordinate at sorted position j.
func (ix *Index) X(j int) float64 { return ix.xs[j] }

// Y returns the y coordinate at sorted position j.
func (ix *Index) Y(j int) float64 { return ix.ys[j] }

// Orig maps sorted position j back to the index in the input slices.
func (ix *Index) Orig(j int) int { return ix.perm[j] }

// Below returns the largest sorted position whose x is strictly less than t,
// together with the location of t. When no element is below t the position
// is -1.
//
// sort.Search keeps a half-open interval and stops once the bounds are
// adjacent, so the result is always the insertion point of t.
func (ix *Index) Below(t float64) (int, Location) {
	n := len(ix.xs)
	if n == 0 {
		return -1, Empty
	}

	k := sort.Search(n, func(i int) bool { return ix.xs[i] >= t })

	switch {
	case k < n && ix.xs[k] == t:
		return k - 1, Exact
	case k == 0:
		return -1, BeforeStart
	case k == n:
		return n - 1, AfterEnd
	default:
		return k - 1, Inside
	}
}

// Window returns the half-open range [lo, hi) of sorted positions whose x
// satisfies tLo <= x < tHi. A probe before the first element starts the
// window at position 0. An empty range has lo == hi.
func (ix *Index) Window(tLo, tHi float64) (lo, hi int) {
	pos, loc := ix.Below(tLo)
	switch loc {
	case Empty, AfterEnd:
		return 0, 0
	}

	lo = pos + 1
	hi = lo
	for hi < len(ix.xs) && ix.xs[hi] < tHi {
		hi++
	}
	return lo, hi
}
