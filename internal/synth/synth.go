package synth

import (
	"math/rand"
	"sync"

	"github.com/nbrsim/xmatch/catalog"
)

// Generator draws simulated catalogs from a seeded source.
// It is safe for concurrent use.
type Generator struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// New creates a Generator with the specified seed.
func New(seed int64) *Generator {
	return &Generator{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset rewinds the generator to its initial seed.
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rand.Seed(g.seed)
}

// Seed returns the initial seed.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (g *Generator) Float64() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rand.Float64()
}

// UniformPoints returns n points uniformly distributed over [0,width)x[0,height).
func (g *Generator) UniformPoints(n int, width, height float64) (x, y []float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.uniformPoints(n, width, height)
}

func (g *Generator) uniformPoints(n int, width, height float64) (x, y []float64) {
	x = make([]float64, n)
	y = make([]float64, n)
	for i := range n {
		x[i] = g.rand.Float64() * width
		y[i] = g.rand.Float64() * height
	}
	return x, y
}

// TruthField generates n truth records over a width x height image with
// shear drawn from [-maxShear, maxShear) and shear indices in [0, groups).
func (g *Generator) TruthField(n int, width, height, maxShear float64, groups int) catalog.Truths {
	g.mu.Lock()
	defer g.mu.Unlock()

	x, y := g.uniformPoints(n, width, height)

	ts := make(catalog.Truths, n)
	for i := range ts {
		ts[i] = catalog.Truth{
			X:          x[i],
			Y:          y[i],
			Shear1:     (g.rand.Float64()*2 - 1) * maxShear,
			Shear2:     (g.rand.Float64()*2 - 1) * maxShear,
			ShearIndex: int16(g.rand.Intn(groups)),
		}
	}
	return ts
}

// DetectTruths simulates a source extraction over ts: every truth is detected
// with the given completeness, displaced by Gaussian noise of sigma pixels and
// reported in 1-based coordinates.
func (g *Generator) DetectTruths(ts catalog.Truths, completeness, sigma float64) catalog.Detections {
	g.mu.Lock()
	defer g.mu.Unlock()

	var ds catalog.Detections
	for i := range ts {
		if g.rand.Float64() >= completeness {
			continue
		}
		ds = append(ds, catalog.Detection{
			Number:    int64(len(ds) + 1),
			XWinImage: ts[i].X + 1 + g.rand.NormFloat64()*sigma,
			YWinImage: ts[i].Y + 1 + g.rand.NormFloat64()*sigma,
			FluxAuto:  1000 * (1 + g.rand.Float64()),
		})
	}
	return ds
}
