package xmatch

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/nbrsim/xmatch/distance"
	"github.com/nbrsim/xmatch/internal/window"
	"golang.org/x/sync/errgroup"
)

// Pair is one match between primary index I1 and secondary index I2.
type Pair struct {
	I1 int
	I2 int
}

// Result holds the pairs produced by a match as parallel index slices.
//
// Pairs are grouped by primary index in ascending order. Within a group the
// secondary indices are ordered by increasing Euclidean distance.
type Result struct {
	I1 []int
	I2 []int
}

// Len returns the number of pairs.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.I1)
}

// Pairs returns the matches as a slice of pairs.
func (r *Result) Pairs() []Pair {
	pairs := make([]Pair, r.Len())
	for k := range pairs {
		pairs[k] = Pair{I1: r.I1[k], I2: r.I2[k]}
	}
	return pairs
}

// ForPrimary returns the secondary indices matched to primary index i1,
// closest first. It returns nil if i1 has no matches.
func (r *Result) ForPrimary(i1 int) []int {
	if r.Len() == 0 {
		return nil
	}
	lo := sort.SearchInts(r.I1, i1)
	hi := lo
	for hi < len(r.I1) && r.I1[hi] == i1 {
		hi++
	}
	if lo == hi {
		return nil
	}
	return slices.Clone(r.I2[lo:hi])
}

func (r *Result) appendFrom(o *Result) {
	r.I1 = append(r.I1, o.I1...)
	r.I2 = append(r.I2, o.I2...)
}

// Match finds, for every primary point (x1[i], y1[i]), up to allow secondary
// points (x2[j], y2[j]) with |x1[i]-x2[j]| < ep and |y1[i]-y2[j]| < ep. When
// more than allow candidates qualify, the allow closest by Euclidean distance
// are kept.
//
// An empty primary or secondary set yields an empty result, not an error.
// Mismatched lengths, a non-positive or non-finite ep, or allow < 1 return an
// error wrapping ErrInvalidArgument.
//
// Match is sequential and allocation-bounded by the output size. Use a
// Matcher for large primary sets.
func Match(x1, y1, x2, y2 []float64, ep float64, allow int) (*Result, error) {
	if err := validate(x1, y1, x2, y2, ep, allow); err != nil {
		return nil, err
	}

	res := &Result{}
	if len(x1) == 0 || len(x2) == 0 {
		return res, nil
	}

	ix := window.Build(x2, y2)
	matchRange(ix, x1, y1, ep, allow, 0, len(x1), res)
	return res, nil
}

func validate(x1, y1, x2, y2 []float64, ep float64, allow int) error {
	if len(x1) != len(y1) {
		return &ErrLengthMismatch{Set: "primary", X: len(x1), Y: len(y1)}
	}
	if len(x2) != len(y2) {
		return &ErrLengthMismatch{Set: "secondary", X: len(x2), Y: len(y2)}
	}
	if !(ep > 0) || math.IsInf(ep, 1) {
		return &ErrInvalidTolerance{Tolerance: ep}
	}
	if allow < 1 {
		return &ErrInvalidMultiplicity{Allow: allow}
	}
	return nil
}

type candidate struct {
	pos  int
	dist float64
}

// matchRange matches primary indices [from, to) against ix and appends the
// pairs to res.
func matchRange(ix *window.Index, x1, y1 []float64, ep float64, allow, from, to int, res *Result) {
	var cands []candidate

	for i1 := from; i1 < to; i1++ {
		x, y := x1[i1], y1[i1]

		// x±ep can round onto a neighbour at large magnitudes; widen by one
		// ULP and leave the decision to WithinBox.
		lo, hi := ix.Window(math.Nextafter(x-ep, math.Inf(-1)), math.Nextafter(x+ep, math.Inf(1)))
		if lo == hi {
			continue
		}

		cands = cands[:0]
		for j := lo; j < hi; j++ {
			dx := ix.X(j) - x
			dy := ix.Y(j) - y
			if distance.WithinBox(dx, dy, ep) {
				cands = append(cands, candidate{pos: j, dist: distance.Euclidean2D(dx, dy)})
			}
		}
		if len(cands) == 0 {
			continue
		}

		// Order the whole candidate set, not only the overflow, so the kept
		// pairs are always the closest ones.
		if len(cands) > 1 {
			slices.SortStableFunc(cands, func(a, b candidate) int {
				return cmp.Compare(a.dist, b.dist)
			})
		}
		if len(cands) > allow {
			cands = cands[:allow]
		}

		for _, c := range cands {
			res.I1 = append(res.I1, i1)
			res.I2 = append(res.I2, ix.Orig(c.pos))
		}
	}
}

// Matcher runs matches with logging, metrics and optional parallelism.
// A Matcher holds no per-call state and is safe for concurrent use.
type Matcher struct {
	opts options
}

// New creates a Matcher.
func New(optFns ...Option) *Matcher {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Matcher{opts: opts}
}

// Logger returns the matcher's logger.
func (m *Matcher) Logger() *Logger { return m.opts.logger }

// Metrics returns the matcher's metrics collector.
func (m *Matcher) Metrics() MetricsCollector { return m.opts.metricsCollector }

// Match has the semantics of the package-level Match. Once the primary set
// exceeds the configured shard size, the primary loop is split into shards
// that run concurrently after the secondary set has been sorted. Shard results
// are concatenated in primary order, so the output equals the sequential one.
//
// ctx is only consulted between shards.
func (m *Matcher) Match(ctx context.Context, x1, y1, x2, y2 []float64, ep float64, allow int) (*Result, error) {
	start := time.Now()

	res, err := m.match(ctx, x1, y1, x2, y2, ep, allow)

	m.opts.metricsCollector.RecordMatch(len(x1), len(x2), res.Len(), time.Since(start), err)
	m.opts.logger.LogMatch(ctx, len(x1), len(x2), res.Len(), err)

	return res, err
}

func (m *Matcher) match(ctx context.Context, x1, y1, x2, y2 []float64, ep float64, allow int) (*Result, error) {
	if err := validate(x1, y1, x2, y2, ep, allow); err != nil {
		return nil, err
	}

	res := &Result{}
	if len(x1) == 0 || len(x2) == 0 {
		return res, nil
	}

	ix := window.Build(x2, y2)

	n1 := len(x1)
	shardSize := m.opts.shardSize
	if m.opts.workers <= 1 || n1 <= shardSize {
		matchRange(ix, x1, y1, ep, allow, 0, n1, res)
		return res, nil
	}

	numShards := (n1 + shardSize - 1) / shardSize
	parts := make([]Result, numShards)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.workers)

	for s := range numShards {
		from := s * shardSize
		to := min(from+shardSize, n1)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			matchRange(ix, x1, y1, ep, allow, from, to, &parts[s])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for s := range parts {
		total += parts[s].Len()
	}
	res.I1 = make([]int, 0, total)
	res.I2 = make([]int, 0, total)
	for s := range parts {
		res.appendFrom(&parts[s])
	}
	return res, nil
}
