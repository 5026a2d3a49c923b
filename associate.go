package xmatch

import (
	"context"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/nbrsim/xmatch/catalog"
)

const (
	// DefaultRadius is the association tolerance in pixels.
	DefaultRadius = 8.0
	// DefaultAllow keeps at most one truth per detection.
	DefaultAllow = 1
	// DefaultPixelOffset converts 1-based detection positions to the 0-based
	// truth frame.
	DefaultPixelOffset = 1.0
)

type associateOptions struct {
	radius float64
	allow  int
	offset float64
}

// AssociateOption configures a single association.
type AssociateOption func(*associateOptions)

// WithRadius sets the per-axis match tolerance in pixels.
func WithRadius(r float64) AssociateOption {
	return func(o *associateOptions) {
		o.radius = r
	}
}

// WithAllow sets how many truth candidates are considered per detection.
// Only the closest one is copied into the output.
func WithAllow(n int) AssociateOption {
	return func(o *associateOptions) {
		o.allow = n
	}
}

// WithPixelOffset sets the value subtracted from detection positions before
// matching.
func WithPixelOffset(off float64) AssociateOption {
	return func(o *associateOptions) {
		o.offset = off
	}
}

// Summary describes the outcome of one association.
type Summary struct {
	Matched  int
	Total    int
	Fraction float64
	// MatchedRows holds the detection rows that received a truth record.
	MatchedRows *roaring.Bitmap
}

// String renders the summary as "matched N/M F".
func (s *Summary) String() string {
	return fmt.Sprintf("matched %d/%d %.2f", s.Matched, s.Total, s.Fraction)
}

// Associate matches detections against truth and returns a new catalog in
// which every detection carries the shear of its closest truth record within
// the radius. The inputs are not modified.
//
// Unmatched rows keep ShearIndex == catalog.UnmatchedShearIndex and a zero
// ShearTrue. The match rate is reported in the summary and logged; a low rate
// is never an error.
func (m *Matcher) Associate(ctx context.Context, detections catalog.Detections, truth catalog.Truths, optFns ...AssociateOption) (catalog.AugmentedCatalog, *Summary, error) {
	start := time.Now()

	out, summary, err := m.associate(ctx, detections, truth, optFns)

	var (
		matched  int
		fraction float64
	)
	if summary != nil {
		matched, fraction = summary.Matched, summary.Fraction
	}
	m.opts.metricsCollector.RecordAssociate(matched, len(detections), time.Since(start), err)
	m.opts.logger.LogAssociate(ctx, matched, len(detections), fraction, err)

	return out, summary, err
}

func (m *Matcher) associate(ctx context.Context, detections catalog.Detections, truth catalog.Truths, optFns []AssociateOption) (catalog.AugmentedCatalog, *Summary, error) {
	o := associateOptions{
		radius: DefaultRadius,
		allow:  DefaultAllow,
		offset: DefaultPixelOffset,
	}
	for _, fn := range optFns {
		fn(&o)
	}

	if err := truth.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: truth catalog: %w", ErrInvalidArgument, err)
	}

	x1, y1 := detections.Positions(o.offset)
	x2, y2 := truth.Positions()

	res, err := m.match(ctx, x1, y1, x2, y2, o.radius, o.allow)
	if err != nil {
		return nil, nil, err
	}

	out := make(catalog.AugmentedCatalog, len(detections))
	for i := range detections {
		out[i] = catalog.NewAugmented(detections[i])
	}

	rows := roaring.New()
	for k := range res.I1 {
		i1, i2 := res.I1[k], res.I2[k]
		// Pairs for a detection arrive closest first.
		if !rows.CheckedAdd(uint32(i1)) {
			continue
		}
		t := truth[i2]
		out[i1].ShearTrue = [2]float64{t.Shear1, t.Shear2}
		out[i1].ShearIndex = t.ShearIndex
	}

	summary := &Summary{
		Matched:     int(rows.GetCardinality()),
		Total:       len(detections),
		MatchedRows: rows,
	}
	if summary.Total > 0 {
		summary.Fraction = float64(summary.Matched) / float64(summary.Total)
	}

	return out, summary, nil
}

// Associate runs an association with a default Matcher.
func Associate(ctx context.Context, detections catalog.Detections, truth catalog.Truths, optFns ...AssociateOption) (catalog.AugmentedCatalog, *Summary, error) {
	return New().Associate(ctx, detections, truth, optFns...)
}
