package catalog

import (
	"errors"
	"fmt"
	"maps"
	"math"
)

// UnmatchedShearIndex marks an augmented detection with no truth counterpart.
const UnmatchedShearIndex int16 = -9999

// ErrNonFiniteCoordinate is returned by Validate for NaN or infinite positions.
var ErrNonFiniteCoordinate = errors.New("non-finite coordinate")

// RowError reports the row that failed validation.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Detection is one row of a source-extraction catalog.
type Detection struct {
	Number      int64              `json:"number"`
	XWinImage   float64            `json:"xwin_image"`
	YWinImage   float64            `json:"ywin_image"`
	FluxAuto    float64            `json:"flux_auto"`
	FluxErrAuto float64            `json:"fluxerr_auto"`
	FluxRadius  float64            `json:"flux_radius"`
	Flags       int32              `json:"flags"`
	Extra       map[string]float64 `json:"extra,omitempty"`
}

// Clone returns a deep copy of d.
func (d Detection) Clone() Detection {
	d.Extra = maps.Clone(d.Extra)
	return d
}

// Detections is a detection catalog.
type Detections []Detection

// Positions returns the detection positions shifted by -offset.
// Use offset 1 to convert 1-based extractor positions to 0-based pixels.
func (ds Detections) Positions(offset float64) (x, y []float64) {
	x = make([]float64, len(ds))
	y = make([]float64, len(ds))
	for i := range ds {
		x[i] = ds[i].XWinImage - offset
		y[i] = ds[i].YWinImage - offset
	}
	return x, y
}

// Validate checks that every detection has finite coordinates.
func (ds Detections) Validate() error {
	for i := range ds {
		if !finite(ds[i].XWinImage) || !finite(ds[i].YWinImage) {
			return &RowError{Row: i, Err: ErrNonFiniteCoordinate}
		}
	}
	return nil
}

// Truth is one simulated source with its applied shear.
type Truth struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Shear1     float64 `json:"shear1"`
	Shear2     float64 `json:"shear2"`
	ShearIndex int16   `json:"shear_index"`
}

// Truths is a truth catalog.
type Truths []Truth

// Positions returns the truth positions.
func (ts Truths) Positions() (x, y []float64) {
	x = make([]float64, len(ts))
	y = make([]float64, len(ts))
	for i := range ts {
		x[i] = ts[i].X
		y[i] = ts[i].Y
	}
	return x, y
}

// Validate checks that every truth record has finite coordinates. A truth
// record may carry any ShearIndex, UnmatchedShearIndex included.
func (ts Truths) Validate() error {
	for i := range ts {
		if !finite(ts[i].X) || !finite(ts[i].Y) {
			return &RowError{Row: i, Err: ErrNonFiniteCoordinate}
		}
	}
	return nil
}

// Augmented is a detection with the truth shear it was associated with.
//
// An unmatched detection has ShearIndex == UnmatchedShearIndex and a zero
// ShearTrue.
type Augmented struct {
	Detection
	ShearTrue  [2]float64 `json:"shear_true"`
	ShearIndex int16      `json:"shear_index"`
}

// NewAugmented returns an unmatched augmented copy of d.
func NewAugmented(d Detection) Augmented {
	return Augmented{
		Detection:  d.Clone(),
		ShearIndex: UnmatchedShearIndex,
	}
}

// Matched reports whether the row carries a truth shear index. A row matched
// to a truth record whose own index is UnmatchedShearIndex reads as
// unmatched; the association summary tracks matched rows exactly.
func (a Augmented) Matched() bool {
	return a.ShearIndex != UnmatchedShearIndex
}

// AugmentedCatalog is a detection catalog with truth columns.
type AugmentedCatalog []Augmented

// MatchedCount returns the number of matched rows.
func (ac AugmentedCatalog) MatchedCount() int {
	n := 0
	for i := range ac {
		if ac[i].Matched() {
			n++
		}
	}
	return n
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
