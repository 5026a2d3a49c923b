package xmatch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is the root of every precondition failure. All
	// typed argument errors in this package satisfy errors.Is(err, ErrInvalidArgument).
	ErrInvalidArgument = errors.New("invalid argument")
)

// ErrLengthMismatch indicates that the x and y slices of one point set
// differ in length.
type ErrLengthMismatch struct {
	// Set names the offending point set ("primary" or "secondary").
	Set string
	X   int
	Y   int
}

func (e *ErrLengthMismatch) Error() string {
	return fmt.Sprintf("%s set length mismatch: x has %d values, y has %d", e.Set, e.X, e.Y)
}

func (e *ErrLengthMismatch) Unwrap() error { return ErrInvalidArgument }

// ErrInvalidTolerance indicates a tolerance that is not a positive finite number.
type ErrInvalidTolerance struct {
	Tolerance float64
}

func (e *ErrInvalidTolerance) Error() string {
	return fmt.Sprintf("invalid tolerance: %v (must be positive and finite)", e.Tolerance)
}

func (e *ErrInvalidTolerance) Unwrap() error { return ErrInvalidArgument }

// ErrInvalidMultiplicity indicates an allow value below 1.
type ErrInvalidMultiplicity struct {
	Allow int
}

func (e *ErrInvalidMultiplicity) Error() string {
	return fmt.Sprintf("invalid multiplicity: %d (must be >= 1)", e.Allow)
}

func (e *ErrInvalidMultiplicity) Unwrap() error { return ErrInvalidArgument }
