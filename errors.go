package srs

import "errors"

// Sentinel errors for the srs package.
// Use errors.Is to check: errors.Is(err, srs.ErrInvalidRating)
var (
	ErrInvalidRating      = errors.New("srs: invalid rating")
	ErrInvalidState       = errors.New("srs: invalid card state")
	ErrParameterInvariant = errors.New("srs: parameters violate invariants")
	ErrNumericDivergence  = errors.New("srs: non-finite value in memory model computation")
	ErrCardIDMismatch     = errors.New("srs: card ID mismatch in review log")
)
