// Package linesearch implements a step-length search satisfying the
// strong Wolfe conditions, after More and Thuente, "Line search
// algorithms with guaranteed sufficient decrease", ACM TOMS 20(3),
// 1994.
package linesearch

import "math"

// Point records the state of the objective along the search ray at one
// trial step: the step length from the origin, the objective value
// there, and the directional derivative (slope) there.
type Point struct {
	Step  float64
	Value float64
	Slope float64
}

// Interval is the bracket maintained by the search. When Bracketed is
// true a minimizer lies between Low.Step and High.Step; the endpoints
// are not kept in order, so bounds must be taken with min/max.
type Interval struct {
	// Low is the endpoint with the lowest objective value found so far.
	Low Point
	// High is the other endpoint.
	High Point
	// Bracketed reports whether a minimizer has been bracketed.
	Bracketed bool
	// Width and PrevWidth track the bracket width over the two most
	// recent updates, so the engine can force bisection when the
	// interval decays too slowly.
	Width     float64
	PrevWidth float64
}

// Bounds returns the ordered endpoints of the bracket.
func (iv Interval) Bounds() (lo, hi float64) {
	return math.Min(iv.Low.Step, iv.High.Step), math.Max(iv.Low.Step, iv.High.Step)
}
