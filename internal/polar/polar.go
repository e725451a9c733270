// Package polar provides airfoil polar models: a linear lift/drag model, a
// tabulated (alpha, Re) grid with bilinear interpolation, a multi-slice
// (Re, Mach) variant, and a radius-piecewise selector layered on top.
package polar

import (
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Query is one sampling request at a blade section.
type Query struct {
	AoARad   float64
	Reynolds float64
	Mach     float64
}

// Output is the sampled lift and drag coefficient pair.
type Output struct {
	Cl float64
	Cd float64
}

// Polar samples (Cl, Cd) at an angle of attack, Reynolds number, and Mach.
type Polar interface {
	Sample(q Query) (Output, error)
}

// OORPolicy controls what a tabulated polar does with queries outside the
// table rectangle.
type OORPolicy uint8

const (
	// ClampToRange clamps the query onto the table edges.
	ClampToRange OORPolicy = iota
	// FailOutOfRange rejects the query with PolarOutOfRange.
	FailOutOfRange
)

// Request identifies a polar in an external database.
type Request struct {
	AirfoilID string
	Reynolds  float64
	Mach      float64
}

// Database supplies polars for airfoil ids. Implementations must be
// thread-safe and side-effect-free; they may cache internally.
type Database interface {
	GetPolar(req Request) (Polar, error)
}

func (q Query) validate() error {
	if !numeric.IsFinite(q.AoARad) {
		return errs.New(errs.InvalidInput, "polar query: aoa non-finite")
	}
	if !numeric.IsFinite(q.Reynolds) || q.Reynolds < 0 {
		return errs.New(errs.InvalidInput, "polar query: reynolds invalid")
	}
	if !numeric.IsFinite(q.Mach) || q.Mach < 0 {
		return errs.New(errs.InvalidInput, "polar query: mach invalid")
	}
	return nil
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
