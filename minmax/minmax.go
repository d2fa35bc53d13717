// Package minmax provides a float64 min/max range accumulator used by the
// LOD engine's envelope tracking and the accessibility summariser's
// per-series statistics.
//
// Ported from cogentcore.org/core/math32/minmax's F64 type: the teacher's
// package is float32-oriented (it wraps chewxy/math32), but every numeric
// contract in this engine is specified as 64-bit, so this is a plain
// float64 rewrite rather than an import of the teacher's package.
package minmax

import "math"

// F64 holds a Min/Max range.
type F64 struct {
	Min float64
	Max float64
}

// SetInfinity resets the range to be extended by the first FitValue call,
// suitable for iterative accumulation over a stream of points.
func (r *F64) SetInfinity() {
	r.Min = math.Inf(1)
	r.Max = math.Inf(-1)
}

// IsValid reports whether the range has been set to a real Min <= Max.
func (r F64) IsValid() bool {
	return r.Min <= r.Max
}

// FitValue extends the range to include v, ignoring NaN/Inf per the
// engine-wide rule that non-finite values are excluded from aggregates.
// Returns true if the range was adjusted.
func (r *F64) FitValue(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	adj := false
	if v < r.Min {
		r.Min = v
		adj = true
	}
	if v > r.Max {
		r.Max = v
		adj = true
	}
	return adj
}

// FitRange extends the range to cover another range.
func (r *F64) FitRange(o F64) bool {
	adj := false
	if o.Min < r.Min {
		r.Min = o.Min
		adj = true
	}
	if o.Max > r.Max {
		r.Max = o.Max
		adj = true
	}
	return adj
}

// Range returns Max - Min.
func (r F64) Range() float64 { return r.Max - r.Min }

// Midpoint returns the arithmetic middle of the range.
func (r F64) Midpoint() float64 { return 0.5 * (r.Min + r.Max) }

// EnvelopePosition returns (v - Min) / (Max - Min), i.e. where v sits in
// the [0,1] range spanned by Min/Max. If Max == Min, returns 0.5 (the
// caller is expected to special-case the degenerate range separately).
func (r F64) EnvelopePosition(v float64) float64 {
	span := r.Range()
	if span == 0 {
		return 0.5
	}
	return (v - r.Min) / span
}
