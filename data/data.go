// Package data defines the core value types shared across the rendering
// engine: data points, series, viewports and the scale abstraction that
// maps between data and pixel space.
//
// Adapted from the data/valuer conventions of cogentcore.org/core/plot.
package data

import (
	"math"

	"github.com/google/uuid"
)

// DataPoint is a single sample in a series. X is either a real number or an
// instant on a monotonic timeline, always represented here as a float64
// (milliseconds since epoch, or an arbitrary real axis — the engine does not
// care which, only that a single series is internally consistent). Meta is
// optional free-form metadata and is never interpreted by the core.
type DataPoint struct {
	X    float64
	Y    float64
	ID   string
	Meta map[string]any
}

// HasID reports whether the point carries a caller-supplied opaque id.
func (p DataPoint) HasID() bool { return p.ID != "" }

// IsFinite reports whether Y is neither NaN nor infinite. Points that fail
// this are excluded from aggregates and rendered as gaps, per the numeric
// error-handling rules of the engine.
func (p DataPoint) IsFinite() bool {
	return !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// NewFreshID generates a random, caller-visible identifier (a UUID). It is
// not used for synthetic bucket-average points: those carry the
// deterministic "bucket-{index}-avg" ids of the LOD engine, which must
// remain reproducible run to run.
func NewFreshID() string {
	return uuid.NewString()
}

// Series is an ordered, named collection of DataPoints. It is owned by the
// caller: the engine borrows it read-only during a render or query cycle
// and must never retain a reference to it, or mutate it, past that cycle.
type Series struct {
	ID      string
	Name    string
	Color   string
	Visible bool
	// TimeOrdered indicates the caller declares Data non-decreasing in X.
	// The engine does not sort; it trusts (and, in Non-goals territory,
	// does not validate) this declaration.
	TimeOrdered bool
	Data        []DataPoint
	// Version increments whenever the caller replaces Data; used as part
	// of the optional LOD cache key. Callers that never mutate Data may
	// leave this at zero.
	Version uint64
}

// Len returns the number of points in the series.
func (s *Series) Len() int { return len(s.Data) }

// VisiblePointCount returns len(Data) if Visible, else 0. Used by the tier
// engine's density computation, which only counts what would actually be
// drawn.
func (s *Series) VisiblePointCount() int {
	if !s.Visible {
		return 0
	}
	return len(s.Data)
}

// Margins are the inset, in pixels, of the plotting area from the edges of
// the viewport.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// Scale is a pure, injected mapping between data-space and pixel-space
// coordinates along one axis. Implementations must be side-effect free:
// the engine may call ToPixel/ToData many times per frame.
type Scale interface {
	// ToPixel maps a data-space value to a pixel-space coordinate.
	ToPixel(v float64) float64
	// ToData maps a pixel-space coordinate back to a data-space value.
	ToData(px float64) float64
}

// Viewport describes the drawing surface geometry and the scales used to
// project data into it.
type Viewport struct {
	WidthPx    float64
	HeightPx   float64
	Margins    Margins
	PixelRatio float64 // >= 1
	XScale     Scale
	YScale     Scale
}

// InnerWidth returns the plotting area width, excluding margins.
func (v Viewport) InnerWidth() float64 {
	return v.WidthPx - v.Margins.Left - v.Margins.Right
}

// InnerHeight returns the plotting area height, excluding margins.
func (v Viewport) InnerHeight() float64 {
	return v.HeightPx - v.Margins.Top - v.Margins.Bottom
}

// InnerArea returns InnerWidth * InnerHeight, floored at zero to keep
// density computations from dividing by (or producing) a negative number
// for a degenerate viewport.
func (v Viewport) InnerArea() float64 {
	a := v.InnerWidth() * v.InnerHeight()
	if a < 0 {
		return 0
	}
	return a
}

// ProjectX maps a data point's X into pixel space, including the left
// margin offset, using the viewport's XScale.
func (v Viewport) ProjectX(x float64) float64 {
	return v.Margins.Left + v.XScale.ToPixel(x)
}

// ProjectY maps a data point's Y into pixel space, including the top
// margin offset, using the viewport's YScale.
func (v Viewport) ProjectY(y float64) float64 {
	return v.Margins.Top + v.YScale.ToPixel(y)
}

// Rect is an axis-aligned pixel-space rectangle, normalized so that
// X1<=X2 and Y1<=Y2.
type Rect struct {
	X1, Y1, X2, Y2 float64
}

// NewRect builds a normalized Rect from two arbitrary corners.
func NewRect(ax, ay, bx, by float64) Rect {
	r := Rect{X1: ax, Y1: ay, X2: bx, Y2: by}
	if r.X1 > r.X2 {
		r.X1, r.X2 = r.X2, r.X1
	}
	if r.Y1 > r.Y2 {
		r.Y1, r.Y2 = r.Y2, r.Y1
	}
	return r
}

// Contains reports whether (x,y) lies strictly inside the rect, with
// inclusive bounds (matching the spatial index's region-query semantics).
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X1 && x <= r.X2 && y >= r.Y1 && y <= r.Y2
}
