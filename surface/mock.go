package surface

import (
	"context"
	"errors"

	"github.com/hybridviz/renderengine/data"
	"github.com/hybridviz/renderengine/spatial"
)

// ErrDestroyed is returned by RecordingSurface when a caller attempts to
// use it after Destroy, matching the fatal surface-lifecycle-violation
// error class.
var ErrDestroyed = errors.New("surface: render on a destroyed surface")

// Call records the shape of one method invocation against a
// RecordingSurface, letting tests assert per-frame call order without a
// real rendering backend.
type Call struct {
	Method string
	Args   []any
}

// RecordingSurface is a test double implementing Surface: it records every
// call it receives and answers hit tests through its own embedded
// spatial.Index, matching the "hit-test consistency" property tests need
// to verify against the authoritative index.
type RecordingSurface struct {
	Tier      Tier
	Calls     []Call
	Destroyed bool
	InitErr   error

	index     *spatial.Index
	hitRadius float64
	lastVP    data.Viewport
}

// NewRecordingSurface constructs a RecordingSurface for the given tier.
func NewRecordingSurface(tier Tier, hitRadius float64) *RecordingSurface {
	return &RecordingSurface{Tier: tier, hitRadius: hitRadius}
}

func (m *RecordingSurface) record(method string, args ...any) {
	m.Calls = append(m.Calls, Call{Method: method, Args: args})
}

// Initialize implements Surface.
func (m *RecordingSurface) Initialize(_ context.Context, container any, vp data.Viewport) Ready {
	m.record("Initialize", container, vp)
	m.lastVP = vp
	return NewReady(m.InitErr)
}

// Render implements Surface. It rebuilds its own spatial index from the
// series set, mirroring what the engine does with the authoritative index,
// so RecordingSurface's own hit tests stay in lockstep for tests that
// exercise a surface directly rather than through the engine.
func (m *RecordingSurface) Render(seriesSet []*data.Series, vp data.Viewport) error {
	if m.Destroyed {
		return ErrDestroyed
	}
	m.record("Render", len(seriesSet), vp)
	m.lastVP = vp
	m.index = spatial.Build(seriesSet, vp, m.hitRadius)
	return nil
}

// Resize implements Surface.
func (m *RecordingSurface) Resize(w, h float64) {
	m.record("Resize", w, h)
	m.lastVP.WidthPx, m.lastVP.HeightPx = w, h
}

// Destroy implements Surface.
func (m *RecordingSurface) Destroy() {
	m.record("Destroy")
	m.Destroyed = true
}

// NearestHit implements Surface by delegating to the surface's own last-
// built index, which must answer identically to the engine's index for the
// same series set and viewport.
func (m *RecordingSurface) NearestHit(px, py, radius float64) (*spatial.HitResult, bool) {
	if m.index == nil {
		return nil, false
	}
	return m.index.Nearest(px, py, radius)
}

// RegionHit implements Surface.
func (m *RecordingSurface) RegionHit(x1, y1, x2, y2 float64) []spatial.RegionHit {
	if m.index == nil {
		return nil
	}
	return m.index.PointsInRect(x1, y1, x2, y2)
}

// SurfaceMetrics implements Surface with a fixed, test-friendly value.
func (m *RecordingSurface) SurfaceMetrics() Metrics {
	return Metrics{}
}
