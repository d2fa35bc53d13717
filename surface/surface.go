// Package surface defines the render-surface capability contract shared by
// every concrete rendering backend (vector draw list, raster canvas, GPU
// accelerated) and a call-recording test double used across the engine's
// own tests, per the engine's guidance to substitute a mock surface rather
// than exercise a real rendering backend.
//
// Grounded on the capability/registration idiom of
// cogentcore.org/core/events (Listeners) and cogentcore.org/core/states
// (element capability vocabulary), adapted here to a small closed set of
// render tiers instead of an open bitflag.
package surface

import (
	"context"

	"github.com/hybridviz/renderengine/data"
	"github.com/hybridviz/renderengine/spatial"
)

// Tier is a logical rendering capability class, ordered by capability.
type Tier int

const (
	Vector Tier = iota
	Raster
	Accelerated
)

func (t Tier) String() string {
	switch t {
	case Vector:
		return "vector"
	case Raster:
		return "raster"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// Down returns the next-lower tier in the fallback/degradation order
// Accelerated -> Raster -> Vector. Vector has no lower tier and returns
// itself.
func (t Tier) Down() Tier {
	switch t {
	case Accelerated:
		return Raster
	case Raster:
		return Vector
	default:
		return Vector
	}
}

// Metrics is the subset of a surface's self-reported performance numbers,
// independent of the engine-level frame-metric ring (which the engine
// maintains regardless of what the surface itself reports).
type Metrics struct {
	LastFrameTimeMs float64
	PointsDrawn     int
}

// Surface is the capability contract every concrete render backend
// implements. The core defines only this contract; concrete
// implementations (vector tree, 2D canvas, GPU mesh) are supplied by the
// runtime and are not part of this module.
type Surface interface {
	// Initialize may complete asynchronously (external resource
	// acquisition, e.g. a GPU context). The returned Ready's Done channel
	// is closed once initialization completes, and Ready.Error reports a
	// failed initialization. The tier engine neither calls Initialize nor
	// consults Ready: it calls Render on the selected surface whether or
	// not that surface has finished initializing.
	Initialize(ctx context.Context, container any, vp data.Viewport) Ready

	// Render draws one frame for the given series set and viewport. It
	// must clear prior visuals first, honor series.Visible, and treat NaN
	// y-values as gaps rather than connecting across them.
	Render(seriesSet []*data.Series, vp data.Viewport) error

	// Resize updates the surface's pixel dimensions without a full
	// Initialize.
	Resize(widthPx, heightPx float64)

	// Destroy releases the surface's resources. Surfaces are destroyed in
	// LIFO order at engine shutdown; calling Render after Destroy is a
	// fatal lifecycle violation.
	Destroy()

	// NearestHit and RegionHit must answer identically to the engine's
	// authoritative spatial.Index, never from private surface state.
	NearestHit(px, py, radius float64) (*spatial.HitResult, bool)
	RegionHit(x1, y1, x2, y2 float64) []spatial.RegionHit

	// SurfaceMetrics reports the surface's self-observed performance.
	SurfaceMetrics() Metrics
}

// Ready is the completion handle returned by Initialize.
type Ready struct {
	Done chan struct{}
	Err  *error
}

// NewReady constructs a Ready handle that is already signaled with the
// given error (nil on success), for surfaces whose Initialize is
// synchronous.
func NewReady(err error) Ready {
	r := Ready{Done: make(chan struct{}), Err: new(error)}
	*r.Err = err
	close(r.Done)
	return r
}

// IsReady reports whether initialization has completed, non-blocking.
func (r Ready) IsReady() bool {
	select {
	case <-r.Done:
		return true
	default:
		return false
	}
}

// Error returns the completion error, or nil if not yet ready or if
// initialization succeeded.
func (r Ready) Error() error {
	if !r.IsReady() {
		return nil
	}
	return *r.Err
}
