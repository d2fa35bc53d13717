// Package tier implements the tier engine: selecting and transitioning
// among Vector, Raster and Accelerated render surfaces based on data
// density, device capability and rolling frame-time history.
//
// Grounded on cogentcore.org/core/events's reverse-registration dispatch
// idiom (adapted to vevents' forward, totally-ordered delivery) for event
// emission, and on the threshold table of spec.md §4.4 verbatim.
package tier

import (
	"errors"
	"fmt"
	"time"

	"github.com/hybridviz/renderengine/data"
	"github.com/hybridviz/renderengine/metrics"
	"github.com/hybridviz/renderengine/surface"
	"github.com/hybridviz/renderengine/threshold"
	"github.com/hybridviz/renderengine/vevents"
)

// ErrAlreadyRegistered is returned by RegisterSurface when a tier already
// has a registered surface: a fatal surface-lifecycle violation.
var ErrAlreadyRegistered = errors.New("tier: surface already registered for this tier")

// ErrNoSurfaces is returned by Render when no surface has ever been
// registered — the one condition the engine treats as fatal outright,
// since Vector (the universal fallback) itself has nowhere to render.
var ErrNoSurfaces = errors.New("tier: no surfaces registered")

// Engine selects and drives the active render surface.
type Engine struct {
	cfg      threshold.Config
	bus      *vevents.Bus
	ring     *metrics.Ring
	surfaces map[surface.Tier]surface.Surface
	// registrationOrder records the order surfaces were registered, so
	// Shutdown can destroy them LIFO per the engine's surface lifecycle.
	registrationOrder []surface.Tier

	current      surface.Tier
	currentReady bool
	frameCounter int
	lastDensity  float64

	// degradeCeiling, once set by a performance degrade, caps the density-
	// based selection from immediately re-electing a higher tier on the
	// very next frame; it is lifted once a frame completes within budget.
	degradeCeiling *surface.Tier

	// now returns the current time in milliseconds; overridable for tests.
	now func() float64
}

// NewEngine constructs an Engine. cfg is validated (clamped in place) at
// construction, per the engine's configuration-error handling rule.
func NewEngine(cfg threshold.Config, bus *vevents.Bus) *Engine {
	cfg.Validate(bus)
	return &Engine{
		cfg:      cfg,
		bus:      bus,
		ring:     metrics.NewRing(metrics.DefaultCapacity, cfg.MaxFrameTimeMs),
		surfaces: make(map[surface.Tier]surface.Surface),
		current:  surface.Vector,
		now:      func() float64 { return float64(time.Now().UnixNano()) / 1e6 },
	}
}

// SetClock overrides the engine's time source, for deterministic tests.
func (e *Engine) SetClock(now func() float64) { e.now = now }

// Config returns a copy of the engine's current, validated configuration.
func (e *Engine) Config() threshold.Config { return e.cfg }

// UpdateConfig replaces the engine's configuration, re-validating it. Used
// for runtime threshold overrides (spec.md §6).
func (e *Engine) UpdateConfig(cfg threshold.Config) {
	cfg.Validate(e.bus)
	e.cfg = cfg
}

// RegisterSurface attaches a surface to a tier. Registering twice for the
// same tier is a fatal surface-lifecycle violation: the engine emits an
// Error event and refuses the registration.
func (e *Engine) RegisterSurface(t surface.Tier, s surface.Surface) error {
	if _, exists := e.surfaces[t]; exists {
		err := fmt.Errorf("%w: %s", ErrAlreadyRegistered, t)
		e.emitError(err)
		return err
	}
	e.surfaces[t] = s
	e.registrationOrder = append(e.registrationOrder, t)
	return nil
}

// Shutdown destroys every registered surface in LIFO registration order,
// per the engine's surface lifecycle contract.
func (e *Engine) Shutdown() {
	for i := len(e.registrationOrder) - 1; i >= 0; i-- {
		t := e.registrationOrder[i]
		if s, ok := e.surfaces[t]; ok {
			s.Destroy()
		}
	}
	e.surfaces = make(map[surface.Tier]surface.Surface)
	e.registrationOrder = nil
}

// CurrentTier returns the tier currently driving Render.
func (e *Engine) CurrentTier() surface.Tier { return e.current }

// Ring exposes the frame-metric ring for inspection (e.g. by an
// accessibility or debug surface outside this module's scope).
func (e *Engine) Ring() *metrics.Ring { return e.ring }

// Subscribe registers a listener for the given event type.
func (e *Engine) Subscribe(t vevents.Type, fn func(vevents.Event)) vevents.Unregister {
	return e.bus.Subscribe(t, fn)
}

func (e *Engine) emitError(err error) {
	e.bus.Emit(vevents.Event{
		Type:      vevents.Error,
		Timestamp: e.now(),
		Payload:   vevents.ErrorPayload{Message: err.Error(), Cause: err},
	})
}

// densityMetrics computes total visible points and points-per-pixel for a
// series set and viewport.
func densityMetrics(seriesSet []*data.Series, vp data.Viewport) (total int, ppp float64) {
	for _, s := range seriesSet {
		total += s.VisiblePointCount()
	}
	area := vp.InnerArea()
	if area > 0 {
		ppp = float64(total) / area
	}
	return total, ppp
}

// selectTier applies the tier-selection rules of spec.md §4.4 steps 1-5,
// then walks the fallback order (step 6) until an available tier is
// found. ppp_vec is intentionally not consulted here: §4.4's density rule
// only names raster_density and accel_density; ppp_vec is carried in
// Config purely as a configuration surface.
func (e *Engine) selectTier(total int, ppp float64) (surface.Tier, vevents.TierSwitchReason) {
	if e.cfg.ForceTier != nil {
		if t, ok := parseTier(*e.cfg.ForceTier); ok {
			if _, registered := e.surfaces[t]; registered {
				return t, vevents.ReasonManual
			}
		}
	}

	var chosen surface.Tier
	switch {
	case float64(total) >= e.cfg.RasToAccel:
		chosen = surface.Accelerated
	case float64(total) >= e.cfg.VecToRas:
		chosen = surface.Raster
	case ppp >= e.cfg.PPPAccel:
		chosen = surface.Accelerated
	case ppp >= e.cfg.PPPRas:
		chosen = surface.Raster
	default:
		chosen = surface.Vector
	}

	reason := vevents.ReasonDensity
	for {
		if _, ok := e.surfaces[chosen]; ok {
			return chosen, reason
		}
		if chosen == surface.Vector {
			return chosen, reason
		}
		chosen = chosen.Down()
		reason = vevents.ReasonFallback
	}
}

func parseTier(s string) (surface.Tier, bool) {
	switch s {
	case "vector":
		return surface.Vector, true
	case "raster":
		return surface.Raster, true
	case "accelerated":
		return surface.Accelerated, true
	default:
		return 0, false
	}
}

// ShouldFullyReevaluate reports whether the current render satisfies the
// engine's re-evaluation cadence (density delta >= 1000 since the last
// checkpoint, or every 30th frame). Tier selection itself always runs
// every render (per spec.md §4.4's opening clause: absolute-count and
// points-per-pixel thresholds must catch a boundary crossing the instant
// it happens, not on a throttled cadence). This cadence instead governs
// the baseline Render checkpoints against for "changed by >=1,000 points
// since last check", and gates the debug-level checkpoint log Render
// emits at each one; it is exported so a caller can gate other expensive
// bookkeeping (e.g. LOD cache invalidation) on the same cadence.
func (e *Engine) ShouldFullyReevaluate(total int) bool {
	delta := total - int(e.lastDensity)
	if delta < 0 {
		delta = -delta
	}
	return delta >= 1000 || e.frameCounter%30 == 0
}

// Render selects a tier from seriesSet's own density and drives the chosen
// surface's Render with that same series set. Callers that apply LOD
// downsampling before drawing must use RenderView instead, so tier
// selection sees the undownsampled signal per the engine's density
// thresholds while the surface only ever draws the downsampled view.
func (e *Engine) Render(seriesSet []*data.Series, vp data.Viewport) error {
	return e.RenderView(seriesSet, seriesSet, vp)
}

// RenderView selects a tier from densitySeries's raw point counts (spec
// §4.4's absolute-count and points-per-pixel thresholds are defined on the
// undownsampled signal) and drives the chosen surface's Render with
// renderSeries — typically the same series, downsampled, so the surface
// never draws more than the viewport can show. densitySeries/renderSeries/vp
// are borrowed read-only for the duration of the call.
func (e *Engine) RenderView(densitySeries, renderSeries []*data.Series, vp data.Viewport) error {
	if len(e.surfaces) == 0 {
		err := ErrNoSurfaces
		e.emitError(err)
		return err
	}

	if latest, ok := e.ring.Latest(); ok && !latest.Dropped {
		e.degradeCeiling = nil
	}

	e.frameCounter++
	total, ppp := densityMetrics(densitySeries, vp)

	if e.ShouldFullyReevaluate(total) {
		e.bus.Debug("tier: full re-evaluation checkpoint", map[string]any{
			"total_points": total,
			"frame":        e.frameCounter,
		})
		e.lastDensity = float64(total)
	}

	chosen, reason := e.selectTier(total, ppp)
	if e.degradeCeiling != nil && chosen > *e.degradeCeiling {
		chosen = *e.degradeCeiling
	}

	if chosen != e.current {
		e.switchTier(chosen, reason, float64(total))
	}

	surf, ok := e.surfaces[e.current]
	if !ok {
		// Chosen/degraded tier has no surface: fall back to whatever is
		// registered, walking down from current.
		fallback := e.current
		for {
			if s, ok := e.surfaces[fallback]; ok {
				surf = s
				if fallback != e.current {
					e.switchTier(fallback, vevents.ReasonFallback, float64(total))
				}
				break
			}
			if fallback == surface.Vector {
				err := ErrNoSurfaces
				e.emitError(err)
				return err
			}
			fallback = fallback.Down()
		}
	}

	start := e.now()
	renderErr := surf.Render(renderSeries, vp)
	frameTime := e.now() - start

	e.ring.Record(start, frameTime, total, e.current)

	if e.cfg.AutoDegrade {
		e.maybeDegrade()
	}

	if renderErr != nil {
		e.emitError(renderErr)
	}
	return renderErr
}

func (e *Engine) switchTier(to surface.Tier, reason vevents.TierSwitchReason, density float64) {
	from := e.current
	e.current = to
	avg := e.ring.AverageFrameTime(e.now(), 0)
	e.bus.Emit(vevents.Event{
		Type:      vevents.TierSwitch,
		Timestamp: e.now(),
		Payload: vevents.TierSwitchPayload{
			From:         from.String(),
			To:           to.String(),
			Reason:       reason,
			Density:      density,
			AvgFrameTime: avg,
		},
	})
}

// maybeDegrade steps the current tier down by one when the trailing
// dropped-frame streak reaches a fresh multiple of DegradeFrameThreshold.
// Degradation never steps up; sustained violations past the first
// threshold crossing can degrade further (e.g. Accelerated -> Raster ->
// Vector) but only at each additional full multiple of the threshold, so
// a single burst of exactly DegradeFrameThreshold violations degrades
// exactly one tier.
func (e *Engine) maybeDegrade() {
	if e.current == surface.Vector {
		return
	}
	violations := e.ring.TrailingViolations()
	threshold := e.cfg.DegradeFrameThreshold
	if threshold <= 0 || violations == 0 {
		return
	}
	if violations%threshold != 0 {
		return
	}
	next := e.current.Down()
	if _, ok := e.surfaces[next]; !ok {
		return
	}
	from := e.current
	e.current = next
	e.degradeCeiling = &next
	e.bus.Emit(vevents.Event{
		Type:      vevents.PerformanceViolation,
		Timestamp: e.now(),
		Payload: vevents.TierSwitchPayload{
			From:         from.String(),
			To:           next.String(),
			Reason:       vevents.ReasonPerformance,
			AvgFrameTime: e.ring.AverageFrameTime(e.now(), 0),
		},
	})
	e.bus.Emit(vevents.Event{
		Type:      vevents.TierSwitch,
		Timestamp: e.now(),
		Payload: vevents.TierSwitchPayload{
			From:         from.String(),
			To:           next.String(),
			Reason:       vevents.ReasonPerformance,
			AvgFrameTime: e.ring.AverageFrameTime(e.now(), 0),
		},
	})
}
