// Package hview is the root engine facade: the single library entry point
// wiring the tier engine, LOD engine, spatial index, interaction
// coordinator, frame-metric ring and typed event bus into the data flow
// described by the engine's system overview — client supplies a series set
// and viewport, the facade downsamples each series through the LOD engine,
// asks the tier engine to pick a surface and render, then rebuilds the
// spatial index and re-attaches the interaction coordinator to it.
//
// Grounded on cogentcore.org/core's own root package acting as the
// top-level facade over its subsystem packages (widgets, styles, events,
// render), adapted to this module's headless computation domain.
package hview

import (
	"context"
	"time"

	"github.com/hybridviz/renderengine/data"
	"github.com/hybridviz/renderengine/interact"
	"github.com/hybridviz/renderengine/lod"
	"github.com/hybridviz/renderengine/spatial"
	"github.com/hybridviz/renderengine/surface"
	"github.com/hybridviz/renderengine/threshold"
	"github.com/hybridviz/renderengine/tier"
	"github.com/hybridviz/renderengine/vevents"
)

// LODChangePayload is the payload of a LODChange event, emitted once per
// series whenever that series' compression level is not Full.
type LODChangePayload struct {
	SeriesID         string
	Level            lod.Level
	CompressionRatio float64
	TotalPoints      int
	SampledPoints    int
}

// Engine is the module's single library entry point.
type Engine struct {
	cfg         threshold.Config
	bus         *vevents.Bus
	tierEngine  *tier.Engine
	coordinator *interact.Coordinator
	store       threshold.Store
	hitRadius   float64
	now         func() float64
	lastIndex   *spatial.Index
}

// NewEngine constructs an Engine from a validated configuration. It builds
// its own event bus and a default interaction coordinator; callers wanting
// a coordinator with a custom clock or lifecycle should build one with
// interact.NewCoordinator and install it via AttachCoordinator.
//
// An optional threshold.Store persists runtime threshold overrides across
// the session (spec §6 / §4.9): when supplied, NewEngine loads any
// previously-saved overrides and applies them to cfg before construction,
// and UpdateConfig saves the resulting configuration back to it. Passing no
// store (the common case in tests) simply skips persistence.
func NewEngine(cfg threshold.Config, store ...threshold.Store) *Engine {
	bus := vevents.New()
	var st threshold.Store
	if len(store) > 0 {
		st = store[0]
	}
	if st != nil {
		if ov, ok, err := st.Load(context.Background()); err != nil {
			bus.Warn("failed to load persisted threshold overrides", map[string]any{"error": err.Error()})
		} else if ok {
			ov.Apply(&cfg)
		}
	}
	cfg.Validate(bus)
	now := func() float64 { return float64(time.Now().UnixNano()) / 1e6 }
	return &Engine{
		cfg:         cfg,
		bus:         bus,
		tierEngine:  tier.NewEngine(cfg, bus),
		coordinator: interact.NewCoordinator(cfg, bus, now),
		store:       st,
		hitRadius:   cfg.HoverRadius,
		now:         now,
	}
}

// SetClock overrides the time source used by the tier engine and the
// interaction coordinator, for deterministic tests.
func (e *Engine) SetClock(now func() float64) {
	e.now = now
	e.tierEngine.SetClock(now)
	e.coordinator.SetClock(now)
}

// Bus exposes the engine's event bus directly, for callers that want to
// subscribe before the first Render.
func (e *Engine) Bus() *vevents.Bus { return e.bus }

// TierEngine exposes the underlying tier engine.
func (e *Engine) TierEngine() *tier.Engine { return e.tierEngine }

// Coordinator returns the currently attached interaction coordinator.
func (e *Engine) Coordinator() *interact.Coordinator { return e.coordinator }

// AttachCoordinator installs c as the engine's interaction coordinator,
// replacing whatever was attached before. The new coordinator only sees
// series/index state starting from the next Render call.
func (e *Engine) AttachCoordinator(c *interact.Coordinator) { e.coordinator = c }

// Config returns the engine's current configuration.
func (e *Engine) Config() threshold.Config { return e.cfg }

// UpdateConfig re-validates and installs cfg across the tier engine and
// interaction coordinator, and — when a Store was supplied to NewEngine —
// persists the runtime threshold overrides it carries for the session.
func (e *Engine) UpdateConfig(cfg threshold.Config) {
	cfg.Validate(e.bus)
	e.cfg = cfg
	e.hitRadius = cfg.HoverRadius
	e.tierEngine.UpdateConfig(cfg)
	e.coordinator.UpdateConfig(cfg)

	if e.store != nil {
		ov := threshold.Overrides{VecToRas: &cfg.VecToRas, RasToAccel: &cfg.RasToAccel, ForceTier: cfg.ForceTier}
		if err := e.store.Save(context.Background(), ov); err != nil {
			e.bus.Warn("failed to persist threshold overrides", map[string]any{"error": err.Error()})
		}
	}
}

// RegisterSurface attaches a concrete rendering backend to a tier.
func (e *Engine) RegisterSurface(t surface.Tier, s surface.Surface) error {
	return e.tierEngine.RegisterSurface(t, s)
}

// Subscribe registers fn for events of the given type.
func (e *Engine) Subscribe(t vevents.Type, fn func(vevents.Event)) vevents.Unregister {
	return e.bus.Subscribe(t, fn)
}

// CurrentTier returns the tier currently driving Render.
func (e *Engine) CurrentTier() surface.Tier { return e.tierEngine.CurrentTier() }

// Render runs one full frame: the tier engine selects a surface from the
// caller's raw, undownsampled series (per spec §4.4's absolute-count and
// points-per-pixel thresholds), each series is then downsampled through the
// LOD engine with the inner pixel width as its target (the nice-ladder snap
// of the bucket width can leave the bucket count above or below that
// target) for the chosen surface to actually draw, and the spatial index is
// rebuilt from that same
// downsampled data and reattached to the interaction coordinator, per the
// engine's per-render data flow and its "index rebuilt eagerly at the end
// of every render" lifecycle rule.
func (e *Engine) Render(seriesSet []*data.Series, vp data.Viewport) error {
	downsampled := e.downsampleAll(seriesSet, vp)

	renderErr := e.tierEngine.RenderView(seriesSet, downsampled, vp)

	idx := spatial.Build(downsampled, vp, e.hitRadius)
	e.lastIndex = idx
	e.coordinator.Attach(idx, vp, downsampled)

	return renderErr
}

// SpatialIndex returns the spatial index built during the most recent
// Render, or nil if Render has not yet been called.
func (e *Engine) SpatialIndex() *spatial.Index { return e.lastIndex }

func (e *Engine) downsampleAll(seriesSet []*data.Series, vp data.Viewport) []*data.Series {
	target := int(vp.InnerWidth())
	if target <= 0 {
		target = 1
	}
	cfg := e.cfg.LODConfig()

	out := make([]*data.Series, len(seriesSet))
	for i, s := range seriesSet {
		if !s.Visible || len(s.Data) == 0 {
			out[i] = s
			continue
		}
		res := lod.Downsample(s.Data, target, cfg, nil)
		pts := make([]data.DataPoint, len(res.Buckets))
		for j, b := range res.Buckets {
			pts[j] = b.Representative
		}
		out[i] = &data.Series{
			ID: s.ID, Name: s.Name, Color: s.Color,
			Visible: s.Visible, TimeOrdered: s.TimeOrdered,
			Data: pts, Version: s.Version,
		}
		if res.Level != lod.Full {
			e.bus.Emit(vevents.Event{
				Type:      vevents.LODChange,
				Timestamp: e.now(),
				Payload: LODChangePayload{
					SeriesID:         s.ID,
					Level:            res.Level,
					CompressionRatio: res.CompressionRatio,
					TotalPoints:      res.TotalPoints,
					SampledPoints:    res.SampledPoints,
				},
			})
		}
	}
	return out
}

// Shutdown destroys every registered surface in LIFO order, per the
// engine's surface lifecycle contract.
func (e *Engine) Shutdown() { e.tierEngine.Shutdown() }
