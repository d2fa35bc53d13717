package interact

import (
	"math"

	"github.com/google/uuid"

	"github.com/hybridviz/renderengine/data"
	"github.com/hybridviz/renderengine/spatial"
	"github.com/hybridviz/renderengine/threshold"
	"github.com/hybridviz/renderengine/vevents"
)

// HoverPayload is the payload of a HoverChanged event.
type HoverPayload struct {
	Hit spatial.HitResult
}

// SelectionPayload is the payload of a SelectionChanged event.
type SelectionPayload struct {
	Selection []SelectionKey
	// SnapshotID identifies this particular selection revision. A fresh
	// uuid is minted for every SelectionChanged emission alike (click
	// toggle, Enter, Escape and brush end), so it does not by itself tell
	// a brush result apart from a click toggle.
	SnapshotID string
}

// ZoomIntentPayload is the payload of a ZoomIntent event.
type ZoomIntentPayload struct {
	Factor       float64
	AnchorX      float64
	AnchorY      float64
}

// BrushPayload is the payload of a BrushUpdated event.
type BrushPayload struct {
	Rect data.Rect
	Done bool
}

// Coordinator is the Interaction Coordinator FSM described by the engine's
// interaction contract. It owns selection and hover state directly (never
// the surface), so both survive tier transitions across repeated Attach
// calls.
type Coordinator struct {
	cfg threshold.Config
	bus *vevents.Bus
	now func() float64

	index     *spatial.Index
	vp        data.Viewport
	seriesSet []*data.Series

	state State

	hover     *spatial.HitResult
	selection map[SelectionKey]struct{}
	brush     *brushState
	lastClick *clickInfo

	pendingHoverQ *pendingHover
	pendingZoomQ  *pendingZoom

	curSeriesIdx int
	curPointIdx  int
}

// NewCoordinator constructs a Coordinator with no attached surface.
func NewCoordinator(cfg threshold.Config, bus *vevents.Bus, now func() float64) *Coordinator {
	if now == nil {
		now = func() float64 { return 0 }
	}
	return &Coordinator{
		cfg:       cfg,
		bus:       bus,
		now:       now,
		state:     Idle,
		selection: make(map[SelectionKey]struct{}),
	}
}

// UpdateConfig replaces the coordinator's interaction tuning.
func (c *Coordinator) UpdateConfig(cfg threshold.Config) { c.cfg = cfg }

// SetClock overrides the coordinator's time source, for deterministic
// tests.
func (c *Coordinator) SetClock(now func() float64) {
	if now != nil {
		c.now = now
	}
}

// Attach binds the coordinator to a freshly built spatial index, viewport
// and series set — typically called at the end of every render. Per the
// cancellation-on-reattach contract, this drains any pending debounced
// timer and clears hover, but preserves the selection set across the
// transition.
func (c *Coordinator) Attach(index *spatial.Index, vp data.Viewport, seriesSet []*data.Series) {
	c.index = index
	c.vp = vp
	c.seriesSet = seriesSet
	c.pendingHoverQ = nil
	c.pendingZoomQ = nil
	if c.hover != nil {
		c.hover = nil
		c.emit(vevents.HoverCleared, nil)
	}
	c.brush = nil
	c.state = Idle
}

// Detach releases the coordinator's surface reference entirely. While no
// index is attached, MouseMove, Click, Wheel and BrushBegin are no-ops
// that log a warning, per the engine's interaction error-handling rule.
func (c *Coordinator) Detach() {
	c.index = nil
	c.pendingHoverQ = nil
	c.pendingZoomQ = nil
	if c.hover != nil {
		c.hover = nil
		c.emit(vevents.HoverCleared, nil)
	}
	c.brush = nil
	c.state = Idle
}

func (c *Coordinator) warnNoSurface(op string) bool {
	if c.index != nil {
		return false
	}
	c.bus.Warn("interaction on coordinator with no attached surface", map[string]any{"op": op})
	return true
}

func (c *Coordinator) emit(t vevents.Type, payload any) {
	c.bus.Emit(vevents.Event{Type: t, Timestamp: c.now(), Payload: payload})
}

// State returns the coordinator's current FSM state.
func (c *Coordinator) State() State { return c.state }

// Hover returns the current hover hit, or nil if nothing is hovered.
func (c *Coordinator) Hover() *spatial.HitResult { return c.hover }

// Selection returns a snapshot of the current selection set.
func (c *Coordinator) Selection() []SelectionKey {
	out := make([]SelectionKey, 0, len(c.selection))
	for k := range c.selection {
		out = append(out, k)
	}
	return out
}

// MouseMove handles cursor motion. While brushing, it updates the moving
// corner directly (brush update is not debounced); otherwise it schedules a
// debounced hover query, restarting the deadline on every call, matching a
// standard trailing-edge debounce.
func (c *Coordinator) MouseMove(x, y float64) {
	if c.warnNoSurface("mouse_move") {
		return
	}
	if c.state == Brushing {
		c.BrushUpdate(x, y)
		return
	}
	c.pendingHoverQ = &pendingHover{Deadline: c.now() + c.cfg.HoverDebounceMs, X: x, Y: y}
}

// MouseLeave clears hover immediately and cancels any pending debounced
// hover query.
func (c *Coordinator) MouseLeave() {
	c.pendingHoverQ = nil
	if c.hover != nil {
		c.hover = nil
		c.emit(vevents.HoverCleared, nil)
	}
	if c.state == Hovering {
		c.state = Idle
	}
}

// Tick drains any debounced action (hover, zoom) whose deadline has
// elapsed. It must be called periodically by the host's own event loop;
// the coordinator never spawns a goroutine of its own.
func (c *Coordinator) Tick(now float64) {
	if c.pendingHoverQ != nil && now >= c.pendingHoverQ.Deadline {
		p := c.pendingHoverQ
		c.pendingHoverQ = nil
		c.fireHover(p.X, p.Y)
	}
	if c.pendingZoomQ != nil && now >= c.pendingZoomQ.Deadline {
		p := c.pendingZoomQ
		c.pendingZoomQ = nil
		c.emit(vevents.ZoomIntent, ZoomIntentPayload{Factor: p.Factor, AnchorX: p.X, AnchorY: p.Y})
	}
}

func (c *Coordinator) fireHover(x, y float64) {
	if c.index == nil {
		return
	}
	hit, ok := c.index.Nearest(x, y, c.cfg.HoverRadius)
	changed := hoverIdentityChanged(c.hover, hit, ok)
	if !ok {
		if c.hover != nil {
			c.hover = nil
			c.emit(vevents.HoverCleared, nil)
		}
		return
	}
	c.hover = hit
	c.state = Hovering
	if changed {
		c.emit(vevents.HoverChanged, HoverPayload{Hit: *hit})
	}
}

func hoverIdentityChanged(prev *spatial.HitResult, cur *spatial.HitResult, ok bool) bool {
	if !ok {
		return prev != nil
	}
	if prev == nil {
		return true
	}
	if prev.SeriesID != cur.SeriesID {
		return true
	}
	if prev.Point.HasID() || cur.Point.HasID() {
		return prev.Point.ID != cur.Point.ID
	}
	return prev.Point.X != cur.Point.X || prev.Point.Y != cur.Point.Y
}

// Click handles a mouse click at (x,y). A click within double_click_ms of
// the previous click and within 5px of it is classified as a double-click,
// which emits ZoomReset and never toggles selection. Otherwise it toggles
// selection membership of the nearest point within selection_radius.
func (c *Coordinator) Click(x, y float64) {
	if c.warnNoSurface("click") {
		return
	}
	now := c.now()
	if c.lastClick != nil &&
		now-c.lastClick.Time <= c.cfg.DoubleClickMs &&
		math.Hypot(x-c.lastClick.X, y-c.lastClick.Y) <= 5 {
		c.lastClick = nil
		c.emit(vevents.ZoomReset, nil)
		return
	}
	c.lastClick = &clickInfo{Time: now, X: x, Y: y}

	if c.index == nil {
		return
	}
	hit, ok := c.index.Nearest(x, y, c.cfg.SelectionRadius)
	if !ok {
		return
	}
	c.toggleSelection(keyForHit(*hit), "")
}

func keyForHit(hit spatial.HitResult) SelectionKey {
	return keyForPoint(hit.SeriesID, hit.PointIndex, hit.Point)
}

func (c *Coordinator) toggleSelection(k SelectionKey, snapshotID string) {
	if _, present := c.selection[k]; present {
		delete(c.selection, k)
	} else {
		c.selection[k] = struct{}{}
	}
	c.state = Selecting
	if snapshotID == "" {
		snapshotID = uuid.NewString()
	}
	c.emit(vevents.SelectionChanged, SelectionPayload{Selection: c.Selection(), SnapshotID: snapshotID})
}

// ClearSelection empties the selection set and emits SelectionChanged.
func (c *Coordinator) ClearSelection() {
	if len(c.selection) == 0 {
		return
	}
	c.selection = make(map[SelectionKey]struct{})
	c.state = Idle
	c.emit(vevents.SelectionChanged, SelectionPayload{Selection: nil, SnapshotID: uuid.NewString()})
}

// Wheel handles a scroll/zoom gesture, debounced by zoom_debounce_ms.
// deltaY<0 zooms in (factor 1.1); deltaY>0 zooms out (factor 0.9).
func (c *Coordinator) Wheel(deltaY, x, y float64) {
	if c.warnNoSurface("wheel") {
		return
	}
	factor := 0.9
	if deltaY < 0 {
		factor = 1.1
	}
	c.pendingZoomQ = &pendingZoom{Deadline: c.now() + c.cfg.ZoomDebounceMs, Factor: factor, X: x, Y: y}
}

// BrushBegin pins the brush anchor and transitions to Brushing.
func (c *Coordinator) BrushBegin(x, y float64) {
	if c.warnNoSurface("brush_begin") {
		return
	}
	c.brush = &brushState{AnchorX: x, AnchorY: y, CurX: x, CurY: y}
	c.state = Brushing
	c.pendingHoverQ = nil
}

// BrushUpdate records the brush's moving corner.
func (c *Coordinator) BrushUpdate(x, y float64) {
	if c.brush == nil {
		return
	}
	c.brush.CurX, c.brush.CurY = x, y
	rect := data.NewRect(c.brush.AnchorX, c.brush.AnchorY, c.brush.CurX, c.brush.CurY)
	c.emit(vevents.BrushUpdated, BrushPayload{Rect: rect, Done: false})
}

// BrushEnd queries the region under the brush and replaces the selection
// set with its result wholesale (not a toggle), then returns to Idle.
func (c *Coordinator) BrushEnd() {
	if c.brush == nil {
		return
	}
	b := c.brush
	c.brush = nil
	c.state = Idle
	if c.index == nil {
		return
	}
	rect := data.NewRect(b.AnchorX, b.AnchorY, b.CurX, b.CurY)
	hits := c.index.PointsInRect(rect.X1, rect.Y1, rect.X2, rect.Y2)

	c.selection = make(map[SelectionKey]struct{}, len(hits))
	for _, h := range hits {
		c.selection[keyForPoint(h.SeriesID, h.PointIndex, h.Point)] = struct{}{}
	}
	snapshotID := uuid.NewString()
	c.emit(vevents.BrushUpdated, BrushPayload{Rect: rect, Done: true})
	c.emit(vevents.SelectionChanged, SelectionPayload{Selection: c.Selection(), SnapshotID: snapshotID})
}
