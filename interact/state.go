// Package interact implements the Interaction Coordinator: a single-
// threaded, event-driven finite state machine that sits above any concrete
// render surface and forwards cursor/keyboard activity through the
// authoritative spatial index.
//
// Grounded on cogentcore.org/core/eventmgr's double-click and drag
// derivation idiom (last-click time/position bookkeeping) and on
// events.Listeners for delivery, adapted to a debounce-by-deadline model
// driven by an explicit Tick call rather than a free-running goroutine, per
// the engine's single-threaded cooperative concurrency model.
package interact

import (
	"strconv"

	"github.com/hybridviz/renderengine/data"
)

// State is the coordinator's current interaction mode.
type State int

const (
	Idle State = iota
	Hovering
	Brushing
	Selecting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Hovering:
		return "hovering"
	case Brushing:
		return "brushing"
	case Selecting:
		return "selecting"
	default:
		return "unknown"
	}
}

// SelectionKey identifies one selected point, stable across a series's own
// point ordering: it prefers the point's caller-supplied id and falls back
// to its index only when the point carries none.
type SelectionKey struct {
	SeriesID string
	PointKey string
}

func keyForPoint(seriesID string, pointIndex int, p data.DataPoint) SelectionKey {
	if p.HasID() {
		return SelectionKey{SeriesID: seriesID, PointKey: p.ID}
	}
	return SelectionKey{SeriesID: seriesID, PointKey: indexKey(pointIndex)}
}

func indexKey(i int) string {
	return "idx:" + strconv.Itoa(i)
}

// clickInfo records the last click for double-click detection.
type clickInfo struct {
	Time float64
	X, Y float64
}

// brushState tracks an in-progress brush drag.
type brushState struct {
	AnchorX, AnchorY float64
	CurX, CurY       float64
}

// pendingHover is a debounced hover query awaiting its deadline.
type pendingHover struct {
	Deadline float64
	X, Y     float64
}

// pendingZoom is a debounced wheel-driven zoom intent awaiting its deadline.
type pendingZoom struct {
	Deadline float64
	Factor   float64
	X, Y     float64
}
