// Package vevents implements the engine's typed event bus: subscribers
// register once and receive a deliver-in-order stream; unregistering is a
// handle call. Generalizes cogentcore.org/core/events's Listeners
// (registration/dispatch idiom) and Queue (FIFO shape), simplified to a
// mutex-guarded slice since the engine's concurrency model (see spec §5)
// is single-threaded cooperative and never needs the teacher's lock-free
// reclamation machinery.
package vevents

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Type identifies the kind of event carried on the bus.
type Type int

const (
	TierSwitch Type = iota
	LODChange
	PerformanceViolation
	Error
	HoverChanged
	HoverCleared
	SelectionChanged
	ZoomIntent
	ZoomReset
	BrushUpdated
)

func (t Type) String() string {
	switch t {
	case TierSwitch:
		return "tier_switch"
	case LODChange:
		return "lod_change"
	case PerformanceViolation:
		return "performance_violation"
	case Error:
		return "error"
	case HoverChanged:
		return "hover_changed"
	case HoverCleared:
		return "hover_cleared"
	case SelectionChanged:
		return "selection_changed"
	case ZoomIntent:
		return "zoom_intent"
	case ZoomReset:
		return "zoom_reset"
	case BrushUpdated:
		return "brush_updated"
	default:
		return "unknown"
	}
}

// Event is one item on the bus.
type Event struct {
	Type      Type
	Timestamp float64
	Payload   any
}

// TierSwitchReason explains why a TierSwitch event fired.
type TierSwitchReason int

const (
	ReasonDensity TierSwitchReason = iota
	ReasonPerformance
	ReasonManual
	ReasonFallback
)

func (r TierSwitchReason) String() string {
	switch r {
	case ReasonDensity:
		return "density"
	case ReasonPerformance:
		return "performance"
	case ReasonManual:
		return "manual"
	case ReasonFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// TierSwitchPayload is the payload of a TierSwitch event.
type TierSwitchPayload struct {
	From          string
	To            string
	Reason        TierSwitchReason
	Density       float64
	AvgFrameTime  float64
}

// ErrorPayload is the payload of an Error event.
type ErrorPayload struct {
	Message string
	Cause   error
}

// handle is returned by Subscribe; calling it unregisters the listener.
type handle struct {
	bus *Bus
	id  uint64
	typ Type
}

// Unregister removes the associated listener. Safe to call more than once.
func (h *handle) Unregister() {
	h.bus.remove(h.typ, h.id)
}

type listener struct {
	id uint64
	fn func(Event)
}

// Bus is a subscribe-once, deliver-in-order event stream.
type Bus struct {
	mu        sync.Mutex
	listeners map[Type][]listener
	nextID    uint64
	logger    zerolog.Logger
}

// New constructs an empty Bus. Subscriber-fault and warning log lines go
// through the package-level zerolog logger unless a scoped logger is
// installed via WithLogger.
func New() *Bus {
	return &Bus{
		listeners: make(map[Type][]listener),
		logger:    log.Logger,
	}
}

// WithLogger installs a scoped zerolog.Logger for this bus's own
// diagnostic output (subscriber faults, etc).
func (b *Bus) WithLogger(l zerolog.Logger) *Bus {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = l
	return b
}

// Unregister is the handle returned by Subscribe.
type Unregister interface {
	Unregister()
}

// Subscribe registers fn to receive every future event of the given type,
// in the order they are emitted. Returns a handle whose Unregister call
// removes the listener.
func (b *Bus) Subscribe(typ Type, fn func(Event)) Unregister {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[typ] = append(b.listeners[typ], listener{id: id, fn: fn})
	return &handle{bus: b, id: id, typ: typ}
}

func (b *Bus) remove(typ Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ls := b.listeners[typ]
	for i, l := range ls {
		if l.id == id {
			b.listeners[typ] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// Emit delivers ev to every subscriber of ev.Type, in registration order.
// A subscriber that panics is recovered, logged, and never propagated to
// other subscribers or to the caller. Once every subscriber has run, each
// recovered panic is also emitted as an Error event; a panic raised while
// delivering an Error event is only logged.
func (b *Bus) Emit(ev Event) {
	b.mu.Lock()
	ls := make([]listener, len(b.listeners[ev.Type]))
	copy(ls, b.listeners[ev.Type])
	logger := b.logger
	b.mu.Unlock()

	var faults []string
	for _, l := range ls {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error().
						Str("event_type", ev.Type.String()).
						Interface("recovered", r).
						Msg("event subscriber panicked; isolated")
					faults = append(faults, fmt.Sprint(r))
				}
			}()
			l.fn(ev)
		}()
	}

	if ev.Type == Error {
		return
	}
	for _, f := range faults {
		msg := "event subscriber panicked on " + ev.Type.String() + ": " + f
		b.Emit(Event{Type: Error, Timestamp: ev.Timestamp, Payload: ErrorPayload{Message: msg, Cause: errors.New(msg)}})
	}
}

// Warn logs a warning-level structured line without emitting a bus event,
// used for configuration clamps and other locally-handled conditions that
// the spec says are "handled locally" (see spec.md §7.1).
func (b *Bus) Warn(msg string, fields map[string]any) {
	b.mu.Lock()
	logger := b.logger
	b.mu.Unlock()
	ev := logger.Warn()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Debug logs a debug-level structured line without emitting a bus event,
// used for low-frequency internal checkpoints (e.g. the tier engine's
// re-evaluation cadence) that don't warrant a subscriber-visible event.
func (b *Bus) Debug(msg string, fields map[string]any) {
	b.mu.Lock()
	logger := b.logger
	b.mu.Unlock()
	ev := logger.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
