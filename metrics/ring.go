// Package metrics implements the fixed-capacity frame-metric ring and
// derived performance signals (average frame time, fps, trailing
// violation count) that drive the tier engine's auto-degrade policy.
//
// The teacher's events.Queue (a lock-free FIFO deque) is not used here:
// per the engine's single-threaded cooperative concurrency model, this
// ring is only ever touched from the render loop's own goroutine, so a
// plain slice-backed ring is the simpler, correct choice — see DESIGN.md.
package metrics

import "github.com/hybridviz/renderengine/surface"

// DefaultCapacity is the ring's default size.
const DefaultCapacity = 60

// FrameMetric is one recorded frame's timing and shape.
type FrameMetric struct {
	TimestampMs float64
	FrameTimeMs float64
	PointCount  int
	Tier        surface.Tier
	Dropped     bool
}

// Ring is a fixed-capacity, overwrite-oldest ring buffer of FrameMetric.
type Ring struct {
	capacity      int
	buf           []FrameMetric
	next          int
	filled        int
	maxFrameTime  float64
}

// NewRing constructs a Ring. capacity<=0 uses DefaultCapacity.
// maxFrameTimeMs is the budget above which a frame is marked dropped.
func NewRing(capacity int, maxFrameTimeMs float64) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		capacity:     capacity,
		buf:          make([]FrameMetric, capacity),
		maxFrameTime: maxFrameTimeMs,
	}
}

// Record appends a frame metric, overwriting the oldest entry once the
// ring is full.
func (r *Ring) Record(timestampMs, frameTimeMs float64, pointCount int, tier surface.Tier) FrameMetric {
	fm := FrameMetric{
		TimestampMs: timestampMs,
		FrameTimeMs: frameTimeMs,
		PointCount:  pointCount,
		Tier:        tier,
		Dropped:     frameTimeMs > r.maxFrameTime,
	}
	r.buf[r.next] = fm
	r.next = (r.next + 1) % r.capacity
	if r.filled < r.capacity {
		r.filled++
	}
	return fm
}

// Len returns the number of entries currently held (<= capacity).
func (r *Ring) Len() int { return r.filled }

// Capacity returns the ring's fixed capacity.
func (r *Ring) Capacity() int { return r.capacity }

// entries returns the ring's contents in chronological order (oldest
// first).
func (r *Ring) entries() []FrameMetric {
	out := make([]FrameMetric, 0, r.filled)
	if r.filled < r.capacity {
		out = append(out, r.buf[:r.filled]...)
		return out
	}
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}

// Latest returns the most recently recorded metric and true, or the zero
// value and false if nothing has been recorded yet.
func (r *Ring) Latest() (FrameMetric, bool) {
	if r.filled == 0 {
		return FrameMetric{}, false
	}
	idx := (r.next - 1 + r.capacity) % r.capacity
	return r.buf[idx], true
}

// AverageFrameTime returns the arithmetic mean frame time over entries
// whose timestamp is >= now-windowMs. If windowMs<=0, averages over the
// entire ring.
func (r *Ring) AverageFrameTime(now, windowMs float64) float64 {
	entries := r.entries()
	if len(entries) == 0 {
		return 0
	}
	sum := 0.0
	n := 0
	cutoff := now - windowMs
	for _, e := range entries {
		if windowMs > 0 && e.TimestampMs < cutoff {
			continue
		}
		sum += e.FrameTimeMs
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// FPS returns 1000/avg for the given window, or 0 if the average is 0.
func (r *Ring) FPS(now, windowMs float64) float64 {
	avg := r.AverageFrameTime(now, windowMs)
	if avg == 0 {
		return 0
	}
	return 1000 / avg
}

// TrailingViolations returns the number of consecutive dropped frames at
// the end of the ring's recorded history (most recent first).
func (r *Ring) TrailingViolations() int {
	entries := r.entries()
	count := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if !entries[i].Dropped {
			break
		}
		count++
	}
	return count
}
