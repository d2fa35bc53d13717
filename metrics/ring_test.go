package metrics

import (
	"testing"

	"github.com/hybridviz/renderengine/surface"
	"github.com/stretchr/testify/assert"
)

func TestRingCapacityInvariant(t *testing.T) {
	r := NewRing(5, 33.33)
	for i := 0; i < 12; i++ {
		r.Record(float64(i*16), 16, 100, surface.Vector)
	}
	assert.Equal(t, 5, r.Len())

	entries := r.entries()
	assert.Len(t, entries, 5)
	// Most recent 5 calls used i=7..11, timestamps 112..176.
	assert.Equal(t, float64(112), entries[0].TimestampMs)
	assert.Equal(t, float64(176), entries[4].TimestampMs)
}

func TestDroppedFlag(t *testing.T) {
	r := NewRing(10, 33.33)
	fm := r.Record(0, 50, 10, surface.Raster)
	assert.True(t, fm.Dropped)
	fm2 := r.Record(16, 10, 10, surface.Raster)
	assert.False(t, fm2.Dropped)
}

func TestAverageFrameTimeWindow(t *testing.T) {
	r := NewRing(10, 33.33)
	r.Record(0, 10, 1, surface.Vector)
	r.Record(100, 20, 1, surface.Vector)
	r.Record(200, 30, 1, surface.Vector)

	avg := r.AverageFrameTime(200, 150)
	assert.InDelta(t, 25, avg, 1e-9) // only entries at t=100,200 within [50,200]

	fullAvg := r.AverageFrameTime(200, 0)
	assert.InDelta(t, 20, fullAvg, 1e-9)
}

func TestTrailingViolations(t *testing.T) {
	r := NewRing(10, 33.33)
	r.Record(0, 10, 1, surface.Vector)
	r.Record(16, 50, 1, surface.Vector)
	r.Record(32, 50, 1, surface.Vector)
	r.Record(48, 50, 1, surface.Vector)
	assert.Equal(t, 3, r.TrailingViolations())

	r.Record(64, 10, 1, surface.Vector)
	assert.Equal(t, 0, r.TrailingViolations())
}

func TestFPS(t *testing.T) {
	r := NewRing(10, 33.33)
	r.Record(0, 20, 1, surface.Vector)
	assert.InDelta(t, 50, r.FPS(0, 0), 1e-9)
}
