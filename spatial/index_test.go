package spatial

import (
	"testing"

	"github.com/hybridviz/renderengine/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearScale maps data coordinates to pixels via a fixed offset and scale,
// mimicking an injected client scale.
type linearScale struct {
	offset, scale float64
}

func (s linearScale) ToPixel(v float64) float64 { return s.offset + v*s.scale }
func (s linearScale) ToData(px float64) float64 { return (px - s.offset) / s.scale }

func vp(w, h float64, m data.Margins, xs, ys data.Scale) data.Viewport {
	return data.Viewport{WidthPx: w, HeightPx: h, Margins: m, PixelRatio: 1, XScale: xs, YScale: ys}
}

func TestHitTestScenario(t *testing.T) {
	// data (5,5) -> pixel (150,100) with margins (10,10,10,10).
	xs := linearScale{offset: 0, scale: 30}
	ys := linearScale{offset: 0, scale: 20}
	s := &data.Series{ID: "s1", Visible: true, Data: []data.DataPoint{{X: 5, Y: 5}}}
	viewport := vp(400, 300, data.Margins{Top: 10, Right: 10, Bottom: 10, Left: 10}, xs, ys)

	idx := Build([]*data.Series{s}, viewport, 10)

	hit, ok := idx.Nearest(160, 110, 10)
	require.True(t, ok)
	assert.Equal(t, "s1", hit.SeriesID)
	assert.Equal(t, s.Data[0], hit.Point)

	_, ok = idx.Nearest(200, 200, 10)
	assert.False(t, ok)
}

func TestCoverageInvariant(t *testing.T) {
	xs := linearScale{scale: 1}
	ys := linearScale{scale: 1}
	s := &data.Series{ID: "s1", Visible: true}
	for i := 0; i < 500; i++ {
		s.Data = append(s.Data, data.DataPoint{X: float64(i), Y: float64(i % 50)})
	}
	viewport := vp(1000, 1000, data.Margins{}, xs, ys)
	idx := Build([]*data.Series{s}, viewport, 10)

	assert.Equal(t, 500, idx.RefCount())
}

func TestTieBreakSmallerSeriesThenIndex(t *testing.T) {
	xs := linearScale{scale: 1}
	ys := linearScale{scale: 1}
	sA := &data.Series{ID: "a", Visible: true, Data: []data.DataPoint{{X: 10, Y: 10}}}
	sB := &data.Series{ID: "b", Visible: true, Data: []data.DataPoint{{X: 10, Y: 10}}}
	viewport := vp(200, 200, data.Margins{}, xs, ys)
	idx := Build([]*data.Series{sB, sA}, viewport, 10)

	hit, ok := idx.Nearest(10, 10, 5)
	require.True(t, ok)
	assert.Equal(t, "a", hit.SeriesID)
}

func TestPointsInRectOrdering(t *testing.T) {
	xs := linearScale{scale: 1}
	ys := linearScale{scale: 1}
	sA := &data.Series{ID: "a", Visible: true, Data: []data.DataPoint{{X: 1, Y: 1}, {X: 2, Y: 2}}}
	sB := &data.Series{ID: "b", Visible: true, Data: []data.DataPoint{{X: 1, Y: 1}}}
	viewport := vp(200, 200, data.Margins{}, xs, ys)
	idx := Build([]*data.Series{sA, sB}, viewport, 10)

	hits := idx.PointsInRect(0, 0, 5, 5)
	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].SeriesID)
	assert.Equal(t, 0, hits[0].PointIndex)
	assert.Equal(t, "a", hits[1].SeriesID)
	assert.Equal(t, 1, hits[1].PointIndex)
	assert.Equal(t, "b", hits[2].SeriesID)
}

func TestBrushRegionMatchesManualProjection(t *testing.T) {
	xs := linearScale{scale: 1}
	ys := linearScale{scale: 1}
	s := &data.Series{ID: "s1", Visible: true}
	for i := 0; i < 100; i++ {
		s.Data = append(s.Data, data.DataPoint{X: float64(i % 10), Y: float64(i / 10)})
	}
	viewport := vp(20, 20, data.Margins{}, xs, ys)
	idx := Build([]*data.Series{s}, viewport, 10)

	innerW, innerH := viewport.InnerWidth(), viewport.InnerHeight()
	hits := idx.PointsInRect(0, 0, innerW/2, innerH/2)

	var manual []data.DataPoint
	for _, p := range s.Data {
		px := xs.ToPixel(p.X)
		py := ys.ToPixel(p.Y)
		if px >= 0 && px <= innerW/2 && py >= 0 && py <= innerH/2 {
			manual = append(manual, p)
		}
	}
	require.Len(t, hits, len(manual))
	for i, h := range hits {
		assert.Equal(t, manual[i], h.Point)
	}
}

func TestNaNPointsExcludedFromIndex(t *testing.T) {
	xs := linearScale{scale: 1}
	ys := linearScale{scale: 1}
	s := &data.Series{ID: "s1", Visible: true, Data: []data.DataPoint{
		{X: 0, Y: 0}, {X: 1, Y: dataNaN()},
	}}
	viewport := vp(100, 100, data.Margins{}, xs, ys)
	idx := Build([]*data.Series{s}, viewport, 10)
	assert.Equal(t, 1, idx.RefCount())
}

func dataNaN() float64 {
	var z float64
	return z / z
}
