package lod

import (
	"math"
	"testing"

	"github.com/hybridviz/renderengine/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesOf(n int, x0, dx float64, f func(i int) float64) []data.DataPoint {
	pts := make([]data.DataPoint, n)
	for i := 0; i < n; i++ {
		pts[i] = data.DataPoint{X: x0 + float64(i)*dx, Y: f(i)}
	}
	return pts
}

func TestFastPathScenario(t *testing.T) {
	pts := seriesOf(250, 0, 1, func(i int) float64 { return float64(i % 10) })
	res := Downsample(pts, 1000, DefaultConfig(), nil)

	assert.Equal(t, 250, res.SampledPoints)
	assert.Equal(t, Full, res.Level)
	assert.Equal(t, float64(1), res.CompressionRatio)
	require.Len(t, res.Buckets, 250)
	for i, b := range res.Buckets {
		assert.Equal(t, pts[i], b.Representative)
	}
}

func TestLODMonotonicity(t *testing.T) {
	pts := seriesOf(37, 0, 3, func(i int) float64 { return float64(i) * 2.5 })
	for _, target := range []int{37, 50, 1000} {
		res := Downsample(pts, target, DefaultConfig(), nil)
		require.Len(t, res.Buckets, len(pts))
		for i, b := range res.Buckets {
			assert.Equal(t, pts[i], b.Representative)
		}
	}
}

func TestDownsamplingWithAnomaly(t *testing.T) {
	n := 10000
	pts := make([]data.DataPoint, 0, n+1)
	for i := 0; i < n; i++ {
		y := float64(i%11) // 0..10
		pts = append(pts, data.DataPoint{X: float64(i), Y: y})
	}
	pts = append(pts, data.DataPoint{X: float64(n), Y: 1e6, ID: "anomaly"})

	cfg := DefaultConfig()
	res := Downsample(pts, 100, cfg, nil)

	found := false
	for _, b := range res.Buckets {
		for _, o := range b.Outliers {
			if o.ID == "anomaly" {
				found = true
			}
		}
	}
	assert.True(t, found, "anomalous point should survive as an outlier")
}

func TestEnvelopePreservedGlobally(t *testing.T) {
	pts := seriesOf(5000, 0, 1, func(i int) float64 {
		return math.Sin(float64(i)/37.0)*50 + float64(i%997)
	})
	res := Downsample(pts, 80, DefaultConfig(), nil)

	globalMin, globalMax := pts[0].Y, pts[0].Y
	for _, p := range pts {
		if p.Y < globalMin {
			globalMin = p.Y
		}
		if p.Y > globalMax {
			globalMax = p.Y
		}
	}

	envMin, envMax := res.Buckets[0].MinY, res.Buckets[0].MaxY
	for _, b := range res.Buckets {
		if b.MinY < envMin {
			envMin = b.MinY
		}
		if b.MaxY > envMax {
			envMax = b.MaxY
		}
	}
	assert.LessOrEqual(t, envMin, globalMin+1e-9)
	assert.GreaterOrEqual(t, envMax, globalMax-1e-9)
}

func TestBucketInvariants(t *testing.T) {
	pts := seriesOf(2000, 0, 1, func(i int) float64 { return float64(i % 13) })
	res := Downsample(pts, 40, DefaultConfig(), nil)

	var prevEnd float64
	for i, b := range res.Buckets {
		assert.Less(t, b.TStart, b.TEnd)
		assert.LessOrEqual(t, b.MinY, b.AvgY+1e-9)
		assert.LessOrEqual(t, b.AvgY, b.MaxY+1e-9)
		assert.GreaterOrEqual(t, b.Count, 1)
		assert.GreaterOrEqual(t, b.Representative.X, b.TStart)
		assert.Less(t, b.Representative.X, b.TEnd+1e-9)
		if i > 0 {
			assert.GreaterOrEqual(t, b.TStart, prevEnd)
		}
		prevEnd = b.TEnd
	}
}

func TestDeterminism(t *testing.T) {
	pts := seriesOf(4321, 0, 2, func(i int) float64 { return math.Cos(float64(i)) * 100 })
	cfg := DefaultConfig()
	a := Downsample(pts, 200, cfg, nil)
	b := Downsample(pts, 200, cfg, nil)
	assert.Equal(t, a, b)
}

func TestOutlierMethodsRequireMinimumN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutlierMethod = ZScore
	assert.Nil(t, detectOutliers([]data.DataPoint{{X: 0, Y: 1}, {X: 1, Y: 2}}, cfg))

	cfg.OutlierMethod = IQR
	assert.Nil(t, detectOutliers([]data.DataPoint{{X: 0, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 3}}, cfg))

	cfg.OutlierMethod = MAD
	assert.Nil(t, detectOutliers([]data.DataPoint{{X: 0, Y: 1}, {X: 1, Y: 2}}, cfg))
}

func TestZeroStddevNoOutliers(t *testing.T) {
	pts := seriesOf(10, 0, 1, func(i int) float64 { return 5 })
	cfg := DefaultConfig()
	idxs := detectOutliers(pts, cfg)
	assert.Nil(t, idxs)
}

func TestFailureModes(t *testing.T) {
	assert.Equal(t, emptyResult(), Downsample(nil, 10, DefaultConfig(), nil))
	assert.Equal(t, emptyResult(), Downsample([]data.DataPoint{{X: 0, Y: 1}}, 0, DefaultConfig(), nil))
}

func TestZoomRefineDoublesTarget(t *testing.T) {
	pts := seriesOf(1000, 0, 1, func(i int) float64 { return float64(i % 7) })
	res := ZoomRefine(pts, 100, 300, 20, DefaultConfig())
	assert.LessOrEqual(t, res.SampledPoints, 40)
	assert.Greater(t, res.SampledPoints, 0)
}

func TestZoomRefineDisabledFallsBackToFull(t *testing.T) {
	pts := seriesOf(500, 0, 1, func(i int) float64 { return float64(i) })
	cfg := DefaultConfig()
	cfg.ZoomRefine = false
	res := ZoomRefine(pts, 100, 200, 20, cfg)
	full := Downsample(pts, 20, cfg, nil)
	assert.Equal(t, full, res)
}

func TestNaNExcludedFromAggregates(t *testing.T) {
	pts := []data.DataPoint{
		{X: 0, Y: 1}, {X: 1, Y: math.NaN()}, {X: 2, Y: 3}, {X: 3, Y: 2},
	}
	res := Downsample(pts, 1, DefaultConfig(), nil)
	require.Len(t, res.Buckets, 1)
	b := res.Buckets[0]
	assert.Equal(t, 1.0, b.MinY)
	assert.Equal(t, 3.0, b.MaxY)
}
