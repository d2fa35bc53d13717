package lod

import (
	"math"
	"sort"

	"github.com/hybridviz/renderengine/data"
)

// detectOutliers runs the configured method over all finite points in
// `points` and returns the indices (into `points`) of the points that
// survive the percentile cap, most-extreme first with ties broken by
// earlier x. The returned slice's order is the priority order used only
// internally for capping; callers should not rely on it for display order.
func detectOutliers(points []data.DataPoint, cfg Config) []int {
	finiteIdx := make([]int, 0, len(points))
	ys := make([]float64, 0, len(points))
	for i, p := range points {
		if p.IsFinite() {
			finiteIdx = append(finiteIdx, i)
			ys = append(ys, p.Y)
		}
	}

	var flagged []int
	var extremity map[int]float64

	switch cfg.OutlierMethod {
	case IQR:
		flagged, extremity = detectIQR(points, finiteIdx, ys)
	case MAD:
		flagged, extremity = detectMAD(points, finiteIdx, ys, cfg.OutlierThreshold)
	default:
		flagged, extremity = detectZScore(points, finiteIdx, ys, cfg.OutlierThreshold)
	}

	if len(flagged) == 0 {
		return nil
	}

	sort.Slice(flagged, func(a, b int) bool {
		ea, eb := extremity[flagged[a]], extremity[flagged[b]]
		if ea != eb {
			return ea > eb
		}
		return points[flagged[a]].X < points[flagged[b]].X
	})

	limit := int(math.Floor(float64(len(points)) * cfg.MaxOutlierPercent / 100))
	if limit < 0 {
		limit = 0
	}
	if limit > len(flagged) {
		limit = len(flagged)
	}
	return flagged[:limit]
}

func mean(ys []float64) float64 {
	if len(ys) == 0 {
		return 0
	}
	sum := 0.0
	for _, y := range ys {
		sum += y
	}
	return sum / float64(len(ys))
}

func stddev(ys []float64, m float64) float64 {
	if len(ys) == 0 {
		return 0
	}
	sum := 0.0
	for _, y := range ys {
		d := y - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(ys)))
}

func detectZScore(points []data.DataPoint, finiteIdx []int, ys []float64, threshold float64) ([]int, map[int]float64) {
	if len(ys) < 3 {
		return nil, nil
	}
	m := mean(ys)
	sd := stddev(ys, m)
	if sd == 0 {
		return nil, nil
	}
	var flagged []int
	extremity := map[int]float64{}
	for j, idx := range finiteIdx {
		z := math.Abs(ys[j]-m) / sd
		if z > threshold {
			flagged = append(flagged, idx)
			extremity[idx] = z
		}
	}
	return flagged, extremity
}

// sortedCopy returns a sorted copy of ys.
func sortedCopy(ys []float64) []float64 {
	out := make([]float64, len(ys))
	copy(out, ys)
	sort.Float64s(out)
	return out
}

// quantile computes the classic Tukey hinge (median-of-half) quantile,
// used for IQR fences. q must be 0.25 or 0.75.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	mid := n / 2
	var half []float64
	if q <= 0.5 {
		half = sorted[:mid]
	} else {
		half = sorted[len(sorted)-mid:]
	}
	return median(half)
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return 0.5 * (sorted[n/2-1] + sorted[n/2])
}

func detectIQR(points []data.DataPoint, finiteIdx []int, ys []float64) ([]int, map[int]float64) {
	if len(ys) < 4 {
		return nil, nil
	}
	sorted := sortedCopy(ys)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lo := q1 - 1.5*iqr
	hi := q3 + 1.5*iqr

	var flagged []int
	extremity := map[int]float64{}
	for j, idx := range finiteIdx {
		y := ys[j]
		if y < lo {
			flagged = append(flagged, idx)
			extremity[idx] = lo - y
		} else if y > hi {
			flagged = append(flagged, idx)
			extremity[idx] = y - hi
		}
	}
	return flagged, extremity
}

func detectMAD(points []data.DataPoint, finiteIdx []int, ys []float64, threshold float64) ([]int, map[int]float64) {
	if len(ys) < 3 {
		return nil, nil
	}
	sorted := sortedCopy(ys)
	med := median(sorted)

	devs := make([]float64, len(ys))
	for i, y := range ys {
		devs[i] = math.Abs(y - med)
	}
	sortedDevs := sortedCopy(devs)
	mad := median(sortedDevs)
	if mad == 0 {
		return nil, nil
	}

	var flagged []int
	extremity := map[int]float64{}
	for j, idx := range finiteIdx {
		score := math.Abs(ys[j]-med) / mad
		if score > threshold {
			flagged = append(flagged, idx)
			extremity[idx] = score
		}
	}
	return flagged, extremity
}
