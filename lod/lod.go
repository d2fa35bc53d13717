// Package lod implements the deterministic, temporal-bucket downsampler
// described by the engine's Level-of-Detail contract: given a series of
// points and a target bucket count, it produces buckets that preserve the
// min/max envelope and statistically-detected outliers, with no randomness
// and no clock reads.
//
// Grounded on the NaN/Inf-hygiene idiom of cogentcore.org/core/plot/data.go
// (CheckFloats, CheckNaNs, Range) and the F64 envelope tracker in this
// module's own minmax package.
package lod

import (
	"math"
	"sort"
	"strconv"

	"github.com/hybridviz/renderengine/data"
	"github.com/hybridviz/renderengine/minmax"
)

// Level is the LOD coarseness bucket derived from the compression ratio.
type Level int

const (
	Minimal Level = iota
	Low
	Medium
	High
	Full
)

func (l Level) String() string {
	switch l {
	case Minimal:
		return "minimal"
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// levelForRatio maps a compression ratio to an LOD level per spec.
func levelForRatio(ratio float64) Level {
	switch {
	case ratio >= 100:
		return Minimal
	case ratio >= 50:
		return Low
	case ratio >= 10:
		return Medium
	case ratio >= 2:
		return High
	default:
		return Full
	}
}

// LODBucket is one temporal aggregation unit.
type LODBucket struct {
	TStart, TEnd     float64
	MinY, MaxY, AvgY float64
	Count            int
	Representative   data.DataPoint
	Outliers         []data.DataPoint
}

// LODResult is the output of a downsample call.
type LODResult struct {
	Buckets           []LODBucket
	TotalPoints       int
	SampledPoints     int
	CompressionRatio  float64
	Level             Level
	OutlierCount      int
}

// TimeWindow narrows downsampling to a visible sub-range of the input's
// natural x-extent.
type TimeWindow struct {
	Lo, Hi float64
}

// emptyResult is returned for the two documented failure modes: target<=0,
// or no input points.
func emptyResult() LODResult {
	return LODResult{Level: Full}
}

// Downsample reduces points to roughly `target` buckets, preserving the
// global min/max envelope and any statistically-detected outliers that
// survive the percentile cap. With temporal bucketing the raw width
// (range/target) is snapped to the nice ladder, so the bucket count can
// exceed target (10,000 unit-spaced points with target 500 snap to width
// 10 and give 1,000 buckets); count-based bucketing never exceeds target.
// Deterministic: identical inputs always produce a byte-identical result.
func Downsample(points []data.DataPoint, target int, cfg Config, window *TimeWindow) LODResult {
	if target <= 0 || len(points) == 0 {
		return emptyResult()
	}

	// Optional windowing: restrict to [Lo,Hi] before anything else.
	work := points
	if window != nil {
		filtered := make([]data.DataPoint, 0, len(points))
		for _, p := range points {
			if p.X >= window.Lo && p.X <= window.Hi {
				filtered = append(filtered, p)
			}
		}
		work = filtered
	}
	if len(work) == 0 {
		return emptyResult()
	}

	if len(work) <= target {
		return fastPath(work)
	}

	tLo, tHi := timeExtent(work, window)
	if tHi <= tLo {
		// Degenerate: all points share one instant. Treat as a single
		// bucket spanning an arbitrary unit width so invariants
		// (t_start < t_end) hold.
		tHi = tLo + 1
	}

	outliers := map[int]bool{}
	var outlierOrder []int
	if cfg.OutlierPreserve {
		outlierOrder = detectOutliers(work, cfg)
		for _, idx := range outlierOrder {
			outliers[idx] = true
		}
	}

	var starts, ends []float64
	var indexOf func(x float64) int
	numBuckets := 0

	if cfg.TemporalBucketing {
		width := snapBucketWidth((tHi - tLo) / float64(target))
		numBuckets = int(math.Ceil((tHi - tLo) / width))
		if numBuckets < 1 {
			numBuckets = 1
		}
		starts = make([]float64, numBuckets)
		ends = make([]float64, numBuckets)
		for i := 0; i < numBuckets; i++ {
			starts[i] = tLo + float64(i)*width
			ends[i] = tLo + float64(i+1)*width
		}
		ends[numBuckets-1] = tHi // final boundary inclusive on the right
		indexOf = func(x float64) int {
			idx := int(math.Floor((x - tLo) / width))
			if idx < 0 {
				idx = 0
			}
			if idx >= numBuckets {
				idx = numBuckets - 1
			}
			return idx
		}
	} else {
		numBuckets = target
		if numBuckets > len(work) {
			numBuckets = len(work)
		}
		perBucket := int(math.Ceil(float64(len(work)) / float64(numBuckets)))
		starts = make([]float64, numBuckets)
		ends = make([]float64, numBuckets)
		for i := 0; i < numBuckets; i++ {
			lo := i * perBucket
			hi := lo + perBucket - 1
			if hi >= len(work) {
				hi = len(work) - 1
			}
			starts[i] = work[lo].X
			ends[i] = work[hi].X
			if starts[i] >= ends[i] {
				ends[i] = starts[i] + 1
			}
		}
		indexOf = func(x float64) int {
			for i := 0; i < numBuckets; i++ {
				if x <= ends[i] || i == numBuckets-1 {
					return i
				}
			}
			return numBuckets - 1
		}
	}

	pointsByBucket := make([][]int, numBuckets)
	for i, p := range work {
		bi := indexOf(p.X)
		pointsByBucket[bi] = append(pointsByBucket[bi], i)
	}

	result := LODResult{TotalPoints: len(points)}
	for bi := 0; bi < numBuckets; bi++ {
		idxs := pointsByBucket[bi]
		if len(idxs) == 0 {
			continue
		}
		bucket := buildBucket(work, idxs, starts[bi], ends[bi], bi, outliers, cfg)
		result.Buckets = append(result.Buckets, bucket)
		result.OutlierCount += len(bucket.Outliers)
	}

	result.SampledPoints = len(result.Buckets)
	if result.SampledPoints == 0 {
		return emptyResult()
	}
	result.CompressionRatio = float64(result.TotalPoints) / float64(result.SampledPoints)
	result.Level = levelForRatio(result.CompressionRatio)
	return result
}

// fastPath emits one bucket per point when len(points) <= target.
func fastPath(points []data.DataPoint) LODResult {
	buckets := make([]LODBucket, len(points))
	for i, p := range points {
		lo := p.X
		if i > 0 {
			lo = midpoint(points[i-1].X, p.X)
		}
		hi := p.X + 1
		if i < len(points)-1 {
			hi = midpoint(p.X, points[i+1].X)
		}
		if hi <= lo {
			hi = lo + 1
		}
		y := p.Y
		bucket := LODBucket{
			TStart: lo, TEnd: hi,
			Count:          1,
			Representative: p,
		}
		if p.IsFinite() {
			bucket.MinY, bucket.MaxY, bucket.AvgY = y, y, y
		}
		buckets[i] = bucket
	}
	n := len(points)
	return LODResult{
		Buckets:          buckets,
		TotalPoints:      n,
		SampledPoints:    n,
		CompressionRatio: 1,
		Level:            Full,
	}
}

func midpoint(a, b float64) float64 { return 0.5 * (a + b) }

// timeExtent computes [tLo,tHi] from an explicit window or from the input's
// own x extrema.
func timeExtent(points []data.DataPoint, window *TimeWindow) (float64, float64) {
	if window != nil {
		return window.Lo, window.Hi
	}
	lo, hi := points[0].X, points[0].X
	for _, p := range points[1:] {
		if p.X < lo {
			lo = p.X
		}
		if p.X > hi {
			hi = p.X
		}
	}
	return lo, hi
}

// snapBucketWidth snaps a raw bucket width to the nearest value on the
// fixed nice-ladder, measured in log space so that the ladder's wide
// dynamic range snaps intuitively rather than always collapsing to its
// extremes.
func snapBucketWidth(raw float64) float64 {
	if raw <= niceLadder[0] {
		return niceLadder[0]
	}
	last := niceLadder[len(niceLadder)-1]
	if raw >= last {
		return last
	}
	logRaw := math.Log(raw)
	best := niceLadder[0]
	bestDist := math.Inf(1)
	for _, v := range niceLadder {
		d := math.Abs(math.Log(v) - logRaw)
		if d < bestDist {
			bestDist = d
			best = v
		}
	}
	return best
}

// buildBucket aggregates one bucket's points into min/max/avg, attaches
// any capped outliers among the bucket's own points, and selects the
// representative point per the engine's rules.
func buildBucket(points []data.DataPoint, idxs []int, start, end float64, bucketIndex int, outliers map[int]bool, cfg Config) LODBucket {
	b := LODBucket{TStart: start, TEnd: end, Count: len(idxs)}

	var mm minmax.F64
	mm.SetInfinity()
	sum := 0.0
	finiteCount := 0
	for _, i := range idxs {
		p := points[i]
		if !p.IsFinite() {
			continue
		}
		mm.FitValue(p.Y)
		sum += p.Y
		finiteCount++
	}
	if finiteCount > 0 {
		b.MinY, b.MaxY = mm.Min, mm.Max
		b.AvgY = sum / float64(finiteCount)
	}

	var bucketOutliers []int
	if cfg.OutlierPreserve {
		for _, i := range idxs {
			if outliers[i] {
				bucketOutliers = append(bucketOutliers, i)
			}
		}
	}
	sort.Slice(bucketOutliers, func(a, c int) bool {
		return points[bucketOutliers[a]].X < points[bucketOutliers[c]].X
	})
	for _, i := range bucketOutliers {
		b.Outliers = append(b.Outliers, points[i])
	}

	b.Representative = pickRepresentative(points, idxs, bucketOutliers, b, bucketIndex, cfg)
	return b
}

// pickRepresentative implements the per-bucket representative selection
// rules of the LOD contract.
func pickRepresentative(points []data.DataPoint, idxs, bucketOutliers []int, b LODBucket, bucketIndex int, cfg Config) data.DataPoint {
	if len(bucketOutliers) > 0 {
		best := bucketOutliers[0]
		bestExtremity := math.Abs(points[best].Y - b.AvgY)
		for _, i := range bucketOutliers[1:] {
			e := math.Abs(points[i].Y - b.AvgY)
			if e > bestExtremity || (e == bestExtremity && points[i].X < points[best].X) {
				bestExtremity = e
				best = i
			}
		}
		return points[best]
	}

	if b.MaxY == b.MinY {
		// Degenerate bucket: max == min (including the zero-finite-point
		// case, where both default to zero). First point by x.
		return firstByX(points, idxs)
	}

	if cfg.Envelope {
		r := (b.AvgY - b.MinY) / (b.MaxY - b.MinY)
		switch {
		case r > 0.7:
			return earliestAchieving(points, idxs, b.MaxY)
		case r < 0.3:
			return earliestAchieving(points, idxs, b.MinY)
		}
		// 0.3 <= r <= 0.7: fall through to the synthetic bucket average.
	}

	return data.DataPoint{
		X:  midpoint(b.TStart, b.TEnd),
		Y:  b.AvgY,
		ID: syntheticID(bucketIndex),
	}
}

func syntheticID(bucketIndex int) string {
	return "bucket-" + strconv.Itoa(bucketIndex) + "-avg"
}

func earliestAchieving(points []data.DataPoint, idxs []int, y float64) data.DataPoint {
	best := -1
	for _, i := range idxs {
		p := points[i]
		if !p.IsFinite() || p.Y != y {
			continue
		}
		if best == -1 || p.X < points[best].X {
			best = i
		}
	}
	if best == -1 {
		return firstByX(points, idxs)
	}
	return points[best]
}

func firstByX(points []data.DataPoint, idxs []int) data.DataPoint {
	best := idxs[0]
	for _, i := range idxs[1:] {
		if points[i].X < points[best].X {
			best = i
		}
	}
	return points[best]
}
