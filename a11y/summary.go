// Package a11y implements the accessibility summariser: a pure function
// over a series set producing per-series statistics, a trend
// classification, capped anomaly detection, and a deterministic plain-text
// rendering suitable for a screen reader or textual fallback. It performs
// no I/O.
//
// Grounded on cogentcore.org/core/plot/data.go's float-hygiene pattern
// (ErrInfinity, NaN/Inf exclusion from aggregates) and on the minmax
// package's envelope accumulation, generalized here to full per-series
// statistics rather than a plot's axis range.
package a11y

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hybridviz/renderengine/data"
	"github.com/hybridviz/renderengine/minmax"
)

// trendEpsilon guards the trend ratio's denominator against a near-zero
// mean, per the numeric-handling rule that aggregates must never divide by
// a value that can legitimately be zero.
const trendEpsilon = 1e-9

// trendThreshold is the fraction of mean magnitude a series must move by,
// from first to last point, to be classified as anything but stable.
const trendThreshold = 0.01

// maxAnomalies caps the anomalies reported per dataset.
const maxAnomalies = 10

// Trend classifies a series's overall direction.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// SeriesStats holds one series's summary statistics.
type SeriesStats struct {
	SeriesID    string
	Name        string
	Count       int
	Min         float64
	Max         float64
	Mean        float64
	StdDev      float64
	TimeRange   minmax.F64
	Trend       Trend
	TrendStrength float64
}

// Anomaly is a single flagged point, sorted by descending severity.
type Anomaly struct {
	SeriesID string
	Point    data.DataPoint
	Severity float64 // |y - mean| / stddev
}

// Summary is the full structured accessibility summary of a series set.
type Summary struct {
	Series    []SeriesStats
	TimeRange minmax.F64
	GlobalY   minmax.F64
	Anomalies []Anomaly
}

// Summarize computes the accessibility summary for seriesSet. Non-visible
// series are still summarized: the summariser describes the dataset, not
// the current render, matching the spec's "pure function over a series
// set" contract (no viewport or visibility dependency).
func Summarize(seriesSet []*data.Series) Summary {
	var s Summary
	s.TimeRange.SetInfinity()
	s.GlobalY.SetInfinity()

	var allAnomalies []Anomaly

	for _, series := range seriesSet {
		stats, anomalies := summarizeSeries(series)
		s.Series = append(s.Series, stats)
		if stats.Count > 0 {
			s.TimeRange.FitRange(stats.TimeRange)
			s.GlobalY.FitValue(stats.Min)
			s.GlobalY.FitValue(stats.Max)
		}
		allAnomalies = append(allAnomalies, anomalies...)
	}

	sort.SliceStable(allAnomalies, func(i, j int) bool {
		return allAnomalies[i].Severity > allAnomalies[j].Severity
	})
	if len(allAnomalies) > maxAnomalies {
		allAnomalies = allAnomalies[:maxAnomalies]
	}
	s.Anomalies = allAnomalies

	return s
}

func summarizeSeries(series *data.Series) (SeriesStats, []Anomaly) {
	stats := SeriesStats{SeriesID: series.ID, Name: series.Name}
	stats.TimeRange.SetInfinity()

	var sum float64
	var yr minmax.F64
	yr.SetInfinity()

	finite := make([]data.DataPoint, 0, len(series.Data))
	for _, p := range series.Data {
		stats.TimeRange.FitValue(p.X)
		if !p.IsFinite() {
			continue
		}
		yr.FitValue(p.Y)
		sum += p.Y
		finite = append(finite, p)
	}
	stats.Count = len(finite)
	if stats.Count == 0 {
		return stats, nil
	}
	stats.Min, stats.Max = yr.Min, yr.Max
	stats.Mean = sum / float64(stats.Count)
	stats.StdDev = stddev(finite, stats.Mean)
	stats.Trend, stats.TrendStrength = classifyTrend(finite, stats.Mean, stats.Min, stats.Max)

	anomalies := detectAnomalies(series.ID, finite, stats.Mean, stats.StdDev)
	return stats, anomalies
}

func stddev(pts []data.DataPoint, mean float64) float64 {
	if len(pts) == 0 {
		return 0
	}
	var acc float64
	for _, p := range pts {
		d := p.Y - mean
		acc += d * d
	}
	return math.Sqrt(acc / float64(len(pts)))
}

func classifyTrend(pts []data.DataPoint, mean, minY, maxY float64) (Trend, float64) {
	if len(pts) < 2 {
		return TrendStable, 0
	}
	first, last := pts[0].Y, pts[len(pts)-1].Y
	delta := last - first
	ratio := delta / math.Max(math.Abs(mean), trendEpsilon)

	span := maxY - minY
	strength := 0.0
	if span > 0 {
		strength = math.Abs(delta) / span
	}
	if strength > 1 {
		strength = 1
	}

	if math.Abs(ratio) < trendThreshold {
		return TrendStable, strength
	}
	if delta > 0 {
		return TrendUp, strength
	}
	return TrendDown, strength
}

func detectAnomalies(seriesID string, pts []data.DataPoint, mean, sd float64) []Anomaly {
	if sd == 0 {
		return nil
	}
	var out []Anomaly
	for _, p := range pts {
		sev := math.Abs(p.Y-mean) / sd
		if sev > 3 {
			out = append(out, Anomaly{SeriesID: seriesID, Point: p, Severity: sev})
		}
	}
	return out
}

// Render produces a deterministic, plain-text rendering of the summary
// suitable for a screen reader or textual fallback.
func Render(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset: %d series, time range [%.4g, %.4g], value range [%.4g, %.4g].\n",
		len(s.Series), s.TimeRange.Min, s.TimeRange.Max, s.GlobalY.Min, s.GlobalY.Max)

	for _, series := range s.Series {
		name := series.Name
		if name == "" {
			name = series.SeriesID
		}
		if series.Count == 0 {
			fmt.Fprintf(&b, "%s: no data.\n", name)
			continue
		}
		fmt.Fprintf(&b, "%s: %d points, min %.4g, max %.4g, mean %.4g, stddev %.4g, trend %s (strength %.2f).\n",
			name, series.Count, series.Min, series.Max, series.Mean, series.StdDev, series.Trend, series.TrendStrength)
	}

	if len(s.Anomalies) == 0 {
		b.WriteString("No anomalies detected.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d anomalies detected:\n", len(s.Anomalies))
	for _, a := range s.Anomalies {
		fmt.Fprintf(&b, "  series %s at x=%.4g, y=%.4g (severity %.2f).\n", a.SeriesID, a.Point.X, a.Point.Y, a.Severity)
	}
	return b.String()
}
