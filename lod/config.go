package lod

// OutlierMethod selects the statistical test used to flag anomalous
// points before bucketing.
type OutlierMethod int

const (
	// ZScore flags points more than Threshold standard deviations from the
	// dataset mean. Requires at least 3 finite points; if the standard
	// deviation is zero, no outliers are flagged.
	ZScore OutlierMethod = iota
	// IQR flags points outside [Q1-1.5*IQR, Q3+1.5*IQR]. Requires at least
	// 4 finite points.
	IQR
	// MAD flags points more than Threshold median-absolute-deviations from
	// the dataset median. Requires at least 3 finite points; if the MAD is
	// zero, no outliers are flagged.
	MAD
)

// String implements fmt.Stringer.
func (m OutlierMethod) String() string {
	switch m {
	case ZScore:
		return "zscore"
	case IQR:
		return "iqr"
	case MAD:
		return "mad"
	default:
		return "unknown"
	}
}

// Config tunes the LOD engine's behavior. The zero value is not directly
// usable; use DefaultConfig to get sane defaults, then override fields.
type Config struct {
	// TemporalBucketing, when true (the default), buckets points by a
	// nice-ladder-snapped time width. When false, points are bucketed by
	// contiguous count instead (target buckets of roughly equal size).
	TemporalBucketing bool

	// Envelope, when true (the default), lets the per-bucket envelope
	// position (min/avg/max ratio) choose the representative point.
	// When false, every non-outlier bucket with max > min uses the
	// synthetic bucket-average representative.
	Envelope bool

	// OutlierPreserve, when true (the default), runs outlier detection and
	// guarantees flagged points survive in LODBucket.Outliers.
	OutlierPreserve bool

	// ZoomRefine, when true (the default), allows Engine.ZoomRefine to
	// narrow the time window and re-run downsampling at higher target
	// resolution. When false, ZoomRefine degrades to a plain Downsample
	// over the full input, ignoring the requested window.
	ZoomRefine bool

	// OutlierMethod selects the statistical test. Default ZScore.
	OutlierMethod OutlierMethod

	// OutlierThreshold is the z-score or MAD multiplier. Ignored by IQR,
	// which always uses the fixed 1.5*IQR Tukey fence. Default 3.0.
	OutlierThreshold float64

	// MaxOutlierPercent caps the fraction of input points (0-100) that may
	// be flagged as outliers, keeping the most extreme first. Default 10.
	MaxOutlierPercent float64
}

// DefaultConfig returns the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		TemporalBucketing: true,
		Envelope:          true,
		OutlierPreserve:   true,
		ZoomRefine:        true,
		OutlierMethod:     ZScore,
		OutlierThreshold:  3.0,
		MaxOutlierPercent: 10,
	}
}

// niceLadder is the fixed set of "nice" millisecond-normalized bucket
// widths that raw bucket widths snap to.
var niceLadder = []float64{
	1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000, 60000,
	300000, 600000, 3600000, 18000000, 36000000, 86400000, 604800000,
}
