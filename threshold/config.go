// Package threshold implements the device-class heuristic, the tier
// threshold table, configuration validation/clamping, and the optional
// session-backed store for runtime threshold overrides described in the
// engine's external-interfaces contract.
//
// Device-class detection and runtime overrides are process-wide concerns;
// this package isolates them behind an explicit Config value obtained once
// at engine construction, per the engine's "mutable global state" design
// note, rather than package-level globals.
package threshold

import (
	"github.com/hybridviz/renderengine/lod"
	"github.com/hybridviz/renderengine/vevents"
)

// Class is a device capability tier used to pick default thresholds.
type Class string

const (
	ClassDefault  Class = "default"
	ClassMobile   Class = "mobile"
	ClassLowPower Class = "low-power"
	ClassHighPerf Class = "high-perf"
)

// ReducedMotion controls the a11y reduced-motion hint.
type ReducedMotion string

const (
	ReducedMotionAuto   ReducedMotion = "auto"
	ReducedMotionAlways ReducedMotion = "always"
	ReducedMotionNever  ReducedMotion = "never"
)

// Config aggregates every configuration option named in the engine's
// external-interfaces table.
type Config struct {
	Class Class `json:"class"`

	// Absolute-count tier boundaries.
	VecToRas   float64 `json:"vec_to_ras"`
	RasToAccel float64 `json:"ras_to_accel"`

	// Density-based boundaries (points per pixel).
	PPPVec   float64 `json:"ppp_vec"`
	PPPRas   float64 `json:"ppp_ras"`
	PPPAccel float64 `json:"ppp_accel"`

	// ForceTier overrides auto-selection when non-nil.
	ForceTier  *string `json:"force_tier,omitempty"`
	AutoDetect bool    `json:"auto_detect"`

	TargetFrameTimeMs float64 `json:"target_frame_time_ms"`
	MaxFrameTimeMs    float64 `json:"max_frame_time_ms"`

	AutoDegrade           bool `json:"auto_degrade"`
	DegradeFrameThreshold int  `json:"degrade_frame_threshold"`

	TemporalBucketing bool               `json:"temporal_bucketing"`
	Envelope          bool               `json:"envelope"`
	OutlierPreserve   bool               `json:"outlier_preserve"`
	ZoomRefine        bool               `json:"zoom_refine"`
	OutlierMethod     lod.OutlierMethod  `json:"-"`
	OutlierThreshold  float64            `json:"outlier_threshold"`
	MaxOutlierPercent float64            `json:"max_outlier_percent"`

	HoverRadius     float64 `json:"hover_radius"`
	SelectionRadius float64 `json:"selection_radius"`
	HoverDebounceMs float64 `json:"hover_debounce_ms"`
	ZoomDebounceMs  float64 `json:"zoom_debounce_ms"`
	DoubleClickMs   float64 `json:"double_click_ms"`
	KeyboardNavOn   bool    `json:"keyboard_nav_on"`

	ReducedMotion ReducedMotion `json:"reduced_motion"`
	HighContrast  bool          `json:"high_contrast"`
}

// thresholdsByClass holds the tier boundary table from the engine's tier
// engine spec, keyed by device class.
var thresholdsByClass = map[Class][5]float64{
	// [vec->ras, ras->accel, ppp_vec, ppp_ras, ppp_accel]
	ClassDefault:  {5000, 50000, 0.5, 5, 50},
	ClassMobile:   {2000, 20000, 0.3, 3, 30},
	ClassLowPower: {3000, 30000, 0.4, 4, 40},
	ClassHighPerf: {10000, 100000, 1.0, 10, 100},
}

// DefaultConfig returns the documented defaults for the given device
// class. Unknown classes fall back to ClassDefault's numbers.
func DefaultConfig(class Class) Config {
	t, ok := thresholdsByClass[class]
	if !ok {
		class = ClassDefault
		t = thresholdsByClass[ClassDefault]
	}
	return Config{
		Class:      class,
		VecToRas:   t[0],
		RasToAccel: t[1],
		PPPVec:     t[2],
		PPPRas:     t[3],
		PPPAccel:   t[4],
		AutoDetect: true,

		TargetFrameTimeMs: 16.67,
		MaxFrameTimeMs:    33.33,

		AutoDegrade:           true,
		DegradeFrameThreshold: 10,

		TemporalBucketing: true,
		Envelope:          true,
		OutlierPreserve:   true,
		ZoomRefine:        true,
		OutlierMethod:     lod.ZScore,
		OutlierThreshold:  3.0,
		MaxOutlierPercent: 10,

		HoverRadius:     10,
		SelectionRadius: 15,
		HoverDebounceMs: 16,
		ZoomDebounceMs:  50,
		DoubleClickMs:   300,
		KeyboardNavOn:   true,

		ReducedMotion: ReducedMotionAuto,
	}
}

// LODConfig projects the LOD-relevant fields of Config into a lod.Config.
func (c Config) LODConfig() lod.Config {
	return lod.Config{
		TemporalBucketing: c.TemporalBucketing,
		Envelope:          c.Envelope,
		OutlierPreserve:   c.OutlierPreserve,
		ZoomRefine:        c.ZoomRefine,
		OutlierMethod:     c.OutlierMethod,
		OutlierThreshold:  c.OutlierThreshold,
		MaxOutlierPercent: c.MaxOutlierPercent,
	}
}

// Validate clamps invalid thresholds in place and reports what it clamped
// as a warning log line via bus.Warn; no bus event is emitted for a clamp.
// bus may be nil, in which case clamping still happens silently.
func (c *Config) Validate(bus *vevents.Bus) {
	if c.VecToRas < 100 {
		warn(bus, "vec_to_ras below minimum; clamped", "vec_to_ras", c.VecToRas)
		c.VecToRas = 100
	}
	if c.RasToAccel < c.VecToRas {
		warn(bus, "ras_to_accel below vec_to_ras; clamped", "ras_to_accel", c.RasToAccel)
		c.RasToAccel = c.VecToRas
	}
	if c.DegradeFrameThreshold < 1 {
		warn(bus, "degrade_frame_threshold below minimum; clamped", "degrade_frame_threshold", c.DegradeFrameThreshold)
		c.DegradeFrameThreshold = 1
	}
	if c.MaxFrameTimeMs <= 0 {
		warn(bus, "max_frame_time_ms non-positive; clamped", "max_frame_time_ms", c.MaxFrameTimeMs)
		c.MaxFrameTimeMs = 33.33
	}
	if c.MaxOutlierPercent < 0 {
		c.MaxOutlierPercent = 0
	}
	if c.MaxOutlierPercent > 100 {
		c.MaxOutlierPercent = 100
	}
}

func warn(bus *vevents.Bus, msg string, key string, val any) {
	if bus == nil {
		return
	}
	bus.Warn(msg, map[string]any{key: val})
}
