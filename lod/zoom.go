package lod

import "github.com/hybridviz/renderengine/data"

// ZoomRefine downsamples the visible sub-window [zLo,zHi] of points at up
// to double the resolution of the base target, per the engine's zoom
// refinement rule. If cfg.ZoomRefine is false, it degrades to a plain
// Downsample over the full input, ignoring the window.
func ZoomRefine(points []data.DataPoint, zLo, zHi float64, target int, cfg Config) LODResult {
	if !cfg.ZoomRefine {
		return Downsample(points, target, cfg, nil)
	}

	visible := make([]data.DataPoint, 0, len(points))
	for _, p := range points {
		if p.X >= zLo && p.X <= zHi {
			visible = append(visible, p)
		}
	}
	if len(visible) == 0 {
		return emptyResult()
	}

	refinedTarget := 2 * target
	if len(visible) < refinedTarget {
		refinedTarget = len(visible)
	}
	if refinedTarget <= 0 {
		return emptyResult()
	}

	return Downsample(visible, refinedTarget, cfg, &TimeWindow{Lo: zLo, Hi: zHi})
}
