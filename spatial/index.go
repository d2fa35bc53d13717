// Package spatial implements the uniform-grid spatial index used to answer
// nearest-point and region-contained queries consistently across every
// render tier. The index is authoritative: concrete surfaces must not
// answer hit tests from their own private structures.
package spatial

import (
	"math"
	"sort"

	"github.com/hybridviz/renderengine/data"
)

// DefaultHitRadius is the default hit-test radius in pixels, used to size
// the grid cell (cell_size = 2 * hit_radius) when none is supplied.
const DefaultHitRadius = 10.0

// Ref identifies a point by its owning series and position within it.
type Ref struct {
	SeriesID   string
	PointIndex int
}

func (r Ref) less(o Ref) bool {
	if r.SeriesID != o.SeriesID {
		return r.SeriesID < o.SeriesID
	}
	return r.PointIndex < o.PointIndex
}

// HitResult is returned by Nearest.
type HitResult struct {
	SeriesID   string
	PointIndex int
	Point      data.DataPoint
	PixelX     float64
	PixelY     float64
	Distance   float64
}

// RegionHit is one element of a PointsInRect result; it carries the series
// linkage that a bare []data.DataPoint would lose, since callers (notably
// the interaction coordinator's brush-selection) need (series_id, point)
// pairs.
type RegionHit struct {
	SeriesID   string
	PointIndex int
	Point      data.DataPoint
}

type cellKey struct{ I, J int }

type entry struct {
	ref    Ref
	px, py float64
}

// Index is a uniform grid over one viewport's projected, visible points.
// It must be rebuilt whenever the viewport or series set changes.
type Index struct {
	cellSize   float64
	hitRadius  float64
	margins    data.Margins
	cells      map[cellKey][]entry
	seriesByID map[string]*data.Series
	seriesOrd  map[string]int
}

// Build projects every visible, finite point of every series in seriesSet
// into the viewport's inner-area pixel space and inserts it into the grid.
// hitRadius <= 0 uses DefaultHitRadius.
func Build(seriesSet []*data.Series, vp data.Viewport, hitRadius float64) *Index {
	if hitRadius <= 0 {
		hitRadius = DefaultHitRadius
	}
	idx := &Index{
		cellSize:   2 * hitRadius,
		hitRadius:  hitRadius,
		margins:    vp.Margins,
		cells:      make(map[cellKey][]entry),
		seriesByID: make(map[string]*data.Series, len(seriesSet)),
		seriesOrd:  make(map[string]int, len(seriesSet)),
	}
	for i, s := range seriesSet {
		idx.seriesByID[s.ID] = s
		idx.seriesOrd[s.ID] = i
		if !s.Visible {
			continue
		}
		for pi, p := range s.Data {
			if !p.IsFinite() {
				continue // NaN/Inf render as gaps; never hit-testable.
			}
			px := vp.XScale.ToPixel(p.X)
			py := vp.YScale.ToPixel(p.Y)
			key := idx.keyFor(px, py)
			idx.cells[key] = append(idx.cells[key], entry{ref: Ref{s.ID, pi}, px: px, py: py})
		}
	}
	return idx
}

func (idx *Index) keyFor(px, py float64) cellKey {
	return cellKey{
		I: int(math.Floor(px / idx.cellSize)),
		J: int(math.Floor(py / idx.cellSize)),
	}
}

// Nearest returns the closest indexed point to (px,py) — given in the full
// viewport's pixel space, margins included, matching a raw mouse event —
// within radius pixels, scanning the 3x3 neighbourhood of grid cells
// around the query point. Returns (nil,false) if nothing is within radius.
func (idx *Index) Nearest(px, py, radius float64) (*HitResult, bool) {
	qx := px - idx.margins.Left
	qy := py - idx.margins.Top
	center := idx.keyFor(qx, qy)

	var best *entry
	bestDist := math.Inf(1)
	for di := -1; di <= 1; di++ {
		for dj := -1; dj <= 1; dj++ {
			key := cellKey{center.I + di, center.J + dj}
			for i := range idx.cells[key] {
				e := idx.cells[key][i]
				d := math.Hypot(e.px-qx, e.py-qy)
				if d < bestDist || (d == bestDist && best != nil && e.ref.less(best.ref)) {
					bestDist = d
					eCopy := e
					best = &eCopy
				}
			}
		}
	}
	if best == nil || bestDist >= radius {
		return nil, false
	}
	series := idx.seriesByID[best.ref.SeriesID]
	return &HitResult{
		SeriesID:   best.ref.SeriesID,
		PointIndex: best.ref.PointIndex,
		Point:      series.Data[best.ref.PointIndex],
		PixelX:     best.px + idx.margins.Left,
		PixelY:     best.py + idx.margins.Top,
		Distance:   bestDist,
	}, true
}

// PointsInRect returns every indexed point whose projected pixel position
// (full viewport space) falls within the inclusive rectangle [x1,y1]-[x2,y2],
// ordered by (series iteration order at Build time, point index).
func (idx *Index) PointsInRect(x1, y1, x2, y2 float64) []RegionHit {
	r := data.NewRect(x1-idx.margins.Left, y1-idx.margins.Top, x2-idx.margins.Left, y2-idx.margins.Top)

	loKey := idx.keyFor(r.X1, r.Y1)
	hiKey := idx.keyFor(r.X2, r.Y2)

	var hits []RegionHit
	for i := loKey.I; i <= hiKey.I; i++ {
		for j := loKey.J; j <= hiKey.J; j++ {
			for _, e := range idx.cells[cellKey{i, j}] {
				if !r.Contains(e.px, e.py) {
					continue
				}
				series := idx.seriesByID[e.ref.SeriesID]
				hits = append(hits, RegionHit{
					SeriesID:   e.ref.SeriesID,
					PointIndex: e.ref.PointIndex,
					Point:      series.Data[e.ref.PointIndex],
				})
			}
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		oa, ob := idx.seriesOrd[hits[a].SeriesID], idx.seriesOrd[hits[b].SeriesID]
		if oa != ob {
			return oa < ob
		}
		return hits[a].PointIndex < hits[b].PointIndex
	})
	return hits
}

// CellCount reports the number of occupied grid cells, exposed for tests
// asserting spatial-index coverage invariants.
func (idx *Index) CellCount() int { return len(idx.cells) }

// RefCount reports the total number of indexed point references.
func (idx *Index) RefCount() int {
	n := 0
	for _, es := range idx.cells {
		n += len(es)
	}
	return n
}
