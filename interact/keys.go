package interact

import (
	"github.com/google/uuid"

	"github.com/hybridviz/renderengine/data"
	"github.com/hybridviz/renderengine/vevents"
)

// Key identifies a keyboard-navigation input the coordinator understands.
type Key int

const (
	KeyLeft Key = iota
	KeyRight
	KeyUp
	KeyDown
	KeyEnter
	KeyEscape
)

// HandleKey applies one keyboard-navigation input. It is a no-op when
// keyboard_nav_on is disabled; the four arrow keys also do nothing when no
// series set is attached. Left/Right
// step the current point within the current series (no wraparound: they
// clamp at the ends, since the spec leaves wraparound optional and this
// module does not enable it by default). Up/Down switch the current
// series. Enter adds the current hover to the selection. Escape clears the
// selection.
func (c *Coordinator) HandleKey(k Key) {
	if !c.cfg.KeyboardNavOn {
		return
	}
	switch k {
	case KeyLeft:
		c.stepPoint(-1)
	case KeyRight:
		c.stepPoint(1)
	case KeyUp:
		c.stepSeries(-1)
	case KeyDown:
		c.stepSeries(1)
	case KeyEnter:
		c.selectHover()
	case KeyEscape:
		c.ClearSelection()
	}
}

func (c *Coordinator) stepPoint(delta int) {
	if len(c.seriesSet) == 0 {
		return
	}
	s := c.currentSeries()
	if s == nil || s.Len() == 0 {
		return
	}
	next := c.curPointIdx + delta
	if next < 0 {
		next = 0
	}
	if next >= s.Len() {
		next = s.Len() - 1
	}
	c.curPointIdx = next
}

func (c *Coordinator) stepSeries(delta int) {
	if len(c.seriesSet) == 0 {
		return
	}
	next := c.curSeriesIdx + delta
	if next < 0 {
		next = 0
	}
	if next >= len(c.seriesSet) {
		next = len(c.seriesSet) - 1
	}
	c.curSeriesIdx = next
	c.curPointIdx = 0
}

func (c *Coordinator) currentSeries() *data.Series {
	if c.curSeriesIdx < 0 || c.curSeriesIdx >= len(c.seriesSet) {
		return nil
	}
	return c.seriesSet[c.curSeriesIdx]
}

func (c *Coordinator) selectHover() {
	if c.hover == nil {
		return
	}
	k := keyForHit(*c.hover)
	c.selection[k] = struct{}{}
	c.state = Selecting
	c.emit(vevents.SelectionChanged, SelectionPayload{Selection: c.Selection(), SnapshotID: uuid.NewString()})
}
