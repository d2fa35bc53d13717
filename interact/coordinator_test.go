package interact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridviz/renderengine/data"
	"github.com/hybridviz/renderengine/spatial"
	"github.com/hybridviz/renderengine/threshold"
	"github.com/hybridviz/renderengine/vevents"
)

type identityScale struct{}

func (identityScale) ToPixel(v float64) float64 { return v }
func (identityScale) ToData(v float64) float64  { return v }

func testViewport() data.Viewport {
	return data.Viewport{WidthPx: 200, HeightPx: 200, XScale: identityScale{}, YScale: identityScale{}}
}

func testSeries() []*data.Series {
	return []*data.Series{
		{ID: "s1", Visible: true, Data: []data.DataPoint{
			{X: 10, Y: 10}, {X: 50, Y: 50}, {X: 90, Y: 90},
		}},
	}
}

func newTestCoordinator(t *testing.T) (*Coordinator, *float64) {
	bus := vevents.New()
	cfg := threshold.DefaultConfig(threshold.ClassDefault)
	clock := 0.0
	c := NewCoordinator(cfg, bus, func() float64 { return clock })
	seriesSet := testSeries()
	idx := spatial.Build(seriesSet, testViewport(), cfg.HoverRadius)
	c.Attach(idx, testViewport(), seriesSet)
	require.NotNil(t, c)
	return c, &clock
}

func TestHoverDebounceFiresOnTick(t *testing.T) {
	c, clock := newTestCoordinator(t)
	c.MouseMove(10, 10)
	assert.Nil(t, c.Hover(), "hover must not fire before debounce deadline")

	*clock = c.cfg.HoverDebounceMs
	c.Tick(*clock)
	require.NotNil(t, c.Hover())
	assert.Equal(t, "s1", c.Hover().SeriesID)
}

func TestMouseLeaveClearsHoverImmediately(t *testing.T) {
	c, clock := newTestCoordinator(t)
	c.MouseMove(10, 10)
	*clock = c.cfg.HoverDebounceMs
	c.Tick(*clock)
	require.NotNil(t, c.Hover())

	var sawCleared bool
	c.bus.Subscribe(vevents.HoverCleared, func(vevents.Event) { sawCleared = true })
	c.MouseLeave()
	assert.Nil(t, c.Hover())
	assert.True(t, sawCleared)
}

func TestClickTogglesSelection(t *testing.T) {
	c, clock := newTestCoordinator(t)
	*clock = 0
	c.Click(10, 10)
	assert.Len(t, c.Selection(), 1)

	*clock = 1000 // well past double_click_ms, so this is a second single click
	c.Click(10, 10)
	assert.Len(t, c.Selection(), 0, "second click on the same point toggles it back off")
}

func TestDoubleClickEmitsZoomResetWithoutTogglingSelection(t *testing.T) {
	c, clock := newTestCoordinator(t)
	var zoomResets int
	c.bus.Subscribe(vevents.ZoomReset, func(vevents.Event) { zoomResets++ })

	*clock = 0
	c.Click(10, 10)
	assert.Len(t, c.Selection(), 1)

	*clock = c.cfg.DoubleClickMs - 1
	c.Click(11, 10)
	assert.Equal(t, 1, zoomResets)
	assert.Len(t, c.Selection(), 1, "double-click must not toggle selection")
}

// TestBrushEndScenario reproduces spec.md scenario 6: a brush over the
// lower-left quadrant of a set of points selects exactly the points whose
// projected pixel position falls inside it.
func TestBrushEndScenario(t *testing.T) {
	bus := vevents.New()
	cfg := threshold.DefaultConfig(threshold.ClassDefault)
	c := NewCoordinator(cfg, bus, func() float64 { return 0 })

	pts := []data.DataPoint{{X: 5, Y: 5}, {X: 50, Y: 50}, {X: 150, Y: 150}}
	seriesSet := []*data.Series{{ID: "s1", Visible: true, Data: pts}}
	vp := testViewport()
	idx := spatial.Build(seriesSet, vp, cfg.HoverRadius)
	c.Attach(idx, vp, seriesSet)

	c.BrushBegin(0, 0)
	c.BrushUpdate(100, 100)
	c.BrushEnd()

	got := c.Selection()
	assert.Len(t, got, 2)
	for _, k := range got {
		assert.Equal(t, "s1", k.SeriesID)
	}
}

// TestSelectionPersistsAcrossReattach verifies the "selection persistence"
// universal: the selection set survives a coordinator re-attach (e.g. after
// a tier transition rebuilds the spatial index).
func TestSelectionPersistsAcrossReattach(t *testing.T) {
	c, clock := newTestCoordinator(t)
	*clock = 0
	c.Click(10, 10)
	before := c.Selection()
	require.Len(t, before, 1)

	seriesSet := testSeries()
	idx := spatial.Build(seriesSet, testViewport(), c.cfg.HoverRadius)
	c.Attach(idx, testViewport(), seriesSet)

	after := c.Selection()
	assert.ElementsMatch(t, before, after)
}

func TestKeyboardNavigation(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.HandleKey(KeyRight)
	assert.Equal(t, 1, c.curPointIdx)
	c.HandleKey(KeyRight)
	c.HandleKey(KeyRight)
	assert.Equal(t, 2, c.curPointIdx, "navigation clamps at the last point")

	c.HandleKey(KeyLeft)
	assert.Equal(t, 1, c.curPointIdx)
}

func TestEnterAddsHoverToSelectionAndEscapeClears(t *testing.T) {
	c, clock := newTestCoordinator(t)
	c.MouseMove(10, 10)
	*clock = c.cfg.HoverDebounceMs
	c.Tick(*clock)
	require.NotNil(t, c.Hover())

	c.HandleKey(KeyEnter)
	assert.Len(t, c.Selection(), 1)

	c.HandleKey(KeyEscape)
	assert.Len(t, c.Selection(), 0)
}

func TestWheelDebouncesZoomIntent(t *testing.T) {
	c, clock := newTestCoordinator(t)
	var got *ZoomIntentPayload
	c.bus.Subscribe(vevents.ZoomIntent, func(ev vevents.Event) {
		p := ev.Payload.(ZoomIntentPayload)
		got = &p
	})

	c.Wheel(-1, 20, 20)
	assert.Nil(t, got)

	*clock = c.cfg.ZoomDebounceMs
	c.Tick(*clock)
	require.NotNil(t, got)
	assert.Equal(t, 1.1, got.Factor)
}

func TestAttachDrainsPendingHoverButKeepsSelection(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.Click(10, 10)
	require.Len(t, c.Selection(), 1)

	c.MouseMove(50, 50)
	require.NotNil(t, c.pendingHoverQ)

	seriesSet := testSeries()
	idx := spatial.Build(seriesSet, testViewport(), c.cfg.HoverRadius)
	c.Attach(idx, testViewport(), seriesSet)

	assert.Nil(t, c.pendingHoverQ)
	assert.Nil(t, c.Hover())
	assert.Len(t, c.Selection(), 1)
}
