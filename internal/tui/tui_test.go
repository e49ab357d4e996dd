package tui

import (
	"context"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamap/internal/datamap"
	"datamap/internal/geom"
	"datamap/internal/projection"
)

func rect(lon0, lat0, lon1, lat1 float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{lon0, lat0}, {lon1, lat0}, {lon1, lat1}, {lon0, lat1}, {lon0, lat0}}}
}

// flat maps lon/lat straight to pixels: x = 480 + lon, y = 250 - lat.
func flat(*datamap.Element, datamap.Options) (projection.Projector, error) {
	p, err := projection.New(projection.Equirectangular)
	if err != nil {
		return nil, err
	}
	return p.Scale(180/math.Pi).Translate(480, 250), nil
}

func newTestMap(t *testing.T, responsive bool) *datamap.Map {
	t.Helper()
	dm, err := datamap.New(context.Background(), datamap.NewElement("map", 960, 500), datamap.Options{
		Scope:         "test",
		Width:         960,
		Height:        500,
		Responsive:    responsive,
		SetProjection: flat,
		Fills:         datamap.Fills{"high": "#FF0000"},
		Regions: []geom.Region{
			{ID: "AAA", Name: "Alpha", Geometry: rect(-100, 0, 0, 90)},
			{ID: "BBB", Name: "Bravo", Geometry: rect(0, -90, 100, 0)},
		},
	})
	require.NoError(t, err)
	return dm
}

// sized sends a window size so the canvas is 96x25 cells: 0.2 dots per
// host pixel with no letterboxing.
func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 96, Height: 28})
	return next.(Model)
}

func press(m Model, keys string) Model {
	for _, r := range keys {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func TestBrailleBuf(t *testing.T) {
	br := newBrailleBuf(2, 1)
	br.setPixel(0, 0, nil)
	br.setPixel(1, 3, nil)
	br.setPixel(9, 9, nil)
	assert.Equal(t, []string{string(rune(0x2800+0x01+0x80)) + " "}, br.plain())

	br.clearPixel(0, 0)
	assert.Equal(t, string(rune(0x2880))+" ", br.plain()[0])

	br.putText(1, 0, "AB", lipgloss.Color("#ffffff"))
	assert.Equal(t, string(rune(0x2880))+"A", br.plain()[0])
}

func TestBrailleLine(t *testing.T) {
	br := newBrailleBuf(2, 1)
	br.drawLineMicro(0, 0, 3, 0, nil)
	assert.Equal(t, string(rune(0x2809))+string(rune(0x2809)), br.plain()[0])
}

func TestTermColor(t *testing.T) {
	cases := []struct {
		in   string
		want lipgloss.TerminalColor
	}{
		{"#F00", lipgloss.Color("#ff0000")},
		{"#ABDDA4", lipgloss.Color("#abdda4")},
		{"rgb(255, 0, 0)", lipgloss.Color("#ff0000")},
		{"rgba(0,0,255,0.5)", lipgloss.Color("#0000ff")},
		{"hsl(120, 100%, 50%)", lipgloss.Color("#00ff00")},
		{"steelblue", lipgloss.Color("#4682b4")},
		{"none", nil},
		{"", nil},
		{"papayawhip", baseFg},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, termColor(c.in), c.in)
	}
}

func TestPlainText(t *testing.T) {
	in := `<div class="hoverinfo"><strong>Texas &amp; co</strong><br/>12</div>`
	assert.Equal(t, "Texas & co\n12", plainText(in))
	assert.Equal(t, "", plainText("<>"))
}

func TestRasterRegions(t *testing.T) {
	dm := newTestMap(t, false)
	dm.UpdateChoropleth(map[string]any{"AAA": map[string]any{"fillKey": "high"}}, datamap.ChoroplethOptions{})
	m := sized(t, New(dm))

	br := m.raster(96, 25)
	// AAA covers host pixels x 380..480, y 160..250: cells 38..48 x 8..12
	r, col := br.glyph(43, 10)
	assert.Equal(t, '⣿', r)
	assert.Equal(t, lipgloss.Color("#ff0000"), col)

	// BBB keeps the default fill
	_, col = br.glyph(53, 15)
	assert.Equal(t, lipgloss.Color("#abdda4"), col)

	// outside every region
	r, _ = br.glyph(2, 2)
	assert.Equal(t, ' ', r)
}

func TestRasterBubblesAndArcs(t *testing.T) {
	dm := newTestMap(t, false)
	require.NoError(t, dm.Bubbles([]any{
		map[string]any{"latitude": -80.0, "longitude": -170.0, "radius": 10.0, "fillColor": "#0000FF"},
	}, nil))
	require.NoError(t, dm.Arc([]any{
		map[string]any{"origin": "AAA", "destination": "BBB"},
	}, geom.Record{"strokeColor": "#00FF00"}))

	m := sized(t, New(dm))
	br := m.raster(96, 25)
	// the bubble centre sits at host (310, 330)
	_, col := br.glyph(31, 16)
	assert.Equal(t, lipgloss.Color("#0000ff"), col)

	m.toggleLayer("bubbles")
	br = m.raster(96, 25)
	r, _ := br.glyph(31, 16)
	assert.Equal(t, ' ', r)
	assert.Contains(t, m.status, "bubbles: off")
}

func TestMouseHover(t *testing.T) {
	m := sized(t, New(newTestMap(t, false)))

	next, _ := m.Update(tea.MouseMsg{X: 43, Y: 1 + 10, Action: tea.MouseActionMotion})
	m = next.(Model)
	require.NotNil(t, m.dm.Hovered())
	s, ok := m.dm.ShapeOf(m.dm.Hovered())
	require.True(t, ok)
	assert.Equal(t, "AAA", s.ID)
	assert.True(t, m.hovering)
	assert.Contains(t, m.View(), "Alpha")

	// off the canvas
	next, _ = m.Update(tea.MouseMsg{X: 43, Y: 0, Action: tea.MouseActionMotion})
	m = next.(Model)
	assert.Nil(t, m.dm.Hovered())
	assert.False(t, m.hovering)
}

func TestMouseSeesThroughHiddenLayers(t *testing.T) {
	m := sized(t, New(newTestMap(t, false)))
	at := newViewport(m.dm, m.mapW, m.mapH).host(43-m.mapX, 11-m.mapY)
	require.NoError(t, m.dm.Bubbles([]any{
		map[string]any{"latitude": 250 - at[1], "longitude": at[0] - 480, "radius": 10.0},
	}, nil))

	hovered := func() datamap.Shape {
		t.Helper()
		require.NotNil(t, m.dm.Hovered())
		s, ok := m.dm.ShapeOf(m.dm.Hovered())
		require.True(t, ok)
		return s
	}

	next, _ := m.Update(tea.MouseMsg{X: 43, Y: 11, Action: tea.MouseActionMotion})
	m = next.(Model)
	assert.Equal(t, datamap.ShapeBubble, hovered().Kind)

	// hiding the layer hands the hover to the region beneath
	m.toggleLayer("bubbles")
	assert.Equal(t, "AAA", hovered().ID)

	next, _ = m.Update(tea.MouseMsg{X: 43, Y: 11, Action: tea.MouseActionMotion})
	m = next.(Model)
	assert.Equal(t, "AAA", hovered().ID)
	assert.True(t, m.hovering)
}

func TestMouseWheelZooms(t *testing.T) {
	m := sized(t, New(newTestMap(t, false)))
	next, _ := m.Update(tea.MouseMsg{X: 48, Y: 13, Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	m = next.(Model)
	assert.InDelta(t, zoomStep, m.dm.ZoomTransform().K, 1e-9)
}

func TestZoomAndPanKeys(t *testing.T) {
	m := sized(t, New(newTestMap(t, false)))

	m = press(m, "+")
	assert.InDelta(t, 1.5, m.dm.ZoomTransform().K, 1e-9)
	assert.Equal(t, "zoom: 1.50x", m.status)

	before := m.dm.ZoomTransform()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(Model)
	assert.InDelta(t, before.X+panStep, m.dm.ZoomTransform().X, 1e-9)

	m = press(m, "0")
	assert.Equal(t, datamap.ZoomTransform{K: 1}, m.dm.ZoomTransform())
}

func TestToggleLabelsAndGraticule(t *testing.T) {
	m := sized(t, New(newTestMap(t, false), WithLabelOptions(geom.Record{"labelColor": "#FFFFFF"})))

	m = press(m, "t")
	require.NotNil(t, m.dm.Layer("labels"))
	assert.Contains(t, strings.Join(m.raster(96, 25).plain(), "\n"), "AAA")

	m = press(m, "t")
	assert.Nil(t, m.dm.Layer("labels"))
	assert.Equal(t, "labels: off", m.status)

	m = press(m, "g")
	assert.NotNil(t, m.dm.Layer("graticule"))
}

func TestLegend(t *testing.T) {
	m := sized(t, New(newTestMap(t, false), WithLegendOptions(geom.Record{"legendTitle": "Key"})))
	assert.Empty(t, m.renderLegend())

	m.toggleLayer("legend")
	legend := m.renderLegend()
	assert.Contains(t, legend, "Key")
	assert.Contains(t, legend, "high: ")
}

func TestLayerSidebar(t *testing.T) {
	m := sized(t, New(newTestMap(t, false)))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	require.True(t, m.showSidebar)
	x, _, w, _ := m.layout()
	assert.Equal(t, sidebarWidth+1, x)
	assert.Equal(t, 96-sidebarWidth-1, w)

	// first item is the graticule
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	assert.NotNil(t, m.dm.Layer("graticule"))
	it := m.l.Items()[0].(layerItem)
	assert.Equal(t, "[x] graticule", it.Title())
}

func TestPasteChoropleth(t *testing.T) {
	m := sized(t, New(newTestMap(t, false)))
	m = press(m, "p")
	require.True(t, m.pasteMode)

	m.ta.SetValue(`{"BBB":{"fillKey":"high","votes":7}}`)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	assert.False(t, m.pasteMode)
	assert.Equal(t, "updated 1 regions", m.status)
	assert.Equal(t, "high", m.dm.Data().Lookup("BBB")["fillKey"])

	m = press(m, "p")
	m.ta.SetValue(`{"BBB":`)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	assert.True(t, m.pasteMode)
	assert.True(t, strings.HasPrefix(m.status, "paste: "))
}

func TestDataTable(t *testing.T) {
	dm := newTestMap(t, false)
	dm.UpdateChoropleth(map[string]any{"AAA": map[string]any{"fillKey": "high", "votes": 12.0}}, datamap.ChoroplethOptions{})
	m := sized(t, New(dm))

	cols, rows := m.buildAttributes()
	assert.Equal(t, []string{"id", "name", "fill", "fillKey", "votes"}, cols)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"AAA", "Alpha", "#FF0000", "high", "12"}, rows[0])
	assert.Equal(t, []string{"BBB", "Bravo", "#ABDDA4", "", ""}, rows[1])

	m = press(m, "a")
	assert.True(t, m.showAttrs)
	assert.Len(t, m.tbl.Rows(), 2)
}

func TestResizeResponsive(t *testing.T) {
	m := sized(t, New(newTestMap(t, true)))
	assert.InDelta(t, 192, m.dm.Width(), 0.001)
	assert.InDelta(t, 100, m.dm.Height(), 0.001)
}
