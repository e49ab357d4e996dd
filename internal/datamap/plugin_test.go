package datamap

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamap/internal/geom"
	"datamap/internal/projection"
	"datamap/internal/svg"
)

func byName(rec geom.Record) string {
	s, _ := rec.GetString("name")
	return s
}

func TestAddPluginAndCall(t *testing.T) {
	m := newTestMap(t, nil)

	err := m.AddPlugin("bubbles", drawBubbles)
	assert.True(t, eris.Is(err, ErrPluginExists))

	err = m.Call("nope", nil, nil, nil, false)
	assert.True(t, eris.Is(err, ErrUnknownPlugin))

	calls := 0
	require.NoError(t, m.AddPlugin("dots", func(m *Map, layer *svg.Element, data any, opts geom.Record) error {
		calls++
		layer.Append(svg.New("circle"))
		return nil
	}))

	var first *svg.Element
	require.NoError(t, m.Call("dots", nil, nil, func(layer *svg.Element) { first = layer }, false))
	require.NotNil(t, first)
	assert.True(t, first.HasClass("dots"))
	assert.Same(t, first.Parent(), m.Surface().First("datamaps-zoom"))

	var second *svg.Element
	require.NoError(t, m.Call("dots", nil, nil, func(layer *svg.Element) { second = layer }, false))
	assert.Same(t, first, second)
	assert.Len(t, first.Children(), 2)

	var third *svg.Element
	require.NoError(t, m.Call("dots", nil, nil, func(layer *svg.Element) { third = layer }, true))
	assert.NotSame(t, first, third)
	assert.Same(t, third, m.Layer("dots"))
	assert.Equal(t, 3, calls)
}

func TestBubblesRejectNonList(t *testing.T) {
	m := newTestMap(t, nil)
	zoom := m.Surface().First("datamaps-zoom")
	children := len(zoom.Children())
	rev := m.Revision()

	for _, data := range []any{"nope", map[string]any{"a": 1}, []any{1.0}} {
		err := m.Bubbles(data, nil)
		assert.True(t, eris.Is(err, ErrNotList), "%T", data)
	}
	assert.Nil(t, m.Layer("bubbles"))
	assert.Len(t, zoom.Children(), children)
	assert.Equal(t, rev, m.Revision())

	err := m.Arc(42, nil)
	assert.True(t, eris.Is(err, ErrNotList))
	assert.Nil(t, m.Layer("arc"))
}

func TestBubblesEnter(t *testing.T) {
	m := newTestMap(t, func(o *Options) {
		o.Fills = Fills{"big": "#0000FF"}
		o.Filters = map[string]string{"glow": "url(#glow)"}
	})
	require.NoError(t, m.Bubbles([]geom.Record{
		{"latitude": 5.0, "longitude": 5.0, "radius": 10.0, "name": "one", "fillKey": "big", "filterKey": "glow"},
		{"centered": "BBB", "radius": 5.0, "name": "two"},
		{"centered": "ZZZ", "radius": 5.0, "name": "lost"},
	}, nil))

	circles := m.Layer("bubbles").SelectClass("datamaps-bubble")
	require.Len(t, circles, 2)

	one := circles[0]
	assert.Equal(t, "circle", one.Tag)
	assert.InDelta(t, 485, one.NumAttr("cx"), 0.001)
	assert.InDelta(t, 245, one.NumAttr("cy"), 0.001)
	assert.Equal(t, 10.0, one.NumAttr("r"))
	a, ok := one.Animation("r")
	require.True(t, ok)
	assert.Equal(t, "0", a.From)
	assert.Equal(t, "10", a.To)
	assert.Equal(t, 400*time.Millisecond, a.Dur)
	assert.Equal(t, "#0000FF", one.Style("fill"))
	assert.Equal(t, "#FFFFFF", one.Style("stroke"))
	assert.Equal(t, "2", one.Style("stroke-width"))
	assert.Equal(t, "0.75", one.Style("fill-opacity"))
	filter, _ := one.Attr("filter")
	assert.Equal(t, "url(#glow)", filter)

	two := circles[1]
	assert.InDelta(t, 505, two.NumAttr("cx"), 0.001)
	assert.InDelta(t, 245, two.NumAttr("cy"), 0.001)
	assert.Equal(t, "#ABDDA4", two.Style("fill"))
}

func TestBubblesWithoutAnimation(t *testing.T) {
	m := newTestMap(t, nil)
	require.NoError(t, m.Bubbles([]geom.Record{{"latitude": 1.0, "longitude": 1.0, "radius": 4.0}},
		geom.Record{"animate": false}))
	c := m.Layer("bubbles").First("datamaps-bubble")
	require.NotNil(t, c)
	assert.Equal(t, 4.0, c.NumAttr("r"))
	assert.Empty(t, c.Animations())
}

func TestBubblesUpdateAndExit(t *testing.T) {
	m := newTestMap(t, func(o *Options) { o.Bubbles.Key = byName })
	require.NoError(t, m.Bubbles([]geom.Record{
		{"latitude": 5.0, "longitude": 5.0, "radius": 10.0, "name": "one"},
		{"latitude": 5.0, "longitude": 25.0, "radius": 5.0, "name": "two"},
	}, nil))
	layer := m.Layer("bubbles")
	before := layer.Children()
	require.Len(t, before, 2)
	one, two := before[0], before[1]

	require.NoError(t, m.Bubbles([]geom.Record{
		{"latitude": 5.0, "longitude": 5.0, "radius": 20.0, "name": "one"},
		{"latitude": 5.0, "longitude": 45.0, "radius": 3.0, "name": "three"},
	}, nil))

	after := layer.Children()
	require.Len(t, after, 3)
	assert.Same(t, one, after[0], "kept bubble is updated in place")
	assert.Equal(t, 20.0, one.NumAttr("r"))
	a, _ := one.Animation("r")
	assert.Equal(t, "10", a.From)
	assert.Equal(t, "20", a.To)
	info, _ := one.Attr("data-info")
	assert.Contains(t, info, `"radius":20`)

	assert.True(t, two.Exiting())
	assert.Equal(t, 0.0, two.NumAttr("r"))
	exit, _ := two.Animation("r")
	assert.Equal(t, 100*time.Millisecond, exit.Begin)

	three := after[2]
	assert.InDelta(t, 525, three.NumAttr("cx"), 0.001)
	enter, _ := three.Animation("r")
	assert.Equal(t, "0", enter.From)

	assert.Same(t, m.regionElement("BBB"), m.HitTest(505, 245), "exiting bubbles are not interactive")
	assert.Equal(t, 1, m.Settle())
	assert.Len(t, layer.Children(), 2)
	_, ok := m.ShapeOf(two)
	assert.False(t, ok)
}

func TestPointerMoveExceptSkipsLayer(t *testing.T) {
	m := newTestMap(t, nil)
	require.NoError(t, m.Bubbles([]geom.Record{
		{"latitude": 5.0, "longitude": 5.0, "radius": 3.0, "name": "one"},
	}, nil))
	c := m.Layer("bubbles").First("datamaps-bubble")
	require.NotNil(t, c)
	layer := m.Layer("bubbles")
	inBubbles := func(el *svg.Element) bool { return el.Parent() == layer }

	assert.Same(t, c, m.PointerMove(486, 245))
	aaa := m.regionElement("AAA")
	assert.Same(t, aaa, m.HitTestExcept(486, 245, inBubbles))
	assert.Same(t, aaa, m.PointerMoveExcept(486, 245, inBubbles))
	assert.Same(t, aaa, m.Hovered())
	assert.Equal(t, "#FC8D59", aaa.Style("fill"))
	assert.NotEqual(t, "#FC8D59", c.Style("fill"))
}

func TestBubbleHover(t *testing.T) {
	m := newTestMap(t, nil)
	require.NoError(t, m.Bubbles([]geom.Record{
		{"latitude": 5.0, "longitude": 5.0, "radius": 3.0, "name": "one"},
	}, nil))
	c := m.Layer("bubbles").First("datamaps-bubble")
	require.NotNil(t, c)
	before := c.String()

	assert.Same(t, c, m.PointerMove(486, 245), "bubble paints above its region")
	assert.Equal(t, "#FC8D59", c.Style("fill"))
	assert.Equal(t, "0.85", c.Style("fill-opacity"))
	assert.Equal(t, "rgba(250, 15, 160, 0.2)", c.Style("stroke"))
	assert.Equal(t, "1", c.Style("stroke-opacity"))
	content, shown := m.Popup()
	assert.True(t, shown)
	assert.Equal(t, `<div class="hoverinfo"><strong>one</strong></div>`, content)

	m.PointerLeave()
	assert.Equal(t, before, c.String())
	_, shown = m.Popup()
	assert.False(t, shown)
}

func TestBubbleHighlightFromRecord(t *testing.T) {
	m := newTestMap(t, func(o *Options) {
		o.Bubbles.HighlightOnHover = FromRecord(func(rec geom.Record) bool { return byName(rec) == "hot" })
	})
	require.NoError(t, m.Bubbles([]geom.Record{
		{"latitude": 5.0, "longitude": 5.0, "radius": 3.0, "name": "hot"},
		{"latitude": 5.0, "longitude": 25.0, "radius": 3.0, "name": "cold"},
	}, nil))

	for _, c := range m.Layer("bubbles").SelectClass("datamaps-bubble") {
		fill := c.Style("fill")
		m.Hover(c, orb.Point{})
		if byName(dataInfo(c)) == "hot" {
			assert.Equal(t, "#FC8D59", c.Style("fill"))
		} else {
			assert.Equal(t, fill, c.Style("fill"))
		}
		m.Leave(c)
		assert.Equal(t, fill, c.Style("fill"))
	}
}

func TestBubbleRecordOverridesHighlight(t *testing.T) {
	m := newTestMap(t, nil)
	require.NoError(t, m.Bubbles([]geom.Record{
		{"latitude": 5.0, "longitude": 5.0, "radius": 3.0, "highlightFillColor": "#000000"},
	}, geom.Record{"highlightFillColor": "#111111"}))
	c := m.Layer("bubbles").First("datamaps-bubble")
	m.Hover(c, orb.Point{})
	assert.Equal(t, "#000000", c.Style("fill"))
}

func TestArcCurveBetweenTokens(t *testing.T) {
	m, err := New(context.Background(), NewElement("map", 960, 540), Options{})
	require.NoError(t, err)
	require.NoError(t, m.Arc([]geom.Record{{"origin": "USA", "destination": "JPN"}}, nil))

	arcs := m.Layer("arc").SelectClass("datamaps-arc")
	require.Len(t, arcs, 1)
	el := arcs[0]
	d, _ := el.Attr("d")

	from, ok := m.Path().Point(arcTokens["USA"])
	require.True(t, ok)
	to, ok := m.Path().Point(arcTokens["JPN"])
	require.True(t, ok)
	assert.Equal(t, projection.NewCurve(from, to, 1).D(), d)
	assert.True(t, strings.HasPrefix(d, "M"+svg.Num(from[0])+","+svg.Num(from[1])+"S"))
	assert.True(t, strings.HasSuffix(d, ","+svg.Num(to[0])+","+svg.Num(to[1])))

	assert.Equal(t, "#DD1C77", el.Style("stroke"))
	assert.Equal(t, "none", el.Style("fill"))
	assert.Equal(t, "round", el.Style("stroke-linecap"))
	assert.Equal(t, "0", el.Style("stroke-dashoffset"))
	assert.NotEmpty(t, el.Style("stroke-dasharray"))
	a, ok := el.Animation("stroke-dashoffset")
	require.True(t, ok)
	assert.Equal(t, "0", a.To)
	assert.Equal(t, 600*time.Millisecond, a.Dur)
	dash := strings.Fields(el.Style("stroke-dasharray"))
	require.Len(t, dash, 2)
	assert.Equal(t, dash[0], a.From)
}

func TestArcNestedOptions(t *testing.T) {
	m := newTestMap(t, nil)
	require.NoError(t, m.Arc([]geom.Record{{
		"origin":      map[string]any{"latitude": 5.0, "longitude": 5.0},
		"destination": "BBB",
		"strokeColor": "#111111",
		"options":     map[string]any{"strokeWidth": 3.0, "strokeColor": "#000000"},
	}}, nil))
	el := m.Layer("arc").First("datamaps-arc")
	require.NotNil(t, el)
	assert.Equal(t, "#111111", el.Style("stroke"))
	assert.Equal(t, "3", el.Style("stroke-width"))
	info, _ := el.Attr("data-info")
	assert.NotContains(t, info, "options")
	d, _ := el.Attr("d")
	assert.True(t, strings.HasPrefix(d, "M485,245S"))
	assert.True(t, strings.HasSuffix(d, ",505,245"))
}

func TestArcGreatCircle(t *testing.T) {
	m, err := New(context.Background(), NewElement("map", 960, 540), Options{})
	require.NoError(t, err)
	require.NoError(t, m.Arc([]geom.Record{{"origin": "USA", "destination": "JPN"}}, geom.Record{"greatArc": true}))
	el := m.Layer("arc").First("datamaps-arc")
	require.NotNil(t, el)
	d, _ := el.Attr("d")
	assert.True(t, strings.HasPrefix(d, "M"))
	assert.Contains(t, d, "L")
	assert.NotContains(t, d, "S")
}

func TestArcSkipsUnresolvableAndExits(t *testing.T) {
	m := newTestMap(t, nil)
	require.NoError(t, m.Arc([]geom.Record{
		{"origin": "ZZZ", "destination": "AAA"},
		{"origin": "AAA", "destination": "CCC"},
	}, nil))
	layer := m.Layer("arc")
	require.Len(t, layer.Children(), 1)
	el := layer.Children()[0]

	require.NoError(t, m.Arc([]geom.Record{}, nil))
	assert.True(t, el.Exiting())
	assert.Equal(t, "0", el.Style("opacity"))
	assert.Equal(t, 1, m.Settle())
	assert.Empty(t, layer.Children())
}

func TestArcPopup(t *testing.T) {
	m := newTestMap(t, nil)
	require.NoError(t, m.Arc([]geom.Record{{"origin": "AAA", "destination": "CCC"}}, geom.Record{"popupOnHover": true}))
	el := m.Layer("arc").First("datamaps-arc")
	require.True(t, m.Hover(el, orb.Point{}))
	content, shown := m.Popup()
	assert.True(t, shown)
	assert.Contains(t, content, `Origin: &#34;AAA&#34;`)
	m.Leave(el)
}

func TestLabels(t *testing.T) {
	m, err := New(context.Background(), NewElement("usa", 960, 600), Options{Scope: "usa"})
	require.NoError(t, err)
	require.NoError(t, m.Labels(geom.Record{
		"fontSize":        14.0,
		"labelColor":      "#333",
		"customLabelText": map[string]any{"TX": "Texas"},
	}))

	layer := m.Layer("labels")
	require.NotNil(t, layer)
	texts := layer.Find(func(n *svg.Element) bool { return n.Tag == "text" })
	lines := layer.Find(func(n *svg.Element) bool { return n.Tag == "line" })
	assert.Len(t, texts, len(m.Subunits()))
	assert.Len(t, lines, len(smallStates))

	byText := map[string]*svg.Element{}
	for _, tx := range texts {
		byText[tx.Text] = tx
	}
	require.Contains(t, byText, "Texas")
	assert.NotContains(t, byText, "TX")
	assert.Equal(t, "14px", byText["Texas"].Style("font-size"))
	assert.Equal(t, "Verdana", byText["Texas"].Style("font-family"))
	assert.Equal(t, "#333", byText["Texas"].Style("fill"))

	start, _ := m.Path().Point(labelStart)
	vt, nh := byText["VT"], byText["NH"]
	require.NotNil(t, vt)
	require.NotNil(t, nh)
	assert.InDelta(t, start[0], vt.NumAttr("x"), 0.001)
	assert.InDelta(t, start[1], vt.NumAttr("y"), 0.001)
	assert.InDelta(t, start[1]+16, nh.NumAttr("y"), 0.001)

	c, ok := m.Path().Centroid(m.shapes[m.regionElement("CO")].region.Geometry)
	require.True(t, ok)
	co := byText["CO"]
	assert.InDelta(t, c[0]-7.5, co.NumAttr("x"), 0.001)
	assert.InDelta(t, c[1]+5, co.NumAttr("y"), 0.001)
}

func TestLegend(t *testing.T) {
	m := newTestMap(t, func(o *Options) { o.Fills = Fills{"high": "#F00", "low": "#00F"} })
	require.NoError(t, m.Legend(geom.Record{
		"legendTitle":     "Votes",
		"defaultFillName": "None",
		"labels":          map[string]any{"high": "High"},
	}))

	legends := m.Element().Node.SelectClass("datamaps-legend")
	require.Len(t, legends, 1)
	l := legends[0]
	assert.Equal(t, "div", l.Tag)
	assert.Equal(t, "Votes", l.Children()[0].Text)

	var labels, colors []string
	for _, n := range l.Find(func(n *svg.Element) bool { return n.Tag == "dt" || n.Tag == "dd" }) {
		if n.Tag == "dt" {
			labels = append(labels, n.Text)
		} else {
			colors = append(colors, n.Style("background-color"))
		}
	}
	assert.Equal(t, []string{"None", "High", "low: "}, labels)
	assert.Equal(t, []string{"#ABDDA4", "#F00", "#00F"}, colors)

	require.NoError(t, m.Legend(nil))
	legends = m.Element().Node.SelectClass("datamaps-legend")
	require.Len(t, legends, 2)
	assert.Len(t, legends[1].Find(func(n *svg.Element) bool { return n.Tag == "dt" }), 2)
}

func TestLegendStaysOffSurface(t *testing.T) {
	m := newTestMap(t, nil)
	require.NoError(t, m.Legend(geom.Record{"legendTitle": "Votes"}))
	require.NotNil(t, m.Layer("legend"))
	assert.Empty(t, m.Surface().SelectClass("legend"))

	var buf bytes.Buffer
	require.NoError(t, m.SVG(&buf))
	assert.NotContains(t, buf.String(), `class="legend"`)

	assert.True(t, m.RemoveLayer("legend"))
	assert.Empty(t, m.Element().Node.SelectClass("datamaps-legend"))
	assert.NotNil(t, m.Surface().Parent())
}

func TestGraticule(t *testing.T) {
	m := newTestMap(t, nil)
	require.NoError(t, m.Graticule())
	zoom := m.Surface().First("datamaps-zoom")
	kids := zoom.Children()
	layer := m.Layer("graticule")
	require.NotNil(t, layer)

	idx := map[*svg.Element]int{}
	for i, k := range kids {
		idx[k] = i
	}
	assert.Less(t, idx[layer], idx[m.Surface().First("datamaps-subunits")])
	g := layer.First("datamaps-graticule")
	require.NotNil(t, g)
	d, _ := g.Attr("d")
	assert.NotEmpty(t, d)
}

func TestRemoveLayer(t *testing.T) {
	m := newTestMap(t, nil)
	require.NoError(t, m.Bubbles([]geom.Record{{"latitude": 1.0, "longitude": 1.0, "radius": 4.0}}, nil))
	bubble := m.Layer("bubbles").First("datamaps-bubble")
	require.Same(t, bubble, m.PointerMove(481, 249))

	assert.True(t, m.RemoveLayer("bubbles"))
	assert.Nil(t, m.Layer("bubbles"))
	assert.Nil(t, m.Hovered())
	_, shown := m.Popup()
	assert.False(t, shown)
	assert.Same(t, m.regionElement("AAA"), m.HitTest(481, 249))
	assert.Empty(t, m.Surface().SelectClass("datamaps-bubble"))

	assert.False(t, m.RemoveLayer("bubbles"))
}

func TestToRecords(t *testing.T) {
	recs, err := toRecords([]map[string]any{{"a": 1.0}})
	require.NoError(t, err)
	assert.Equal(t, []geom.Record{{"a": 1.0}}, recs)

	recs, err = toRecords([]any{map[string]any{"b": true}, geom.Record{"c": "x"}})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = toRecords(nil)
	assert.True(t, eris.Is(err, ErrNotList))
}
