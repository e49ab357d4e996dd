package tui

import (
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"datamap/internal/datamap"
	"datamap/internal/projection"
	"datamap/internal/svg"
)

// viewport fits the map's host pixels into a w x h cell canvas. Braille
// micro-pixels are close to square, so one uniform scale is used.
type viewport struct {
	w, h   int
	scale  float64
	ox, oy float64
	zoom   datamap.ZoomTransform
}

func newViewport(dm *datamap.Map, w, h int) viewport {
	vp := viewport{w: w, h: h, scale: 1, zoom: dm.ZoomTransform()}
	mw, mh := dm.Width(), dm.Height()
	if mw <= 0 || mh <= 0 || w <= 0 || h <= 0 {
		return vp
	}
	vp.scale = math.Min(float64(w*2)/mw, float64(h*4)/mh)
	vp.ox = (float64(w*2) - mw*vp.scale) / 2
	vp.oy = (float64(h*4) - mh*vp.scale) / 2
	return vp
}

// micro maps an untransformed screen point to micro-pixel coordinates.
func (vp viewport) micro(p orb.Point) (int, int) {
	p = vp.zoom.Apply(p)
	return int(math.Round(p[0]*vp.scale + vp.ox)), int(math.Round(p[1]*vp.scale + vp.oy))
}

// host maps a terminal cell to the host pixel at its centre.
func (vp viewport) host(cx, cy int) orb.Point {
	return orb.Point{
		(float64(cx*2+1) - vp.ox) / vp.scale,
		(float64(cy*4+2) - vp.oy) / vp.scale,
	}
}

// inLayer reports whether el sits under the named plugin layer.
func inLayer(dm *datamap.Map, el *svg.Element, name string) bool {
	layer := dm.Layer(name)
	if layer == nil || el == nil {
		return false
	}
	for p := el.Parent(); p != nil; p = p.Parent() {
		if p == layer {
			return true
		}
	}
	return false
}

func (m Model) layerHidden(el *svg.Element) bool {
	for name, hidden := range m.hidden {
		if hidden && inLayer(m.dm, el, name) {
			return true
		}
	}
	return false
}

func (m Model) layerVisible(name string) bool {
	return m.dm.Layer(name) != nil && !m.hidden[name]
}

// renderMap rasterises the map: graticule, then every drawn shape in paint
// order, then labels.
func (m Model) renderMap(w, h int) string {
	return strings.Join(m.raster(w, h).toLines(), "\n")
}

func (m Model) raster(w, h int) *brailleBuf {
	br := newBrailleBuf(w, h)
	if m.dm == nil {
		return br
	}
	vp := newViewport(m.dm, w, h)

	if m.layerVisible("graticule") {
		g := m.dm.Path().Project(projection.Graticule())
		drawLines(br, vp, g, baseDimFg)
	}

	hovered := m.dm.Hovered()
	for _, s := range m.dm.Shapes() {
		if s.Element.Exiting() || m.layerHidden(s.Element) {
			continue
		}
		switch s.Kind {
		case datamap.ShapeRegion:
			col := termColor(s.Element.Style("fill"))
			if s.Element == hovered {
				col = highlight(col)
			}
			fillPolygons(br, vp, s.Screen, col)
		case datamap.ShapeBubble:
			col := termColor(s.Element.Style("fill"))
			if col == nil {
				col = termColor(s.Element.Style("stroke"))
			}
			if s.Element == hovered {
				col = highlight(col)
			}
			if c, ok := s.Screen.(orb.Point); ok {
				fillDisk(br, vp, c, s.Radius, col)
			}
		case datamap.ShapeArc:
			col := termColor(s.Element.Style("stroke"))
			if col == nil {
				col = baseFg
			}
			if s.Element == hovered {
				col = highlight(col)
			}
			drawLines(br, vp, s.Screen, col)
		}
	}

	if m.layerVisible("labels") {
		for _, t := range m.dm.Layer("labels").Find(func(n *svg.Element) bool { return n.Tag == "text" }) {
			mx, my := vp.micro(orb.Point{t.NumAttr("x"), t.NumAttr("y")})
			col := termColor(t.Style("fill"))
			if col == nil {
				col = baseFg
			}
			br.putText(mx/2, my/4, t.Text, col)
		}
	}
	return br
}

func polygons(g orb.Geometry) []orb.Polygon {
	switch g := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}
	case orb.MultiPolygon:
		return g
	}
	return nil
}

// fillPolygons scan-fills every polygon with the even-odd rule on the
// microgrid, then carves its outline.
func fillPolygons(br *brailleBuf, vp viewport, g orb.Geometry, col lipgloss.TerminalColor) {
	for _, poly := range polygons(g) {
		var rings [][][2]int
		for _, ring := range poly {
			var r [][2]int
			for _, p := range ring {
				x, y := vp.micro(p)
				r = append(r, [2]int{x, y})
			}
			if len(r) >= 3 {
				rings = append(rings, r)
			}
		}
		if len(rings) == 0 {
			continue
		}
		if col == nil {
			outline(br, rings, func(a, b [2]int) { br.drawLineMicro(a[0], a[1], b[0], b[1], baseDimFg) })
			continue
		}
		scanFill(br, rings, col)
		// tiny regions would vanish entirely if carved
		if extent(rings[0]) >= 6 {
			outline(br, rings, func(a, b [2]int) { br.carveLineMicro(a[0], a[1], b[0], b[1]) })
		}
	}
}

func outline(br *brailleBuf, rings [][][2]int, edge func(a, b [2]int)) {
	for _, r := range rings {
		for i := range r {
			edge(r[i], r[(i+1)%len(r)])
		}
	}
}

func extent(r [][2]int) int {
	minX, maxX := math.MaxInt, math.MinInt
	minY, maxY := math.MaxInt, math.MinInt
	for _, p := range r {
		minX, maxX = min(minX, p[0]), max(maxX, p[0])
		minY, maxY = min(minY, p[1]), max(maxY, p[1])
	}
	return min(maxX-minX, maxY-minY)
}

func scanFill(br *brailleBuf, rings [][][2]int, col lipgloss.TerminalColor) {
	minY, maxY := math.MaxInt, math.MinInt
	for _, r := range rings {
		for _, p := range r {
			minY = min(minY, p[1])
			maxY = max(maxY, p[1])
		}
	}
	minY = max(minY, 0)
	maxY = min(maxY, br.h*4-1)
	for y := minY; y <= maxY; y++ {
		var xs []int
		for _, r := range rings {
			for i := range r {
				a, b := r[i], r[(i+1)%len(r)]
				if a[1] == b[1] {
					continue
				}
				if (y >= a[1] && y < b[1]) || (y >= b[1] && y < a[1]) {
					t := float64(y-a[1]) / float64(b[1]-a[1])
					xs = append(xs, int(float64(a[0])+t*float64(b[0]-a[0])))
				}
			}
		}
		sort.Ints(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for x := max(0, xs[i]); x <= min(xs[i+1], br.w*2-1); x++ {
				br.setPixel(x, y, col)
			}
		}
	}
}

func fillDisk(br *brailleBuf, vp viewport, c orb.Point, radius float64, col lipgloss.TerminalColor) {
	cx, cy := vp.micro(c)
	r := int(math.Round(radius * vp.scale * vp.zoom.K))
	if r < 1 {
		br.setPixel(cx, cy, col)
		return
	}
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				br.setPixel(cx+dx, cy+dy, col)
			}
		}
	}
}

func drawLines(br *brailleBuf, vp viewport, g orb.Geometry, col lipgloss.TerminalColor) {
	var lines []orb.LineString
	switch g := g.(type) {
	case orb.LineString:
		lines = []orb.LineString{g}
	case orb.MultiLineString:
		lines = g
	}
	for _, ls := range lines {
		for i := 1; i < len(ls); i++ {
			x0, y0 := vp.micro(ls[i-1])
			x1, y1 := vp.micro(ls[i])
			br.drawLineMicro(x0, y0, x1, y1, col)
		}
	}
}

// legendRows reads the most recent legend from the host element.
func (m Model) legendRows() (title string, rows []legendRow) {
	legends := m.dm.Element().Node.SelectClass("datamaps-legend")
	if len(legends) == 0 {
		return "", nil
	}
	legend := legends[len(legends)-1]
	for _, c := range legend.Children() {
		switch c.Tag {
		case "h2":
			title = c.Text
		case "dl":
			var label string
			for _, d := range c.Children() {
				if d.Tag == "dt" {
					label = d.Text
					continue
				}
				rows = append(rows, legendRow{label: label, color: termColor(d.Style("background-color"))})
			}
		}
	}
	return title, rows
}

type legendRow struct {
	label string
	color lipgloss.TerminalColor
}

func (m Model) renderLegend() string {
	if !m.layerVisible("legend") {
		return ""
	}
	title, rows := m.legendRows()
	parts := make([]string, 0, len(rows)+1)
	if title != "" {
		parts = append(parts, labelStyle.Render(title))
	}
	for _, r := range rows {
		swatch := "■"
		if r.color != nil {
			swatch = lipgloss.NewStyle().Foreground(r.color).Render(swatch)
		}
		parts = append(parts, swatch+" "+r.label)
	}
	return strings.Join(parts, "  ")
}
