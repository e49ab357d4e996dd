// Package datamap renders choropleth maps with bubble, arc and label layers
// into a retained SVG tree.
package datamap

import (
	"context"
	"math"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"datamap/internal/geom"
	"datamap/internal/projection"
	"datamap/internal/svg"
)

// usaCentre is the geographic centre of the contiguous United States, used
// in place of the USA centroid (which Alaska and Hawaii would drag away).
var usaCentre = orb.Point{-98.58333, 39.83333}

// ShapeKind tells what a drawn shape represents.
type ShapeKind int

const (
	ShapeRegion ShapeKind = iota
	ShapeBubble
	ShapeArc
)

// Shape is a drawn element together with its screen geometry, before the
// zoom transform is applied.
type Shape struct {
	Element *svg.Element
	Kind    ShapeKind
	ID      string
	// Screen is a MultiPolygon for regions, a Point for bubbles and a
	// LineString or MultiLineString for arcs.
	Screen orb.Geometry
	Radius float64
	Width  float64

	region geom.Region
	key    string
}

type handler struct {
	enter func(at orb.Point)
	leave func()
}

// Map is a single choropleth instance. It is not safe for concurrent use.
type Map struct {
	el   *Element
	opts Options

	width, height float64

	surface   *svg.Element
	defs      *svg.Element
	zoomLayer *svg.Element
	subunits  *svg.Element
	tooltip   *svg.Element

	proj projection.Projector
	path *projection.Path

	regions []geom.Region
	data    geom.DataTable
	// painted holds the last choropleth colour per region id, so redraws
	// keep it.
	painted map[string]string

	shapes   map[*svg.Element]*Shape
	handlers map[*svg.Element]*handler
	hovered  *svg.Element

	plugins map[string]*plugin
	layers  map[string]*layerState
	history []*layerState

	zoom     ZoomTransform
	revision uint64
}

// New builds a map inside el and performs the initial draw.
func New(ctx context.Context, el *Element, opts Options) (*Map, error) {
	if el == nil || el.Node == nil {
		return nil, ErrNoElement
	}
	opts = opts.withDefaults()
	if opts.SetProjection == nil {
		if _, err := projection.ParseKind(opts.Projection); err != nil {
			return nil, err
		}
	}

	m := &Map{
		el:       el,
		opts:     opts,
		data:     geom.DataTable{},
		painted:  map[string]string{},
		shapes:   map[*svg.Element]*Shape{},
		handlers: map[*svg.Element]*handler{},
		plugins:  map[string]*plugin{},
		layers:   map[string]*layerState{},
		zoom:     ZoomTransform{K: 1},
	}
	for id, rec := range opts.Data {
		m.data[id] = rec
	}

	m.width = opts.Width
	if m.width <= 0 {
		m.width = el.Width
	}
	if m.width <= 0 {
		m.width = 960
	}
	m.height = opts.Height
	if m.height <= 0 {
		m.height = el.Height
	}
	if opts.Responsive || m.height <= 0 {
		m.height = m.width * opts.AspectRatio
	}

	m.createSurface()
	if err := m.registerBuiltins(); err != nil {
		return nil, err
	}
	if err := m.Draw(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// createSurface ensures the host has an <svg> surface sized to the map.
func (m *Map) createSurface() {
	m.surface = m.el.surface()
	if m.surface == nil {
		m.surface = svg.New("svg", "datamap")
		m.surface.SetAttr("xmlns", "http://www.w3.org/2000/svg")
		m.surface.SetAttr("xmlns:xlink", "http://www.w3.org/1999/xlink")
		m.el.Node.Append(m.surface)
	}
	m.el.Node.SetStyle("position", "relative")
	m.sizeSurface()

	if !m.opts.DisableDefaultStyles {
		registerStyles()
		if len(m.surface.Find(func(n *svg.Element) bool { return n.Tag == "style" })) == 0 {
			m.surface.InsertBefore(svg.Styles.StyleElement(styleBlock), firstChild(m.surface))
		}
	}

	m.zoomLayer = m.surface.First("datamaps-zoom")
	if m.zoomLayer == nil {
		m.zoomLayer = m.surface.Append(svg.New("g", "datamaps-zoom"))
	}
	m.subunits = m.zoomLayer.First("datamaps-subunits")
	if m.subunits == nil {
		m.subunits = m.zoomLayer.Append(svg.New("g", "datamaps-subunits"))
	}
}

func (m *Map) sizeSurface() {
	s := m.surface
	s.SetNum("data-width", m.width)
	s.SetNum("data-height", m.height)
	if m.opts.Responsive {
		s.SetAttr("width", "100%")
		s.SetAttr("height", "100%")
		s.SetAttr("viewBox", "0 0 "+svg.Num(m.width)+" "+svg.Num(m.height))
		s.SetStyle("position", "absolute")
		s.SetStyle("overflow", "hidden")
		m.el.Node.SetStyle("padding-bottom", svg.Num(m.opts.AspectRatio*100)+"%")
	} else {
		s.SetNum("width", m.width)
		s.SetNum("height", m.height)
		s.SetStyle("overflow", "hidden")
	}
	m.el.Width, m.el.Height = m.width, m.height
}

func firstChild(e *svg.Element) *svg.Element {
	if c := e.Children(); len(c) > 0 {
		return c[0]
	}
	return nil
}

// Draw sets up the projection, loads boundaries, draws the subunits and
// attaches hover handlers. When a data URL is configured it is fetched and
// applied as a choropleth update. Done runs last.
func (m *Map) Draw(ctx context.Context) error {
	if m.regions == nil {
		regions, err := m.loadRegions(ctx)
		if err != nil {
			return err
		}
		m.regions = m.filterRegions(regions)
	}
	if err := m.setupProjection(); err != nil {
		return err
	}
	m.drawSubunits()
	m.attachHandlers()
	if mayEnable(m.opts.Geography.PopupOnHover) || mayEnable(m.opts.Bubbles.PopupOnHover) || m.opts.Arcs.PopupOnHover {
		m.ensureTooltip()
	}
	if m.opts.DataURL != "" {
		table, err := m.fetchData(ctx)
		if err != nil {
			return err
		}
		m.UpdateChoropleth(table, ChoroplethOptions{})
	}
	m.revision++
	if m.opts.Done != nil {
		m.opts.Done(m)
	}
	return nil
}

func (m *Map) loadRegions(ctx context.Context) ([]geom.Region, error) {
	if m.opts.Regions != nil {
		return m.opts.Regions, nil
	}
	if url := m.opts.Geography.DataURL; url != "" {
		data, err := m.fetcher().Fetch(ctx, url)
		if err != nil {
			return nil, eris.Wrapf(err, "datamap: fetch topology %s", url)
		}
		regions, err := geom.DecodeRegions(data, m.opts.Scope)
		if err != nil {
			return nil, eris.Wrapf(err, "datamap: decode topology %s", url)
		}
		return regions, nil
	}
	topo, err := geom.Bundled(m.opts.Scope)
	if err != nil {
		return nil, eris.Wrapf(ErrNoTopology, "%q", m.opts.Scope)
	}
	return topo.Regions(m.opts.Scope)
}

func (m *Map) filterRegions(in []geom.Region) []geom.Region {
	g := m.opts.Geography
	out := make([]geom.Region, 0, len(in))
	for _, r := range in {
		if g.HideAntarctica.Value() && r.ID == "ATA" {
			continue
		}
		if g.HideHawaiiAndAlaska && (r.ID == "HI" || r.ID == "AK") {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (m *Map) setupProjection() error {
	var p projection.Projector
	switch {
	case m.opts.SetProjection != nil:
		custom, err := m.opts.SetProjection(m.el, m.opts)
		if err != nil {
			return eris.Wrap(err, "datamap: custom projection")
		}
		p = custom
	case m.opts.Scope == "usa":
		p = projection.NewUSA().Scale(m.width).Translate(m.width/2, m.height/2)
	case m.opts.Scope == "world":
		kind, err := projection.ParseKind(m.opts.Projection)
		if err != nil {
			return err
		}
		if kind == projection.AlbersUSA {
			p = projection.NewUSA().Scale(m.width).Translate(m.width/2, m.height/2)
			break
		}
		wp, err := projection.New(kind)
		if err != nil {
			return err
		}
		div := 1.8
		if kind == projection.Mercator {
			div = 1.45
		}
		wp.Scale((m.width+1)/2/math.Pi).Translate(m.width/2, m.height/div)
		if kind == projection.Orthographic {
			rot := m.opts.ProjectionConfig.Rotation
			wp.Scale(250).ClipAngle(90).Rotate(rot[0], rot[1], 0)
			m.drawSphere(wp)
		}
		p = wp
	default:
		// a single country: fit its features
		cp, _ := projection.New(projection.Mercator)
		geoms := make([]orb.Geometry, 0, len(m.regions))
		for _, r := range m.regions {
			geoms = append(geoms, r.Geometry)
		}
		p = cp.Fit(m.width, m.height, geoms)
	}
	m.proj = p
	m.path = projection.NewPath(p)
	return nil
}

// drawSphere puts the globe outline in <defs> and references it twice, once
// for the outline stroke and once for the ocean fill.
func (m *Map) drawSphere(p *projection.Projection) {
	if m.defs == nil {
		m.defs = svg.New("defs")
		m.surface.InsertBefore(m.defs, m.zoomLayer)
		sphere := svg.New("path")
		sphere.SetAttr("id", "sphere")
		m.defs.Append(sphere)
		for _, class := range []string{"stroke", "fill"} {
			use := svg.New("use", class)
			use.SetAttr("xlink:href", "#sphere")
			m.zoomLayer.InsertBefore(use, m.subunits)
		}
	}
	m.defs.ByID("sphere").SetAttr("d", projection.Sphere(p))
}

// drawSubunits adds a path for every region not already drawn.
func (m *Map) drawSubunits() {
	g := m.opts.Geography
	drawn := map[string]bool{}
	for _, c := range m.subunits.Children() {
		if s, ok := m.shapes[c]; ok {
			drawn[s.ID] = true
		}
	}
	for _, r := range m.regions {
		if drawn[r.ID] {
			continue
		}
		drawn[r.ID] = true
		el := svg.New("path", "datamaps-subunit", r.ID)
		el.SetAttr("d", m.path.D(r.Geometry))
		rec := m.data.Lookup(r.ID)
		if rec != nil {
			el.SetAttr("data-info", rec.JSON())
		}
		fill, ok := m.painted[r.ID]
		if !ok {
			fill = m.regionFill(r, rec)
		}
		el.SetStyle("fill", fill)
		if v, ok := ResolveRegion(g.BorderWidth, nil, r, rec); ok {
			el.SetStyle("stroke-width", svg.Num(v))
		}
		if v, ok := ResolveRegion(g.BorderOpacity, nil, r, rec); ok {
			el.SetStyle("stroke-opacity", svg.Num(v))
		}
		if v, ok := ResolveRegion(g.BorderColor, nil, r, rec); ok {
			el.SetStyle("stroke", v)
		}
		if m.opts.Responsive {
			el.SetStyle("vector-effect", "non-scaling-stroke")
		}
		m.subunits.Append(el)
		m.shapes[el] = &Shape{
			Element: el,
			Kind:    ShapeRegion,
			ID:      r.ID,
			Screen:  m.path.Project(r.Geometry),
			region:  r,
		}
	}
}

// regionFill applies the fill precedence: fillKey through the fill table,
// then fillColor, then defaultFill. A fillKey missing from the table falls
// back to defaultFill.
func (m *Map) regionFill(r geom.Region, rec geom.Record) string {
	if rec != nil {
		if key, ok := ResolveRegion(Prop[string]{}, rec["fillKey"], r, rec); ok && key != "" {
			if c, ok := m.opts.Fills[key]; ok {
				return c
			}
			return m.opts.Fills.Default()
		}
		if c, ok := rec.GetString("fillColor"); ok && c != "" {
			return c
		}
	}
	return m.opts.Fills.Default()
}

func (m *Map) fetcher() Fetcher {
	if m.opts.Fetcher != nil {
		return m.opts.Fetcher
	}
	return defaultFetcher
}

// regionElement returns the first drawn region path carrying class id.
func (m *Map) regionElement(id string) *svg.Element {
	if id == "" {
		return nil
	}
	for _, el := range m.surface.SelectClass(id) {
		if s, ok := m.shapes[el]; ok && s.Kind == ShapeRegion {
			return el
		}
	}
	return nil
}

// regionCentroid returns the screen centroid of a drawn region.
func (m *Map) regionCentroid(id string) (orb.Point, bool) {
	el := m.regionElement(id)
	if el == nil {
		return orb.Point{}, false
	}
	return m.path.Centroid(m.shapes[el].region.Geometry)
}

// Settle removes every element whose exit transition has been recorded and
// returns how many were removed.
func (m *Map) Settle() int {
	gone := m.surface.Find(func(n *svg.Element) bool { return n.Exiting() })
	for _, el := range gone {
		delete(m.shapes, el)
		delete(m.handlers, el)
		if m.hovered == el {
			m.hovered = nil
		}
	}
	n := m.surface.Settle()
	if n > 0 {
		m.revision++
	}
	return n
}

// Shapes returns the drawn shapes in paint order.
func (m *Map) Shapes() []Shape {
	var out []Shape
	for _, el := range m.zoomLayer.Find(func(n *svg.Element) bool { return m.shapes[n] != nil }) {
		out = append(out, *m.shapes[el])
	}
	return out
}

// ShapeOf returns the shape drawn for el.
func (m *Map) ShapeOf(el *svg.Element) (Shape, bool) {
	s, ok := m.shapes[el]
	if !ok {
		return Shape{}, false
	}
	return *s, true
}

// Subunits returns the drawn region paths.
func (m *Map) Subunits() []*svg.Element {
	var out []*svg.Element
	for _, c := range m.subunits.Children() {
		if s, ok := m.shapes[c]; ok && s.Kind == ShapeRegion {
			out = append(out, c)
		}
	}
	return out
}

// Regions returns the regions drawn for the scope.
func (m *Map) Regions() []geom.Region { return m.regions }

// Data returns the stored per-region data table.
func (m *Map) Data() geom.DataTable { return m.data }

func (m *Map) Options() Options { return m.opts }

func (m *Map) Element() *Element { return m.el }

// Surface returns the <svg> element.
func (m *Map) Surface() *svg.Element { return m.surface }

// Tooltip returns the hover tooltip element, or nil when popups are off.
func (m *Map) Tooltip() *svg.Element { return m.tooltip }

func (m *Map) Projector() projection.Projector { return m.proj }

func (m *Map) Path() *projection.Path { return m.path }

func (m *Map) Width() float64 { return m.width }

func (m *Map) Height() float64 { return m.height }

// Revision changes whenever the drawn tree changes.
func (m *Map) Revision() uint64 { return m.revision }

func logger() *zap.Logger { return zap.L().Named("datamap") }
