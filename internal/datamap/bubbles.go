package datamap

import (
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"datamap/internal/geom"
	"datamap/internal/svg"
)

const bubbleTransition = 400 * time.Millisecond

// drawBubbles diffs data against the circles already in layer by key.
// New keys enter, known keys update in place and missing keys exit.
func drawBubbles(m *Map, layer *svg.Element, data any, opts geom.Record) error {
	records, err := toRecords(data)
	if err != nil {
		return err
	}
	cfg := m.opts.Bubbles.apply(opts)

	existing := map[string]*svg.Element{}
	for _, c := range layer.Children() {
		if s, ok := m.shapes[c]; ok && s.Kind == ShapeBubble && !c.Exiting() {
			existing[s.key] = c
		}
	}

	seen := map[string]int{}
	keep := map[*svg.Element]bool{}
	for _, rec := range records {
		base := cfg.Key(rec)
		key := base
		if n := seen[base]; n > 0 {
			key += "#" + strconv.Itoa(n)
		}
		seen[base]++

		at, ok := m.bubblePosition(rec)
		if !ok {
			logger().Warn("skipping bubble with unresolvable position", zap.String("record", rec.JSON()))
			continue
		}
		radius, _ := ResolveRecord(cfg.Radius, rec["radius"], rec)

		if el, ok := existing[key]; ok {
			m.updateBubble(el, rec, at, radius)
			keep[el] = true
			continue
		}
		el := m.enterBubble(layer, cfg, rec, at, radius)
		m.shapes[el] = &Shape{
			Element: el,
			Kind:    ShapeBubble,
			ID:      key,
			Screen:  at,
			Radius:  radius,
			key:     key,
		}
		m.handlers[el] = m.recordHandler(el, &cfg, cfg.PopupOnHover, cfg.PopupTemplate)
		keep[el] = true
	}

	for _, el := range existing {
		if keep[el] {
			continue
		}
		el.Animate(svg.Animation{Attribute: "r", To: "0", Begin: cfg.ExitDelay, Dur: bubbleTransition})
		el.SetNum("r", 0)
		el.MarkExiting()
		if m.hovered == el {
			m.hovered = nil
			m.hidePopup()
		}
	}
	return nil
}

func (m *Map) enterBubble(layer *svg.Element, cfg BubblesConfig, rec geom.Record, at orb.Point, radius float64) *svg.Element {
	el := svg.New("circle", "datamaps-bubble")
	el.SetNum("cx", at[0])
	el.SetNum("cy", at[1])
	el.SetNum("r", radius)
	if animate, _ := ResolveRecord(cfg.Animate, nil, rec); animate {
		el.Animate(svg.Animation{Attribute: "r", From: "0", To: svg.Num(radius), Dur: bubbleTransition})
	}
	el.SetAttr("data-info", rec.JSON())
	if key, ok := ResolveRecord(cfg.FilterKey, rec["filterKey"], rec); ok {
		if f, ok := m.opts.Filters[key]; ok {
			el.SetAttr("filter", f)
		}
	}
	if v, ok := ResolveRecord(cfg.BorderColor, rec["borderColor"], rec); ok {
		el.SetStyle("stroke", v)
	}
	if v, ok := ResolveRecord(cfg.BorderWidth, rec["borderWidth"], rec); ok {
		el.SetStyle("stroke-width", svg.Num(v))
	}
	if v, ok := ResolveRecord(cfg.BorderOpacity, rec["borderOpacity"], rec); ok {
		el.SetStyle("stroke-opacity", svg.Num(v))
	}
	if v, ok := ResolveRecord(cfg.FillOpacity, rec["fillOpacity"], rec); ok {
		el.SetStyle("fill-opacity", svg.Num(v))
	}
	el.SetStyle("fill", m.recordFill(rec))
	if m.opts.Responsive {
		el.SetStyle("vector-effect", "non-scaling-stroke")
	}
	return layer.Append(el)
}

// updateBubble moves a kept bubble and transitions its radius.
func (m *Map) updateBubble(el *svg.Element, rec geom.Record, at orb.Point, radius float64) {
	el.SetNum("cx", at[0])
	el.SetNum("cy", at[1])
	if old := el.NumAttr("r"); old != radius {
		el.Animate(svg.Animation{Attribute: "r", From: svg.Num(old), To: svg.Num(radius), Dur: bubbleTransition})
	}
	el.SetNum("r", radius)
	el.SetAttr("data-info", rec.JSON())
	if s := m.shapes[el]; s != nil {
		s.Screen = at
		s.Radius = radius
	}
}

// recordFill resolves the fill of a bubble: fillKey through the fill table,
// then fillColor, then defaultFill.
func (m *Map) recordFill(rec geom.Record) string {
	if key, ok := rec.GetString("fillKey"); ok && key != "" {
		if c, ok := m.opts.Fills[key]; ok {
			return c
		}
		return m.opts.Fills.Default()
	}
	if c, ok := rec.GetString("fillColor"); ok && c != "" {
		return c
	}
	return m.opts.Fills.Default()
}

// bubblePosition projects latitude/longitude, or uses the centroid of the
// region named by centered.
func (m *Map) bubblePosition(rec geom.Record) (orb.Point, bool) {
	lat, okLat := rec.GetFloat("latitude")
	lon, okLon := rec.GetFloat("longitude")
	if okLat && okLon {
		return m.path.Point(orb.Point{lon, lat})
	}
	id, ok := rec.GetString("centered")
	if !ok || id == "" {
		return orb.Point{}, false
	}
	return m.centerOf(id)
}

// centerOf returns the screen anchor for a region id. The USA uses the
// centre of the contiguous states.
func (m *Map) centerOf(id string) (orb.Point, bool) {
	if id == "USA" {
		return m.path.Point(usaCentre)
	}
	return m.regionCentroid(id)
}
