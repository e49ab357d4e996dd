package datamap

import (
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"

	"datamap/internal/geom"
	"datamap/internal/projection"
	"datamap/internal/svg"
)

// arcTokens are fixed lon/lat anchors for a few country codes. They take
// precedence over the drawn region of the same id.
var arcTokens = map[string]orb.Point{
	"CAN": {-114.665293, 56.624472},
	"CHL": {-70.669265, -33.448890},
	"IDN": {106.845599, -6.208763},
	"JPN": {139.691706, 35.689487},
	"MYS": {101.686855, 3.139003},
	"NOR": {10.752245, 59.913869},
	"USA": {-100.760145, 41.140276},
	"VNM": {105.834160, 21.027764},
	"BRA": {-47.882166, -15.794229},
}

const (
	arcDrawDelay = 100 * time.Millisecond
	arcFade      = 250 * time.Millisecond
)

// normalizeArc folds a nested options object into the record. Fields already
// on the record win.
func normalizeArc(rec geom.Record) geom.Record {
	nested, ok := geom.AsRecord(rec["options"])
	if !ok {
		return rec
	}
	out := rec.Clone()
	delete(out, "options")
	return out.Merge(nested)
}

// dashIn sizes the dash to the arc's screen length and records the draw-in
// transition. The dash must follow every change of the path.
func dashIn(el *svg.Element, screen orb.Geometry, speedMS float64) {
	length := planar.Length(screen)
	el.SetStyle("stroke-dasharray", svg.Num(length)+" "+svg.Num(length))
	el.SetStyle("stroke-dashoffset", "0")
	el.Animate(svg.Animation{
		Attribute: "stroke-dashoffset",
		From:      svg.Num(length),
		To:        "0",
		Begin:     arcDrawDelay,
		Dur:       time.Duration(speedMS * float64(time.Millisecond)),
	})
}

// drawArcs diffs arc records by key, draws new ones with a draw-in
// transition and fades out the ones no longer present.
func drawArcs(m *Map, layer *svg.Element, data any, opts geom.Record) error {
	records, err := toRecords(data)
	if err != nil {
		return err
	}
	cfg := m.opts.Arcs.apply(opts)

	existing := map[string]*svg.Element{}
	for _, c := range layer.Children() {
		if s, ok := m.shapes[c]; ok && s.Kind == ShapeArc && !c.Exiting() {
			existing[s.key] = c
		}
	}

	seen := map[string]int{}
	keep := map[*svg.Element]bool{}
	for _, raw := range records {
		rec := normalizeArc(raw)
		base := cfg.Key(rec)
		key := base
		if n := seen[base]; n > 0 {
			key += "#" + strconv.Itoa(n)
		}
		seen[base]++

		d, screen, ok := m.arcPath(cfg, rec)
		if !ok {
			logger().Warn("skipping arc with unresolvable endpoint", zap.String("record", rec.JSON()))
			continue
		}
		width, _ := ResolveRecord(cfg.StrokeWidth, rec["strokeWidth"], rec)
		speed, _ := ResolveRecord(cfg.AnimationSpeed, rec["animationSpeed"], rec)

		if el, ok := existing[key]; ok {
			el.SetAttr("d", d)
			el.SetAttr("data-info", rec.JSON())
			dashIn(el, screen, speed)
			if s := m.shapes[el]; s != nil {
				s.Screen = screen
			}
			keep[el] = true
			continue
		}

		el := svg.New("path", "datamaps-arc")
		el.SetStyle("stroke-linecap", "round")
		if v, ok := ResolveRecord(cfg.StrokeColor, rec["strokeColor"], rec); ok {
			el.SetStyle("stroke", v)
		}
		el.SetStyle("fill", "none")
		el.SetStyle("stroke-width", svg.Num(width))
		el.SetAttr("d", d)
		el.SetAttr("data-info", rec.JSON())
		dashIn(el, screen, speed)
		layer.Append(el)

		m.shapes[el] = &Shape{
			Element: el,
			Kind:    ShapeArc,
			ID:      key,
			Screen:  screen,
			Width:   width,
			key:     key,
		}
		m.handlers[el] = m.recordHandler(el, nil, Fixed(cfg.PopupOnHover), cfg.PopupTemplate)
		keep[el] = true
	}

	for _, el := range existing {
		if keep[el] {
			continue
		}
		el.SetStyle("opacity", "0")
		el.Animate(svg.Animation{Attribute: "opacity", From: "1", To: "0", Dur: arcFade})
		el.MarkExiting()
		if m.hovered == el {
			m.hovered = nil
			m.hidePopup()
		}
	}
	return nil
}

// arcPath returns the path data of an arc and its screen polyline, used for
// the dash length and hit testing.
func (m *Map) arcPath(cfg ArcConfig, rec geom.Record) (string, orb.Geometry, bool) {
	if cfg.GreatArc {
		from, ok := m.arcGeo(rec["origin"])
		if !ok {
			return "", nil, false
		}
		to, ok := m.arcGeo(rec["destination"])
		if !ok {
			return "", nil, false
		}
		g := projection.GreatArc(from, to)
		screen, _ := m.path.Project(g).(orb.MultiLineString)
		if len(screen) == 0 {
			return "", nil, false
		}
		return projection.Data(screen), screen, true
	}

	from, ok := m.arcScreen(rec["origin"])
	if !ok {
		return "", nil, false
	}
	to, ok := m.arcScreen(rec["destination"])
	if !ok {
		return "", nil, false
	}
	sharpness, _ := ResolveRecord(cfg.ArcSharpness, rec["arcSharpness"], rec)
	c := projection.NewCurve(from, to, sharpness)
	return c.D(), c.Flatten(32), true
}

// arcScreen resolves an endpoint to screen coordinates: a token, then a
// drawn region, then an explicit latitude/longitude.
func (m *Map) arcScreen(end any) (orb.Point, bool) {
	if id, ok := end.(string); ok {
		if pt, ok := arcTokens[id]; ok {
			return m.path.Point(pt)
		}
		return m.regionCentroid(id)
	}
	pt, ok := latLng(end)
	if !ok {
		return orb.Point{}, false
	}
	return m.path.Point(pt)
}

// arcGeo resolves an endpoint to lon/lat for great-arc interpolation. A
// region stands in with the centre of its geographic bound.
func (m *Map) arcGeo(end any) (orb.Point, bool) {
	if id, ok := end.(string); ok {
		if pt, ok := arcTokens[id]; ok {
			return pt, true
		}
		el := m.regionElement(id)
		if el == nil {
			return orb.Point{}, false
		}
		return m.shapes[el].region.Bound().Center(), true
	}
	return latLng(end)
}

func latLng(v any) (orb.Point, bool) {
	rec, ok := geom.AsRecord(v)
	if !ok {
		return orb.Point{}, false
	}
	lat, okLat := rec.GetFloat("latitude")
	lon, okLon := rec.GetFloat("longitude")
	if !okLat || !okLon {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}
