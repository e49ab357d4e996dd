package datamap

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"

	"datamap/internal/geom"
	"datamap/internal/svg"
)

const previousAttr = "data-previous-attributes"

var (
	regionTracked = []string{"fill", "stroke", "stroke-width", "fill-opacity"}
	bubbleTracked = []string{"fill", "stroke", "stroke-width", "stroke-opacity", "fill-opacity"}
)

// snapshot stores the current values of props on el as JSON.
func snapshot(el *svg.Element, props []string) {
	prev := make(map[string]string, len(props))
	for _, p := range props {
		prev[p] = el.Style(p)
	}
	b, _ := json.Marshal(prev)
	el.SetAttr(previousAttr, string(b))
}

// restore puts back the values saved by snapshot. Properties that were unset
// are removed again.
func restore(el *svg.Element) {
	raw, ok := el.Attr(previousAttr)
	if !ok {
		return
	}
	var prev map[string]string
	if err := json.Unmarshal([]byte(raw), &prev); err != nil {
		return
	}
	for p, v := range prev {
		el.SetStyle(p, v)
	}
	el.RemoveAttr(previousAttr)
}

// dataInfo decodes the record stamped on el.
func dataInfo(el *svg.Element) geom.Record {
	raw, ok := el.Attr("data-info")
	if !ok {
		return geom.Record{}
	}
	rec, err := geom.ParseRecord(raw)
	if err != nil {
		return geom.Record{}
	}
	return rec
}

// attachHandlers registers hover behaviour for every drawn region that has
// none.
func (m *Map) attachHandlers() {
	for _, el := range m.Subunits() {
		if _, ok := m.handlers[el]; !ok {
			m.handlers[el] = m.regionHandler(el)
		}
	}
}

func (m *Map) regionHandler(el *svg.Element) *handler {
	return &handler{
		enter: func(at orb.Point) {
			g := m.opts.Geography
			s := m.shapes[el]
			if s == nil {
				return
			}
			rec := dataInfo(el)
			if on, _ := ResolveRegion(g.HighlightOnHover, rec["highlightOnHover"], s.region, rec); on {
				snapshot(el, regionTracked)
				if v, ok := ResolveRegion(g.HighlightFillColor, rec["highlightFillColor"], s.region, rec); ok {
					el.SetStyle("fill", v)
				}
				if v, ok := ResolveRegion(g.HighlightBorderColor, rec["highlightBorderColor"], s.region, rec); ok {
					el.SetStyle("stroke", v)
				}
				if v, ok := ResolveRegion(g.HighlightBorderWidth, rec["highlightBorderWidth"], s.region, rec); ok {
					el.SetStyle("stroke-width", svg.Num(v))
				}
				if v, ok := ResolveRegion(g.HighlightFillOpacity, rec["highlightFillOpacity"], s.region, rec); ok {
					el.SetStyle("fill-opacity", svg.Num(v))
				}
				if raise, _ := ResolveRegion(m.opts.Capabilities.ReorderOnHover, nil, s.region, rec); raise {
					el.Raise()
				}
			}
			if on, _ := ResolveRegion(g.PopupOnHover, rec["popupOnHover"], s.region, rec); on && g.PopupTemplate != nil {
				content, err := g.PopupTemplate(s.region, rec)
				if err != nil {
					logger().Debug("popup template failed", zap.String("region", s.ID), zap.Error(err))
					content = ""
				}
				m.showPopup(content, at)
			}
		},
		leave: func() {
			restore(el)
			m.hidePopup()
		},
	}
}

// recordHandler builds hover behaviour for bubbles (highlight plus popup) and
// arcs (popup only, when cfg is nil).
func (m *Map) recordHandler(el *svg.Element, cfg *BubblesConfig, popup Prop[bool], tmpl RecordTemplate) *handler {
	return &handler{
		enter: func(at orb.Point) {
			rec := dataInfo(el)
			highlight := false
			if cfg != nil {
				highlight, _ = ResolveRecord(cfg.HighlightOnHover, rec["highlightOnHover"], rec)
			}
			if highlight {
				snapshot(el, bubbleTracked)
				if v, ok := ResolveRecord(cfg.HighlightFillColor, rec["highlightFillColor"], rec); ok {
					el.SetStyle("fill", v)
				}
				if v, ok := ResolveRecord(cfg.HighlightBorderColor, rec["highlightBorderColor"], rec); ok {
					el.SetStyle("stroke", v)
				}
				if v, ok := ResolveRecord(cfg.HighlightBorderWidth, rec["highlightBorderWidth"], rec); ok {
					el.SetStyle("stroke-width", svg.Num(v))
				}
				if v, ok := ResolveRecord(cfg.HighlightBorderOpacity, rec["highlightBorderOpacity"], rec); ok {
					el.SetStyle("stroke-opacity", svg.Num(v))
				}
				if v, ok := ResolveRecord(cfg.HighlightFillOpacity, rec["highlightFillOpacity"], rec); ok {
					el.SetStyle("fill-opacity", svg.Num(v))
				}
			}
			if on, _ := ResolveRecord(popup, rec["popupOnHover"], rec); on && tmpl != nil {
				content, err := tmpl(rec)
				if err != nil {
					logger().Debug("popup template failed", zap.String("record", rec.JSON()), zap.Error(err))
					content = ""
				}
				m.showPopup(content, at)
			}
		},
		leave: func() {
			restore(el)
			m.hidePopup()
		},
	}
}

func (m *Map) ensureTooltip() {
	if m.tooltip != nil {
		return
	}
	m.tooltip = m.el.Node.First("datamaps-hoverover")
	if m.tooltip == nil {
		m.tooltip = svg.New("div", "datamaps-hoverover")
		m.tooltip.SetStyle("z-index", "10001")
		m.tooltip.SetStyle("position", "absolute")
		m.el.Node.Append(m.tooltip)
	}
}

func (m *Map) showPopup(content string, at orb.Point) {
	m.ensureTooltip()
	m.tooltip.Raw = content
	m.tooltip.SetStyle("top", svg.Num(at[1]+30)+"px")
	m.tooltip.SetStyle("left", svg.Num(at[0])+"px")
	m.tooltip.SetStyle("display", "block")
}

func (m *Map) hidePopup() {
	if m.tooltip == nil {
		return
	}
	m.tooltip.SetStyle("display", "none")
}

// Popup returns the tooltip content and whether it is shown.
func (m *Map) Popup() (string, bool) {
	if m.tooltip == nil {
		return "", false
	}
	return m.tooltip.Raw, m.tooltip.Style("display") == "block"
}

// Hover runs the pointer-enter behaviour of el with the pointer at the given
// position inside the host. It reports whether el has a handler.
func (m *Map) Hover(el *svg.Element, at orb.Point) bool {
	h, ok := m.handlers[el]
	if !ok {
		return false
	}
	h.enter(at)
	m.hovered = el
	m.revision++
	return true
}

// Leave runs the pointer-leave behaviour of el.
func (m *Map) Leave(el *svg.Element) bool {
	h, ok := m.handlers[el]
	if !ok {
		return false
	}
	h.leave()
	if m.hovered == el {
		m.hovered = nil
	}
	m.revision++
	return true
}

// Hovered returns the element under the pointer, if any.
func (m *Map) Hovered() *svg.Element { return m.hovered }

// PointerMove moves the pointer to (x, y) in host pixels, leaving the
// previously hovered element and entering the one now under the pointer.
func (m *Map) PointerMove(x, y float64) *svg.Element {
	return m.PointerMoveExcept(x, y, nil)
}

// PointerMoveExcept is PointerMove with shapes matching skip left out of the
// hit test, so that whatever lies beneath them is hovered instead.
func (m *Map) PointerMoveExcept(x, y float64, skip func(*svg.Element) bool) *svg.Element {
	hit := m.HitTestExcept(x, y, skip)
	at := orb.Point{x, y}
	if hit == m.hovered {
		if hit != nil && m.tooltip != nil && m.tooltip.Style("display") == "block" {
			m.tooltip.SetStyle("top", svg.Num(y+30)+"px")
			m.tooltip.SetStyle("left", svg.Num(x)+"px")
		}
		return hit
	}
	if m.hovered != nil {
		m.Leave(m.hovered)
	}
	if hit != nil {
		m.Hover(hit, at)
	}
	return hit
}

// PointerLeave leaves whatever is hovered.
func (m *Map) PointerLeave() {
	if m.hovered != nil {
		m.Leave(m.hovered)
	}
}

// HitTest returns the topmost interactive shape under (x, y) in host
// pixels, or nil.
func (m *Map) HitTest(x, y float64) *svg.Element {
	return m.HitTestExcept(x, y, nil)
}

// HitTestExcept is HitTest ignoring shapes for which skip returns true.
func (m *Map) HitTestExcept(x, y float64, skip func(*svg.Element) bool) *svg.Element {
	pt := m.zoom.invert(orb.Point{x, y})
	els := m.zoomLayer.Find(func(n *svg.Element) bool {
		_, ok := m.handlers[n]
		return ok && !n.Exiting() && (skip == nil || !skip(n))
	})
	for i := len(els) - 1; i >= 0; i-- {
		s := m.shapes[els[i]]
		if s != nil && s.contains(pt) {
			return els[i]
		}
	}
	return nil
}

func (s *Shape) contains(pt orb.Point) bool {
	switch s.Kind {
	case ShapeBubble:
		c, ok := s.Screen.(orb.Point)
		return ok && planar.Distance(c, pt) <= s.Radius
	case ShapeArc:
		if s.Screen == nil {
			return false
		}
		tol := s.Width/2 + 2
		return planar.DistanceFrom(s.Screen, pt) <= tol
	default:
		mp, ok := s.Screen.(orb.MultiPolygon)
		if !ok {
			return false
		}
		if !mp.Bound().Contains(pt) {
			return false
		}
		return planar.MultiPolygonContains(mp, pt)
	}
}
