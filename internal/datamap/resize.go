package datamap

import (
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"datamap/internal/svg"
)

// ZoomTransform is the pan/zoom applied to the zoom layer: a screen point p
// is drawn at p*K + (X, Y).
type ZoomTransform struct {
	K, X, Y float64
}

func (z ZoomTransform) invert(p orb.Point) orb.Point {
	k := z.K
	if k == 0 {
		k = 1
	}
	return orb.Point{(p[0] - z.X) / k, (p[1] - z.Y) / k}
}

// Apply maps an untransformed screen point to where it is drawn.
func (z ZoomTransform) Apply(p orb.Point) orb.Point {
	return orb.Point{p[0]*z.K + z.X, p[1]*z.K + z.Y}
}

func (z ZoomTransform) String() string {
	return "translate(" + svg.Num(z.X) + "," + svg.Num(z.Y) + ")scale(" + svg.Num(z.K) + ")"
}

// ZoomTransform returns the current pan/zoom.
func (m *Map) ZoomTransform() ZoomTransform { return m.zoom }

// Zoom multiplies the scale by factor around (cx, cy) in host pixels. The
// resulting scale is clamped to the ZoomScale range.
func (m *Map) Zoom(factor, cx, cy float64) {
	if factor <= 0 {
		return
	}
	lo, hi := m.opts.ZoomScale[0], m.opts.ZoomScale[1]
	k := m.zoom.K * factor
	if k < lo {
		k = lo
	}
	if k > hi {
		k = hi
	}
	anchor := m.zoom.invert(orb.Point{cx, cy})
	m.zoom = ZoomTransform{K: k, X: cx - anchor[0]*k, Y: cy - anchor[1]*k}
	m.applyZoom()
}

// Pan moves the zoom layer by (dx, dy) host pixels.
func (m *Map) Pan(dx, dy float64) {
	m.zoom.X += dx
	m.zoom.Y += dy
	m.applyZoom()
}

// ResetZoom returns to the identity transform.
func (m *Map) ResetZoom() {
	m.zoom = ZoomTransform{K: 1}
	m.applyZoom()
}

func (m *Map) applyZoom() {
	if m.zoom == (ZoomTransform{K: 1}) {
		m.zoomLayer.RemoveAttr("transform")
	} else {
		m.zoomLayer.SetAttr("transform", m.zoom.String())
	}
	m.revision++
}

// Resize redraws a responsive map at a new width. The height follows the
// aspect ratio; regions are redrawn under the new projection, handlers are
// attached to the new regions and plugin layers are replayed.
func (m *Map) Resize(width float64) error {
	if !m.opts.Responsive {
		return ErrNotResponsive
	}
	if width <= 0 || width == m.width {
		return nil
	}
	ratio := width / m.width
	m.width = width
	m.height = width * m.opts.AspectRatio
	m.sizeSurface()

	if err := m.setupProjection(); err != nil {
		return err
	}
	if m.hovered != nil {
		m.Leave(m.hovered)
	}
	for _, el := range m.subunits.Children() {
		delete(m.shapes, el)
		delete(m.handlers, el)
	}
	m.subunits.Clear()
	m.drawSubunits()
	m.attachHandlers()

	m.zoom.X *= ratio
	m.zoom.Y *= ratio
	m.applyZoom()

	if err := m.replayLayers(); err != nil {
		return err
	}
	logger().Debug("resized", zap.Float64("width", m.width), zap.Float64("height", m.height))
	m.revision++
	return nil
}
