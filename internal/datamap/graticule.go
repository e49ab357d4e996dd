package datamap

import (
	"datamap/internal/geom"
	"datamap/internal/projection"
	"datamap/internal/svg"
)

// drawGraticule draws the 10° graticule and moves its layer beneath the
// regions.
func drawGraticule(m *Map, layer *svg.Element, _ any, _ geom.Record) error {
	el := svg.New("path", "datamaps-graticule")
	el.SetAttr("d", m.path.D(projection.Graticule()))
	layer.Append(el)
	m.zoomLayer.InsertBefore(layer, m.subunits)
	return nil
}
