package datamap

import (
	"sort"
	"time"

	"datamap/internal/geom"
	"datamap/internal/svg"
)

const fillTransition = 250 * time.Millisecond

// ChoroplethOptions control UpdateChoropleth.
type ChoroplethOptions struct {
	// Reset returns every region to defaultFill and clears its data first.
	Reset bool
}

// UpdateChoropleth recolours regions. Each value is a colour string, a record
// with color or fillColor, or a record with a fillKey. Record values are
// merged into the stored data table with existing fields kept.
//
// Regions are addressed by class name, so an identifier equal to any other
// class in the document recolours those elements too.
func (m *Map) UpdateChoropleth(table map[string]any, opts ChoroplethOptions) {
	if opts.Reset {
		for _, el := range m.surface.SelectClass("datamaps-subunit") {
			el.SetAttr("data-info", "{}")
			transitionFill(el, m.opts.Fills.Default())
		}
		m.data = geom.DataTable{}
		m.painted = map[string]string{}
	}

	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if id == "" {
			continue
		}
		value := table[id]
		color := m.choroplethColor(value)
		if rec, ok := geom.AsRecord(value); ok {
			stored := m.data[id].Clone().Merge(rec)
			m.data[id] = stored
			if el := m.surface.First(id); el != nil {
				el.SetAttr("data-info", stored.JSON())
			}
		}
		m.painted[id] = color
		for _, el := range m.surface.SelectClass(id) {
			transitionFill(el, color)
		}
	}
	m.revision++
}

func (m *Map) choroplethColor(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	rec, ok := geom.AsRecord(value)
	if !ok {
		return m.opts.Fills.Default()
	}
	if s, ok := rec["color"].(string); ok {
		return s
	}
	if s, ok := rec["fillColor"].(string); ok {
		return s
	}
	if key, ok := rec["fillKey"].(string); ok {
		if c, ok := m.opts.Fills[key]; ok {
			return c
		}
	}
	return m.opts.Fills.Default()
}

// transitionFill sets the final fill and records the transition towards it.
// A later transition replaces the earlier one.
func transitionFill(el *svg.Element, color string) {
	el.SetStyle("fill", color)
	el.Animate(svg.Animation{Attribute: "fill", To: color, Dur: fillTransition})
}
