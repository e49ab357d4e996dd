package datamap

import (
	"sort"

	"datamap/internal/geom"
	"datamap/internal/svg"
)

// drawLegend appends a legend of the fill table to the host element. Earlier
// legends are left in place.
func drawLegend(m *Map, _ *svg.Element, _ any, opts geom.Record) error {
	legend := svg.New("div", "datamaps-legend")
	if title, ok := opts.GetString("legendTitle"); ok && title != "" {
		h := svg.New("h2")
		h.Text = title
		legend.Append(h)
	}
	labels, _ := geom.AsRecord(opts["labels"])

	dl := legend.Append(svg.New("dl"))
	row := func(label, color string) {
		dt := svg.New("dt")
		dt.Text = label
		dl.Append(dt)
		dd := svg.New("dd")
		dd.SetStyle("background-color", color)
		dd.Raw = "&#160;"
		dl.Append(dd)
	}

	if name, ok := opts.GetString("defaultFillName"); ok && name != "" {
		row(name, m.opts.Fills.Default())
	}
	keys := make([]string, 0, len(m.opts.Fills))
	for k := range m.opts.Fills {
		if k != DefaultFillKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		label := k + ": "
		if l, ok := labels.GetString(k); ok && l != "" {
			label = l
		}
		row(label, m.opts.Fills[k])
	}

	m.el.Node.Append(legend)
	return nil
}
