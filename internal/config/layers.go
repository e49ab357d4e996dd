package config

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"datamap/internal/datamap"
	"datamap/internal/geom"
)

// DrawLayers draws the configured plugin layers onto m: graticule first so
// it sits under the regions, then bubbles, arcs, labels and the legend.
func (c *Config) DrawLayers(m *datamap.Map) error {
	l := c.Layers
	if l.Graticule {
		if err := m.Graticule(); err != nil {
			return err
		}
	}
	if l.Bubbles != "" {
		recs, err := geom.LoadRecordsFile(l.Bubbles)
		if err != nil {
			return eris.Wrap(err, "config: load bubbles")
		}
		if err := m.Bubbles(recs, nil); err != nil {
			return err
		}
	}
	if l.Arcs != "" {
		recs, err := geom.LoadRecordsFile(l.Arcs)
		if err != nil {
			return eris.Wrap(err, "config: load arcs")
		}
		if err := m.Arc(recs, nil); err != nil {
			return err
		}
	}
	if l.Labels != nil {
		if err := m.Labels(l.Labels.record()); err != nil {
			return err
		}
	}
	if l.Legend != nil {
		if err := m.Legend(l.Legend.record()); err != nil {
			return err
		}
	}
	return nil
}

func (l *LabelsConfig) record() geom.Record {
	rec := geom.Record{}
	if l.Color != "" {
		rec["labelColor"] = l.Color
	}
	if l.FontFamily != "" {
		rec["fontFamily"] = l.FontFamily
	}
	if l.FontSize > 0 {
		rec["fontSize"] = l.FontSize
	}
	if l.LineWidth > 0 {
		rec["lineWidth"] = l.LineWidth
	}
	return rec
}

func (l *LegendConfig) record() geom.Record {
	rec := geom.Record{}
	if l.Title != "" {
		rec["legendTitle"] = l.Title
	}
	if l.DefaultFillName != "" {
		rec["defaultFillName"] = l.DefaultFillName
	}
	if len(l.Labels) > 0 {
		labels := map[string]any{}
		for k, v := range l.Labels {
			labels[k] = v
		}
		rec["labels"] = labels
	}
	return rec
}

// LabelOptions returns the label plugin options, or nil when labels are not
// configured.
func (c *Config) LabelOptions() geom.Record {
	if c.Layers.Labels == nil {
		return nil
	}
	return c.Layers.Labels.record()
}

// LegendOptions returns the legend plugin options, or nil when no legend is
// configured.
func (c *Config) LegendOptions() geom.Record {
	if c.Layers.Legend == nil {
		return nil
	}
	return c.Layers.Legend.record()
}

// Build creates the configured map inside a fresh host element and draws its
// layers.
func (c *Config) Build(ctx context.Context) (*datamap.Map, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	height := opts.Height
	if height <= 0 {
		ratio := opts.AspectRatio
		if ratio <= 0 {
			ratio = datamap.DefaultOptions().AspectRatio
		}
		height = opts.Width * ratio
	}
	m, err := datamap.New(ctx, datamap.NewElement("map", opts.Width, height), opts)
	if err != nil {
		return nil, eris.Wrap(err, "config: build map")
	}
	if err := c.DrawLayers(m); err != nil {
		return nil, eris.Wrap(err, "config: draw layers")
	}
	return m, nil
}

// Seed identifies the map a config builds, so servers built from the same
// settings agree on cache keys.
func (c *Config) Seed() string {
	b, err := json.Marshal(struct {
		Map      MapConfig
		Layers   LayersConfig
		Topology string
		Data     string
	}{c.Map, c.Layers, c.Topology, c.Data})
	if err != nil {
		return ""
	}
	return string(b)
}
