package datamap

import (
	"github.com/rotisserie/eris"

	"datamap/internal/geom"
	"datamap/internal/svg"
)

// PluginFunc draws data into layer. opts are the call-time options; the
// plugin merges them over its configured defaults.
type PluginFunc func(m *Map, layer *svg.Element, data any, opts geom.Record) error

type plugin struct {
	fn       PluginFunc
	validate func(data any) error
	replay   replayMode
	onHost   bool
}

type replayMode int

const (
	// replayUpdate reruns the plugin over its existing layer.
	replayUpdate replayMode = iota
	// replayRedraw clears the layer before rerunning.
	replayRedraw
	// replaySkip leaves the layer alone; for output outside the surface.
	replaySkip
)

// PluginOption configures a registered plugin.
type PluginOption func(*plugin)

// WithValidator rejects data before any layer is created.
func WithValidator(fn func(data any) error) PluginOption {
	return func(p *plugin) { p.validate = fn }
}

// RedrawOnResize clears the plugin's layer before it is replayed after a
// resize. Use it for plugins that append on every call.
func RedrawOnResize() PluginOption {
	return func(p *plugin) { p.replay = replayRedraw }
}

// SkipOnResize keeps the plugin from being replayed after a resize.
func SkipOnResize() PluginOption {
	return func(p *plugin) { p.replay = replaySkip }
}

// DrawsOnHost marks a plugin that writes into the host element instead of
// the surface. Its layer stays detached and it is not replayed on resize.
func DrawsOnHost() PluginOption {
	return func(p *plugin) {
		p.onHost = true
		p.replay = replaySkip
	}
}

type layerState struct {
	name  string
	layer *svg.Element
	// hosted holds what the plugin appended to the host element.
	hosted []*svg.Element
	data   any
	opts   geom.Record
}

// AddPlugin registers fn under name. A name can only be registered once.
func (m *Map) AddPlugin(name string, fn PluginFunc, options ...PluginOption) error {
	if _, ok := m.plugins[name]; ok {
		return eris.Wrapf(ErrPluginExists, "%q", name)
	}
	p := &plugin{fn: fn}
	for _, o := range options {
		o(p)
	}
	m.plugins[name] = p
	return nil
}

// Call runs the named plugin. The layer and options from the previous call
// are reused unless newLayer is set. done receives the layer afterwards.
func (m *Map) Call(name string, data any, opts geom.Record, done func(layer *svg.Element), newLayer bool) error {
	p, ok := m.plugins[name]
	if !ok {
		return eris.Wrapf(ErrUnknownPlugin, "%q", name)
	}
	if p.validate != nil {
		if err := p.validate(data); err != nil {
			return err
		}
	}
	st, ok := m.layers[name]
	if newLayer || !ok {
		layer := svg.New("g", name)
		if !p.onHost {
			m.zoomLayer.Append(layer)
		}
		st = &layerState{name: name, layer: layer}
		m.layers[name] = st
		m.history = append(m.history, st)
	}
	st.data, st.opts = data, opts
	before := map[*svg.Element]bool{}
	if p.onHost {
		for _, c := range m.el.Node.Children() {
			before[c] = true
		}
	}
	if err := p.fn(m, st.layer, data, opts); err != nil {
		return eris.Wrapf(err, "plugin %s", name)
	}
	if p.onHost {
		for _, c := range m.el.Node.Children() {
			if !before[c] {
				st.hosted = append(st.hosted, c)
			}
		}
	}
	m.revision++
	if done != nil {
		done(st.layer)
	}
	return nil
}

// Layer returns the current layer of the named plugin.
func (m *Map) Layer(name string) *svg.Element {
	if st, ok := m.layers[name]; ok {
		return st.layer
	}
	return nil
}

// RemoveLayer drops every layer the named plugin has drawn. It reports
// whether there was one.
func (m *Map) RemoveLayer(name string) bool {
	kept := m.history[:0]
	removed := false
	for _, st := range m.history {
		if st.name != name {
			kept = append(kept, st)
			continue
		}
		for _, c := range st.layer.Find(func(*svg.Element) bool { return true }) {
			if c == m.hovered {
				m.hovered = nil
				m.hidePopup()
			}
			delete(m.shapes, c)
			delete(m.handlers, c)
		}
		st.layer.Remove()
		for _, h := range st.hosted {
			h.Remove()
		}
		removed = true
	}
	m.history = kept
	delete(m.layers, name)
	if removed {
		m.revision++
	}
	return removed
}

// replayLayers reruns every plugin layer under the current projection.
func (m *Map) replayLayers() error {
	for _, st := range m.history {
		p := m.plugins[st.name]
		if p == nil || p.replay == replaySkip {
			continue
		}
		if p.replay == replayRedraw {
			for _, c := range st.layer.Children() {
				delete(m.shapes, c)
				delete(m.handlers, c)
			}
			st.layer.Clear()
		}
		if err := p.fn(m, st.layer, st.data, st.opts); err != nil {
			return eris.Wrapf(err, "replay plugin %s", st.name)
		}
	}
	return nil
}

func (m *Map) registerBuiltins() error {
	builtins := []struct {
		name string
		fn   PluginFunc
		opts []PluginOption
	}{
		{"bubbles", drawBubbles, []PluginOption{WithValidator(validateList)}},
		{"legend", drawLegend, []PluginOption{DrawsOnHost()}},
		{"arc", drawArcs, []PluginOption{WithValidator(validateList)}},
		{"labels", drawLabels, []PluginOption{RedrawOnResize()}},
		{"graticule", drawGraticule, []PluginOption{RedrawOnResize()}},
	}
	for _, b := range builtins {
		if err := m.AddPlugin(b.name, b.fn, b.opts...); err != nil {
			return err
		}
	}
	return nil
}

func validateList(data any) error {
	_, err := toRecords(data)
	return err
}

// toRecords accepts a slice of records or JSON-decoded objects.
func toRecords(data any) ([]geom.Record, error) {
	switch v := data.(type) {
	case []geom.Record:
		if v == nil {
			return nil, nil
		}
		return v, nil
	case []map[string]any:
		out := make([]geom.Record, len(v))
		for i, r := range v {
			out[i] = geom.Record(r)
		}
		return out, nil
	case []any:
		out := make([]geom.Record, 0, len(v))
		for i, item := range v {
			r, ok := geom.AsRecord(item)
			if !ok {
				return nil, eris.Wrapf(ErrNotList, "item %d is %T", i, item)
			}
			out = append(out, r)
		}
		return out, nil
	}
	return nil, eris.Wrapf(ErrNotList, "got %T", data)
}

// Bubbles draws or updates the bubble layer.
func (m *Map) Bubbles(data any, opts geom.Record) error {
	return m.Call("bubbles", data, opts, nil, false)
}

// Arc draws or updates the arc layer.
func (m *Map) Arc(data any, opts geom.Record) error {
	return m.Call("arc", data, opts, nil, false)
}

// Labels draws a label for every region.
func (m *Map) Labels(opts geom.Record) error {
	return m.Call("labels", opts, opts, nil, false)
}

// Legend appends a legend for the fill table to the host element.
func (m *Map) Legend(opts geom.Record) error {
	return m.Call("legend", opts, opts, nil, false)
}

// Graticule draws meridians and parallels beneath the regions.
func (m *Map) Graticule() error {
	return m.Call("graticule", nil, nil, nil, false)
}
