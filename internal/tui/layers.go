package tui

import list "github.com/charmbracelet/bubbles/list"

// toggleable lists the plugin layers the sidebar offers, in paint order.
var toggleable = []string{"graticule", "bubbles", "arc", "labels", "legend"}

// drawable are the layers that can be created from the terminal because
// they take no data.
var drawable = map[string]bool{"graticule": true, "labels": true, "legend": true}

type layerItem struct {
	name    string
	present bool
	shown   bool
}

func (i layerItem) Title() string {
	mark := "[ ]"
	if i.shown {
		mark = "[x]"
	}
	return mark + " " + i.name
}

func (i layerItem) Description() string {
	switch {
	case i.present:
		return "drawn"
	case drawable[i.name]:
		return "enter to draw"
	}
	return "no data"
}

func (i layerItem) FilterValue() string { return i.name }

func (m *Model) refreshLayers() {
	items := make([]list.Item, 0, len(toggleable))
	for _, name := range toggleable {
		present := m.dm != nil && m.dm.Layer(name) != nil
		items = append(items, layerItem{name: name, present: present, shown: present && !m.hidden[name]})
	}
	m.l.SetItems(items)
}

// toggleLayer switches a layer on or off. Data-free layers are removed and
// redrawn; data layers stay in the map and are only skipped when drawing.
func (m *Model) toggleLayer(name string) {
	defer m.refreshLayers()
	if !drawable[name] {
		if m.dm.Layer(name) == nil {
			m.status = name + ": no data"
			return
		}
		m.hidden[name] = !m.hidden[name]
		if m.hidden[name] && inLayer(m.dm, m.dm.Hovered(), name) {
			if m.hovering {
				m.dm.PointerMoveExcept(m.hoverX, m.hoverY, m.layerHidden)
			} else {
				m.dm.PointerLeave()
			}
		}
		m.status = name + ": " + onOff(!m.hidden[name])
		return
	}
	if m.dm.RemoveLayer(name) {
		m.status = name + ": off"
		return
	}
	var err error
	switch name {
	case "labels":
		err = m.dm.Labels(m.labelOpts)
	case "legend":
		err = m.dm.Legend(m.legendOpts)
	default:
		err = m.dm.Graticule()
	}
	if err != nil {
		m.status = name + ": " + err.Error()
		return
	}
	m.status = name + ": on"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
