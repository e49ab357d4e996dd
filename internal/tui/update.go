package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"datamap/internal/datamap"
)

// layout returns the map canvas rectangle in terminal cells. View and the
// mouse handling must agree on it.
func (m Model) layout() (x, y, w, h int) {
	contentHeight := max(4, m.height-headerHeight-footerHeight)
	contentWidth := max(10, m.width)
	x = 0
	w = contentWidth
	if m.showSidebar {
		x = sidebarWidth + 1
		w = contentWidth - sidebarWidth - 1
	}
	return x, headerHeight, max(10, w), contentHeight
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.mapX, m.mapY, m.mapW, m.mapH = m.layout()
		m.l.SetSize(sidebarWidth-2, m.mapH-2)
		m.resizeMap()
		return m, nil
	case tea.KeyMsg:
		if m.pasteMode {
			return m.updatePaste(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Layers):
			m.showSidebar = !m.showSidebar
			m.mapX, m.mapY, m.mapW, m.mapH = m.layout()
			if m.showSidebar {
				m.refreshLayers()
			}
			m.resizeMap()
			return m, nil
		case m.showSidebar && msg.String() == "enter":
			if it, ok := m.l.SelectedItem().(layerItem); ok {
				m.toggleLayer(it.name)
			}
			return m, nil
		case m.showSidebar && (msg.String() == "up" || msg.String() == "down"):
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		case m.showAttrs && (msg.String() == "up" || msg.String() == "down"):
			var cmd tea.Cmd
			m.tbl, cmd = m.tbl.Update(msg)
			return m, cmd
		case key.Matches(msg, m.keys.ZoomIn):
			m.dm.Zoom(zoomStep, m.dm.Width()/2, m.dm.Height()/2)
			m.status = fmt.Sprintf("zoom: %.2fx", m.dm.ZoomTransform().K)
		case key.Matches(msg, m.keys.ZoomOut):
			m.dm.Zoom(1/zoomStep, m.dm.Width()/2, m.dm.Height()/2)
			m.status = fmt.Sprintf("zoom: %.2fx", m.dm.ZoomTransform().K)
		case key.Matches(msg, m.keys.Reset):
			m.dm.ResetZoom()
			m.status = "zoom: 1.00x"
		case key.Matches(msg, m.keys.Up):
			m.dm.Pan(0, -panStep)
		case key.Matches(msg, m.keys.Down):
			m.dm.Pan(0, panStep)
		case key.Matches(msg, m.keys.Left):
			m.dm.Pan(-panStep, 0)
		case key.Matches(msg, m.keys.Right):
			m.dm.Pan(panStep, 0)
		case key.Matches(msg, m.keys.Labels):
			m.toggleLayer("labels")
		case key.Matches(msg, m.keys.Graticule):
			m.toggleLayer("graticule")
		case key.Matches(msg, m.keys.Attrs):
			m.showAttrs = !m.showAttrs
			if m.showAttrs {
				m.refreshAttrs()
			}
		case key.Matches(msg, m.keys.Paste):
			m.pasteMode = true
			m.ta.SetValue("")
			m.ta.Focus()
			m.status = "paste mode"
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	case tea.MouseMsg:
		m.updateMouse(msg)
	}
	return m, nil
}

func (m *Model) updatePaste(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pasteMode = false
		m.ta.Blur()
		m.status = "view mode"
		return *m, nil
	case "enter":
		text := strings.TrimSpace(m.ta.Value())
		if text == "" {
			m.status = "paste: empty"
			return *m, nil
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(text), &data); err != nil {
			m.status = "paste: " + err.Error()
			return *m, nil
		}
		m.dm.UpdateChoropleth(data, datamap.ChoroplethOptions{})
		zap.L().Debug("choropleth pasted", zap.Int("regions", len(data)))
		m.status = fmt.Sprintf("updated %d regions", len(data))
		m.pasteMode = false
		m.ta.Blur()
		if m.showAttrs {
			m.refreshAttrs()
		}
		return *m, nil
	}
	var cmd tea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	return *m, cmd
}

// updateMouse moves the map's pointer with the mouse and zooms on the wheel.
func (m *Model) updateMouse(msg tea.MouseMsg) {
	cx, cy := msg.X-m.mapX, msg.Y-m.mapY
	if m.showAttrs || cx < 0 || cy < 0 || cx >= m.mapW || cy >= m.mapH {
		if m.hovering {
			m.dm.PointerLeave()
			m.hovering = false
		}
		return
	}
	p := newViewport(m.dm, m.mapW, m.mapH).host(cx, cy)
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.dm.Zoom(zoomStep, p[0], p[1])
		return
	case tea.MouseButtonWheelDown:
		m.dm.Zoom(1/zoomStep, p[0], p[1])
		return
	}
	m.hovering = true
	m.hoverX, m.hoverY = p[0], p[1]
	m.dm.PointerMoveExcept(p[0], p[1], m.layerHidden)
}

// resizeMap fits a responsive map to the canvas at one host pixel per
// braille dot.
func (m *Model) resizeMap() {
	if m.dm == nil || !m.dm.Options().Responsive || m.mapW <= 0 {
		return
	}
	width := float64(m.mapW * 2)
	if h := float64(m.mapH * 4); width*m.dm.Options().AspectRatio > h {
		width = h / m.dm.Options().AspectRatio
	}
	if err := m.dm.Resize(width); err != nil {
		zap.L().Warn("resize failed", zap.Error(err))
		m.status = "resize: " + err.Error()
	}
}
