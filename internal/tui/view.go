package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	mapX, _, mapW, mapH := m.layout()
	contentWidth := max(10, m.width)

	header := titleStyle.Render(" datamap ─ " + m.dm.Options().Scope + " ")
	header = lipgloss.NewStyle().Width(contentWidth).Render(header)

	var mapView string
	switch {
	case m.showAttrs:
		colW := 0
		for _, c := range m.tbl.Columns() {
			colW += c.Width + 3
		}
		maxW := min(mapW, max(32, colW))
		m.tbl.SetWidth(maxW - 4)
		m.tbl.SetHeight(min(mapH-2, 20))
		box := boxStyle.Width(maxW).Render(m.tbl.View())
		mapView = lipgloss.Place(mapW, mapH, lipgloss.Center, lipgloss.Center, box)
	case m.pasteMode:
		m.ta.SetWidth(mapW)
		m.ta.SetHeight(min(mapH, 12))
		mapView = lipgloss.NewStyle().Width(mapW).Height(mapH).Render(m.ta.View())
	default:
		mapView = lipgloss.NewStyle().Width(mapW).Height(mapH).Render(m.renderMap(mapW, mapH))
	}

	// popup overlays the left of the canvas, like the tooltip beside the pointer
	if content, shown := m.dm.Popup(); shown && !m.showAttrs && !m.pasteMode {
		if text := plainText(content); text != "" {
			box := boxStyle.MaxWidth(min(48, max(20, mapW/2))).Render(text)
			mapView = lipgloss.JoinVertical(lipgloss.Left,
				box,
				lipgloss.NewStyle().Height(max(0, mapH-lipgloss.Height(box))).MaxHeight(max(0, mapH-lipgloss.Height(box))).Render(mapView),
			)
		}
	}

	body := mapView
	if m.showSidebar && mapX > 0 {
		sidebar := lipgloss.NewStyle().Width(sidebarWidth).Render(m.l.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", mapView)
	}

	status := dimStyle.Render(" " + m.status + " ")
	coords := ""
	if m.hovering {
		coords = fmt.Sprintf("x=%.0f y=%.0f", m.hoverX, m.hoverY)
		if el := m.dm.Hovered(); el != nil {
			if s, ok := m.dm.ShapeOf(el); ok {
				coords = s.ID + "  " + coords
			}
		}
		coords = dimStyle.Render("  " + coords + "  ")
	}
	spacerW := max(0, contentWidth-lipgloss.Width(status)-lipgloss.Width(coords))
	top := lipgloss.JoinHorizontal(lipgloss.Bottom, status, lipgloss.NewStyle().Width(spacerW).Render(m.renderLegend()), coords)
	footer := lipgloss.JoinVertical(lipgloss.Left, top, m.help.View(m.keys))

	ui := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	return appStyle.Width(contentWidth).Height(m.height).Render(ui)
}
