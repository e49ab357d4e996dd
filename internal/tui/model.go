// Package tui draws a datamap.Map in the terminal with braille graphics.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	list "github.com/charmbracelet/bubbles/list"
	table "github.com/charmbracelet/bubbles/table"
	textarea "github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"datamap/internal/datamap"
	"datamap/internal/geom"
)

const (
	sidebarWidth = 28
	headerHeight = 1
	footerHeight = 2
	panStep      = 20.0
	zoomStep     = 1.5
)

type Model struct {
	dm *datamap.Map

	width  int
	height int

	keys keyMap
	help help.Model

	status string

	// layer sidebar
	showSidebar bool
	l           list.Model
	hidden      map[string]bool

	// labels and legend are drawn with these options when toggled on
	labelOpts  geom.Record
	legendOpts geom.Record

	// paste mode takes a choropleth update as JSON
	pasteMode bool
	ta        textarea.Model

	// data table
	showAttrs bool
	tbl       table.Model

	// last map canvas, for mouse mapping
	mapX, mapY int
	mapW, mapH int

	hoverX, hoverY float64
	hovering       bool
}

// Option configures a Model.
type Option func(*Model)

// WithLabelOptions sets the options used when labels are switched on.
func WithLabelOptions(opts geom.Record) Option {
	return func(m *Model) { m.labelOpts = opts }
}

// WithLegendOptions sets the options used when the legend is switched on.
func WithLegendOptions(opts geom.Record) Option {
	return func(m *Model) { m.legendOpts = opts }
}

func New(dm *datamap.Map, opts ...Option) Model {
	m := Model{
		dm:     dm,
		keys:   defaultKeys(),
		help:   help.New(),
		status: "datamap ready",
		hidden: map[string]bool{},
	}
	for _, o := range opts {
		o(&m)
	}
	d := list.NewDefaultDelegate()
	m.l = list.New(nil, d, 0, 0)
	m.l.Title = "Layers"
	m.l.SetShowHelp(false)
	m.l.SetShowStatusBar(false)
	m.l.SetFilteringEnabled(false)
	m.refreshLayers()

	m.ta = textarea.New()
	m.ta.Placeholder = `Paste choropleth data, e.g. {"USA":{"fillKey":"high"}}. Enter applies; Esc cancels.`
	m.ta.CharLimit = 0
	m.ta.SetWidth(50)
	m.ta.SetHeight(6)

	m.tbl = table.New(table.WithFocused(true))
	m.tbl.SetHeight(12)
	return m
}

func (m Model) Init() tea.Cmd { return nil }
