package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up, Down, Left, Right key.Binding
	ZoomIn, ZoomOut       key.Binding
	Reset                 key.Binding
	Labels                key.Binding
	Graticule             key.Binding
	Layers                key.Binding
	Attrs                 key.Binding
	Paste                 key.Binding
	Help                  key.Binding
	Quit                  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "pan")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "pan")),
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "pan")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "pan")),
		ZoomIn:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		Reset:     key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset zoom")),
		Labels:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "labels")),
		Graticule: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "graticule")),
		Layers:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "layers")),
		Attrs:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "data")),
		Paste:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "paste data")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.Labels, k.Layers, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.ZoomIn, k.ZoomOut, k.Reset},
		{k.Labels, k.Graticule, k.Layers},
		{k.Attrs, k.Paste, k.Help, k.Quit},
	}
}
