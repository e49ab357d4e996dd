package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Styles
var (
	baseFg    = lipgloss.Color("#E6E6E6")
	baseDimFg = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"}
	accentFg  = lipgloss.Color("#7C3AED")
	hoverFg   = lipgloss.Color("#FFA500")
	borderCol = lipgloss.Color("#243141")

	appStyle   = lipgloss.NewStyle().Foreground(baseFg)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderCol).Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Foreground(accentFg).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(baseDimFg)
	labelStyle = lipgloss.NewStyle().Foreground(baseFg).Bold(true)
)

// namedColors covers the CSS names the default fills and popups use.
var namedColors = map[string]string{
	"black":     "#000000",
	"white":     "#FFFFFF",
	"red":       "#FF0000",
	"green":     "#008000",
	"blue":      "#0000FF",
	"yellow":    "#FFFF00",
	"orange":    "#FFA500",
	"purple":    "#800080",
	"gray":      "#808080",
	"grey":      "#808080",
	"steelblue": "#4682B4",
	"navy":      "#000080",
	"teal":      "#008080",
}

// termColor turns a CSS colour into a terminal colour. Unknown values map to
// the base foreground; "none" and transparent colours map to nil.
func termColor(css string) lipgloss.TerminalColor {
	css = strings.TrimSpace(strings.ToLower(css))
	switch css {
	case "", "none", "transparent":
		return nil
	}
	if hex, ok := namedColors[css]; ok {
		css = hex
	}
	if strings.HasPrefix(css, "#") {
		c, err := colorful.Hex(css)
		if err != nil {
			return baseFg
		}
		return lipgloss.Color(c.Hex())
	}
	if c, ok := parseFunc(css); ok {
		return lipgloss.Color(c.Hex())
	}
	return baseFg
}

// parseFunc reads rgb(), rgba(), hsl() and hsla() notation.
func parseFunc(css string) (colorful.Color, bool) {
	open := strings.IndexByte(css, '(')
	if open < 0 || !strings.HasSuffix(css, ")") {
		return colorful.Color{}, false
	}
	name := css[:open]
	parts := strings.Split(css[open+1:len(css)-1], ",")
	if len(parts) < 3 {
		return colorful.Color{}, false
	}
	var v [3]float64
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(parts[i]), "%"), 64)
		if err != nil {
			return colorful.Color{}, false
		}
		v[i] = f
	}
	switch name {
	case "rgb", "rgba":
		return colorful.Color{R: v[0] / 255, G: v[1] / 255, B: v[2] / 255}.Clamped(), true
	case "hsl", "hsla":
		return colorful.Hsl(v[0], v[1]/100, v[2]/100).Clamped(), true
	}
	return colorful.Color{}, false
}

// highlight blends a colour towards the hover accent.
func highlight(col lipgloss.TerminalColor) lipgloss.TerminalColor {
	c, ok := col.(lipgloss.Color)
	if !ok {
		return hoverFg
	}
	base, err := colorful.Hex(string(c))
	if err != nil {
		return hoverFg
	}
	accent, _ := colorful.Hex(string(hoverFg))
	return lipgloss.Color(base.BlendLab(accent, 0.6).Clamped().Hex())
}
