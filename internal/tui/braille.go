package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// brailleBuf is a 2x4 micro-pixel grid per terminal cell. Each cell keeps
// the colour of the last pixel drawn into it.
type brailleBuf struct {
	w, h  int // in cells
	m     [][]uint8
	color [][]lipgloss.TerminalColor
	text  [][]rune
}

func newBrailleBuf(w, h int) *brailleBuf {
	m := make([][]uint8, h)
	c := make([][]lipgloss.TerminalColor, h)
	t := make([][]rune, h)
	for i := range m {
		m[i] = make([]uint8, w)
		c[i] = make([]lipgloss.TerminalColor, w)
		t[i] = make([]rune, w)
	}
	return &brailleBuf{w: w, h: h, m: m, color: c, text: t}
}

var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func (b *brailleBuf) cell(mx, my int) (cx, cy int, bit uint8, ok bool) {
	if mx < 0 || my < 0 {
		return 0, 0, 0, false
	}
	cx, cy = mx/2, my/4
	if cy >= b.h || cx >= b.w {
		return 0, 0, 0, false
	}
	return cx, cy, dotBits[mx%2][my%4], true
}

// setPixel sets a micro-pixel at micro coords (2x4 per cell)
func (b *brailleBuf) setPixel(mx, my int, col lipgloss.TerminalColor) {
	cx, cy, bit, ok := b.cell(mx, my)
	if !ok {
		return
	}
	b.m[cy][cx] |= bit
	if col != nil {
		b.color[cy][cx] = col
	}
}

// clearPixel unsets a micro-pixel; region outlines are carved this way so
// neighbouring regions stay apart.
func (b *brailleBuf) clearPixel(mx, my int) {
	cx, cy, bit, ok := b.cell(mx, my)
	if !ok {
		return
	}
	b.m[cy][cx] &^= bit
}

// line walks the microgrid from (x0, y0) to (x1, y1) using Bresenham.
func line(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (b *brailleBuf) drawLineMicro(x0, y0, x1, y1 int, col lipgloss.TerminalColor) {
	line(x0, y0, x1, y1, func(x, y int) { b.setPixel(x, y, col) })
}

func (b *brailleBuf) carveLineMicro(x0, y0, x1, y1 int) {
	line(x0, y0, x1, y1, b.clearPixel)
}

// putText writes s over the cells starting at (cx, cy), clipped to the
// buffer.
func (b *brailleBuf) putText(cx, cy int, s string, col lipgloss.TerminalColor) {
	if cy < 0 || cy >= b.h {
		return
	}
	for i, r := range []rune(s) {
		x := cx + i
		if x < 0 || x >= b.w {
			continue
		}
		b.text[cy][x] = r
		b.color[cy][x] = col
	}
}

func (b *brailleBuf) glyph(x, y int) (rune, lipgloss.TerminalColor) {
	if r := b.text[y][x]; r != 0 {
		return r, b.color[y][x]
	}
	mask := b.m[y][x]
	if mask == 0 {
		return ' ', nil
	}
	return rune(0x2800 + int(mask)), b.color[y][x]
}

// toLines renders the buffer, colouring runs of cells that share a colour.
func (b *brailleBuf) toLines() []string {
	out := make([]string, b.h)
	for y := 0; y < b.h; y++ {
		var sb strings.Builder
		var run []rune
		var runCol lipgloss.TerminalColor
		flush := func() {
			if len(run) == 0 {
				return
			}
			if runCol == nil {
				sb.WriteString(string(run))
			} else {
				sb.WriteString(lipgloss.NewStyle().Foreground(runCol).Render(string(run)))
			}
			run = run[:0]
		}
		for x := 0; x < b.w; x++ {
			r, col := b.glyph(x, y)
			if col != runCol {
				flush()
				runCol = col
			}
			run = append(run, r)
		}
		flush()
		out[y] = sb.String()
	}
	return out
}

// plain returns the glyphs without colour.
func (b *brailleBuf) plain() []string {
	out := make([]string, b.h)
	for y := 0; y < b.h; y++ {
		row := make([]rune, b.w)
		for x := 0; x < b.w; x++ {
			row[x], _ = b.glyph(x, y)
		}
		out[y] = string(row)
	}
	return out
}
