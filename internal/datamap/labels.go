package datamap

import (
	"math"

	"github.com/paulmach/orb"

	"datamap/internal/geom"
	"datamap/internal/svg"
)

// smallStates are stacked off the coast with a leader line to their centre.
var smallStates = []string{"VT", "NH", "MA", "RI", "CT", "NJ", "DE", "MD", "DC"}

var labelStart = orb.Point{-67.707617, 42.722131}

func smallStateIndex(id string) int {
	for i, s := range smallStates {
		if s == id {
			return i
		}
	}
	return -1
}

// drawLabels appends a text label for every drawn region.
func drawLabels(m *Map, layer *svg.Element, _ any, opts geom.Record) error {
	color := "#000"
	if c, ok := opts.GetString("labelColor"); ok && c != "" {
		color = c
	}
	family := "Verdana"
	if f, ok := opts.GetString("fontFamily"); ok && f != "" {
		family = f
	}
	lineWidth := 1.0
	if v, ok := opts.GetFloat("lineWidth"); ok && v != 0 {
		lineWidth = v
	}
	fontSize, hasSize := opts.GetFloat("fontSize")
	if fontSize == 0 {
		hasSize = false
	}
	custom, _ := geom.AsRecord(opts["customLabelText"])

	start, _ := m.path.Point(labelStart)

	for _, el := range m.Subunits() {
		s := m.shapes[el]
		id := s.ID
		center, ok := m.labelCenter(s)
		if !ok {
			continue
		}

		xOffset, yOffset := 7.5, 5.0
		switch id {
		case "FL", "KY":
			xOffset = -2.5
		case "MI":
			xOffset, yOffset = -2.5, 18
		case "NY":
			xOffset = -1
		case "LA":
			xOffset = 13
		}
		x, y := center[0]-xOffset, center[1]+yOffset

		if i := smallStateIndex(id); i >= 0 {
			step := 12.0
			if hasSize {
				step = fontSize
			}
			x = start[0]
			y = start[1] + float64(i)*(2+step)
			line := svg.New("line")
			line.SetNum("x1", x-3)
			line.SetNum("y1", y-5)
			line.SetNum("x2", center[0])
			line.SetNum("y2", center[1])
			line.SetStyle("stroke", color)
			line.SetStyle("stroke-width", svg.Num(lineWidth))
			layer.Append(line)
		}

		size := 10.0
		if hasSize {
			size = fontSize
		}
		text := svg.New("text")
		text.SetNum("x", x)
		text.SetNum("y", y)
		text.SetStyle("font-size", svg.Num(size)+"px")
		text.SetStyle("font-family", family)
		text.SetStyle("fill", color)
		text.Text = id
		if t, ok := custom.GetString(id); ok && t != "" {
			text.Text = t
		}
		layer.Append(text)
	}
	return nil
}

func (m *Map) labelCenter(s *Shape) (orb.Point, bool) {
	if s.ID == "USA" {
		return m.path.Point(usaCentre)
	}
	c, ok := m.path.Centroid(s.region.Geometry)
	if !ok || math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return orb.Point{}, false
	}
	return c, true
}
