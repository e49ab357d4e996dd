package datamap

import (
	"datamap/internal/svg"
)

// Element is the host a map draws into: an HTML container node and its pixel
// box. The map adds its surface, legends and tooltip as children of Node.
type Element struct {
	Node   *svg.Element
	Width  float64
	Height float64
}

// NewElement creates a host <div> with the given id and size.
func NewElement(id string, width, height float64) *Element {
	node := svg.New("div")
	if id != "" {
		node.SetAttr("id", id)
	}
	return &Element{Node: node, Width: width, Height: height}
}

// surface returns the host's existing <svg> child, if any.
func (e *Element) surface() *svg.Element {
	for _, c := range e.Node.Children() {
		if c.Tag == "svg" {
			return c
		}
	}
	return nil
}
