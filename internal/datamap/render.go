package datamap

import (
	"io"

	"github.com/rotisserie/eris"
)

const (
	htmlHead = `<!DOCTYPE html><html><head><meta charset="utf-8"/><title>datamap</title></head><body>`
	htmlTail = `</body></html>`
)

// SVG writes the standalone SVG document.
func (m *Map) SVG(w io.Writer) error {
	if _, err := io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`); err != nil {
		return eris.Wrap(err, "write svg header")
	}
	return eris.Wrap(m.surface.Render(w), "render svg")
}

// HTML writes a page holding the host element with its surface, legends and
// tooltip.
func (m *Map) HTML(w io.Writer) error {
	if _, err := io.WriteString(w, htmlHead); err != nil {
		return eris.Wrap(err, "write html head")
	}
	if err := m.el.Node.Render(w); err != nil {
		return eris.Wrap(err, "render html")
	}
	_, err := io.WriteString(w, htmlTail)
	return eris.Wrap(err, "write html tail")
}
