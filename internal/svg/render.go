package svg

import (
	"bufio"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"time"
)

// void elements are written self-closed in both SVG and HTML output.
var voidTags = map[string]bool{"meta": true, "br": true, "hr": true, "img": true}

// Render writes the element and its subtree.
func (e *Element) Render(w io.Writer) error {
	bw := bufio.NewWriter(w)
	writeElement(bw, e)
	return bw.Flush()
}

// String renders the element to a string.
func (e *Element) String() string {
	var sb strings.Builder
	_ = e.Render(&sb)
	return sb.String()
}

func writeElement(w *bufio.Writer, e *Element) {
	w.WriteByte('<')
	w.WriteString(e.Tag)
	if len(e.classes) > 0 {
		writeAttr(w, "class", strings.Join(e.classes, " "))
	}
	for _, a := range e.attrs {
		writeAttr(w, a.Name, a.Value)
	}
	if len(e.styles) > 0 {
		parts := make([]string, 0, len(e.styles))
		for _, s := range e.styles {
			parts = append(parts, s.Name+": "+s.Value)
		}
		writeAttr(w, "style", strings.Join(parts, "; "))
	}
	empty := e.Text == "" && e.Raw == "" && len(e.children) == 0 && len(e.anims) == 0
	if empty && (voidTags[e.Tag] || !isHTML(e.Tag)) {
		w.WriteString("/>")
		return
	}
	w.WriteByte('>')
	if e.Text != "" {
		_ = xml.EscapeText(w, []byte(e.Text))
	}
	w.WriteString(e.Raw)
	for _, a := range e.anims {
		writeAnimation(w, a)
	}
	for _, c := range e.children {
		writeElement(w, c)
	}
	w.WriteString("</")
	w.WriteString(e.Tag)
	w.WriteByte('>')
}

func writeAttr(w *bufio.Writer, name, value string) {
	w.WriteByte(' ')
	w.WriteString(name)
	w.WriteString(`="`)
	_ = xml.EscapeText(w, []byte(value))
	w.WriteByte('"')
}

func writeAnimation(w *bufio.Writer, a Animation) {
	w.WriteString("<animate")
	writeAttr(w, "attributeName", a.Attribute)
	if a.From != "" {
		writeAttr(w, "from", a.From)
	}
	writeAttr(w, "to", a.To)
	writeAttr(w, "dur", millis(a.Dur))
	if a.Begin > 0 {
		writeAttr(w, "begin", millis(a.Begin))
	}
	writeAttr(w, "fill", "freeze")
	w.WriteString("/>")
}

func millis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}

// HTML containers must not self-close even when empty.
func isHTML(tag string) bool {
	switch tag {
	case "div", "span", "dl", "dt", "dd", "h2", "p", "strong", "body", "html", "head", "title", "style", "script":
		return true
	}
	return false
}
