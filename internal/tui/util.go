package tui

import (
	"html"
	"strings"
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// plainText drops markup from popup HTML and turns block ends into line
// breaks.
func plainText(s string) string {
	var sb strings.Builder
	inTag := false
	var tag strings.Builder
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			tag.Reset()
		case r == '>' && inTag:
			inTag = false
			fields := strings.Fields(strings.ToLower(tag.String()))
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "br", "br/", "/div", "/p", "/li", "/h1", "/h2", "/h3", "/tr":
				sb.WriteByte('\n')
			}
		case inTag:
			tag.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	lines := strings.Split(html.UnescapeString(sb.String()), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
