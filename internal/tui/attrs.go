package tui

import (
	"encoding/json"
	"fmt"
	"sort"

	table "github.com/charmbracelet/bubbles/table"

	"datamap/internal/datamap"
)

const maxDataColumns = 6

// refreshAttrs rebuilds the data table from the map's regions and their data.
func (m *Model) refreshAttrs() {
	cols, rows := m.buildAttributes()
	if len(rows) == 0 {
		m.showAttrs = false
		m.status = "no regions drawn"
		return
	}
	tcols := make([]table.Column, 0, len(cols)+1)
	tcols = append(tcols, table.Column{Title: "#", Width: 4})
	for _, c := range cols {
		tcols = append(tcols, table.Column{Title: c, Width: min(24, max(len(c)+2, 8))})
	}
	trows := make([]table.Row, 0, len(rows))
	for i, r := range rows {
		row := make([]string, 0, len(tcols))
		row = append(row, fmt.Sprintf("%d", i+1))
		row = append(row, r...)
		trows = append(trows, table.Row(row))
	}
	// clear rows first so the column count never disagrees with the rows
	m.tbl.SetRows(nil)
	m.tbl.SetColumns(tcols)
	m.tbl.SetRows(trows)
}

// buildAttributes returns one row per drawn region: its id, name, current
// fill and the most common data fields.
func (m *Model) buildAttributes() ([]string, [][]string) {
	fills := map[string]string{}
	var ids []string
	for _, s := range m.dm.Shapes() {
		if s.Kind != datamap.ShapeRegion {
			continue
		}
		if _, dup := fills[s.ID]; !dup {
			ids = append(ids, s.ID)
		}
		fills[s.ID] = s.Element.Style("fill")
	}
	names := map[string]string{}
	for _, r := range m.dm.Regions() {
		names[r.ID] = r.Name
	}

	data := m.dm.Data()
	counts := map[string]int{}
	for _, id := range ids {
		for k := range data.Lookup(id) {
			counts[k]++
		}
	}
	fields := make([]string, 0, len(counts))
	for k := range counts {
		fields = append(fields, k)
	}
	sort.Slice(fields, func(i, j int) bool {
		if counts[fields[i]] != counts[fields[j]] {
			return counts[fields[i]] > counts[fields[j]]
		}
		return fields[i] < fields[j]
	})
	if len(fields) > maxDataColumns {
		fields = fields[:maxDataColumns]
	}

	cols := append([]string{"id", "name", "fill"}, fields...)
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rec := data.Lookup(id)
		row := []string{id, names[id], fills[id]}
		for _, f := range fields {
			row = append(row, cellText(rec[f]))
		}
		rows = append(rows, row)
	}
	return cols, rows
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	}
	bs, _ := json.Marshal(v)
	return string(bs)
}
