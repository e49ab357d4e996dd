package geom

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// readCSV reads every row with the header lowercased and trimmed.
func readCSV(r io.Reader) (header []string, rows [][]string, err error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrap(err, "read csv")
	}
	if len(recs) == 0 {
		return nil, nil, eris.New("empty csv")
	}
	header = make([]string, len(recs[0]))
	for i, h := range recs[0] {
		header[i] = strings.TrimSpace(h)
	}
	return header, recs[1:], nil
}

// cellValue keeps numeric cells as numbers so templates and radius lookups
// see the same types as JSON input.
func cellValue(s string) any {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// ParseDataCSV reads a per-region data table. Each row becomes a record keyed
// by its "id" column; rows with an empty id are skipped.
func ParseDataCSV(r io.Reader) (DataTable, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, h := range header {
		if strings.EqualFold(h, "id") {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, eris.New("csv: id column not found")
	}
	table := DataTable{}
	for _, row := range rows {
		if idx >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[idx])
		if id == "" {
			continue
		}
		rec := Record{}
		for i, h := range header {
			if i == idx || i >= len(row) || h == "" {
				continue
			}
			rec[h] = cellValue(row[i])
		}
		table[id] = rec
	}
	return table, nil
}

// LoadPointsCSV reads bubble records from a CSV with latitude/longitude
// columns. Column detection: lat|latitude|y and lon|lng|long|longitude|x
// (case-insensitive). Other columns are carried on the record as-is.
func LoadPointsCSV(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ParsePointsCSV(f)
}

func ParsePointsCSV(r io.Reader) ([]Record, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	idxLat, idxLon := -1, -1
	for i, h := range header {
		switch strings.ToLower(h) {
		case "lat", "latitude", "y":
			if idxLat == -1 {
				idxLat = i
			}
		case "lon", "lng", "long", "longitude", "x":
			if idxLon == -1 {
				idxLon = i
			}
		}
	}
	if idxLat == -1 || idxLon == -1 {
		return nil, eris.New("csv: latitude/longitude columns not found")
	}
	var out []Record
	for _, row := range rows {
		if idxLon >= len(row) || idxLat >= len(row) {
			continue
		}
		lon, err1 := strconv.ParseFloat(strings.TrimSpace(row[idxLon]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(row[idxLat]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		rec := Record{"latitude": lat, "longitude": lon}
		for i, h := range header {
			if i == idxLat || i == idxLon || i >= len(row) || h == "" {
				continue
			}
			rec[h] = cellValue(row[i])
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, eris.New("csv: no valid points parsed")
	}
	return out, nil
}
