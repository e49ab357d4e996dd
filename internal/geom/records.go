package geom

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// LoadRecordsFile reads bubble or arc records, choosing the reader by
// extension: .csv and .kml hold points, anything else is a JSON list.
func LoadRecordsFile(path string) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadPointsCSV(path)
	case ".kml":
		return LoadPointsKML(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return DecodeRecords(data)
}

// DecodeRecords decodes a JSON list of objects.
func DecodeRecords(data []byte) ([]Record, error) {
	var out []Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "decode records")
	}
	return out, nil
}
