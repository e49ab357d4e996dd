package geom

import (
	"os"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
)

// idProperties are tried in order when a feature carries no top-level id.
var idProperties = []string{"id", "iso_a3", "ISO_A3", "postal", "code"}

// LoadGeoJSON reads a GeoJSON FeatureCollection file as regions.
func LoadGeoJSON(path string) ([]Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return DecodeGeoJSON(data)
}

// DecodeGeoJSON converts a FeatureCollection into regions. Features without a
// geometry are skipped.
func DecodeGeoJSON(data []byte) ([]Region, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrap(err, "decode geojson")
	}
	regions := make([]Region, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		id := f.ID
		if id == nil || formatID(id) == "" {
			for _, key := range idProperties {
				if v, ok := f.Properties[key]; ok {
					id = v
					break
				}
			}
		}
		regions = append(regions, newRegion(id, map[string]any(f.Properties), f.Geometry))
	}
	return regions, nil
}
