package geom

import (
	"embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoBundledScope is returned for scopes without an embedded topology.
var ErrNoBundledScope = eris.New("geom: no bundled topology for scope")

//go:embed data/*.topo.json
var bundled embed.FS

// Bundled returns the embedded topology for a scope ("world" or "usa"). The
// topology's object carries the scope's name.
func Bundled(scope string) (*Topology, error) {
	data, err := bundled.ReadFile("data/" + scope + ".topo.json")
	if err != nil {
		return nil, eris.Wrapf(ErrNoBundledScope, "%q", scope)
	}
	return DecodeTopology(data)
}

// BundledScopes lists the scopes with an embedded topology.
func BundledScopes() []string {
	entries, _ := bundled.ReadDir("data")
	var out []string
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".topo.json"))
	}
	return out
}

// LoadRegionsFile reads boundaries from disk, choosing the decoder by
// extension: .shp shapefiles, .geojson feature collections, anything else is
// treated as TopoJSON and object selects the object to decode.
func LoadRegionsFile(path, object string) ([]Region, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return LoadShapefile(path)
	case ".geojson":
		return LoadGeoJSON(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return DecodeRegions(data, object)
}

// DecodeRegions decodes a TopoJSON document, or a GeoJSON FeatureCollection
// when the payload is not a topology.
func DecodeRegions(data []byte, object string) ([]Region, error) {
	t, err := DecodeTopology(data)
	if err != nil {
		if regions, gerr := DecodeGeoJSON(data); gerr == nil {
			return regions, nil
		}
		return nil, err
	}
	if _, ok := t.Objects[object]; !ok && len(t.Objects) == 1 {
		object = t.ObjectNames()[0]
	}
	return t.Regions(object)
}
