package geom

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// two squares sharing the edge x=1; the second walks the shared arc backwards
const sharedEdgeTopology = `{
  "type": "Topology",
  "transform": {"scale": [1, 1], "translate": [10, 20]},
  "objects": {
    "squares": {"type": "GeometryCollection", "geometries": [
      {"type": "Polygon", "id": "A", "properties": {"name": "Left"}, "arcs": [[0, 1]]},
      {"type": "Polygon", "id": 7, "arcs": [[2, -1]]},
      {"type": "Point", "id": "P", "coordinates": [3, 4]}
    ]}
  },
  "arcs": [
    [[1, 0], [0, 1]],
    [[1, 1], [-1, 0], [0, -1], [1, 0]],
    [[1, 0], [1, 0], [0, 1], [-1, 0]]
  ]
}`

func TestDecodeTopologySharedArcs(t *testing.T) {
	topo, err := DecodeTopology([]byte(sharedEdgeTopology))
	require.NoError(t, err)
	assert.Equal(t, []string{"squares"}, topo.ObjectNames())

	regions, err := topo.Regions("squares")
	require.NoError(t, err)
	require.Len(t, regions, 3)

	left := regions[0]
	assert.Equal(t, "A", left.ID)
	assert.Equal(t, "Left", left.Name)
	poly, ok := left.Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.Equal(t, orb.Ring{{11, 20}, {11, 21}, {10, 21}, {10, 20}, {11, 20}}, poly[0])

	right := regions[1]
	assert.Equal(t, "7", right.ID)
	assert.Empty(t, right.Name)
	poly, ok = right.Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.Equal(t, orb.Ring{{11, 20}, {12, 20}, {12, 21}, {11, 21}, {11, 20}}, poly[0])

	// points are quantized but not delta encoded
	assert.Equal(t, orb.Point{13, 24}, regions[2].Geometry)
}

func TestDecodeTopologyErrors(t *testing.T) {
	_, err := DecodeTopology([]byte(`{"type":"FeatureCollection"}`))
	assert.Error(t, err)

	_, err = DecodeTopology([]byte(`not json`))
	assert.Error(t, err)

	topo, err := DecodeTopology([]byte(sharedEdgeTopology))
	require.NoError(t, err)
	_, err = topo.Regions("missing")
	assert.True(t, eris.Is(err, ErrNoObject))

	bad, err := DecodeTopology([]byte(`{"type":"Topology","objects":{"x":{"type":"Polygon","arcs":[[5]]}},"arcs":[]}`))
	require.NoError(t, err)
	_, err = bad.Regions("x")
	assert.Error(t, err)
}

func TestBundledWorld(t *testing.T) {
	topo, err := Bundled("world")
	require.NoError(t, err)
	regions, err := topo.Regions("world")
	require.NoError(t, err)

	byID := map[string]Region{}
	for _, r := range regions {
		byID[r.ID] = r
	}
	for _, id := range []string{"USA", "CAN", "MEX", "BRA", "JPN", "ATA", "GBR", "AUS"} {
		assert.Contains(t, byID, id)
	}
	assert.Equal(t, "Japan", byID["JPN"].Name)
	_, multi := byID["USA"].Geometry.(orb.MultiPolygon)
	assert.True(t, multi)
}

func TestBundledUSAIsQuantized(t *testing.T) {
	topo, err := Bundled("usa")
	require.NoError(t, err)
	regions, err := topo.Regions("usa")
	require.NoError(t, err)
	assert.Len(t, regions, 51)

	for _, r := range regions {
		if r.ID != "CO" {
			continue
		}
		b := r.Bound()
		assert.InDelta(t, -109.06, b.Min[0], 0.01)
		assert.InDelta(t, 36.99, b.Min[1], 0.01)
		assert.InDelta(t, -102.04, b.Max[0], 0.01)
		assert.InDelta(t, 41.0, b.Max[1], 0.01)
	}
}

func TestBundledUnknownScope(t *testing.T) {
	_, err := Bundled("atlantis")
	assert.True(t, eris.Is(err, ErrNoBundledScope))
	assert.ElementsMatch(t, []string{"usa", "world"}, BundledScopes())
}

func TestDecodeRegionsFallsBackToGeoJSON(t *testing.T) {
	fc := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"iso_a3":"NLD","name":"Netherlands"},
	   "geometry":{"type":"Polygon","coordinates":[[[3,51],[7,51],[7,53],[3,53],[3,51]]]}},
	  {"type":"Feature","id":"X","properties":{},"geometry":null}
	]}`
	regions, err := DecodeRegions([]byte(fc), "ignored")
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "NLD", regions[0].ID)
	assert.Equal(t, "Netherlands", regions[0].Name)
}

func TestDecodeRegionsSingleObject(t *testing.T) {
	regions, err := DecodeRegions([]byte(sharedEdgeTopology), "nld")
	require.NoError(t, err)
	assert.Len(t, regions, 3)
}
