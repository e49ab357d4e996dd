package geom

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// shapefileIDFields are tried in order for the region identifier.
var shapefileIDFields = []string{"id", "iso_a3", "adm0_a3", "stusps", "postal", "code"}

// LoadShapefile reads polygon records from a shapefile. Attributes become the
// region properties; the identifier comes from the first known id column.
func LoadShapefile(path string) ([]Region, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geom: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	var regions []Region
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		g := shapeGeometry(shape)
		if g == nil {
			skipped++
			continue
		}
		props := make(map[string]any, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val != "" {
				props[name] = val
			}
		}
		var id any
		for _, key := range shapefileIDFields {
			if v, ok := props[key]; ok {
				id = v
				break
			}
		}
		regions = append(regions, newRegion(id, props, g))
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "geom: read shapefile %s", path)
	}
	if skipped > 0 {
		zap.L().Debug("geom: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return regions, nil
}

func shapeGeometry(shape shp.Shape) orb.Geometry {
	switch s := shape.(type) {
	case *shp.Point:
		return orb.Point{s.X, s.Y}
	case *shp.PolyLine:
		mls := orb.MultiLineString{}
		for _, part := range partPoints(s.NumParts, s.Parts, s.Points) {
			mls = append(mls, orb.LineString(part))
		}
		if len(mls) == 0 {
			return nil
		}
		return mls
	case *shp.Polygon:
		return polygonRings(partPoints(s.NumParts, s.Parts, s.Points))
	}
	return nil
}

func partPoints(numParts int32, parts []int32, points []shp.Point) [][]orb.Point {
	out := make([][]orb.Point, 0, numParts)
	for i := int32(0); i < numParts; i++ {
		start := parts[i]
		end := int32(len(points))
		if i+1 < numParts {
			end = parts[i+1]
		}
		if start >= end {
			continue
		}
		pts := make([]orb.Point, 0, end-start)
		for j := start; j < end; j++ {
			pts = append(pts, orb.Point{points[j].X, points[j].Y})
		}
		out = append(out, pts)
	}
	return out
}

// polygonRings groups rings into polygons: clockwise rings are outer
// boundaries and counter-clockwise rings are holes of the preceding outer.
func polygonRings(rings [][]orb.Point) orb.Geometry {
	var mp orb.MultiPolygon
	for _, pts := range rings {
		r := orb.Ring(pts)
		if len(r) < 4 {
			continue
		}
		if r.Orientation() == orb.CCW && len(mp) > 0 {
			mp[len(mp)-1] = append(mp[len(mp)-1], r)
			continue
		}
		mp = append(mp, orb.Polygon{r})
	}
	if len(mp) == 0 {
		return nil
	}
	return mp
}
