package geom

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
)

// ErrNoObject is returned when a topology does not contain the requested object.
var ErrNoObject = eris.New("geom: topology object not found")

// Topology is a decoded TopoJSON document. Arcs are stored absolute, with any
// quantization transform already applied.
type Topology struct {
	Objects map[string]*TopoObject
	arcs    []orb.LineString
}

// TopoObject is a geometry or geometry collection inside a topology.
type TopoObject struct {
	Type        string          `json:"type"`
	ID          any             `json:"id"`
	Properties  map[string]any  `json:"properties"`
	Arcs        json.RawMessage `json:"arcs"`
	Coordinates json.RawMessage `json:"coordinates"`
	Geometries  []*TopoObject   `json:"geometries"`
}

type topoTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type topoDoc struct {
	Type      string                 `json:"type"`
	Transform *topoTransform         `json:"transform"`
	Objects   map[string]*TopoObject `json:"objects"`
	Arcs      [][][]float64          `json:"arcs"`
}

// DecodeTopology parses a TopoJSON document.
func DecodeTopology(data []byte) (*Topology, error) {
	var doc topoDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "decode topology")
	}
	if doc.Type != "Topology" {
		return nil, eris.Errorf("decode topology: unexpected type %q", doc.Type)
	}
	t := &Topology{Objects: doc.Objects, arcs: make([]orb.LineString, len(doc.Arcs))}
	for i, arc := range doc.Arcs {
		ls := make(orb.LineString, 0, len(arc))
		var x, y float64
		for _, pos := range arc {
			if len(pos) < 2 {
				continue
			}
			if doc.Transform != nil {
				// delta encoded
				x += pos[0]
				y += pos[1]
				ls = append(ls, orb.Point{
					x*doc.Transform.Scale[0] + doc.Transform.Translate[0],
					y*doc.Transform.Scale[1] + doc.Transform.Translate[1],
				})
				continue
			}
			ls = append(ls, orb.Point{pos[0], pos[1]})
		}
		t.arcs[i] = ls
	}
	if doc.Transform != nil {
		tr := *doc.Transform
		for _, obj := range t.Objects {
			untransformPoints(obj, tr)
		}
	}
	return t, nil
}

// ObjectNames returns the object names in sorted order.
func (t *Topology) ObjectNames() []string {
	names := make([]string, 0, len(t.Objects))
	for n := range t.Objects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Regions converts the named object into regions. A GeometryCollection yields
// one region per member; any other geometry yields a single region.
func (t *Topology) Regions(object string) ([]Region, error) {
	obj, ok := t.Objects[object]
	if !ok {
		return nil, eris.Wrapf(ErrNoObject, "%q", object)
	}
	members := []*TopoObject{obj}
	if obj.Type == "GeometryCollection" {
		members = obj.Geometries
	}
	regions := make([]Region, 0, len(members))
	for _, m := range members {
		g, err := t.geometry(m)
		if err != nil {
			return nil, eris.Wrapf(err, "object %q", object)
		}
		regions = append(regions, newRegion(m.ID, m.Properties, g))
	}
	return regions, nil
}

func newRegion(id any, props map[string]any, g orb.Geometry) Region {
	r := Region{ID: formatID(id), Properties: props, Geometry: g}
	if r.Properties == nil {
		r.Properties = map[string]any{}
	}
	if name, ok := r.Properties["name"].(string); ok {
		r.Name = name
	}
	return r
}

func formatID(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	}
	b, _ := json.Marshal(id)
	return string(b)
}

// arc returns arc i; negative indexes address the reversed arc ~i.
func (t *Topology) arc(i int) (orb.LineString, error) {
	rev := i < 0
	if rev {
		i = ^i
	}
	if i >= len(t.arcs) {
		return nil, eris.Errorf("arc index %d out of range", i)
	}
	a := t.arcs[i]
	if !rev {
		return a, nil
	}
	out := make(orb.LineString, len(a))
	for j := range a {
		out[j] = a[len(a)-1-j]
	}
	return out, nil
}

// line stitches arcs together, dropping the shared point between neighbours.
func (t *Topology) line(indexes []int) (orb.LineString, error) {
	var out orb.LineString
	for k, idx := range indexes {
		a, err := t.arc(idx)
		if err != nil {
			return nil, err
		}
		if k > 0 && len(a) > 0 {
			a = a[1:]
		}
		out = append(out, a...)
	}
	return out, nil
}

func (t *Topology) ring(indexes []int) (orb.Ring, error) {
	ls, err := t.line(indexes)
	if err != nil {
		return nil, err
	}
	r := orb.Ring(ls)
	if len(r) > 0 && r[0] != r[len(r)-1] {
		r = append(r, r[0])
	}
	return r, nil
}

func (t *Topology) polygon(rings [][]int) (orb.Polygon, error) {
	poly := make(orb.Polygon, 0, len(rings))
	for _, idx := range rings {
		r, err := t.ring(idx)
		if err != nil {
			return nil, err
		}
		poly = append(poly, r)
	}
	return poly, nil
}

func (t *Topology) geometry(o *TopoObject) (orb.Geometry, error) {
	switch o.Type {
	case "Polygon":
		var rings [][]int
		if err := json.Unmarshal(o.Arcs, &rings); err != nil {
			return nil, eris.Wrap(err, "polygon arcs")
		}
		return t.polygon(rings)
	case "MultiPolygon":
		var polys [][][]int
		if err := json.Unmarshal(o.Arcs, &polys); err != nil {
			return nil, eris.Wrap(err, "multipolygon arcs")
		}
		mp := make(orb.MultiPolygon, 0, len(polys))
		for _, rings := range polys {
			p, err := t.polygon(rings)
			if err != nil {
				return nil, err
			}
			mp = append(mp, p)
		}
		return mp, nil
	case "LineString":
		var idx []int
		if err := json.Unmarshal(o.Arcs, &idx); err != nil {
			return nil, eris.Wrap(err, "linestring arcs")
		}
		return t.line(idx)
	case "MultiLineString":
		var lines [][]int
		if err := json.Unmarshal(o.Arcs, &lines); err != nil {
			return nil, eris.Wrap(err, "multilinestring arcs")
		}
		mls := make(orb.MultiLineString, 0, len(lines))
		for _, idx := range lines {
			ls, err := t.line(idx)
			if err != nil {
				return nil, err
			}
			mls = append(mls, ls)
		}
		return mls, nil
	case "Point":
		var pos []float64
		if err := json.Unmarshal(o.Coordinates, &pos); err != nil || len(pos) < 2 {
			return nil, eris.New("point coordinates")
		}
		return orb.Point{pos[0], pos[1]}, nil
	case "MultiPoint":
		var pos [][]float64
		if err := json.Unmarshal(o.Coordinates, &pos); err != nil {
			return nil, eris.Wrap(err, "multipoint coordinates")
		}
		mp := make(orb.MultiPoint, 0, len(pos))
		for _, p := range pos {
			if len(p) >= 2 {
				mp = append(mp, orb.Point{p[0], p[1]})
			}
		}
		return mp, nil
	case "GeometryCollection":
		var c orb.Collection
		for _, m := range o.Geometries {
			g, err := t.geometry(m)
			if err != nil {
				return nil, err
			}
			if g != nil {
				c = append(c, g)
			}
		}
		return c, nil
	case "", "null":
		return nil, nil
	}
	return nil, eris.Errorf("unsupported geometry type %q", o.Type)
}

// untransformPoints applies the quantization transform to point coordinates,
// which unlike arcs are not delta encoded.
func untransformPoints(o *TopoObject, tr topoTransform) {
	apply := func(p []float64) []float64 {
		if len(p) < 2 {
			return p
		}
		return []float64{p[0]*tr.Scale[0] + tr.Translate[0], p[1]*tr.Scale[1] + tr.Translate[1]}
	}
	switch o.Type {
	case "Point":
		var pos []float64
		if json.Unmarshal(o.Coordinates, &pos) == nil {
			o.Coordinates, _ = json.Marshal(apply(pos))
		}
	case "MultiPoint":
		var pos [][]float64
		if json.Unmarshal(o.Coordinates, &pos) == nil {
			for i := range pos {
				pos[i] = apply(pos[i])
			}
			o.Coordinates, _ = json.Marshal(pos)
		}
	case "GeometryCollection":
		for _, m := range o.Geometries {
			untransformPoints(m, tr)
		}
	}
}
