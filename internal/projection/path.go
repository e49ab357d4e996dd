package projection

import (
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"datamap/internal/svg"
)

// Path turns geographic geometries into screen geometries and SVG path data
// using a bound projection.
type Path struct {
	proj Projector
}

func NewPath(p Projector) *Path { return &Path{proj: p} }

func (p *Path) Projector() Projector { return p.proj }

// Point projects a single lon/lat point.
func (p *Path) Point(pt orb.Point) (orb.Point, bool) {
	x, y, ok := p.proj.Project(pt[0], pt[1])
	return orb.Point{x, y}, ok
}

type seamer interface {
	Seam() (float64, bool)
}

// projectLine projects a line and splits it wherever points are clipped or
// the line crosses the projection's seam.
func (p *Path) projectLine(ls []orb.Point) []orb.LineString {
	seam, wraps := 0.0, false
	if s, ok := p.proj.(seamer); ok {
		seam, wraps = s.Seam()
	}
	var out []orb.LineString
	var cur orb.LineString
	flush := func() {
		if len(cur) > 1 {
			out = append(out, cur)
		}
		cur = nil
	}
	// side is the offset from the seam of the last point not on it.
	var side float64
	for i, pt := range ls {
		if wraps {
			r := wrapDegrees(pt[0] - seam)
			switch {
			case r == 0 && side != 0:
				pt = seamEdge(seam, side, pt[1])
			case r != 0 && side != 0 && math.Signbit(r) != math.Signbit(side):
				prev := ls[i-1]
				rp := wrapDegrees(prev[0] - seam)
				if math.Abs(rp-r) >= 180 {
					break
				}
				lat := prev[1]
				if rp != 0 {
					lat += rp / (rp - r) * (pt[1] - prev[1])
					if sp, ok := p.Point(seamEdge(seam, rp, lat)); ok {
						cur = append(cur, sp)
					}
				}
				flush()
				if sp, ok := p.Point(seamEdge(seam, r, lat)); ok {
					cur = append(cur, sp)
				}
			}
			if r != 0 {
				side = r
			}
		}
		sp, ok := p.Point(pt)
		if !ok {
			flush()
			continue
		}
		cur = append(cur, sp)
	}
	flush()
	return out
}

// seamEdge returns the point at lat just off the seam on the side of offset.
func seamEdge(seam, offset, lat float64) orb.Point {
	const nudge = 1e-9
	if offset < 0 {
		return orb.Point{wrapDegrees(seam - nudge), lat}
	}
	return orb.Point{wrapDegrees(seam + nudge), lat}
}

// projectRing drops clipped vertices; rings left with fewer than three
// vertices are discarded.
func (p *Path) projectRing(r orb.Ring) (orb.Ring, bool) {
	out := make(orb.Ring, 0, len(r))
	for _, pt := range r {
		if sp, ok := p.Point(pt); ok {
			out = append(out, sp)
		}
	}
	if len(out) < 3 {
		return nil, false
	}
	if out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out, true
}

func (p *Path) projectPolygon(poly orb.Polygon) (orb.Polygon, bool) {
	var out orb.Polygon
	for i, r := range poly {
		pr, ok := p.projectRing(r)
		if !ok {
			if i == 0 {
				return nil, false
			}
			continue
		}
		out = append(out, pr)
	}
	return out, len(out) > 0
}

// Project returns the screen-space geometry. Polygonal input always comes back
// as a MultiPolygon and linear input as a MultiLineString.
func (p *Path) Project(g orb.Geometry) orb.Geometry {
	switch g := g.(type) {
	case orb.Point:
		sp, ok := p.Point(g)
		if !ok {
			return nil
		}
		return sp
	case orb.MultiPoint:
		var out orb.MultiPoint
		for _, pt := range g {
			if sp, ok := p.Point(pt); ok {
				out = append(out, sp)
			}
		}
		return out
	case orb.LineString:
		return orb.MultiLineString(p.projectLine(g))
	case orb.MultiLineString:
		var out orb.MultiLineString
		for _, ls := range g {
			out = append(out, p.projectLine(ls)...)
		}
		return out
	case orb.Polygon:
		var out orb.MultiPolygon
		if pp, ok := p.projectPolygon(g); ok {
			out = append(out, pp)
		}
		return out
	case orb.MultiPolygon:
		var out orb.MultiPolygon
		for _, poly := range g {
			if pp, ok := p.projectPolygon(poly); ok {
				out = append(out, pp)
			}
		}
		return out
	case orb.Collection:
		var out orb.Collection
		for _, c := range g {
			if pc := p.Project(c); pc != nil {
				out = append(out, pc)
			}
		}
		return out
	}
	return nil
}

// D returns SVG path data for a geographic geometry.
func (p *Path) D(g orb.Geometry) string {
	return Data(p.Project(g))
}

// Centroid returns the planar centroid of the projected geometry.
func (p *Path) Centroid(g orb.Geometry) (orb.Point, bool) {
	pg := p.Project(g)
	if pg == nil || isEmpty(pg) {
		return orb.Point{math.NaN(), math.NaN()}, false
	}
	c, _ := planar.CentroidArea(pg)
	return c, true
}

// Data renders an already projected geometry as SVG path data.
func Data(g orb.Geometry) string {
	var sb strings.Builder
	writeGeometry(&sb, g)
	return sb.String()
}

func writeGeometry(sb *strings.Builder, g orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		// small circle marker, as a path generator would draw for points
		x, y := g[0], g[1]
		sb.WriteString("M" + svg.Num(x) + "," + svg.Num(y-4.5) +
			"a4.5,4.5 0 1,1 0,9a4.5,4.5 0 1,1 0,-9Z")
	case orb.MultiPoint:
		for _, pt := range g {
			writeGeometry(sb, pt)
		}
	case orb.LineString:
		writeLine(sb, g, false)
	case orb.MultiLineString:
		for _, ls := range g {
			writeLine(sb, ls, false)
		}
	case orb.Ring:
		writeLine(sb, orb.LineString(g), true)
	case orb.Polygon:
		for _, r := range g {
			writeLine(sb, orb.LineString(r), true)
		}
	case orb.MultiPolygon:
		for _, poly := range g {
			writeGeometry(sb, poly)
		}
	case orb.Collection:
		for _, c := range g {
			writeGeometry(sb, c)
		}
	}
}

func writeLine(sb *strings.Builder, ls orb.LineString, closed bool) {
	n := len(ls)
	if closed && n > 1 && ls[0] == ls[n-1] {
		n--
	}
	for i := 0; i < n; i++ {
		if i == 0 {
			sb.WriteByte('M')
		} else {
			sb.WriteByte('L')
		}
		sb.WriteString(svg.Num(ls[i][0]))
		sb.WriteByte(',')
		sb.WriteString(svg.Num(ls[i][1]))
	}
	if closed && n > 0 {
		sb.WriteByte('Z')
	}
}

func isEmpty(g orb.Geometry) bool {
	switch g := g.(type) {
	case orb.MultiPolygon:
		return len(g) == 0
	case orb.MultiLineString:
		return len(g) == 0
	case orb.MultiPoint:
		return len(g) == 0
	case orb.Collection:
		return len(g) == 0
	}
	return false
}

// Sphere returns the outline of the whole globe for an orthographic projection.
func Sphere(p *Projection) string {
	cx, cy := p.Translation()
	r := p.ScaleFactor()
	return "M" + svg.Num(cx) + "," + svg.Num(cy-r) +
		"A" + svg.Num(r) + "," + svg.Num(r) + " 0 1,1 " + svg.Num(cx) + "," + svg.Num(cy+r) +
		"A" + svg.Num(r) + "," + svg.Num(r) + " 0 1,1 " + svg.Num(cx) + "," + svg.Num(cy-r) + "Z"
}
