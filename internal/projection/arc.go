package projection

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"datamap/internal/svg"
)

// GreatArc interpolates the great circle between two lon/lat points, one
// vertex per degree of arc (at least two).
func GreatArc(from, to orb.Point) orb.LineString {
	dist := geo.Distance(from, to)
	if dist == 0 {
		return orb.LineString{from, to}
	}
	bearing := geo.Bearing(from, to)
	// 1 degree of arc on the mean earth radius used by orb/geo
	const metersPerDegree = orb.EarthRadius * math.Pi / 180
	n := int(math.Ceil(dist / metersPerDegree))
	if n < 2 {
		n = 2
	}
	out := make(orb.LineString, 0, n+1)
	out = append(out, from)
	for i := 1; i < n; i++ {
		pt := geo.PointAtBearingAndDistance(from, bearing, dist*float64(i)/float64(n))
		if pt[0] > 180 {
			pt[0] -= 360
		} else if pt[0] < -180 {
			pt[0] += 360
		}
		out = append(out, pt)
	}
	return append(out, to)
}

// Curve is the cubic connector drawn between two screen points: the control
// point sits above the midpoint, offset by sharpness.
type Curve struct {
	From, Control, To orb.Point
}

func NewCurve(from, to orb.Point, sharpness float64) Curve {
	mid := orb.Point{(from[0] + to[0]) / 2, (from[1] + to[1]) / 2}
	return Curve{
		From:    from,
		Control: orb.Point{mid[0] + 50*sharpness, mid[1] - 75*sharpness},
		To:      to,
	}
}

// D renders the curve as a smooth cubic command; the implicit first control
// point equals From.
func (c Curve) D() string {
	return "M" + svg.Num(c.From[0]) + "," + svg.Num(c.From[1]) +
		"S" + svg.Num(c.Control[0]) + "," + svg.Num(c.Control[1]) + "," + svg.Num(c.To[0]) + "," + svg.Num(c.To[1])
}

// Flatten samples the cubic into a polyline.
func (c Curve) Flatten(steps int) orb.LineString {
	if steps < 1 {
		steps = 1
	}
	p0, p1, p2, p3 := c.From, c.From, c.Control, c.To
	out := make(orb.LineString, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		u := 1 - t
		a, b, cc, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
		out = append(out, orb.Point{
			a*p0[0] + b*p1[0] + cc*p2[0] + d*p3[0],
			a*p0[1] + b*p1[1] + cc*p2[1] + d*p3[1],
		})
	}
	return out
}

// Length approximates the rendered length of the curve.
func (c Curve) Length() float64 {
	return planar.Length(c.Flatten(64))
}
