// Package projection maps longitude/latitude to screen coordinates and turns
// geometries into SVG path data.
package projection

import (
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
)

const (
	radians = math.Pi / 180
	degrees = 180 / math.Pi
	epsilon = 1e-6
)

// ErrUnknownProjection is returned by ParseKind for names outside the supported set.
var ErrUnknownProjection = eris.New("projection: unknown projection")

// Kind enumerates the supported projections.
type Kind int

const (
	Equirectangular Kind = iota
	Mercator
	Orthographic
	ConicEqualArea
	AlbersUSA
)

var kindNames = map[Kind]string{
	Equirectangular: "equirectangular",
	Mercator:        "mercator",
	Orthographic:    "orthographic",
	ConicEqualArea:  "conicEqualArea",
	AlbersUSA:       "albersUsa",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// ParseKind resolves a configured projection name. Matching ignores case.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return 0, eris.Wrapf(ErrUnknownProjection, "%q", name)
}

// Projector is implemented by every projection.
type Projector interface {
	// Project returns screen coordinates. ok is false when the point is
	// clipped away (the far side of a globe).
	Project(lon, lat float64) (x, y float64, ok bool)
	Kind() Kind
}

type rawFunc func(lambda, phi float64) (x, y float64)

// Projection is a single raw projection with scale, translate, center,
// rotation and an optional clip angle.
type Projection struct {
	kind      Kind
	raw       rawFunc
	k         float64
	tx, ty    float64
	center    [2]float64
	rotate    [3]float64
	clipAngle float64
	parallels [2]float64

	dx, dy float64
}

// New builds a projection with a scale of 150 centred at (480, 250).
func New(kind Kind) (*Projection, error) {
	p := &Projection{kind: kind, k: 150, tx: 480, ty: 250}
	switch kind {
	case Equirectangular:
		p.raw = func(l, f float64) (float64, float64) { return l, f }
	case Mercator:
		p.raw = mercatorRaw
	case Orthographic:
		p.raw = orthographicRaw
	case ConicEqualArea:
		p.parallels = [2]float64{0, 60}
		p.raw = conicEqualAreaRaw(p.parallels[0]*radians, p.parallels[1]*radians)
	default:
		return nil, eris.Wrapf(ErrUnknownProjection, "%s is not a single projection", kind)
	}
	p.reset()
	return p, nil
}

func (p *Projection) Kind() Kind { return p.kind }

func (p *Projection) Scale(k float64) *Projection {
	p.k = k
	p.reset()
	return p
}

func (p *Projection) ScaleFactor() float64 { return p.k }

func (p *Projection) Translate(x, y float64) *Projection {
	p.tx, p.ty = x, y
	p.reset()
	return p
}

func (p *Projection) Translation() (float64, float64) { return p.tx, p.ty }

// Center sets the geographic point that lands on the translation.
func (p *Projection) Center(lon, lat float64) *Projection {
	p.center = [2]float64{lon, lat}
	p.reset()
	return p
}

// Rotate sets the three-axis rotation in degrees.
func (p *Projection) Rotate(lambda, phi, gamma float64) *Projection {
	p.rotate = [3]float64{lambda, phi, gamma}
	p.reset()
	return p
}

// ClipAngle hides points further than angle degrees from the rotated centre.
// Zero disables clipping.
func (p *Projection) ClipAngle(angle float64) *Projection {
	p.clipAngle = angle
	return p
}

// Parallels sets the standard parallels of a conic projection.
func (p *Projection) Parallels(a, b float64) *Projection {
	if p.kind != ConicEqualArea {
		return p
	}
	p.parallels = [2]float64{a, b}
	p.raw = conicEqualAreaRaw(a*radians, b*radians)
	p.reset()
	return p
}

func (p *Projection) reset() {
	cx, cy := p.raw(p.center[0]*radians, p.center[1]*radians)
	p.dx = p.tx - cx*p.k
	p.dy = p.ty + cy*p.k
}

// Seam returns the input longitude where the map wraps from one edge to the
// other. Globes and tilted rotations have no such meridian.
func (p *Projection) Seam() (float64, bool) {
	if p.kind == Orthographic || p.rotate[1] != 0 || p.rotate[2] != 0 {
		return 0, false
	}
	return wrapDegrees(180 - p.rotate[0]), true
}

func wrapDegrees(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}

// rotated applies the projection rotation and returns radians.
func (p *Projection) rotated(lon, lat float64) (float64, float64) {
	lambda, phi := lon*radians, lat*radians
	return rotate(lambda, phi, p.rotate[0]*radians, p.rotate[1]*radians, p.rotate[2]*radians)
}

func (p *Projection) Project(lon, lat float64) (float64, float64, bool) {
	lambda, phi := p.rotated(lon, lat)
	if p.kind == Mercator {
		limit := 85.0511287798 * radians
		phi = math.Max(-limit, math.Min(limit, phi))
	}
	if p.clipAngle > 0 {
		if math.Cos(phi)*math.Cos(lambda) < math.Cos(p.clipAngle*radians)-epsilon {
			return 0, 0, false
		}
	}
	x, y := p.raw(lambda, phi)
	return p.dx + x*p.k, p.dy - y*p.k, true
}

// Fit sets scale and translation so the geometries fill width x height with
// a small margin. Center and rotation are left untouched.
func (p *Projection) Fit(width, height float64, geoms []orb.Geometry) *Projection {
	b := orb.Bound{Min: orb.Point{math.Inf(1), math.Inf(1)}, Max: orb.Point{math.Inf(-1), math.Inf(-1)}}
	found := false
	for _, g := range geoms {
		if g == nil {
			continue
		}
		eachPoint(g, func(pt orb.Point) {
			lambda, phi := p.rotated(pt[0], pt[1])
			x, y := p.raw(lambda, phi)
			b = b.Extend(orb.Point{x, y})
			found = true
		})
	}
	if !found || b.Max[0] <= b.Min[0] || b.Max[1] <= b.Min[1] {
		return p
	}
	k := 0.95 * math.Min(width/(b.Max[0]-b.Min[0]), height/(b.Max[1]-b.Min[1]))
	p.center = [2]float64{}
	p.k = k
	p.tx = width/2 - k*(b.Min[0]+b.Max[0])/2
	p.ty = height/2 + k*(b.Min[1]+b.Max[1])/2
	p.reset()
	return p
}

func mercatorRaw(lambda, phi float64) (float64, float64) {
	return lambda, math.Log(math.Tan(math.Pi/4 + phi/2))
}

func orthographicRaw(lambda, phi float64) (float64, float64) {
	return math.Cos(phi) * math.Sin(lambda), math.Sin(phi)
}

func conicEqualAreaRaw(phi0, phi1 float64) rawFunc {
	sy0 := math.Sin(phi0)
	n := (sy0 + math.Sin(phi1)) / 2
	c := 1 + sy0*(2*n-sy0)
	r0 := math.Sqrt(c) / n
	return func(lambda, phi float64) (float64, float64) {
		r := math.Sqrt(c-2*n*math.Sin(phi)) / n
		return r * math.Sin(lambda*n), r0 - r*math.Cos(lambda*n)
	}
}

// rotate turns the sphere by dl around the polar axis and then by dp and dg.
func rotate(lambda, phi, dl, dp, dg float64) (float64, float64) {
	if dl != 0 {
		lambda += dl
		if lambda > math.Pi {
			lambda -= 2 * math.Pi
		} else if lambda < -math.Pi {
			lambda += 2 * math.Pi
		}
	}
	if dp == 0 && dg == 0 {
		return lambda, phi
	}
	cosDp, sinDp := math.Cos(dp), math.Sin(dp)
	cosDg, sinDg := math.Cos(dg), math.Sin(dg)
	cosPhi := math.Cos(phi)
	x := math.Cos(lambda) * cosPhi
	y := math.Sin(lambda) * cosPhi
	z := math.Sin(phi)
	k := z*cosDp + x*sinDp
	return math.Atan2(y*cosDg-k*sinDg, x*cosDp-z*sinDp), math.Asin(math.Max(-1, math.Min(1, k*cosDg+y*sinDg)))
}

func eachPoint(g orb.Geometry, fn func(orb.Point)) {
	switch g := g.(type) {
	case orb.Point:
		fn(g)
	case orb.MultiPoint:
		for _, p := range g {
			fn(p)
		}
	case orb.LineString:
		for _, p := range g {
			fn(p)
		}
	case orb.MultiLineString:
		for _, ls := range g {
			eachPoint(ls, fn)
		}
	case orb.Ring:
		for _, p := range g {
			fn(p)
		}
	case orb.Polygon:
		for _, r := range g {
			eachPoint(r, fn)
		}
	case orb.MultiPolygon:
		for _, poly := range g {
			eachPoint(poly, fn)
		}
	case orb.Collection:
		for _, c := range g {
			eachPoint(c, fn)
		}
	}
}
