package projection

// USA is the composite continental-US projection: a conic equal-area lower 48
// with Alaska and Hawaii inset below it.
type USA struct {
	lower48 *Projection
	alaska  *Projection
	hawaii  *Projection
	k       float64
	tx, ty  float64
}

func mustConic() *Projection {
	p, _ := New(ConicEqualArea)
	return p
}

// NewUSA returns the composite projection at scale 1070 centred on (480, 250).
func NewUSA() *USA {
	u := &USA{
		lower48: mustConic().Rotate(96, 0, 0).Center(-0.6, 38.7).Parallels(29.5, 45.5),
		alaska:  mustConic().Rotate(154, 0, 0).Center(-2, 58.5).Parallels(55, 65),
		hawaii:  mustConic().Rotate(157, 0, 0).Center(-3, 19.9).Parallels(8, 18),
	}
	return u.Scale(1070).Translate(480, 250)
}

func (u *USA) Kind() Kind { return AlbersUSA }

func (u *USA) Scale(k float64) *USA {
	u.k = k
	u.lower48.Scale(k)
	u.alaska.Scale(k * 0.35)
	u.hawaii.Scale(k)
	return u.Translate(u.tx, u.ty)
}

func (u *USA) ScaleFactor() float64 { return u.k }

func (u *USA) Translate(x, y float64) *USA {
	u.tx, u.ty = x, y
	u.lower48.Translate(x, y)
	u.alaska.Translate(x-0.307*u.k, y+0.201*u.k)
	u.hawaii.Translate(x-0.205*u.k, y+0.212*u.k)
	return u
}

func (u *USA) Translation() (float64, float64) { return u.tx, u.ty }

// Project routes Alaska and Hawaii to their insets by geographic extent.
func (u *USA) Project(lon, lat float64) (float64, float64, bool) {
	switch {
	case lat >= 50 && (lon <= -129 || lon >= 170):
		return u.alaska.Project(lon, lat)
	case lat >= 18 && lat <= 23 && lon >= -161 && lon <= -154:
		return u.hawaii.Project(lon, lat)
	default:
		return u.lower48.Project(lon, lat)
	}
}
