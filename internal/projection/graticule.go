package projection

import "github.com/paulmach/orb"

// Graticule returns meridians and parallels every 10 degrees. Lines are
// densified every 2.5 degrees so they bend under curved projections.
// Meridians on multiples of 90 run pole to pole; the rest stop at 80 degrees.
func Graticule() orb.MultiLineString {
	const step, dense = 10.0, 2.5
	var out orb.MultiLineString
	for lon := -180.0; lon <= 180; lon += step {
		extent := 80.0
		if int(lon)%90 == 0 {
			extent = 90
		}
		var ls orb.LineString
		for lat := -extent; lat <= extent+1e-9; lat += dense {
			ls = append(ls, orb.Point{lon, lat})
		}
		out = append(out, ls)
	}
	for lat := -80.0; lat <= 80; lat += step {
		var ls orb.LineString
		for lon := -180.0; lon <= 180+1e-9; lon += dense {
			ls = append(ls, orb.Point{lon, lat})
		}
		out = append(out, ls)
	}
	return out
}
