package mapgeom

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// Axis is the direction and length of a polygon's longest minimum
// rotated rectangle edge.
type Axis struct {
	DX, DY float64 // unit direction
	Length float64
}

// Parallel reports whether two axes point the same way up to sign, within
// tol of |cos| = 1.
func (a Axis) Parallel(b Axis, tol float64) bool {
	if a.Length == 0 || b.Length == 0 {
		return false
	}
	cos := a.DX*b.DX + a.DY*b.DY
	return 1-math.Abs(cos) < tol
}

// PrincipalAxis returns the long edge of the polygon's minimum-area
// rotated bounding rectangle.
func PrincipalAxis(p orb.Polygon) Axis {
	if len(p) == 0 {
		return Axis{}
	}
	hull := convexHull(p[0])
	switch len(hull) {
	case 0, 1:
		return Axis{}
	case 2:
		return axisOf(hull[1][0]-hull[0][0], hull[1][1]-hull[0][1])
	}

	best := math.Inf(1)
	var axis Axis
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		ex, ey := b[0]-a[0], b[1]-a[1]
		n := math.Hypot(ex, ey)
		if n == 0 {
			continue
		}
		ux, uy := ex/n, ey/n
		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, q := range hull {
			u := q[0]*ux + q[1]*uy
			v := -q[0]*uy + q[1]*ux
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}
		lu, lv := maxU-minU, maxV-minV
		if area := lu * lv; area < best {
			best = area
			if lu >= lv {
				axis = Axis{DX: ux, DY: uy, Length: lu}
			} else {
				axis = Axis{DX: -uy, DY: ux, Length: lv}
			}
		}
	}
	return axis
}

func axisOf(dx, dy float64) Axis {
	n := math.Hypot(dx, dy)
	if n == 0 {
		return Axis{}
	}
	return Axis{DX: dx / n, DY: dy / n, Length: n}
}

// convexHull returns the hull of the ring's points in counter-clockwise
// order without a closing repeat (Andrew's monotone chain).
func convexHull(r orb.Ring) []orb.Point {
	pts := make([]orb.Point, len(r))
	copy(pts, r)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})
	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			uniq = append(uniq, p)
		}
	}
	pts = uniq
	if len(pts) < 3 {
		return pts
	}

	cross := func(o, a, b orb.Point) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}
	hull := make([]orb.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}
