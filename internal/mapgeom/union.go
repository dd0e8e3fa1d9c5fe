package mapgeom

import (
	"math"
	"sort"

	polyclip "github.com/ctessum/polyclip-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Union merges polygons into the fewest disjoint polygons covering them.
func Union(polys []orb.Polygon) []orb.Polygon {
	switch len(polys) {
	case 0:
		return nil
	case 1:
		return []orb.Polygon{polys[0]}
	}
	acc := toClip(polys[0])
	for _, p := range polys[1:] {
		acc = acc.Construct(polyclip.UNION, toClip(p))
	}
	return fromClip(acc)
}

func toClip(p orb.Polygon) polyclip.Polygon {
	out := make(polyclip.Polygon, 0, len(p))
	for _, ring := range p {
		n := len(ring)
		if n > 1 && ring[0] == ring[n-1] {
			n--
		}
		c := make(polyclip.Contour, n)
		for i := 0; i < n; i++ {
			c[i] = polyclip.Point{X: ring[i][0], Y: ring[i][1]}
		}
		out = append(out, c)
	}
	return out
}

type nestedRing struct {
	ring  orb.Ring
	area  float64
	depth int
}

// fromClip rebuilds polygons with holes from clipper contours, which carry
// no exterior/hole distinction: a contour nested inside an odd number of
// others is a hole of the smallest exterior containing it.
func fromClip(p polyclip.Polygon) []orb.Polygon {
	var rings []*nestedRing
	for _, c := range p {
		if len(c) < 3 {
			continue
		}
		r := make(orb.Ring, 0, len(c)+1)
		for _, pt := range c {
			r = append(r, orb.Point{pt.X, pt.Y})
		}
		r = append(r, r[0])
		a := math.Abs(planar.Area(r))
		if a <= areaEpsilon {
			continue
		}
		rings = append(rings, &nestedRing{ring: r, area: a})
	}
	sort.SliceStable(rings, func(i, j int) bool { return rings[i].area > rings[j].area })

	for i, inner := range rings {
		for _, outer := range rings[:i] {
			if ringWithin(inner.ring, outer.ring) {
				inner.depth++
			}
		}
	}

	var out []orb.Polygon
	owner := make(map[*nestedRing]int)
	for _, r := range rings {
		if r.depth%2 == 0 {
			owner[r] = len(out)
			out = append(out, orb.Polygon{r.ring})
		}
	}
	for i, r := range rings {
		if r.depth%2 == 0 {
			continue
		}
		// Rings are sorted by area, so the last containing exterior is the
		// smallest one.
		for j := i - 1; j >= 0; j-- {
			ext := rings[j]
			if ext.depth == r.depth-1 && ringWithin(r.ring, ext.ring) {
				idx := owner[ext]
				out[idx] = append(out[idx], r.ring)
				break
			}
		}
	}
	return out
}

// ringWithin reports whether every vertex of inner lies inside or on outer.
func ringWithin(inner, outer orb.Ring) bool {
	if !outer.Bound().Contains(inner.Bound().Min) || !outer.Bound().Contains(inner.Bound().Max) {
		return false
	}
	for _, pt := range inner {
		if !planar.RingContains(outer, pt) {
			return false
		}
	}
	return true
}
