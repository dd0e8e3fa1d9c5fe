package mapgeom

import (
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
	polyclip "github.com/ctessum/polyclip-go"
	"github.com/paulmach/orb"
)

// MergePedCrossings unions crossings whose bounds overlap and whose
// principal axes are parallel within tol. Crossings are visited in input
// order; each one absorbs every compatible neighbour not yet consumed.
func MergePedCrossings(polys []orb.Polygon, tol float64) []orb.Polygon {
	if len(polys) < 2 {
		return polys
	}

	fb := flatbush.NewFlatbush[float64]()
	fb.Reserve(len(polys))
	axes := make([]Axis, len(polys))
	for i, p := range polys {
		b := p.Bound()
		fb.Add(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
		axes[i] = PrincipalAxis(p)
	}
	fb.Finish()

	consumed := make([]bool, len(polys))
	var out []orb.Polygon
	var nearby []int
	for i, p := range polys {
		if consumed[i] {
			continue
		}
		consumed[i] = true
		b := p.Bound()
		nearby = fb.SearchFast(b.Min[0], b.Min[1], b.Max[0], b.Max[1], nearby)
		sort.Ints(nearby)

		var merged polyclip.Polygon
		for _, j := range nearby {
			if consumed[j] || !axes[i].Parallel(axes[j], tol) {
				continue
			}
			if merged == nil {
				merged = toClip(p)
			}
			merged = merged.Construct(polyclip.UNION, toClip(polys[j]))
			consumed[j] = true
		}
		if merged == nil {
			out = append(out, p)
			continue
		}
		out = append(out, fromClip(merged)...)
	}
	return out
}
