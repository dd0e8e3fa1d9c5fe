package mapgeom

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
)

// PedCrossingContour returns the crossing's counter-clockwise exterior
// clipped to patch as a single line. Pieces that cannot be joined end to
// end are concatenated in order.
func PedCrossingContour(p orb.Polygon, patch orb.Bound) (orb.LineString, bool) {
	if len(p) == 0 {
		return nil, false
	}
	ext := p[0].Clone()
	if ext.Orientation() == orb.CW {
		ext.Reverse()
	}
	lines := MergeLines(clip.LineString(patch, orb.LineString(ext)))
	switch len(lines) {
	case 0:
		return nil, false
	case 1:
		return lines[0], true
	}
	var joined orb.LineString
	for _, ls := range lines {
		joined = append(joined, ls...)
	}
	return joined, true
}

// BoundaryContours returns the drivable-area outlines clipped to patch.
// Exteriors are walked clockwise and holes counter-clockwise, so the
// drivable side of every contour is on its right.
func BoundaryContours(areas []orb.Polygon, patch orb.Bound) []orb.LineString {
	var out []orb.LineString
	for _, p := range areas {
		for i, ring := range p {
			r := ring.Clone()
			want := orb.CW
			if i > 0 {
				want = orb.CCW
			}
			if o := r.Orientation(); o != 0 && o != want {
				r.Reverse()
			}
			out = append(out, MergeLines(clip.LineString(patch, orb.LineString(r)))...)
		}
	}
	return out
}

// MergeLines joins pieces whose end meets another piece's start, keeping
// each piece's direction. Pieces with fewer than two points are dropped.
func MergeLines(mls orb.MultiLineString) []orb.LineString {
	pieces := make([]orb.LineString, 0, len(mls))
	for _, ls := range mls {
		if len(ls) >= 2 {
			pieces = append(pieces, ls.Clone())
		}
	}
	for merged := true; merged; {
		merged = false
		for i := 0; i < len(pieces) && !merged; i++ {
			end := pieces[i][len(pieces[i])-1]
			for j := range pieces {
				if i == j || !samePoint(end, pieces[j][0]) {
					continue
				}
				pieces[i] = append(pieces[i], pieces[j][1:]...)
				pieces = append(pieces[:j], pieces[j+1:]...)
				merged = true
				break
			}
		}
	}
	return pieces
}

const pointEpsilon = 1e-9

func samePoint(a, b orb.Point) bool {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx+dy*dy <= pointEpsilon*pointEpsilon
}
