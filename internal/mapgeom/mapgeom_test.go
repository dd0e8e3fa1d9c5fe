package mapgeom

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func rect(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

func rotated(p orb.Polygon, deg float64, about orb.Point) orb.Polygon {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	out := orb.Polygon{}
	for _, r := range p {
		nr := make(orb.Ring, len(r))
		for i, pt := range r {
			dx, dy := pt[0]-about[0], pt[1]-about[1]
			nr[i] = orb.Point{about[0] + cos*dx - sin*dy, about[1] + sin*dx + cos*dy}
		}
		out = append(out, nr)
	}
	return out
}

func TestPrincipalAxis(t *testing.T) {
	a := PrincipalAxis(rect(0, 0, 10, 2))
	assert.InDelta(t, 10.0, a.Length, 1e-9)
	assert.InDelta(t, 1.0, math.Abs(a.DX), 1e-9)

	b := PrincipalAxis(rotated(rect(0, 0, 10, 2), 30, orb.Point{}))
	assert.InDelta(t, 10.0, b.Length, 1e-9)
	assert.InDelta(t, math.Cos(math.Pi/6), math.Abs(b.DX), 1e-9)

	tall := PrincipalAxis(rect(0, 0, 2, 10))
	assert.InDelta(t, 1.0, math.Abs(tall.DY), 1e-9)

	assert.Zero(t, PrincipalAxis(orb.Polygon{orb.Ring{{1, 1}, {1, 1}, {1, 1}, {1, 1}}}).Length)
}

func TestAxis_Parallel(t *testing.T) {
	x := Axis{DX: 1, Length: 1}
	assert.True(t, x.Parallel(Axis{DX: -1, Length: 2}, 0.01))
	d := math.Sqrt2 / 2
	assert.False(t, x.Parallel(Axis{DX: d, DY: d, Length: 1}, 0.01))
	assert.False(t, x.Parallel(Axis{}, 0.01))
}

func TestMergePedCrossings_ParallelMerge(t *testing.T) {
	a := rect(0, 0, 10, 3)
	b := rect(0, 2.9, 10, 6)
	got := MergePedCrossings([]orb.Polygon{a, b}, 0.01)
	require.Len(t, got, 1)
	assert.InDelta(t, 60.0, planar.Area(got[0]), 1e-6)
}

func TestMergePedCrossings_SharedEdge(t *testing.T) {
	got := MergePedCrossings([]orb.Polygon{rect(0, 0, 10, 3), rect(0, 3, 10, 6)}, 0.01)
	require.Len(t, got, 1)
	assert.InDelta(t, 60.0, planar.Area(got[0]), 1e-6)
}

func TestMergePedCrossings_SkewedStaySeparate(t *testing.T) {
	a := rect(0, 0, 10, 3)
	b := rotated(rect(0, 0, 10, 3), 45, orb.Point{5, 1.5})
	got := MergePedCrossings([]orb.Polygon{a, b}, 0.01)
	assert.Len(t, got, 2)
}

func TestMergePedCrossings_FarApart(t *testing.T) {
	got := MergePedCrossings([]orb.Polygon{rect(0, 0, 10, 3), rect(50, 0, 60, 3)}, 0.01)
	assert.Len(t, got, 2)
}

func TestUnion_KeepsHoles(t *testing.T) {
	// A frame of four strips encloses a 2x2 hole.
	strips := []orb.Polygon{
		rect(0, 0, 6, 2.1),
		rect(0, 3.9, 6, 6),
		rect(0, 0, 2.1, 6),
		rect(3.9, 0, 6, 6),
	}
	got := Union(strips)
	require.Len(t, got, 1)
	require.Len(t, got[0], 2, "exterior plus one hole")
	assert.InDelta(t, 36.0-1.8*1.8, planar.Area(got[0]), 1e-6)
}

func TestUnion_Disjoint(t *testing.T) {
	got := Union([]orb.Polygon{rect(0, 0, 1, 1), rect(5, 5, 6, 6)})
	assert.Len(t, got, 2)
}

// rightIsInside checks every segment midpoint of ls has p's interior on
// its right-hand side.
func rightIsInside(t *testing.T, ls orb.LineString, p orb.Polygon) {
	t.Helper()
	for i := 0; i+1 < len(ls); i++ {
		a, b := ls[i], ls[i+1]
		dx, dy := b[0]-a[0], b[1]-a[1]
		n := math.Hypot(dx, dy)
		if n == 0 {
			continue
		}
		mid := orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
		right := orb.Point{mid[0] + 1e-3*dy/n, mid[1] - 1e-3*dx/n}
		left := orb.Point{mid[0] - 1e-3*dy/n, mid[1] + 1e-3*dx/n}
		assert.True(t, planar.PolygonContains(p, right), "segment %d right side", i)
		assert.False(t, planar.PolygonContains(p, left), "segment %d left side", i)
	}
}

func TestBoundaryContours_Winding(t *testing.T) {
	patch := orb.Bound{Min: orb.Point{-30, -60}, Max: orb.Point{30, 60}}
	for _, name := range []string{"ccw input", "cw input"} {
		t.Run(name, func(t *testing.T) {
			p := rect(-5, -5, 5, 5)
			if name == "cw input" {
				p[0].Reverse()
			}
			lines := BoundaryContours([]orb.Polygon{p}, patch)
			require.Len(t, lines, 1)
			assert.Equal(t, orb.CW, orb.Ring(lines[0]).Orientation())
			rightIsInside(t, lines[0], rect(-5, -5, 5, 5))
		})
	}
}

func TestBoundaryContours_HoleIsCounterClockwise(t *testing.T) {
	patch := orb.Bound{Min: orb.Point{-30, -60}, Max: orb.Point{30, 60}}
	hole := rect(-1, -1, 1, 1)[0]
	hole.Reverse()
	p := orb.Polygon{rect(-5, -5, 5, 5)[0], hole}
	lines := BoundaryContours([]orb.Polygon{p}, patch)
	require.Len(t, lines, 2)
	assert.Equal(t, orb.CCW, orb.Ring(lines[1]).Orientation())
	rightIsInside(t, lines[1], p)
}

func TestBoundaryContours_ClippedJoinsAcrossStart(t *testing.T) {
	// The ring starts inside the patch, leaves it on the right and comes
	// back, so clipping yields two pieces that must be rejoined.
	patch := orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{10, 10}}
	p := orb.Polygon{orb.Ring{{0, 5}, {0, -5}, {20, -5}, {20, 5}, {0, 5}}}
	lines := BoundaryContours([]orb.Polygon{p}, patch)
	require.Len(t, lines, 1)
	assert.Len(t, lines[0], 4)
	assert.Equal(t, orb.Point{10, -5}, lines[0][0])
	assert.Equal(t, orb.Point{10, 5}, lines[0][len(lines[0])-1])
	rightIsInside(t, lines[0], p)
}

func TestPedCrossingContour(t *testing.T) {
	patch := orb.Bound{Min: orb.Point{-30, -60}, Max: orb.Point{30, 60}}
	cw := rect(0, 0, 4, 2)
	cw[0].Reverse()
	line, ok := PedCrossingContour(cw, patch)
	require.True(t, ok)
	assert.Equal(t, line[0], line[len(line)-1], "closed")
	assert.Equal(t, orb.CCW, orb.Ring(line).Orientation())

	_, ok = PedCrossingContour(rect(100, 100, 104, 102), patch)
	assert.False(t, ok)
}

func TestPedCrossingContour_SplitByPatch(t *testing.T) {
	// Both arms of the U leave through the top edge.
	u := orb.Polygon{orb.Ring{
		{-5, 0}, {5, 0}, {5, 12}, {3, 12}, {3, 2}, {-3, 2}, {-3, 12}, {-5, 12}, {-5, 0},
	}}
	patch := orb.Bound{Min: orb.Point{-30, -30}, Max: orb.Point{30, 10}}
	line, ok := PedCrossingContour(u, patch)
	require.True(t, ok)
	assert.ElementsMatch(t, []orb.Point{
		{3, 10}, {3, 2}, {-3, 2}, {-3, 10}, {-5, 10}, {-5, 0}, {5, 0}, {5, 10},
	}, []orb.Point(line))
	for _, pt := range line {
		assert.LessOrEqual(t, pt[1], 10.0)
	}
}

func TestMergeLines(t *testing.T) {
	got := MergeLines(orb.MultiLineString{
		{{2, 0}, {3, 0}},
		{{0, 0}, {1, 0}},
		{{1, 0}, {2, 0}},
		{{9, 9}},
	})
	require.Len(t, got, 1)
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}, {2, 0}, {3, 0}}, got[0])
}

func TestSplit(t *testing.T) {
	geoms := []orb.Geometry{
		orb.MultiPolygon{rect(0, 0, 1, 1), rect(2, 2, 3, 3)},
		orb.Polygon{},
		orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {2, 0}, {0, 0}}},
		orb.Collection{rect(5, 5, 6, 6)},
	}
	assert.Len(t, SplitPolygons(PedCrossing, geoms), 3)

	lines := []orb.Geometry{
		orb.MultiLineString{{{0, 0}, {1, 1}}, {{5, 5}}},
		orb.LineString{{0, 0}, {0, 1}},
	}
	assert.Len(t, SplitLines(LaneDivider, lines), 2)
}

func TestROI_Frames(t *testing.T) {
	roi := ROI{Center: orb.Point{100, 200}, RotationDeg: 90, Width: 60, Height: 120}
	// Straight ahead of a north-facing vehicle is +x in the patch.
	local := roi.ToLocal(orb.Point{100, 210})
	assert.InDelta(t, 10.0, local[0], 1e-9)
	assert.InDelta(t, 0.0, local[1], 1e-9)

	back := roi.ToWorld(local)
	assert.InDelta(t, 100.0, back[0], 1e-9)
	assert.InDelta(t, 210.0, back[1], 1e-9)

	wb := roi.WorldBound()
	assert.InDelta(t, 40.0, wb.Min[0], 1e-9)
	assert.InDelta(t, 160.0, wb.Max[0], 1e-9)
	assert.InDelta(t, 170.0, wb.Min[1], 1e-9)
	assert.InDelta(t, 230.0, wb.Max[1], 1e-9)
}

func TestNormalize(t *testing.T) {
	roi := ROI{Center: orb.Point{100, 200}, Width: 60, Height: 120}
	raw := RawLayers{
		LaneDivider: {orb.LineString{{50, 200}, {150, 200}}},
		RoadDivider: {orb.LineString{{500, 500}, {501, 501}}},
		PedCrossing: {
			rect(110, 190, 120, 193),
			rect(110, 192.9, 120, 196),
		},
		RoadSegment: {rect(80, 190, 120, 210)},
		Lane:        {rect(110, 190, 125, 210)},
	}
	res := NewNormalizer(DefaultConfig()).Normalize(raw, roi)

	require.Len(t, res.Dividers, 1, "far divider is clipped away")
	assert.Equal(t, orb.Point{-30, 0}, res.Dividers[0][0])
	assert.Equal(t, orb.Point{30, 0}, res.Dividers[0][len(res.Dividers[0])-1])

	require.Len(t, res.PedCrossings, 1, "parallel fragments merge")
	pc := res.PedCrossings[0]
	assert.Equal(t, pc[0], pc[len(pc)-1])

	require.Len(t, res.DrivableAreas, 1)
	// Road x in [-20, 20], lane x in [10, 25] clipped to the patch: [-20, 25] x [-10, 10].
	assert.InDelta(t, 45.0*20.0, planar.Area(res.DrivableAreas[0]), 1e-6)

	require.Len(t, res.Boundaries, 1)
	rightIsInside(t, res.Boundaries[0], res.DrivableAreas[0])
}
