// Package mapgeom turns raw HD-map layer geometry around the ego vehicle into
// the vehicle-centred dividers, pedestrian crossings, drivable areas and
// boundary contours rendered on the map streams.
package mapgeom

import (
	"math"

	"github.com/paulmach/orb"
)

// Layer names a map layer returned by a Querier.
type Layer string

const (
	LaneDivider Layer = "lane_divider"
	RoadDivider Layer = "road_divider"
	PedCrossing Layer = "ped_crossing"
	RoadSegment Layer = "road_segment"
	Lane        Layer = "lane"
)

// QueryLayers lists every layer the normalizer consumes.
var QueryLayers = []Layer{LaneDivider, RoadDivider, PedCrossing, RoadSegment, Lane}

// RawLayers holds unclipped world-coordinate geometry per layer. Entries may
// be single or multi-part geometries.
type RawLayers map[Layer][]orb.Geometry

// ROI is the rotated rectangular patch around the ego vehicle. Width runs
// along the heading (local x), Height across it (local y).
type ROI struct {
	Center      orb.Point
	RotationDeg float64
	Width       float64
	Height      float64
}

// LocalBound is the patch in local coordinates, centred on the origin.
func (r ROI) LocalBound() orb.Bound {
	return r.shrunk(0)
}

func (r ROI) shrunk(d float64) orb.Bound {
	return orb.Bound{
		Min: orb.Point{-r.Width/2 + d, -r.Height/2 + d},
		Max: orb.Point{r.Width/2 - d, r.Height/2 - d},
	}
}

// WorldBound is the axis-aligned world bound of the rotated patch.
func (r ROI) WorldBound() orb.Bound {
	local := r.LocalBound()
	b := orb.Bound{Min: r.ToWorld(local.Min), Max: r.ToWorld(local.Min)}
	for _, p := range local.ToRing() {
		b = b.Extend(r.ToWorld(p))
	}
	return b
}

// ToLocal maps a world point into the patch frame.
func (r ROI) ToLocal(p orb.Point) orb.Point {
	sin, cos := math.Sincos(r.RotationDeg * math.Pi / 180)
	dx, dy := p[0]-r.Center[0], p[1]-r.Center[1]
	return orb.Point{cos*dx + sin*dy, -sin*dx + cos*dy}
}

// ToWorld maps a patch-frame point back into world coordinates.
func (r ROI) ToWorld(p orb.Point) orb.Point {
	sin, cos := math.Sincos(r.RotationDeg * math.Pi / 180)
	return orb.Point{cos*p[0] - sin*p[1] + r.Center[0], sin*p[0] + cos*p[1] + r.Center[1]}
}

// Querier is the map collaborator: it returns every layer geometry near the
// patch, in world coordinates and unclipped.
type Querier interface {
	QueryRegion(location string, roi ROI) (RawLayers, error)
}

func (r ROI) localLine(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = r.ToLocal(p)
	}
	return out
}

func (r ROI) localRing(ring orb.Ring) orb.Ring {
	return orb.Ring(r.localLine(orb.LineString(ring)))
}

func (r ROI) localPolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, ring := range p {
		out[i] = r.localRing(ring)
	}
	return out
}
