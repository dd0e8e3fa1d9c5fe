package mapgeom

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
)

// Config holds the normalizer's tunables.
type Config struct {
	MergeTolerance float64 // allowed 1-|cos| between crossing axes
	BoundaryShrink float64 // metres trimmed off each patch edge for boundaries
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{MergeTolerance: 0.01, BoundaryShrink: 0.2}
}

// Result is the normalized map geometry in the vehicle-centred patch frame.
type Result struct {
	Dividers      []orb.LineString
	PedCrossings  []orb.LineString // closed contours
	Boundaries    []orb.LineString
	DrivableAreas []orb.Polygon
}

// Normalizer converts raw layers into Result values. It is stateless and
// safe for concurrent use.
type Normalizer struct {
	cfg Config
}

// NewNormalizer returns a Normalizer using cfg.
func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Normalize moves raw into the patch frame of roi and derives the rendered
// map geometry.
func (n *Normalizer) Normalize(raw RawLayers, roi ROI) Result {
	patch := roi.LocalBound()
	var res Result

	for _, layer := range []Layer{LaneDivider, RoadDivider} {
		for _, ls := range SplitLines(layer, raw[layer]) {
			for _, piece := range clip.LineString(patch, roi.localLine(ls)) {
				if len(piece) >= 2 {
					res.Dividers = append(res.Dividers, piece)
				}
			}
		}
	}

	peds := localPolygons(PedCrossing, raw, roi, patch)
	for _, p := range MergePedCrossings(peds, n.cfg.MergeTolerance) {
		if line, ok := PedCrossingContour(p, patch); ok {
			res.PedCrossings = append(res.PedCrossings, line)
		}
	}

	drivable := localPolygons(RoadSegment, raw, roi, patch)
	drivable = append(drivable, localPolygons(Lane, raw, roi, patch)...)
	res.DrivableAreas = Union(drivable)
	res.Boundaries = BoundaryContours(res.DrivableAreas, roi.shrunk(n.cfg.BoundaryShrink))
	return res
}

func localPolygons(layer Layer, raw RawLayers, roi ROI, patch orb.Bound) []orb.Polygon {
	var out []orb.Polygon
	for _, p := range SplitPolygons(layer, raw[layer]) {
		// clip.Polygon reuses its input; localPolygon already returns a copy.
		if c := clip.Polygon(patch, roi.localPolygon(p)); validPolygon(c) {
			out = append(out, c)
		}
	}
	return out
}
