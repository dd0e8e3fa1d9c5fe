package mapgeom

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
)

// SplitPolygons flattens multi-part geometry into single polygons, dropping
// empty or degenerate parts.
func SplitPolygons(layer Layer, geoms []orb.Geometry) []orb.Polygon {
	var out []orb.Polygon
	for _, g := range geoms {
		switch g := g.(type) {
		case orb.Polygon:
			out = appendPolygon(out, layer, g)
		case orb.MultiPolygon:
			for _, p := range g {
				out = appendPolygon(out, layer, p)
			}
		case orb.Collection:
			out = append(out, SplitPolygons(layer, g)...)
		case nil:
		default:
			monitoring.Logf("[mapgeom] %s: ignoring %s geometry", layer, g.GeoJSONType())
		}
	}
	return out
}

// SplitLines flattens multi-part geometry into single line strings, dropping
// parts with fewer than two points.
func SplitLines(layer Layer, geoms []orb.Geometry) []orb.LineString {
	var out []orb.LineString
	for _, g := range geoms {
		switch g := g.(type) {
		case orb.LineString:
			out = appendLine(out, layer, g)
		case orb.MultiLineString:
			for _, ls := range g {
				out = appendLine(out, layer, ls)
			}
		case orb.Collection:
			out = append(out, SplitLines(layer, g)...)
		case nil:
		default:
			monitoring.Logf("[mapgeom] %s: ignoring %s geometry", layer, g.GeoJSONType())
		}
	}
	return out
}

func appendPolygon(out []orb.Polygon, layer Layer, p orb.Polygon) []orb.Polygon {
	if !validPolygon(p) {
		if len(p) > 0 {
			monitoring.Logf("[mapgeom] %s: dropped invalid polygon", layer)
		}
		return out
	}
	return append(out, p)
}

func appendLine(out []orb.LineString, layer Layer, ls orb.LineString) []orb.LineString {
	if len(ls) < 2 {
		if len(ls) > 0 {
			monitoring.Logf("[mapgeom] %s: dropped invalid line", layer)
		}
		return out
	}
	return append(out, ls)
}

func validPolygon(p orb.Polygon) bool {
	if len(p) == 0 || len(p[0]) < 4 {
		return false
	}
	return planar.Area(p) > areaEpsilon
}

// areaEpsilon is the smallest polygon area, in square metres, kept.
const areaEpsilon = 1e-9
