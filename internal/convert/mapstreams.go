package convert

import (
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/nuscenes-xviz/internal/mapgeom"
	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
)

// MapConverter writes the normalized HD-map layers around the ego vehicle.
// Geometry is always vehicle-relative: the patch is centred on the ego and
// rotated to its heading.
type MapConverter struct {
	scene      *Scene
	querier    mapgeom.Querier
	normalizer *mapgeom.Normalizer
	width      float64
	height     float64
}

// NewMapConverter returns a converter querying a width x height patch.
func NewMapConverter(scene *Scene, querier mapgeom.Querier, cfg mapgeom.Config, width, height float64) *MapConverter {
	return &MapConverter{
		scene:      scene,
		querier:    querier,
		normalizer: mapgeom.NewNormalizer(cfg),
		width:      width,
		height:     height,
	}
}

func (c *MapConverter) Name() string { return "map" }

func (c *MapConverter) Declare(mb *xviz.MetadataBuilder) error {
	line := func(id string, color [4]uint8, width float64) xviz.StreamDeclaration {
		return xviz.StreamDeclaration{
			StreamID:      id,
			Category:      xviz.CategoryPrimitive,
			PrimitiveType: xviz.Polyline,
			Coordinate:    xviz.VehicleRelative,
			Style: xviz.Style{
				"stroke_color":            color,
				"stroke_width":            width,
				"stroke_width_min_pixels": 1,
			},
		}
	}
	decls := []xviz.StreamDeclaration{
		line(StreamMapDivider, [4]uint8{255, 255, 255, 255}, 0.2),
		line(StreamMapPedCrossing, [4]uint8{255, 217, 82, 255}, 0.3),
		line(StreamMapBoundary, [4]uint8{255, 179, 0, 255}, 0.3),
		{
			StreamID:      StreamMapDrivableArea,
			Category:      xviz.CategoryPrimitive,
			PrimitiveType: xviz.Polygon,
			Coordinate:    xviz.VehicleRelative,
			Style: xviz.Style{
				"fill_color":              [4]uint8{100, 100, 100, 64},
				"stroke_color":            [4]uint8{100, 100, 100, 128},
				"stroke_width":            0.1,
				"stroke_width_min_pixels": 1,
			},
		},
	}
	for _, d := range decls {
		if err := mb.Declare(d); err != nil {
			return err
		}
	}
	return nil
}

// ROI returns the map patch of frame i.
func (c *MapConverter) ROI(i int) mapgeom.ROI {
	ego := c.scene.Poses[i]
	return mapgeom.ROI{
		Center:      orb.Point{ego.Position.X, ego.Position.Y},
		RotationDeg: ego.Heading() * 180 / math.Pi,
		Width:       c.width,
		Height:      c.height,
	}
}

func (c *MapConverter) Convert(i int, fb *xviz.FrameBuilder) error {
	location := c.scene.Info.Log.Location
	if location == "" {
		return nil
	}
	roi := c.ROI(i)
	raw, err := c.querier.QueryRegion(location, roi)
	if err != nil {
		monitoring.Logf("[convert] %s frame %d: map skipped: %v", c.scene.Name(), i, err)
		return nil
	}
	res := c.normalizer.Normalize(raw, roi)

	for _, group := range []struct {
		stream string
		lines  []orb.LineString
	}{
		{StreamMapDivider, res.Dividers},
		{StreamMapPedCrossing, res.PedCrossings},
		{StreamMapBoundary, res.Boundaries},
	} {
		for _, ls := range group.lines {
			if len(ls) < 2 {
				continue
			}
			if err := fb.Primitive(group.stream, xviz.NewPolyline(planar(ls))); err != nil {
				return err
			}
		}
	}
	for _, p := range res.DrivableAreas {
		if len(p) == 0 || len(p[0]) < 3 {
			continue
		}
		if err := fb.Primitive(StreamMapDrivableArea, xviz.NewPolygon(planar(orb.LineString(p[0])))); err != nil {
			return err
		}
	}
	return nil
}

// planar lifts 2D map points onto the ground plane.
func planar(ls orb.LineString) []r3.Vec {
	out := make([]r3.Vec, len(ls))
	for k, p := range ls {
		out[k] = r3.Vec{X: p[0], Y: p[1]}
	}
	return out
}
