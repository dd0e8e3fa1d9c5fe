package convert

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
)

// TrackingPointRadius is the radius of the object centre circles in metres.
const TrackingPointRadius = 0.2

// AnnotationConverter writes object footprints, centre circles and the
// recent history of every tracked object.
type AnnotationConverter struct {
	scene  *Scene
	window float64
}

// NewAnnotationConverter returns a converter whose history lines cover
// window seconds.
func NewAnnotationConverter(scene *Scene, window float64) *AnnotationConverter {
	return &AnnotationConverter{scene: scene, window: window}
}

func (c *AnnotationConverter) Name() string { return "annotations" }

func (c *AnnotationConverter) Declare(mb *xviz.MetadataBuilder) error {
	if err := mb.Declare(xviz.StreamDeclaration{
		StreamID:      StreamTrackingPoint,
		Category:      xviz.CategoryPrimitive,
		PrimitiveType: xviz.Circle,
		Coordinate:    c.scene.Frame,
		Style: xviz.Style{
			"radius":     TrackingPointRadius,
			"fill_color": [4]uint8{255, 255, 0, 255},
		},
	}); err != nil {
		return err
	}
	for _, class := range Classes() {
		fill, stroke := ClassColors(class)
		if err := mb.Declare(xviz.StreamDeclaration{
			StreamID:      AnnotationStream(class),
			Category:      xviz.CategoryPrimitive,
			PrimitiveType: xviz.Polygon,
			Coordinate:    c.scene.Frame,
			Style: xviz.Style{
				"extruded":   true,
				"fill_color": [4]uint8{0, 0, 0, 128},
			},
			StyleClasses: []xviz.StyleClass{{
				Name:  class,
				Style: xviz.Style{"fill_color": fill, "stroke_color": stroke},
			}},
		}); err != nil {
			return err
		}
		if err := mb.Declare(xviz.StreamDeclaration{
			StreamID:      AnnotationTrajectoryStream(class),
			Category:      xviz.CategoryPrimitive,
			PrimitiveType: xviz.Polyline,
			Coordinate:    c.scene.Frame,
			Style: xviz.Style{
				"stroke_color":            stroke,
				"stroke_width":            TrajectoryWidth(class),
				"stroke_width_min_pixels": 1,
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *AnnotationConverter) Convert(i int, fb *xviz.FrameBuilder) error {
	now := c.scene.Timestamp(i)
	for _, a := range c.scene.Annotations[i] {
		footprint := c.scene.PlaceAll(i, a.Box().Footprint())
		box := xviz.NewPolygon(footprint).
			WithID(a.InstanceToken).
			WithClasses(a.Class).
			WithStyle(xviz.Style{"height": a.Size[2]})
		if err := fb.Primitive(AnnotationStream(a.Class), box); err != nil {
			return err
		}

		center := c.scene.Place(i, r3.Vec{X: a.Translation[0], Y: a.Translation[1]})
		point := xviz.NewCircle(center, TrackingPointRadius).WithID(a.InstanceToken)
		if err := fb.Primitive(StreamTrackingPoint, point); err != nil {
			return err
		}

		if err := c.history(i, now, a, fb); err != nil {
			return err
		}
	}
	return nil
}

// history writes the instance's positions within the window ending at now.
// Fewer than two samples cannot form a line and are skipped.
func (c *AnnotationConverter) history(i int, now float64, a Annotation, fb *xviz.FrameBuilder) error {
	track, ok := c.scene.Tracks.Track(a.InstanceToken)
	if !ok {
		return nil
	}
	samples := track.Window(now, c.window)
	if len(samples) < 2 {
		return nil
	}
	path := make([]r3.Vec, len(samples))
	for k, s := range samples {
		path[k] = c.scene.Place(i, r3.Vec{X: s.Position.X, Y: s.Position.Y})
	}
	line := xviz.NewPolyline(path).WithID(a.InstanceToken)
	return fb.Primitive(AnnotationTrajectoryStream(a.Class), line)
}
