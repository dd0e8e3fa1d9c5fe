package convert

import (
	"github.com/banshee-data/nuscenes-xviz/internal/geom"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
)

// PoseConverter writes the ego pose and the ego's forward path over the
// next frames.
type PoseConverter struct {
	scene     *Scene
	lookahead int
}

// NewPoseConverter returns a converter showing lookahead ego positions.
func NewPoseConverter(scene *Scene, lookahead int) *PoseConverter {
	return &PoseConverter{scene: scene, lookahead: lookahead}
}

func (c *PoseConverter) Name() string { return "pose" }

func (c *PoseConverter) Declare(mb *xviz.MetadataBuilder) error {
	if err := mb.Declare(xviz.StreamDeclaration{
		StreamID:   StreamVehiclePose,
		Category:   xviz.CategoryPose,
		Coordinate: xviz.World,
	}); err != nil {
		return err
	}
	return mb.Declare(xviz.StreamDeclaration{
		StreamID:      StreamVehicleTrajectory,
		Category:      xviz.CategoryPrimitive,
		PrimitiveType: xviz.Polyline,
		Coordinate:    c.scene.Frame,
		Style: xviz.Style{
			"stroke_color":            [4]uint8{87, 173, 87, 170},
			"stroke_width":            1.4,
			"stroke_width_min_pixels": 1,
		},
	})
}

func (c *PoseConverter) Convert(i int, fb *xviz.FrameBuilder) error {
	ego := c.scene.Poses[i]
	if err := fb.Pose(StreamVehiclePose, xviz.PoseSample{
		Timestamp:   ego.Timestamp,
		Position:    ego.Position,
		Orientation: ego.Euler,
	}); err != nil {
		return err
	}
	path := geom.Lookahead(c.scene.Poses, i, c.lookahead)
	if len(path) < 2 {
		return nil
	}
	return fb.Primitive(StreamVehicleTrajectory, xviz.NewPolyline(c.scene.PlaceAll(i, path)))
}
