package convert

import (
	"github.com/banshee-data/nuscenes-xviz/internal/predict"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
)

// FutureConverter writes constant-velocity predictions for every object
// observed in the frame: the predicted path, the footprint at the last
// step, and one centre circle per predicted timestamp.
type FutureConverter struct {
	scene     *Scene
	predictor *predict.Predictor
}

// NewFutureConverter returns a converter predicting with cfg.
func NewFutureConverter(scene *Scene, cfg predict.Config) *FutureConverter {
	return &FutureConverter{scene: scene, predictor: predict.NewPredictor(cfg)}
}

func (c *FutureConverter) Name() string { return "future" }

func (c *FutureConverter) Declare(mb *xviz.MetadataBuilder) error {
	color := [4]uint8{255, 200, 0, 200}
	decls := []xviz.StreamDeclaration{
		{
			StreamID:      StreamFutureTrajectory,
			Category:      xviz.CategoryPrimitive,
			PrimitiveType: xviz.Polyline,
			Coordinate:    c.scene.Frame,
			Style: xviz.Style{
				"stroke_color":            color,
				"stroke_width":            0.15,
				"stroke_width_min_pixels": 1,
			},
		},
		{
			StreamID:      StreamFutureBoxes,
			Category:      xviz.CategoryPrimitive,
			PrimitiveType: xviz.Polygon,
			Coordinate:    c.scene.Frame,
			Style: xviz.Style{
				"extruded":     true,
				"fill_color":   [4]uint8{255, 200, 0, 60},
				"stroke_color": color,
				"stroke_width": 0.1,
			},
		},
		{
			StreamID:      StreamFutureInstances,
			Category:      xviz.CategoryFutureInstance,
			PrimitiveType: xviz.Circle,
			Coordinate:    c.scene.Frame,
			Style: xviz.Style{
				"fill_color": color,
				"radius":     TrackingPointRadius,
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

func (c *FutureConverter) Convert(i int, fb *xviz.FrameBuilder) error {
	now := c.scene.Timestamp(i)
	seen := make(map[string]bool)
	for _, a := range c.scene.Annotations[i] {
		if seen[a.InstanceToken] {
			continue
		}
		seen[a.InstanceToken] = true
		track, ok := c.scene.Tracks.Track(a.InstanceToken)
		if !ok {
			continue
		}
		pred, ok := c.predictor.Predict(track, now)
		if !ok {
			continue
		}
		if err := c.emit(i, pred, fb); err != nil {
			return err
		}
	}
	return nil
}

func (c *FutureConverter) emit(i int, pred predict.Prediction, fb *xviz.FrameBuilder) error {
	path := c.scene.PlaceAll(i, pred.Positions)
	if len(path) >= 2 {
		if err := fb.Primitive(StreamFutureTrajectory, xviz.NewPolyline(path).WithID(pred.InstanceID)); err != nil {
			return err
		}
	}
	footprint := c.scene.PlaceAll(i, pred.FinalBox().Footprint())
	box := xviz.NewPolygon(footprint).
		WithID(pred.InstanceID).
		WithStyle(xviz.Style{"height": pred.Size[2]})
	if err := fb.Primitive(StreamFutureBoxes, box); err != nil {
		return err
	}
	for k, ts := range pred.Times {
		circle := xviz.NewCircle(path[k], TrackingPointRadius).WithID(pred.InstanceID)
		if err := fb.Future(StreamFutureInstances, ts, circle); err != nil {
			return err
		}
	}
	return nil
}
