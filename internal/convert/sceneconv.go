package convert

import (
	"fmt"

	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
)

// SceneConverter converts the frames of one loaded scene. Declarations are
// fixed at construction; ConvertFrame may be called for any index and from
// several goroutines.
type SceneConverter struct {
	scene      *Scene
	converters []Converter
	meta       *xviz.Metadata
}

// NewSceneConverter loads the named scene, builds its tracks and declares
// every enabled stream.
func NewSceneConverter(deps Deps, opts Options, name string) (*SceneConverter, error) {
	scene, err := LoadScene(deps.Store, name, opts.SampleLimit, opts.Frame)
	if err != nil {
		return nil, err
	}
	return newSceneConverter(scene, deps, opts)
}

func newSceneConverter(scene *Scene, deps Deps, opts Options) (*SceneConverter, error) {
	convs := []Converter{
		NewPoseConverter(scene, opts.EgoLookahead),
		NewAnnotationConverter(scene, opts.TrajectoryWindow),
	}
	if opts.Future {
		convs = append(convs, NewFutureConverter(scene, opts.Predict))
	}
	if deps.Payloads != nil {
		if opts.Lidar {
			convs = append(convs, NewLidarConverter(scene, deps.Store, deps.Payloads))
		}
		if opts.Radar && len(opts.Radars) > 0 {
			convs = append(convs, NewRadarConverter(scene, deps.Store, deps.Payloads, opts.Radars))
		}
		if opts.Camera && len(opts.Cameras) > 0 {
			convs = append(convs, NewCameraConverter(scene, deps.Payloads, opts.Cameras,
				opts.ImageMaxWidth, opts.ImageMaxHeight, opts.ImageQuality))
		}
	}
	if opts.Maps && deps.Map != nil {
		convs = append(convs, NewMapConverter(scene, deps.Map, opts.Map, opts.MapWidth, opts.MapHeight))
	}

	mb := xviz.NewMetadataBuilder()
	for _, c := range convs {
		if err := c.Declare(mb); err != nil {
			return nil, fmt.Errorf("scene %s: %s streams: %w", scene.Name(), c.Name(), err)
		}
	}
	mb.SetTimeRange(scene.Info.StartTime(), scene.Info.EndTime())
	return &SceneConverter{scene: scene, converters: convs, meta: mb.Build()}, nil
}

// Scene returns the loaded scene.
func (c *SceneConverter) Scene() *Scene { return c.scene }

// Metadata returns the scene's metadata.
func (c *SceneConverter) Metadata() *xviz.Metadata { return c.meta }

// StreamDeclarations returns every declared stream in declaration order.
func (c *SceneConverter) StreamDeclarations() []xviz.StreamDeclaration {
	return c.meta.Streams
}

// FrameCount returns the number of frames.
func (c *SceneConverter) FrameCount() int { return c.scene.Len() }

// ConvertFrame converts frame i.
func (c *SceneConverter) ConvertFrame(i int) (*xviz.Frame, error) {
	if i < 0 || i >= c.scene.Len() {
		return nil, fmt.Errorf("scene %s: frame %d out of range [0, %d)", c.scene.Name(), i, c.scene.Len())
	}
	fb := xviz.NewFrameBuilder(c.meta, i, c.scene.Timestamp(i))
	for _, conv := range c.converters {
		if err := conv.Convert(i, fb); err != nil {
			return nil, fmt.Errorf("scene %s frame %d: %s: %w", c.scene.Name(), i, conv.Name(), err)
		}
	}
	return fb.Frame(), nil
}
