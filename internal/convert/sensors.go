package convert

import (
	"fmt"

	"github.com/banshee-data/nuscenes-xviz/internal/dataset"
	"github.com/banshee-data/nuscenes-xviz/internal/geom"
	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
	"github.com/banshee-data/nuscenes-xviz/internal/sensor"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
)

// sensorBase resolves key-frame payloads and their mount calibration.
type sensorBase struct {
	scene    *Scene
	store    dataset.Store
	payloads *sensor.Loader
}

// payload returns channel's key-frame record at frame i and its
// sensor-to-vehicle transform. ok is false, after logging, when either is
// missing.
func (b sensorBase) payload(i int, channel string) (dataset.SampleData, geom.Transform, bool) {
	sd, ok := b.scene.Info.Frames[i].Sensors[channel]
	if !ok {
		return sd, geom.Transform{}, false
	}
	cs, err := b.store.CalibratedSensor(sd.CalibratedSensorToken)
	if err != nil {
		monitoring.Logf("[convert] %s frame %d: %s calibration: %v", b.scene.Name(), i, channel, err)
		return sd, geom.Transform{}, false
	}
	return sd, geom.NewTransform(cs.Translation, cs.Rotation), true
}

// toActive returns the transform from sensor coordinates into the active
// frame of frame i.
func (b sensorBase) toActive(i int, mount geom.Transform) geom.Transform {
	if b.scene.Frame == xviz.World {
		return mount.Then(b.scene.Poses[i].Transform())
	}
	return mount
}

// sensorToWorld returns the transform from sensor coordinates into the
// world frame using the ego pose recorded with sd. Records without their
// own pose fall back to the frame's.
func (b sensorBase) sensorToWorld(i int, sd dataset.SampleData, mount geom.Transform) (geom.Transform, error) {
	frame := b.scene.Info.Frames[i]
	if sd.EgoPoseToken == "" || sd.EgoPoseToken == frame.EgoPoseToken {
		return mount.Then(b.scene.Poses[i].Transform()), nil
	}
	ego, err := b.store.EgoPose(sd.EgoPoseToken)
	if err != nil {
		return geom.Transform{}, fmt.Errorf("ego pose %s: %w", sd.EgoPoseToken, err)
	}
	pose := geom.Resolve(ego.Translation, ego.Rotation, float64(ego.Timestamp)/1e6)
	return mount.Then(pose.Transform()), nil
}

func (b sensorBase) skip(i int, what string, err error) {
	monitoring.Logf("[convert] %s frame %d: %s skipped: %v", b.scene.Name(), i, what, err)
}

// LidarConverter writes the top LiDAR sweep coloured by intensity.
type LidarConverter struct {
	sensorBase
}

// NewLidarConverter returns a LiDAR converter.
func NewLidarConverter(scene *Scene, store dataset.Store, payloads *sensor.Loader) *LidarConverter {
	return &LidarConverter{sensorBase{scene: scene, store: store, payloads: payloads}}
}

func (c *LidarConverter) Name() string { return "lidar" }

func (c *LidarConverter) Declare(mb *xviz.MetadataBuilder) error {
	return mb.Declare(xviz.StreamDeclaration{
		StreamID:      StreamLidarPoints,
		Category:      xviz.CategoryPrimitive,
		PrimitiveType: xviz.Point,
		Coordinate:    c.scene.Frame,
		Style: xviz.Style{
			"fill_color":    [4]uint8{40, 0, 170, 255},
			"radius_pixels": 1,
		},
	})
}

func (c *LidarConverter) Convert(i int, fb *xviz.FrameBuilder) error {
	sd, mount, ok := c.payload(i, dataset.ReferenceChannel)
	if !ok {
		return nil
	}
	values, n, err := c.payloads.Lidar(sd.Filename)
	if err != nil {
		c.skip(i, "lidar", err)
		return nil
	}
	m := c.toActive(i, mount).Matrix()
	vertices := make([]float64, 0, 3*n)
	colors := make([]uint8, 0, 4*n)
	for k := 0; k < n; k++ {
		row := values[k*sensor.LidarFields:]
		x, y, z := geom.ApplyMatrix(float64(row[0]), float64(row[1]), float64(row[2]), m)
		vertices = append(vertices, x, y, z)
		col := sensor.IntensityColor(float64(row[3]))
		colors = append(colors, col[:]...)
	}
	return fb.Primitive(StreamLidarPoints, xviz.NewPoints(vertices, colors))
}

// RadarConverter writes each radar channel's returns coloured by speed and
// cross section. In the vehicle frame points stay in sensor coordinates and
// the stream carries the static mount pose.
type RadarConverter struct {
	sensorBase
	channels []string
}

// NewRadarConverter returns a converter for the given radar channels.
func NewRadarConverter(scene *Scene, store dataset.Store, payloads *sensor.Loader, channels []string) *RadarConverter {
	return &RadarConverter{sensorBase: sensorBase{scene: scene, store: store, payloads: payloads}, channels: channels}
}

func (c *RadarConverter) Name() string { return "radar" }

// mount finds the channel's calibration from its first key frame.
func (c *RadarConverter) mount(channel string) (geom.Transform, bool) {
	for i := range c.scene.Info.Frames {
		if _, t, ok := c.payload(i, channel); ok {
			return t, true
		}
	}
	return geom.Transform{}, false
}

func (c *RadarConverter) Declare(mb *xviz.MetadataBuilder) error {
	for _, ch := range c.channels {
		d := xviz.StreamDeclaration{
			StreamID:      RadarStream(ch),
			Category:      xviz.CategoryPrimitive,
			PrimitiveType: xviz.Point,
			Coordinate:    c.scene.Frame,
			Style: xviz.Style{
				"fill_color":    [3]uint8{255, 0, 0},
				"radius_pixels": 2,
			},
		}
		if c.scene.Frame == xviz.VehicleRelative {
			if t, ok := c.mount(ch); ok {
				d.Transform = &t
			}
		}
		if err := mb.Declare(d); err != nil {
			return err
		}
	}
	return nil
}

func (c *RadarConverter) Convert(i int, fb *xviz.FrameBuilder) error {
	for _, ch := range c.channels {
		sd, mount, ok := c.payload(i, ch)
		if !ok {
			continue
		}
		pc, err := c.payloads.Radar(sd.Filename)
		if err != nil {
			c.skip(i, ch, err)
			continue
		}
		p, err := radarPoints(pc)
		if err != nil {
			c.skip(i, ch, err)
			continue
		}
		if p.PointCount() == 0 {
			continue
		}
		if c.scene.Frame == xviz.World {
			t, err := c.sensorToWorld(i, sd, mount)
			if err != nil {
				c.skip(i, ch, err)
				continue
			}
			m := t.Matrix()
			for k := 0; k < len(p.Vertices); k += 3 {
				p.Vertices[k], p.Vertices[k+1], p.Vertices[k+2] = geom.ApplyMatrix(p.Vertices[k], p.Vertices[k+1], p.Vertices[k+2], m)
			}
		}
		if err := fb.Primitive(RadarStream(ch), p); err != nil {
			return err
		}
	}
	return nil
}

// radarPoints builds a sensor-frame point primitive from a radar cloud.
func radarPoints(pc *sensor.PointCloud) (xviz.Primitive, error) {
	cols := make(map[string][]float64, 6)
	for _, name := range []string{"x", "y", "z", "rcs", "vx_comp", "vy_comp"} {
		col, ok := pc.Column(name)
		if !ok {
			return xviz.Primitive{}, fmt.Errorf("radar cloud has no %s field", name)
		}
		cols[name] = col
	}
	vertices := make([]float64, 0, 3*pc.Count)
	colors := make([]uint8, 0, 4*pc.Count)
	for k := 0; k < pc.Count; k++ {
		vertices = append(vertices, cols["x"][k], cols["y"][k], cols["z"][k])
		col := sensor.RadarColor(cols["vx_comp"][k], cols["vy_comp"][k], cols["rcs"][k])
		colors = append(colors, col[:]...)
	}
	return xviz.NewPoints(vertices, colors), nil
}

// CameraConverter writes each camera channel's frame shrunk to fit the
// configured box.
type CameraConverter struct {
	sensorBase
	channels  []string
	maxWidth  int
	maxHeight int
	quality   int
}

// NewCameraConverter returns a converter for the given camera channels.
func NewCameraConverter(scene *Scene, payloads *sensor.Loader, channels []string, maxWidth, maxHeight, quality int) *CameraConverter {
	return &CameraConverter{
		sensorBase: sensorBase{scene: scene, payloads: payloads},
		channels:   channels,
		maxWidth:   maxWidth,
		maxHeight:  maxHeight,
		quality:    quality,
	}
}

func (c *CameraConverter) Name() string { return "camera" }

func (c *CameraConverter) Declare(mb *xviz.MetadataBuilder) error {
	for _, ch := range c.channels {
		if err := mb.Declare(xviz.StreamDeclaration{
			StreamID:      CameraStream(ch),
			Category:      xviz.CategoryPrimitive,
			PrimitiveType: xviz.Image,
			Coordinate:    xviz.VehicleRelative,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *CameraConverter) Convert(i int, fb *xviz.FrameBuilder) error {
	for _, ch := range c.channels {
		sd, ok := c.scene.Info.Frames[i].Sensors[ch]
		if !ok {
			continue
		}
		img, err := c.payloads.Image(sd.Filename, c.maxWidth, c.maxHeight, c.quality)
		if err != nil {
			c.skip(i, ch, err)
			continue
		}
		if err := fb.Primitive(CameraStream(ch), xviz.NewImage(img.Data, img.Width, img.Height)); err != nil {
			return err
		}
	}
	return nil
}
