package testutil

import (
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/nuscenes-xviz/internal/dataset"
)

// ObjectFixture is a synthetic object moving at constant velocity.
type ObjectFixture struct {
	Instance string
	Category string
	Start    [3]float64 // position at the first frame
	Velocity [3]float64 // m/s
	Size     [3]float64 // width, length, height
	Yaw      float64
	// Frames lists the frame indices the object is annotated in; nil means
	// every frame.
	Frames []int
	// DeclareVelocity stores Velocity on each annotation record.
	DeclareVelocity bool
}

// SceneFixture describes a synthetic scene with a straight-driving ego.
type SceneFixture struct {
	Name        string
	Location    string
	Frames      int
	Interval    float64 // seconds between frames
	StartMicros int64
	EgoStart    [3]float64
	EgoVelocity [3]float64
	EgoYaw      float64
	// Channels are payload channels besides LIDAR_TOP.
	Channels []string
	Objects  []ObjectFixture
}

// DefaultScene returns a three-frame scene with one car moving along +x at
// 1 m/s, one second apart, starting at the origin.
func DefaultScene() SceneFixture {
	return SceneFixture{
		Name:        "scene-0001",
		Location:    "singapore-onenorth",
		Frames:      3,
		Interval:    1,
		StartMicros: 1_000_000,
		Objects: []ObjectFixture{{
			Instance:        "car-1",
			Category:        "vehicle.car",
			Velocity:        [3]float64{1, 0, 0},
			Size:            [3]float64{1.8, 4.5, 1.5},
			DeclareVelocity: true,
		}},
	}
}

// SampleToken returns the token of frame i.
func (f SceneFixture) SampleToken(i int) string { return fmt.Sprintf("%s-sample-%d", f.Name, i) }

// SampleDataToken returns the token of the channel payload at frame i.
func (f SceneFixture) SampleDataToken(channel string, i int) string {
	return fmt.Sprintf("%s-%s-%d", f.Name, strings.ToLower(channel), i)
}

// Filename returns the dataset-relative payload path for channel at frame i.
func (f SceneFixture) Filename(channel string, i int) string {
	return fmt.Sprintf("samples/%s/%s_%d%s", channel, f.Name, i, extension(channel))
}

func extension(channel string) string {
	switch {
	case strings.HasPrefix(channel, "LIDAR"):
		return ".pcd.bin"
	case strings.HasPrefix(channel, "RADAR"):
		return ".pcd"
	default:
		return ".jpg"
	}
}

func modality(channel string) string {
	switch {
	case strings.HasPrefix(channel, "LIDAR"):
		return "lidar"
	case strings.HasPrefix(channel, "RADAR"):
		return "radar"
	default:
		return "camera"
	}
}

// yawQuat returns a scalar-first quaternion for a rotation about z.
func yawQuat(yaw float64) [4]float64 {
	return [4]float64{math.Cos(yaw / 2), 0, 0, math.Sin(yaw / 2)}
}

func (f SceneFixture) present(o ObjectFixture, i int) bool {
	if o.Frames == nil {
		return true
	}
	for _, fi := range o.Frames {
		if fi == i {
			return true
		}
	}
	return false
}

// Tables renders the fixture as dataset tables.
func (f SceneFixture) Tables() dataset.Tables {
	var t dataset.Tables
	logToken := f.Name + "-log"
	t.Logs = append(t.Logs, dataset.Log{Token: logToken, Location: f.Location, Logfile: f.Name + ".log", Vehicle: "n015"})

	channels := append([]string{dataset.ReferenceChannel}, f.Channels...)
	for _, ch := range channels {
		t.Sensors = append(t.Sensors, dataset.Sensor{Token: "sensor-" + ch, Channel: ch, Modality: modality(ch)})
		t.CalibratedSensors = append(t.CalibratedSensors, dataset.CalibratedSensor{
			Token:       f.Name + "-cs-" + ch,
			SensorToken: "sensor-" + ch,
			Translation: [3]float64{0.9, 0, 1.8},
			Rotation:    [4]float64{1, 0, 0, 0},
		})
	}

	for _, o := range f.Objects {
		catToken := "category-" + o.Category
		t.Categories = append(t.Categories, dataset.Category{Token: catToken, Name: o.Category})
		t.Instances = append(t.Instances, dataset.Instance{Token: o.Instance, CategoryToken: catToken})
	}

	for i := 0; i < f.Frames; i++ {
		dt := float64(i) * f.Interval
		ts := f.StartMicros + int64(math.Round(dt*1e6))
		sample := dataset.Sample{Token: f.SampleToken(i), Timestamp: ts, SceneToken: f.Name}
		if i > 0 {
			sample.Prev = f.SampleToken(i - 1)
		}
		if i < f.Frames-1 {
			sample.Next = f.SampleToken(i + 1)
		}
		t.Samples = append(t.Samples, sample)

		egoToken := fmt.Sprintf("%s-ego-%d", f.Name, i)
		t.EgoPoses = append(t.EgoPoses, dataset.EgoPose{
			Token:     egoToken,
			Timestamp: ts,
			Rotation:  yawQuat(f.EgoYaw),
			Translation: [3]float64{
				f.EgoStart[0] + f.EgoVelocity[0]*dt,
				f.EgoStart[1] + f.EgoVelocity[1]*dt,
				f.EgoStart[2] + f.EgoVelocity[2]*dt,
			},
		})

		for _, ch := range channels {
			t.SampleData = append(t.SampleData, dataset.SampleData{
				Token:                 f.SampleDataToken(ch, i),
				SampleToken:           sample.Token,
				EgoPoseToken:          egoToken,
				CalibratedSensorToken: f.Name + "-cs-" + ch,
				Timestamp:             ts,
				IsKeyFrame:            true,
				Filename:              f.Filename(ch, i),
				Width:                 1600,
				Height:                900,
			})
		}

		for _, o := range f.Objects {
			if !f.present(o, i) {
				continue
			}
			ann := dataset.SampleAnnotation{
				Token:         fmt.Sprintf("%s-ann-%s-%d", f.Name, o.Instance, i),
				SampleToken:   sample.Token,
				InstanceToken: o.Instance,
				Size:          o.Size,
				Rotation:      yawQuat(o.Yaw),
				Translation: [3]float64{
					o.Start[0] + o.Velocity[0]*dt,
					o.Start[1] + o.Velocity[1]*dt,
					o.Start[2] + o.Velocity[2]*dt,
				},
				NumLidarPts: 10,
			}
			if o.DeclareVelocity {
				ann.Velocity = []float64{o.Velocity[0], o.Velocity[1], o.Velocity[2]}
			}
			t.Annotations = append(t.Annotations, ann)
		}
	}

	scene := dataset.Scene{
		Token:      f.Name,
		Name:       f.Name,
		LogToken:   logToken,
		NbrSamples: f.Frames,
	}
	if f.Frames > 0 {
		scene.FirstSampleToken = f.SampleToken(0)
		scene.LastSampleToken = f.SampleToken(f.Frames - 1)
	}
	t.Scenes = append(t.Scenes, scene)
	return t
}

// MergeTables concatenates the tables of all fixtures.
func MergeTables(fixtures ...SceneFixture) dataset.Tables {
	var all dataset.Tables
	for _, f := range fixtures {
		t := f.Tables()
		all.Scenes = append(all.Scenes, t.Scenes...)
		all.Logs = append(all.Logs, t.Logs...)
		all.Samples = append(all.Samples, t.Samples...)
		all.SampleData = append(all.SampleData, t.SampleData...)
		all.EgoPoses = append(all.EgoPoses, t.EgoPoses...)
		all.CalibratedSensors = append(all.CalibratedSensors, t.CalibratedSensors...)
		all.Sensors = append(all.Sensors, t.Sensors...)
		all.Annotations = append(all.Annotations, t.Annotations...)
		all.Instances = append(all.Instances, t.Instances...)
		all.Categories = append(all.Categories, t.Categories...)
	}
	return all
}

// NewStore builds a MemoryStore holding all fixtures.
func NewStore(fixtures ...SceneFixture) *dataset.MemoryStore {
	return dataset.NewMemoryStore(MergeTables(fixtures...))
}
