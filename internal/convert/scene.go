package convert

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/nuscenes-xviz/internal/dataset"
	"github.com/banshee-data/nuscenes-xviz/internal/geom"
	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
	"github.com/banshee-data/nuscenes-xviz/internal/tracks"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
)

// DropUnmappedCategory is the audit kind for annotations without a class.
const DropUnmappedCategory = "unmapped category"

// Annotation is a sample annotation with its display class.
type Annotation struct {
	dataset.SampleAnnotation
	Class string
}

// Box returns the annotation's oriented bounding box in world coordinates.
func (a Annotation) Box() geom.Box {
	return geom.Box{
		Center:      vec(a.Translation),
		Size:        a.Size,
		Orientation: geom.QuatFromArray(a.Rotation),
	}
}

// Scene is the read-only state shared by every converter of one scene:
// frames, resolved ego poses, mapped annotations and the track index.
type Scene struct {
	Info        *dataset.SceneInfo
	Poses       []geom.Pose
	Annotations [][]Annotation
	Tracks      *tracks.Index
	Frame       xviz.CoordinateFrame
	Audit       *monitoring.DropAudit
}

// LoadScene resolves every frame's ego pose, maps annotation categories and
// builds the track index. It must complete before any frame is converted.
func LoadScene(store dataset.Store, name string, limit int, frame xviz.CoordinateFrame) (*Scene, error) {
	info, err := dataset.LoadScene(store, name, limit)
	if err != nil {
		return nil, err
	}
	s := &Scene{
		Info:        info,
		Poses:       make([]geom.Pose, len(info.Frames)),
		Annotations: make([][]Annotation, len(info.Frames)),
		Frame:       frame,
		Audit:       monitoring.NewDropAudit(),
	}

	observations := make([][]tracks.Observation, len(info.Frames))
	for i, f := range info.Frames {
		ego, err := store.EgoPose(f.EgoPoseToken)
		if err != nil {
			return nil, fmt.Errorf("scene %s frame %d: %w", name, i, err)
		}
		s.Poses[i] = geom.Resolve(ego.Translation, ego.Rotation, f.Timestamp)

		anns, err := store.Annotations(f.SampleToken)
		if err != nil {
			return nil, fmt.Errorf("scene %s frame %d: %w", name, i, err)
		}
		for _, a := range anns {
			class, ok := ClassOf(a.CategoryName)
			if !ok {
				s.Audit.Record(DropUnmappedCategory, a.CategoryName)
				continue
			}
			ann := Annotation{SampleAnnotation: a, Class: class}
			s.Annotations[i] = append(s.Annotations[i], ann)
			observations[i] = append(observations[i], observation(ann, f.Timestamp))
		}
	}
	s.Tracks = tracks.Build(observations)
	return s, nil
}

func observation(a Annotation, ts float64) tracks.Observation {
	o := tracks.Observation{
		InstanceID: a.InstanceToken,
		Category:   a.Class,
		Sample: tracks.Sample{
			Timestamp:   ts,
			Position:    vec(a.Translation),
			Orientation: geom.QuatFromArray(a.Rotation),
			Size:        a.Size,
			Token:       a.Token,
		},
	}
	if v, ok := a.DeclaredVelocity(); ok {
		dv := vec(v)
		o.Velocity = &dv
	}
	return o
}

// Name returns the scene name.
func (s *Scene) Name() string { return s.Info.Scene.Name }

// Len returns the number of frames.
func (s *Scene) Len() int { return len(s.Info.Frames) }

// Timestamp returns the timestamp of frame i in seconds.
func (s *Scene) Timestamp(i int) float64 { return s.Info.Frames[i].Timestamp }

// Place expresses a world point in the active coordinate frame of frame i.
func (s *Scene) Place(i int, p r3.Vec) r3.Vec {
	if s.Frame == xviz.VehicleRelative {
		return geom.ToVehicleFrame(p, s.Poses[i])
	}
	return p
}

// PlaceAll applies Place to every point.
func (s *Scene) PlaceAll(i int, ps []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(ps))
	for k, p := range ps {
		out[k] = s.Place(i, p)
	}
	return out
}

func vec(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}
