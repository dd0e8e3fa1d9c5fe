// Package report renders per-scene summaries of a conversion: a bird's-eye
// PNG of ego and object motion and an HTML page of per-frame statistics.
package report

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/nuscenes-xviz/internal/convert"
	"github.com/banshee-data/nuscenes-xviz/internal/predict"
)

// FrameStats summarises one frame.
type FrameStats struct {
	Index     int
	Timestamp float64
	Objects   int
	Predicted int
	EgoSpeed  float64 // m/s
	ByClass   map[string]int
}

// SceneStats summarises a scene.
type SceneStats struct {
	Scene   string
	Frames  []FrameStats
	Dropped int
	// Sources counts predictions by the velocity estimator that produced them.
	Sources map[string]int
}

// ClassTotals returns the number of annotations per class over the scene,
// sorted by class.
func (s SceneStats) ClassTotals() ([]string, []int) {
	totals := make(map[string]int)
	for _, f := range s.Frames {
		for c, n := range f.ByClass {
			totals[c] += n
		}
	}
	classes := make([]string, 0, len(totals))
	for c := range totals {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	counts := make([]int, len(classes))
	for i, c := range classes {
		counts[i] = totals[c]
	}
	return classes, counts
}

// EgoSpeedSummary returns the highest and the mean ego speed in m/s, both
// zero for an empty scene.
func (s SceneStats) EgoSpeedSummary() (maxSpeed, meanSpeed float64) {
	if len(s.Frames) == 0 {
		return 0, 0
	}
	speeds := make([]float64, len(s.Frames))
	for i, f := range s.Frames {
		speeds[i] = f.EgoSpeed
	}
	return floats.Max(speeds), floats.Sum(speeds) / float64(len(speeds))
}

// Collect computes the statistics of a loaded scene.
func Collect(scene *convert.Scene, cfg predict.Config) SceneStats {
	p := predict.NewPredictor(cfg)
	stats := SceneStats{
		Scene:   scene.Name(),
		Frames:  make([]FrameStats, scene.Len()),
		Sources: make(map[string]int),
	}
	if scene.Audit != nil {
		stats.Dropped = scene.Audit.Total(convert.DropUnmappedCategory)
	}
	for i := range stats.Frames {
		now := scene.Timestamp(i)
		f := FrameStats{
			Index:     i,
			Timestamp: now,
			Objects:   len(scene.Annotations[i]),
			EgoSpeed:  egoSpeed(scene, i),
			ByClass:   make(map[string]int),
		}
		for _, a := range scene.Annotations[i] {
			f.ByClass[a.Class]++
			track, ok := scene.Tracks.Track(a.InstanceToken)
			if !ok {
				continue
			}
			if pred, ok := p.Predict(track, now); ok {
				f.Predicted++
				stats.Sources[pred.Source]++
			}
		}
		stats.Frames[i] = f
	}
	return stats
}

// egoSpeed is the planar speed between frame i and its predecessor, or its
// successor for the first frame.
func egoSpeed(scene *convert.Scene, i int) float64 {
	if scene.Len() < 2 {
		return 0
	}
	a, b := i-1, i
	if i == 0 {
		a, b = 0, 1
	}
	pa, pb := scene.Poses[a], scene.Poses[b]
	dt := pb.Timestamp - pa.Timestamp
	if dt <= 0 {
		return 0
	}
	d := r3.Sub(pb.Position, pa.Position)
	d.Z = 0
	return r3.Norm(d) / dt
}
