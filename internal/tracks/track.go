// Package tracks groups per-frame object annotations into per-instance,
// time-ordered tracks and answers the window queries the annotation and
// prediction converters need.
package tracks

import (
	"sort"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/nuscenes-xviz/internal/geom"
)

// timeEpsilon absorbs microsecond-to-second rounding in window bounds.
const timeEpsilon = 1e-6

// Sample is one observation of an instance, in world coordinates.
type Sample struct {
	Timestamp   float64 // seconds
	Position    r3.Vec
	Orientation quat.Number
	Size        [3]float64 // width, length, height
	Velocity    *r3.Vec    // declared velocity, nil when absent
	Token       string     // source annotation token
}

// Box returns the sample's oriented bounding box.
func (s Sample) Box() geom.Box {
	return geom.Box{Center: s.Position, Size: s.Size, Orientation: s.Orientation}
}

// Track is the time-ordered history of one object instance. Samples are
// strictly increasing by timestamp and never mutated after Build.
type Track struct {
	InstanceID string
	Category   string
	Samples    []Sample
}

// IndexAt returns the index of the sample observed at ts.
func (t *Track) IndexAt(ts float64) (int, bool) {
	i := sort.Search(len(t.Samples), func(i int) bool {
		return t.Samples[i].Timestamp >= ts-timeEpsilon
	})
	if i < len(t.Samples) && t.Samples[i].Timestamp <= ts+timeEpsilon {
		return i, true
	}
	return 0, false
}

// Window returns the samples with now-window <= timestamp <= now. The
// returned slice aliases the track and must not be modified.
func (t *Track) Window(now, window float64) []Sample {
	lo := sort.Search(len(t.Samples), func(i int) bool {
		return t.Samples[i].Timestamp >= now-window-timeEpsilon
	})
	hi := sort.Search(len(t.Samples), func(i int) bool {
		return t.Samples[i].Timestamp > now+timeEpsilon
	})
	if lo >= hi {
		return nil
	}
	return t.Samples[lo:hi]
}

// Recent returns up to n samples ending at index i inclusive.
func (t *Track) Recent(i, n int) []Sample {
	if i < 0 || i >= len(t.Samples) || n <= 0 {
		return nil
	}
	start := i - n + 1
	if start < 0 {
		start = 0
	}
	return t.Samples[start : i+1]
}
