package predict

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/nuscenes-xviz/internal/tracks"
)

// VelocityEstimator estimates the planar velocity of a track at sample i.
// ok is false when the estimator has nothing usable to offer.
type VelocityEstimator interface {
	Name() string
	Estimate(t *tracks.Track, i int) (v r3.Vec, ok bool)
}

// DeclaredVelocity uses the velocity carried by the annotation itself.
type DeclaredVelocity struct {
	MinMagnitude float64 // below this the declared value is treated as absent
}

func (DeclaredVelocity) Name() string { return "declared" }

func (d DeclaredVelocity) Estimate(t *tracks.Track, i int) (r3.Vec, bool) {
	if i < 0 || i >= len(t.Samples) {
		return r3.Vec{}, false
	}
	v := t.Samples[i].Velocity
	if v == nil || math.IsNaN(v.X) || math.IsNaN(v.Y) {
		return r3.Vec{}, false
	}
	planar := r3.Vec{X: v.X, Y: v.Y}
	if r3.Norm(planar) < d.MinMagnitude {
		return r3.Vec{}, false
	}
	return planar, true
}

// FiniteDifference divides the displacement over the last Lookback samples
// ending at i by the elapsed time.
type FiniteDifference struct {
	Lookback     int
	MinTimeDelta float64 // seconds
}

func (FiniteDifference) Name() string { return "finite_difference" }

func (f FiniteDifference) Estimate(t *tracks.Track, i int) (r3.Vec, bool) {
	recent := t.Recent(i, f.Lookback)
	if len(recent) < 2 {
		return r3.Vec{}, false
	}
	first, last := recent[0], recent[len(recent)-1]
	dt := last.Timestamp - first.Timestamp
	if dt < f.MinTimeDelta {
		return r3.Vec{}, false
	}
	d := r3.Sub(last.Position, first.Position)
	return r3.Vec{X: d.X / dt, Y: d.Y / dt}, true
}

// Chain tries each estimator in order and returns the first estimate.
type Chain []VelocityEstimator

// Estimate returns the first successful estimate and the name of the
// estimator that produced it.
func (c Chain) Estimate(t *tracks.Track, i int) (r3.Vec, string, bool) {
	for _, e := range c {
		if v, ok := e.Estimate(t, i); ok {
			return v, e.Name(), true
		}
	}
	return r3.Vec{}, "", false
}
