// Package predict projects future object positions under a constant
// velocity model.
package predict

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/nuscenes-xviz/internal/geom"
	"github.com/banshee-data/nuscenes-xviz/internal/tracks"
)

// Config holds the predictor's tunables.
type Config struct {
	Steps               int     // number of future positions
	Horizon             float64 // seconds covered by Steps
	StationarySpeed     float64 // m/s below which an object is not predicted
	MinTimeDelta        float64 // seconds, finite-difference guard
	DeclaredVelocityMin float64 // m/s below which a declared velocity is ignored
	Lookback            int     // samples used by the finite-difference estimate
}

// DefaultConfig returns the stock prediction settings: 6 steps over 3 s.
func DefaultConfig() Config {
	return Config{
		Steps:               6,
		Horizon:             3.0,
		StationarySpeed:     0.1,
		MinTimeDelta:        0.01,
		DeclaredVelocityMin: 1e-3,
		Lookback:            3,
	}
}

// Prediction is the projected motion of one instance.
type Prediction struct {
	InstanceID  string
	Category    string
	Velocity    r3.Vec
	Source      string // estimator that produced Velocity
	Times       []float64
	Positions   []r3.Vec
	Orientation quat.Number
	Size        [3]float64
}

// FinalBox returns the footprint box at the last predicted step.
func (p Prediction) FinalBox() geom.Box {
	return geom.Box{Center: p.Positions[len(p.Positions)-1], Size: p.Size, Orientation: p.Orientation}
}

// Predictor turns tracks into predictions. It holds no per-frame state.
type Predictor struct {
	cfg       Config
	estimator Chain
}

// NewPredictor builds a predictor using declared velocity first and a
// finite-difference estimate second.
func NewPredictor(cfg Config) *Predictor {
	return &Predictor{
		cfg: cfg,
		estimator: Chain{
			DeclaredVelocity{MinMagnitude: cfg.DeclaredVelocityMin},
			FiniteDifference{Lookback: cfg.Lookback, MinTimeDelta: cfg.MinTimeDelta},
		},
	}
}

// WithEstimators replaces the velocity strategy list.
func (p *Predictor) WithEstimators(c Chain) *Predictor {
	p.estimator = c
	return p
}

// Predict projects the track forward from its sample at now. ok is false
// when the instance is not observed at now, has no usable velocity, or is
// stationary.
func (p *Predictor) Predict(t *tracks.Track, now float64) (Prediction, bool) {
	i, found := t.IndexAt(now)
	if !found || p.cfg.Steps <= 0 {
		return Prediction{}, false
	}
	v, source, ok := p.estimator.Estimate(t, i)
	if !ok || r3.Norm(v) < p.cfg.StationarySpeed {
		return Prediction{}, false
	}

	cur := t.Samples[i]
	step := p.cfg.Horizon / float64(p.cfg.Steps)
	pred := Prediction{
		InstanceID:  t.InstanceID,
		Category:    t.Category,
		Velocity:    v,
		Source:      source,
		Times:       make([]float64, p.cfg.Steps),
		Positions:   make([]r3.Vec, p.cfg.Steps),
		Orientation: cur.Orientation,
		Size:        cur.Size,
	}
	for k := 1; k <= p.cfg.Steps; k++ {
		dt := step * float64(k)
		pred.Times[k-1] = cur.Timestamp + dt
		pred.Positions[k-1] = r3.Add(cur.Position, r3.Scale(dt, v))
	}
	return pred, true
}
