package predict

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/nuscenes-xviz/internal/tracks"
)

func track(samples ...tracks.Sample) *tracks.Track {
	for i := range samples {
		if samples[i].Orientation == (quat.Number{}) {
			samples[i].Orientation = quat.Number{Real: 1}
		}
	}
	return &tracks.Track{InstanceID: "obj", Category: "car", Samples: samples}
}

func at(ts, x float64) tracks.Sample {
	return tracks.Sample{Timestamp: ts, Position: r3.Vec{X: x}, Size: [3]float64{1.8, 4.5, 1.5}}
}

func withVelocity(s tracks.Sample, v r3.Vec) tracks.Sample {
	s.Velocity = &v
	return s
}

func TestPredict_ConstantVelocity(t *testing.T) {
	p := NewPredictor(DefaultConfig())
	tr := track(withVelocity(at(0, 0), r3.Vec{X: 2}))

	pred, ok := p.Predict(tr, 0)
	require.True(t, ok)
	want := []r3.Vec{{X: 1}, {X: 2}, {X: 3}, {X: 4}, {X: 5}, {X: 6}}
	if diff := cmp.Diff(want, pred.Positions, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
	assert.InDeltaSlice(t, []float64{0.5, 1, 1.5, 2, 2.5, 3}, pred.Times, 1e-9)
	assert.InDelta(t, 6.0, pred.FinalBox().Center.X, 1e-9)
	assert.Equal(t, "declared", pred.Source)
	assert.Equal(t, tr.Samples[0].Orientation, pred.Orientation)
}

func TestPredict_FiniteDifferenceFallback(t *testing.T) {
	p := NewPredictor(DefaultConfig())
	tr := track(at(0, 0), at(1, 1), at(2, 2), at(3, 3))

	pred, ok := p.Predict(tr, 3)
	require.True(t, ok)
	assert.Equal(t, "finite_difference", pred.Source)
	assert.InDelta(t, 1.0, pred.Velocity.X, 1e-9)
	assert.InDelta(t, 3.5, pred.Positions[0].X, 1e-9)
}

func TestPredict_Skips(t *testing.T) {
	p := NewPredictor(DefaultConfig())
	tests := []struct {
		name string
		tr   *tracks.Track
		now  float64
	}{
		{"single sample no velocity", track(at(0, 0)), 0},
		{"stationary", track(at(0, 0), at(1, 0.05)), 1},
		{"tiny time delta", track(at(0, 0), at(0.005, 1)), 0.005},
		{"not observed now", track(at(0, 0), at(1, 1)), 0.5},
		{"negligible declared falls through to stationary", track(withVelocity(at(0, 0), r3.Vec{X: 1e-4})), 0},
		{"nan declared without history", track(withVelocity(at(0, 0), r3.Vec{X: math.NaN()})), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := p.Predict(tt.tr, tt.now)
			assert.False(t, ok)
		})
	}
}

func TestDeclaredVelocity_IgnoresZ(t *testing.T) {
	v, ok := DeclaredVelocity{MinMagnitude: 1e-3}.Estimate(track(withVelocity(at(0, 0), r3.Vec{X: 1, Y: 2, Z: 5})), 0)
	require.True(t, ok)
	assert.Equal(t, r3.Vec{X: 1, Y: 2}, v)
}

func TestFiniteDifference_UsesLookback(t *testing.T) {
	// Fast early motion outside the 3-sample window must not leak in.
	tr := track(at(0, 0), at(1, 100), at(2, 101), at(3, 102))
	v, ok := FiniteDifference{Lookback: 3, MinTimeDelta: 0.01}.Estimate(tr, 3)
	require.True(t, ok)
	assert.InDelta(t, 1.0, v.X, 1e-9)
}

type fixed struct{ v r3.Vec }

func (fixed) Name() string { return "fixed" }
func (f fixed) Estimate(*tracks.Track, int) (r3.Vec, bool) {
	return f.v, true
}

func TestChain_Order(t *testing.T) {
	tr := track(at(0, 0))
	c := Chain{DeclaredVelocity{}, fixed{r3.Vec{Y: 3}}}
	v, name, ok := c.Estimate(tr, 0)
	require.True(t, ok)
	assert.Equal(t, "fixed", name)
	assert.Equal(t, 3.0, v.Y)

	p := NewPredictor(DefaultConfig()).WithEstimators(c)
	pred, ok := p.Predict(tr, 0)
	require.True(t, ok)
	assert.InDelta(t, 9.0, pred.Positions[5].Y, 1e-9)
}
