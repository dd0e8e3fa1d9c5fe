package tracks

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func obs(id string, ts float64) Observation {
	return Observation{
		InstanceID: id,
		Category:   "car",
		Sample: Sample{
			Timestamp:   ts,
			Position:    r3.Vec{X: ts},
			Orientation: quat.Number{Real: 1},
		},
	}
}

func timestamps(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Timestamp
	}
	return out
}

func TestBuild_OrdersSamples(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(1))
	var frames [][]Observation
	for i := 0; i < 50; i++ {
		frames = append(frames, []Observation{obs("a", float64(i)*0.5), obs("b", float64(i))})
	}
	rng.Shuffle(len(frames), func(i, j int) { frames[i], frames[j] = frames[j], frames[i] })

	ix := Build(frames)
	require.Equal(t, 2, ix.Len())
	assert.Equal(t, []string{"a", "b"}, ix.IDs())
	for _, id := range ix.IDs() {
		tr, ok := ix.Track(id)
		require.True(t, ok)
		require.Len(t, tr.Samples, 50)
		for i := 0; i+1 < len(tr.Samples); i++ {
			assert.Less(t, tr.Samples[i].Timestamp, tr.Samples[i+1].Timestamp)
		}
	}
}

func TestBuild_DropsDuplicateTimestamps(t *testing.T) {
	ix := Build([][]Observation{{obs("a", 1), obs("a", 1)}, {obs("a", 0)}})
	tr, _ := ix.Track("a")
	assert.Equal(t, []float64{0, 1}, timestamps(tr.Samples))
}

func TestBuild_Gaps(t *testing.T) {
	ix := Build([][]Observation{{obs("a", 0)}, {}, {obs("a", 2)}})
	tr, _ := ix.Track("a")
	assert.Equal(t, []float64{0, 2}, timestamps(tr.Samples))
	_, ok := tr.IndexAt(1)
	assert.False(t, ok, "gap is not observed")
}

func TestTrack_Window(t *testing.T) {
	var frames [][]Observation
	for ts := 0; ts <= 4; ts++ {
		frames = append(frames, []Observation{obs("a", float64(ts))})
	}
	tr, _ := Build(frames).Track("a")

	tests := []struct {
		now, window float64
		want        []float64
	}{
		{4, 3, []float64{1, 2, 3, 4}},
		{0, 3, []float64{0}},
		{2.5, 1, []float64{2}},
		{10, 3, nil},
		{-1, 3, nil},
	}
	for _, tt := range tests {
		got := tr.Window(tt.now, tt.window)
		if tt.want == nil {
			assert.Empty(t, got, "now=%v", tt.now)
			continue
		}
		assert.Equal(t, tt.want, timestamps(got), "now=%v", tt.now)
	}
}

func TestTrack_WindowToleratesRounding(t *testing.T) {
	tr, _ := Build([][]Observation{{obs("a", 1.0000001)}, {obs("a", 4)}}).Track("a")
	assert.Len(t, tr.Window(4, 3), 2)
}

func TestTrack_IndexAtAndRecent(t *testing.T) {
	var frames [][]Observation
	for ts := 0; ts < 5; ts++ {
		frames = append(frames, []Observation{obs("a", float64(ts))})
	}
	tr, _ := Build(frames).Track("a")

	i, ok := tr.IndexAt(3)
	require.True(t, ok)
	assert.Equal(t, 3, i)

	assert.Equal(t, []float64{1, 2, 3}, timestamps(tr.Recent(3, 3)))
	assert.Equal(t, []float64{0, 1}, timestamps(tr.Recent(1, 3)))
	assert.Nil(t, tr.Recent(9, 3))
}

func TestSample_Box(t *testing.T) {
	s := Sample{Position: r3.Vec{X: 1}, Size: [3]float64{2, 4, 1}, Orientation: quat.Number{Real: 1}}
	b := s.Box()
	assert.Equal(t, s.Position, b.Center)
	assert.Equal(t, s.Size, b.Size)
}
