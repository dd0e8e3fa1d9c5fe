package testutil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertHelpers(t *testing.T) {
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
}

func TestServeJSON(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	AssertStatusCode(t, ServeJSON(h, "/api/scenes").Code, http.StatusTeapot)
}

func TestDefaultSceneTables(t *testing.T) {
	f := DefaultScene()
	tables := f.Tables()

	require.Len(t, tables.Samples, 3)
	assert.Equal(t, "", tables.Samples[0].Prev)
	assert.Equal(t, f.SampleToken(1), tables.Samples[0].Next)
	assert.Equal(t, int64(3_000_000), tables.Samples[2].Timestamp)

	require.Len(t, tables.Annotations, 3)
	assert.Equal(t, [3]float64{2, 0, 0}, tables.Annotations[2].Translation)
	assert.Equal(t, []float64{1, 0, 0}, tables.Annotations[0].Velocity)

	store := NewStore(f)
	data, err := store.SampleDataForSample(f.SampleToken(0))
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.Equal(t, "LIDAR_TOP", data[0].Channel)
}

func TestPayloadEncoders(t *testing.T) {
	assert.Len(t, Float32Points([]float32{1, 2, 3, 4, 5}, []float32{6, 7, 8, 9, 10}), 40)
	pcd := RadarPCD(RadarPoint{X: 1}, RadarPoint{X: 2})
	assert.Contains(t, string(pcd), "DATA binary\n")
	assert.NotEmpty(t, JPEG(8, 6))
}
