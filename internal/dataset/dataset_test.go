package dataset_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nuscenes-xviz/internal/dataset"
	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
	"github.com/banshee-data/nuscenes-xviz/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func TestLoadScene(t *testing.T) {
	f := testutil.DefaultScene()
	store := testutil.NewStore(f)

	info, err := dataset.LoadScene(store, f.Name, 0)
	require.NoError(t, err)
	require.Len(t, info.Frames, 3)

	assert.Equal(t, f.Location, info.Log.Location)
	for i, fr := range info.Frames {
		assert.Equal(t, i, fr.Index)
		assert.Equal(t, f.SampleToken(i), fr.SampleToken)
		assert.Equal(t, float64(i+1), fr.Timestamp)
		assert.Contains(t, fr.Sensors, dataset.ReferenceChannel)
	}
	assert.Equal(t, 1.0, info.StartTime())
	assert.Equal(t, 3.0, info.EndTime())
}

func TestLoadScene_Limit(t *testing.T) {
	f := testutil.DefaultScene()
	info, err := dataset.LoadScene(testutil.NewStore(f), f.Name, 2)
	require.NoError(t, err)
	assert.Len(t, info.Frames, 2)
}

func TestLoadScene_NotFound(t *testing.T) {
	_, err := dataset.LoadScene(testutil.NewStore(testutil.DefaultScene()), "scene-9999", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataset.ErrNotFound))
}

func TestLoadScene_SampleLoop(t *testing.T) {
	f := testutil.DefaultScene()
	tables := f.Tables()
	tables.Samples[2].Next = tables.Samples[0].Token

	_, err := dataset.LoadScene(dataset.NewMemoryStore(tables), f.Name, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loops")
}

func TestLoadScene_SkipsSampleWithoutReference(t *testing.T) {
	f := testutil.DefaultScene()
	tables := f.Tables()
	kept := tables.SampleData[:0]
	for _, sd := range tables.SampleData {
		if sd.SampleToken != f.SampleToken(1) {
			kept = append(kept, sd)
		}
	}
	tables.SampleData = kept

	info, err := dataset.LoadScene(dataset.NewMemoryStore(tables), f.Name, 0)
	require.NoError(t, err)
	require.Len(t, info.Frames, 2)
	assert.Equal(t, f.SampleToken(2), info.Frames[1].SampleToken)
	assert.Equal(t, 1, info.Frames[1].Index)
}

func TestMemoryStore_DerivedFields(t *testing.T) {
	f := testutil.DefaultScene()
	f.Channels = []string{"CAM_FRONT"}
	store := testutil.NewStore(f)

	anns, err := store.Annotations(f.SampleToken(0))
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, "vehicle.car", anns[0].CategoryName)

	sd, err := store.SampleData(f.SampleDataToken("CAM_FRONT", 0))
	require.NoError(t, err)
	assert.Equal(t, "CAM_FRONT", sd.Channel)

	_, err = store.EgoPose("missing")
	assert.True(t, errors.Is(err, dataset.ErrNotFound))

	tables := store.Tables()
	assert.Len(t, tables.SampleData, 6)
	assert.Equal(t, "vehicle.car", tables.Annotations[0].CategoryName)
}

func TestDeclaredVelocity(t *testing.T) {
	tests := []struct {
		name   string
		v      []float64
		wantOK bool
	}{
		{"absent", nil, false},
		{"planar", []float64{1, 2}, true},
		{"full", []float64{1, 2, 0}, true},
		{"nan", []float64{math.NaN(), math.NaN(), math.NaN()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := dataset.SampleAnnotation{Velocity: tt.v}.DeclaredVelocity()
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestLoadNuScenes(t *testing.T) {
	root := testutil.WriteDataset(t, t.TempDir(), "v1.0-mini", testutil.DefaultScene())

	store, err := dataset.LoadNuScenes(root, "v1.0-mini")
	require.NoError(t, err)
	scenes, err := store.Scenes()
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, "scene-0001", scenes[0].Name)

	_, err = dataset.LoadNuScenes(root, "../elsewhere")
	assert.Error(t, err)
	_, err = dataset.LoadNuScenes(root, "v1.0-trainval")
	assert.Error(t, err)
}

func TestResolveScenes(t *testing.T) {
	a := testutil.DefaultScene()
	b := testutil.DefaultScene()
	b.Name = "scene-0002"
	store := testutil.NewStore(b, a)

	tests := []struct {
		selector string
		want     []string
		wantErr  bool
	}{
		{"mini_val", []string{"scene-0103", "scene-0916"}, false},
		{"all", []string{"scene-0001", "scene-0002"}, false},
		{"scene-0002", []string{"scene-0002"}, false},
		{" scene-0001, scene-0002 ,", []string{"scene-0001", "scene-0002"}, false},
		{"", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got, err := dataset.ResolveScenes(store, tt.selector)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
