package sqlite

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nuscenes-xviz/internal/dataset"
	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
	"github.com/banshee-data/nuscenes-xviz/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nuscenes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func importFixture(t *testing.T, db *DB, fixtures ...testutil.SceneFixture) *dataset.MemoryStore {
	t.Helper()
	mem := testutil.NewStore(fixtures...)
	stats, err := Import(context.Background(), db, mem, "v1.0-test")
	require.NoError(t, err)
	assert.Equal(t, len(fixtures), stats.Scenes)
	assert.NotEmpty(t, stats.RunID)
	return mem
}

func TestOpen_Migrates(t *testing.T) {
	db := openTestDB(t)
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp(), "no pending migrations is not an error")
}

func TestOpen_Memory(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	importFixture(t, db, testutil.DefaultScene())
	scenes, err := NewStore(db).Scenes()
	require.NoError(t, err)
	assert.Len(t, scenes, 1)
}

func TestStore_MatchesMemoryStore(t *testing.T) {
	fx := testutil.DefaultScene()
	fx.Channels = []string{"RADAR_FRONT"}
	db := openTestDB(t)
	mem := importFixture(t, db, fx)
	store := NewStore(db)

	want, err := dataset.LoadScene(mem, fx.Name, 0)
	require.NoError(t, err)
	got, err := dataset.LoadScene(store, fx.Name, 0)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scene mismatch (-memory +sqlite):\n%s", diff)
	}

	for i := 0; i < fx.Frames; i++ {
		wantAnns, err := mem.Annotations(fx.SampleToken(i))
		require.NoError(t, err)
		gotAnns, err := store.Annotations(fx.SampleToken(i))
		require.NoError(t, err)
		if diff := cmp.Diff(wantAnns, gotAnns); diff != "" {
			t.Errorf("frame %d annotations mismatch (-memory +sqlite):\n%s", i, diff)
		}
	}

	sd, err := store.SampleData(fx.SampleDataToken("RADAR_FRONT", 0))
	require.NoError(t, err)
	assert.Equal(t, "RADAR_FRONT", sd.Channel)

	cs, err := store.CalibratedSensor(sd.CalibratedSensorToken)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{0.9, 0, 1.8}, cs.Translation)

	ego, err := store.EgoPose(want.Frames[1].EgoPoseToken)
	require.NoError(t, err)
	assert.Equal(t, [4]float64{1, 0, 0, 0}, ego.Rotation)
}

func TestStore_Velocity(t *testing.T) {
	fx := testutil.DefaultScene()
	fx.Objects = append(fx.Objects, testutil.ObjectFixture{
		Instance: "ped-1",
		Category: "human.pedestrian.adult",
		Size:     [3]float64{0.6, 0.6, 1.7},
	})
	db := openTestDB(t)
	importFixture(t, db, fx)

	anns, err := NewStore(db).Annotations(fx.SampleToken(0))
	require.NoError(t, err)
	require.Len(t, anns, 2)
	byInstance := map[string]dataset.SampleAnnotation{}
	for _, a := range anns {
		byInstance[a.InstanceToken] = a
	}
	v, ok := byInstance["car-1"].DeclaredVelocity()
	assert.True(t, ok)
	assert.Equal(t, [3]float64{1, 0, 0}, v)
	_, ok = byInstance["ped-1"].DeclaredVelocity()
	assert.False(t, ok)
	assert.Equal(t, "human.pedestrian.adult", byInstance["ped-1"].CategoryName)
}

func TestStore_NotFound(t *testing.T) {
	db := openTestDB(t)
	importFixture(t, db, testutil.DefaultScene())
	store := NewStore(db)

	_, err := store.SceneByName("scene-9999")
	assert.True(t, errors.Is(err, dataset.ErrNotFound))
	_, err = store.Sample("missing")
	assert.True(t, errors.Is(err, dataset.ErrNotFound))
	_, err = store.EgoPose("missing")
	assert.True(t, errors.Is(err, dataset.ErrNotFound))

	data, err := store.SampleDataForSample("missing")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestImport_Replaces(t *testing.T) {
	db := openTestDB(t)
	a := testutil.DefaultScene()
	b := testutil.DefaultScene()
	b.Name = "scene-0002"
	importFixture(t, db, a)
	importFixture(t, db, a, b)

	scenes, err := NewStore(db).Scenes()
	require.NoError(t, err)
	require.Len(t, scenes, 2)
	assert.Equal(t, "scene-0001", scenes[0].Name)

	var runs int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM import_run`).Scan(&runs))
	assert.Equal(t, 2, runs)
}

func TestAttachAdminRoutes(t *testing.T) {
	db := openTestDB(t)
	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux, "nuscenes.db"))

	req := httptest.NewRequest(http.MethodGet, "/debug/", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "tailsql")
}
