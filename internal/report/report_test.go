package report

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nuscenes-xviz/internal/convert"
	"github.com/banshee-data/nuscenes-xviz/internal/fsutil"
	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
	"github.com/banshee-data/nuscenes-xviz/internal/predict"
	"github.com/banshee-data/nuscenes-xviz/internal/testutil"
	"github.com/banshee-data/nuscenes-xviz/internal/units"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
)

func init() {
	monitoring.SetLogger(nil)
}

func loadScene(t *testing.T, fx testutil.SceneFixture) *convert.Scene {
	t.Helper()
	s, err := convert.LoadScene(testutil.NewStore(fx), fx.Name, 0, xviz.World)
	require.NoError(t, err)
	return s
}

func movingScene() testutil.SceneFixture {
	fx := testutil.DefaultScene()
	fx.EgoVelocity = [3]float64{5, 0, 0}
	fx.Objects = append(fx.Objects,
		testutil.ObjectFixture{
			Instance: "ped-1",
			Category: "human.pedestrian.adult",
			Start:    [3]float64{3, 3, 0},
			Velocity: [3]float64{0, 1, 0},
			Size:     [3]float64{0.6, 0.6, 1.7},
		},
		testutil.ObjectFixture{
			Instance: "dog-1",
			Category: "animal",
			Size:     [3]float64{0.4, 0.8, 0.5},
			Frames:   []int{0},
		},
	)
	return fx
}

func TestCollect(t *testing.T) {
	s := Collect(loadScene(t, movingScene()), predict.DefaultConfig())

	assert.Equal(t, "scene-0001", s.Scene)
	assert.Equal(t, 1, s.Dropped)
	require.Len(t, s.Frames, 3)
	for _, f := range s.Frames {
		assert.Equal(t, 2, f.Objects)
		assert.InDelta(t, 5, f.EgoSpeed, 1e-9)
		assert.Equal(t, map[string]int{"car": 1, "pedestrian": 1}, f.ByClass)
	}
	// The car declares its velocity; the pedestrian needs two samples.
	assert.Equal(t, 1, s.Frames[0].Predicted)
	assert.Equal(t, 2, s.Frames[2].Predicted)
	assert.Equal(t, 3, s.Sources["declared"])
	assert.Equal(t, 2, s.Sources["finite_difference"])

	maxSpeed, meanSpeed := s.EgoSpeedSummary()
	assert.InDelta(t, 5, maxSpeed, 1e-9)
	assert.InDelta(t, 5, meanSpeed, 1e-9)

	classes, totals := s.ClassTotals()
	assert.Equal(t, []string{"car", "pedestrian"}, classes)
	assert.Equal(t, []int{3, 3}, totals)
}

func TestCollect_SingleFrame(t *testing.T) {
	fx := testutil.DefaultScene()
	fx.Frames = 1
	s := Collect(loadScene(t, fx), predict.DefaultConfig())
	require.Len(t, s.Frames, 1)
	assert.Zero(t, s.Frames[0].EgoSpeed)
}

func TestRenderBEV(t *testing.T) {
	png, err := RenderBEV(loadScene(t, movingScene()))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))
}

func TestRenderStats(t *testing.T) {
	var buf bytes.Buffer
	s := Collect(loadScene(t, movingScene()), predict.DefaultConfig())
	require.NoError(t, RenderStats(&buf, s, PageOptions{SpeedUnit: units.KPH}))

	html := buf.String()
	assert.Contains(t, html, "Objects per frame")
	assert.Contains(t, html, "km/h")
	assert.Contains(t, html, "max 18.0 km/h")
	assert.Contains(t, html, DefaultAssetsHost)
}

func TestWrite(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	files, err := Write(fs, "reports", loadScene(t, testutil.DefaultScene()), predict.DefaultConfig(), PageOptions{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("reports", "scene-0001_bev.png"), files.BEV)
	assert.Equal(t, filepath.Join("reports", "scene-0001_stats.html"), files.Stats)
	assert.Equal(t, []string{files.BEV, files.Stats}, fs.Files("reports"))
}
