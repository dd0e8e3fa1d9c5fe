package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	c := &ConvertConfig{}
	assert.Equal(t, "v1.0-mini", c.GetVersion())
	assert.Equal(t, "mini_train", c.GetScenes())
	assert.Equal(t, xviz.FormatJSON, c.GetFormat())
	assert.Equal(t, xviz.World, c.GetCoordinateFrame())
	assert.Equal(t, 400, c.GetImageMaxWidth())
	assert.Equal(t, 300, c.GetImageMaxHeight())
	assert.Equal(t, 85, c.GetImageQuality())
	assert.Equal(t, 3.0, c.GetTrajectoryWindow())
	assert.Equal(t, 6, c.GetEgoLookahead())
	assert.Equal(t, 1, c.GetWorkers())
	assert.True(t, c.GetEnableMap())
	assert.Equal(t, DefaultCameras, c.GetCameras())
	assert.Equal(t, DefaultRadars, c.GetRadars())

	w, h := c.GetMapROI()
	assert.Equal(t, 60.0, w)
	assert.Equal(t, 120.0, h)

	p := c.PredictConfig()
	assert.Equal(t, 6, p.Steps)
	assert.Equal(t, 3.0, p.Horizon)
	assert.Equal(t, 0.2, c.MapConfig().BoundaryShrink)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "convert.json", `{
		"scenes": "scene-0061",
		"format": "protobuf",
		"coordinate_frame": "vehicle",
		"sample_limit": 5,
		"prediction_steps": 4,
		"map_roi": [40, 80],
		"enable_camera": false,
		"radars": ["RADAR_FRONT"]
	}`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "scene-0061", c.GetScenes())
	assert.Equal(t, xviz.FormatProtobuf, c.GetFormat())
	assert.Equal(t, xviz.VehicleRelative, c.GetCoordinateFrame())
	assert.Equal(t, 5, c.GetSampleLimit())
	assert.Equal(t, 4, c.PredictConfig().Steps)
	assert.False(t, c.GetEnableCamera())
	assert.Equal(t, []string{"RADAR_FRONT"}, c.GetRadars())
	w, h := c.GetMapROI()
	assert.Equal(t, 40.0, w)
	assert.Equal(t, 80.0, h)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "convert.yaml", "data_root: /data/sets/nuscenes\nworkers: 4\nboundary_shrink: 0.5\n")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/sets/nuscenes", c.GetDataRoot())
	assert.Equal(t, 4, c.GetWorkers())
	assert.Equal(t, 0.5, c.MapConfig().BoundaryShrink)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("extension", func(t *testing.T) {
		_, err := Load(writeFile(t, "convert.toml", ""))
		assert.ErrorContains(t, err, "extension")
	})
	t.Run("missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "none.json"))
		assert.Error(t, err)
	})
	t.Run("too large", func(t *testing.T) {
		_, err := Load(writeFile(t, "big.json", `{"scenes":"`+strings.Repeat("a", maxFileSize)+`"}`))
		assert.ErrorContains(t, err, "too large")
	})
	t.Run("malformed", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.json", "{"))
		assert.ErrorContains(t, err, "parse")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  ConvertConfig
	}{
		{"format", ConvertConfig{Format: Ptr("xml")}},
		{"frame", ConvertConfig{CoordinateFrame: Ptr("ego")}},
		{"sample limit", ConvertConfig{SampleLimit: Ptr(-1)}},
		{"workers", ConvertConfig{Workers: Ptr(0)}},
		{"image width", ConvertConfig{ImageMaxWidth: Ptr(-5)}},
		{"quality", ConvertConfig{ImageQuality: Ptr(101)}},
		{"window", ConvertConfig{TrajectoryWindow: Ptr(-1.0)}},
		{"lookahead", ConvertConfig{EgoLookahead: Ptr(0)}},
		{"steps", ConvertConfig{PredictionSteps: Ptr(0)}},
		{"horizon", ConvertConfig{PredictionHorizon: Ptr(0.0)}},
		{"time delta", ConvertConfig{MinTimeDelta: Ptr(0.0)}},
		{"roi", ConvertConfig{MapROI: []float64{60}}},
		{"shrink", ConvertConfig{BoundaryShrink: Ptr(-0.1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.cfg.Validate(), ErrInvalid)
		})
	}
	assert.NoError(t, (&ConvertConfig{}).Validate())
}
