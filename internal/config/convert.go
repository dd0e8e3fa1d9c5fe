// Package config loads conversion settings from JSON or YAML files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/nuscenes-xviz/internal/mapgeom"
	"github.com/banshee-data/nuscenes-xviz/internal/predict"
	"github.com/banshee-data/nuscenes-xviz/internal/sensor"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
)

// ErrInvalid marks configuration values that fail validation.
var ErrInvalid = errors.New("invalid configuration")

const maxFileSize = 1 * 1024 * 1024 // 1MB

// DefaultCameras and DefaultRadars are the channels converted when the
// config names none.
var (
	DefaultCameras = []string{"CAM_FRONT", "CAM_FRONT_LEFT", "CAM_FRONT_RIGHT", "CAM_BACK", "CAM_BACK_LEFT", "CAM_BACK_RIGHT"}
	DefaultRadars  = []string{"RADAR_FRONT", "RADAR_FRONT_LEFT", "RADAR_FRONT_RIGHT", "RADAR_BACK_LEFT", "RADAR_BACK_RIGHT"}
)

// ConvertConfig is the root conversion configuration. Pointer fields are
// optional; the Get* accessors supply defaults for omitted values.
type ConvertConfig struct {
	DataRoot        *string `json:"data_root,omitempty" yaml:"data_root,omitempty"`
	Version         *string `json:"version,omitempty" yaml:"version,omitempty"`
	Scenes          *string `json:"scenes,omitempty" yaml:"scenes,omitempty"`
	OutputDir       *string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	Format          *string `json:"format,omitempty" yaml:"format,omitempty"`
	CoordinateFrame *string `json:"coordinate_frame,omitempty" yaml:"coordinate_frame,omitempty"`
	SampleLimit     *int    `json:"sample_limit,omitempty" yaml:"sample_limit,omitempty"`
	DatasetDB       *string `json:"dataset_db,omitempty" yaml:"dataset_db,omitempty"`
	Workers         *int    `json:"workers,omitempty" yaml:"workers,omitempty"`

	// Camera params
	ImageMaxWidth  *int `json:"image_max_width,omitempty" yaml:"image_max_width,omitempty"`
	ImageMaxHeight *int `json:"image_max_height,omitempty" yaml:"image_max_height,omitempty"`
	ImageQuality   *int `json:"image_quality,omitempty" yaml:"image_quality,omitempty"`

	// Trajectory and prediction params
	TrajectoryWindow    *float64 `json:"trajectory_window_s,omitempty" yaml:"trajectory_window_s,omitempty"`
	EgoLookahead        *int     `json:"ego_lookahead,omitempty" yaml:"ego_lookahead,omitempty"`
	PredictionSteps     *int     `json:"prediction_steps,omitempty" yaml:"prediction_steps,omitempty"`
	PredictionHorizon   *float64 `json:"prediction_horizon_s,omitempty" yaml:"prediction_horizon_s,omitempty"`
	StationarySpeed     *float64 `json:"stationary_speed,omitempty" yaml:"stationary_speed,omitempty"`
	MinTimeDelta        *float64 `json:"min_time_delta,omitempty" yaml:"min_time_delta,omitempty"`
	DeclaredVelocityMin *float64 `json:"declared_velocity_min,omitempty" yaml:"declared_velocity_min,omitempty"`

	// Map params
	MapROI         []float64 `json:"map_roi,omitempty" yaml:"map_roi,omitempty"` // [width, height] metres
	BoundaryShrink *float64  `json:"boundary_shrink,omitempty" yaml:"boundary_shrink,omitempty"`

	// Stream toggles
	EnableLidar  *bool    `json:"enable_lidar,omitempty" yaml:"enable_lidar,omitempty"`
	EnableRadar  *bool    `json:"enable_radar,omitempty" yaml:"enable_radar,omitempty"`
	EnableCamera *bool    `json:"enable_camera,omitempty" yaml:"enable_camera,omitempty"`
	EnableMap    *bool    `json:"enable_map,omitempty" yaml:"enable_map,omitempty"`
	EnableFuture *bool    `json:"enable_future,omitempty" yaml:"enable_future,omitempty"`
	Cameras      []string `json:"cameras,omitempty" yaml:"cameras,omitempty"`
	Radars       []string `json:"radars,omitempty" yaml:"radars,omitempty"`
}

// Load reads a ConvertConfig from a .json, .yaml or .yml file and
// validates it. Omitted fields keep their defaults.
func Load(path string) (*ConvertConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, ext)
}

// Parse decodes config data. ext selects the decoder: ".json" or a YAML
// extension.
func Parse(data []byte, ext string) (*ConvertConfig, error) {
	cfg := &ConvertConfig{}
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks that the configuration values are valid.
func (c *ConvertConfig) Validate() error {
	if c.Format != nil {
		if _, err := xviz.ParseFormat(*c.Format); err != nil {
			return invalid("format: %v", err)
		}
	}
	if c.CoordinateFrame != nil {
		if _, err := xviz.ParseCoordinateFrame(*c.CoordinateFrame); err != nil {
			return invalid("coordinate_frame: %v", err)
		}
	}
	if c.SampleLimit != nil && *c.SampleLimit < 0 {
		return invalid("sample_limit must be non-negative, got %d", *c.SampleLimit)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return invalid("workers must be at least 1, got %d", *c.Workers)
	}
	for name, v := range map[string]*int{
		"image_max_width":  c.ImageMaxWidth,
		"image_max_height": c.ImageMaxHeight,
	} {
		if v != nil && *v < 0 {
			return invalid("%s must be non-negative, got %d", name, *v)
		}
	}
	if c.ImageQuality != nil && (*c.ImageQuality < 1 || *c.ImageQuality > 100) {
		return invalid("image_quality must be between 1 and 100, got %d", *c.ImageQuality)
	}
	if c.TrajectoryWindow != nil && *c.TrajectoryWindow < 0 {
		return invalid("trajectory_window_s must be non-negative, got %f", *c.TrajectoryWindow)
	}
	if c.EgoLookahead != nil && *c.EgoLookahead < 1 {
		return invalid("ego_lookahead must be at least 1, got %d", *c.EgoLookahead)
	}
	if c.PredictionSteps != nil && *c.PredictionSteps < 1 {
		return invalid("prediction_steps must be at least 1, got %d", *c.PredictionSteps)
	}
	if c.PredictionHorizon != nil && *c.PredictionHorizon <= 0 {
		return invalid("prediction_horizon_s must be positive, got %f", *c.PredictionHorizon)
	}
	if c.MinTimeDelta != nil && *c.MinTimeDelta <= 0 {
		return invalid("min_time_delta must be positive, got %f", *c.MinTimeDelta)
	}
	if c.MapROI != nil {
		if len(c.MapROI) != 2 || c.MapROI[0] <= 0 || c.MapROI[1] <= 0 {
			return invalid("map_roi must be two positive sizes, got %v", c.MapROI)
		}
	}
	if c.BoundaryShrink != nil && *c.BoundaryShrink < 0 {
		return invalid("boundary_shrink must be non-negative, got %f", *c.BoundaryShrink)
	}
	return nil
}

func stringOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// GetDataRoot returns the dataset root directory.
func (c *ConvertConfig) GetDataRoot() string { return stringOr(c.DataRoot, "data/nuscenes") }

// GetVersion returns the dataset version directory name.
func (c *ConvertConfig) GetVersion() string { return stringOr(c.Version, "v1.0-mini") }

// GetScenes returns the scene selector.
func (c *ConvertConfig) GetScenes() string { return stringOr(c.Scenes, "mini_train") }

// GetOutputDir returns the output root directory.
func (c *ConvertConfig) GetOutputDir() string { return stringOr(c.OutputDir, "output") }

// GetDatasetDB returns the optional SQLite dataset path.
func (c *ConvertConfig) GetDatasetDB() string { return stringOr(c.DatasetDB, "") }

// GetFormat returns the output format.
func (c *ConvertConfig) GetFormat() xviz.Format {
	f, err := xviz.ParseFormat(stringOr(c.Format, string(xviz.FormatJSON)))
	if err != nil {
		return xviz.FormatJSON
	}
	return f
}

// GetCoordinateFrame returns the active coordinate frame.
func (c *ConvertConfig) GetCoordinateFrame() xviz.CoordinateFrame {
	f, err := xviz.ParseCoordinateFrame(stringOr(c.CoordinateFrame, "world"))
	if err != nil {
		return xviz.World
	}
	return f
}

// GetSampleLimit returns the per-scene frame cap; 0 means no cap.
func (c *ConvertConfig) GetSampleLimit() int { return intOr(c.SampleLimit, 0) }

// GetWorkers returns the frame conversion parallelism.
func (c *ConvertConfig) GetWorkers() int { return intOr(c.Workers, 1) }

// GetImageMaxWidth returns the camera width limit.
func (c *ConvertConfig) GetImageMaxWidth() int { return intOr(c.ImageMaxWidth, 400) }

// GetImageMaxHeight returns the camera height limit.
func (c *ConvertConfig) GetImageMaxHeight() int { return intOr(c.ImageMaxHeight, 300) }

// GetImageQuality returns the JPEG quality of resized frames.
func (c *ConvertConfig) GetImageQuality() int {
	return intOr(c.ImageQuality, sensor.DefaultJPEGQuality)
}

// GetTrajectoryWindow returns the object history window in seconds.
func (c *ConvertConfig) GetTrajectoryWindow() float64 { return floatOr(c.TrajectoryWindow, 3) }

// GetEgoLookahead returns the number of frames in the ego trajectory.
func (c *ConvertConfig) GetEgoLookahead() int { return intOr(c.EgoLookahead, 6) }

// GetMapROI returns the map patch width and height in metres.
func (c *ConvertConfig) GetMapROI() (float64, float64) {
	if len(c.MapROI) != 2 {
		return 60, 120
	}
	return c.MapROI[0], c.MapROI[1]
}

// GetEnableLidar reports whether the LiDAR stream is converted.
func (c *ConvertConfig) GetEnableLidar() bool { return boolOr(c.EnableLidar, true) }

// GetEnableRadar reports whether radar streams are converted.
func (c *ConvertConfig) GetEnableRadar() bool { return boolOr(c.EnableRadar, true) }

// GetEnableCamera reports whether camera streams are converted.
func (c *ConvertConfig) GetEnableCamera() bool { return boolOr(c.EnableCamera, true) }

// GetEnableMap reports whether map streams are converted.
func (c *ConvertConfig) GetEnableMap() bool { return boolOr(c.EnableMap, true) }

// GetEnableFuture reports whether future-motion streams are converted.
func (c *ConvertConfig) GetEnableFuture() bool { return boolOr(c.EnableFuture, true) }

// GetCameras returns the camera channels to convert.
func (c *ConvertConfig) GetCameras() []string {
	if len(c.Cameras) == 0 {
		return DefaultCameras
	}
	return c.Cameras
}

// GetRadars returns the radar channels to convert.
func (c *ConvertConfig) GetRadars() []string {
	if len(c.Radars) == 0 {
		return DefaultRadars
	}
	return c.Radars
}

// PredictConfig returns the predictor settings.
func (c *ConvertConfig) PredictConfig() predict.Config {
	p := predict.DefaultConfig()
	p.Steps = intOr(c.PredictionSteps, p.Steps)
	p.Horizon = floatOr(c.PredictionHorizon, p.Horizon)
	p.StationarySpeed = floatOr(c.StationarySpeed, p.StationarySpeed)
	p.MinTimeDelta = floatOr(c.MinTimeDelta, p.MinTimeDelta)
	p.DeclaredVelocityMin = floatOr(c.DeclaredVelocityMin, p.DeclaredVelocityMin)
	return p
}

// MapConfig returns the map normalizer settings.
func (c *ConvertConfig) MapConfig() mapgeom.Config {
	m := mapgeom.DefaultConfig()
	m.BoundaryShrink = floatOr(c.BoundaryShrink, m.BoundaryShrink)
	return m
}

// Ptr returns a pointer to v, for setting optional fields from flags.
func Ptr[T any](v T) *T { return &v }
