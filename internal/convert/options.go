package convert

import (
	"github.com/banshee-data/nuscenes-xviz/internal/config"
	"github.com/banshee-data/nuscenes-xviz/internal/dataset"
	"github.com/banshee-data/nuscenes-xviz/internal/mapgeom"
	"github.com/banshee-data/nuscenes-xviz/internal/predict"
	"github.com/banshee-data/nuscenes-xviz/internal/sensor"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
)

// Options selects the streams of a scene and tunes their converters.
type Options struct {
	Frame            xviz.CoordinateFrame
	SampleLimit      int
	TrajectoryWindow float64 // seconds of object history
	EgoLookahead     int     // frames in the ego path
	Predict          predict.Config
	Map              mapgeom.Config
	MapWidth         float64
	MapHeight        float64

	Lidar  bool
	Radar  bool
	Camera bool
	Maps   bool
	Future bool

	Cameras        []string
	Radars         []string
	ImageMaxWidth  int
	ImageMaxHeight int
	ImageQuality   int
}

// DefaultOptions returns the options of an empty configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(&config.ConvertConfig{})
}

// OptionsFromConfig resolves a configuration into options.
func OptionsFromConfig(c *config.ConvertConfig) Options {
	w, h := c.GetMapROI()
	return Options{
		Frame:            c.GetCoordinateFrame(),
		SampleLimit:      c.GetSampleLimit(),
		TrajectoryWindow: c.GetTrajectoryWindow(),
		EgoLookahead:     c.GetEgoLookahead(),
		Predict:          c.PredictConfig(),
		Map:              c.MapConfig(),
		MapWidth:         w,
		MapHeight:        h,
		Lidar:            c.GetEnableLidar(),
		Radar:            c.GetEnableRadar(),
		Camera:           c.GetEnableCamera(),
		Maps:             c.GetEnableMap(),
		Future:           c.GetEnableFuture(),
		Cameras:          c.GetCameras(),
		Radars:           c.GetRadars(),
		ImageMaxWidth:    c.GetImageMaxWidth(),
		ImageMaxHeight:   c.GetImageMaxHeight(),
		ImageQuality:     c.GetImageQuality(),
	}
}

// Deps are the collaborators a conversion reads from. Payloads and Map are
// optional; without them the sensor and map streams are not declared.
type Deps struct {
	Store    dataset.Store
	Payloads *sensor.Loader
	Map      mapgeom.Querier
}
