// Package dataset exposes the nuScenes relational tables the converter reads
// and turns a scene into an ordered Frame Index.
//
// Record fields keep the dataset's JSON names. Timestamps are integer
// microseconds; rotations are scalar-first quaternions; sizes are
// [width, length, height] in metres.
package dataset

import "math"

// Scene is one continuous drive segment.
type Scene struct {
	Token            string `json:"token"`
	LogToken         string `json:"log_token"`
	NbrSamples       int    `json:"nbr_samples"`
	FirstSampleToken string `json:"first_sample_token"`
	LastSampleToken  string `json:"last_sample_token"`
	Name             string `json:"name"`
	Description      string `json:"description"`
}

// Log describes the recording a scene was cut from.
type Log struct {
	Token        string `json:"token"`
	Logfile      string `json:"logfile"`
	Vehicle      string `json:"vehicle"`
	DateCaptured string `json:"date_captured"`
	Location     string `json:"location"`
}

// Sample is an annotated key frame; samples of a scene form a linked list.
type Sample struct {
	Token      string `json:"token"`
	Timestamp  int64  `json:"timestamp"`
	Prev       string `json:"prev"`
	Next       string `json:"next"`
	SceneToken string `json:"scene_token"`
}

// SampleData references one sensor payload file.
type SampleData struct {
	Token                 string `json:"token"`
	SampleToken           string `json:"sample_token"`
	EgoPoseToken          string `json:"ego_pose_token"`
	CalibratedSensorToken string `json:"calibrated_sensor_token"`
	Timestamp             int64  `json:"timestamp"`
	Fileformat            string `json:"fileformat"`
	IsKeyFrame            bool   `json:"is_key_frame"`
	Height                int    `json:"height"`
	Width                 int    `json:"width"`
	Filename              string `json:"filename"`
	Prev                  string `json:"prev"`
	Next                  string `json:"next"`

	// Channel is derived through calibrated_sensor and sensor.
	Channel string `json:"channel,omitempty"`
}

// EgoPose is the vehicle pose in the global map frame.
type EgoPose struct {
	Token       string     `json:"token"`
	Timestamp   int64      `json:"timestamp"`
	Rotation    [4]float64 `json:"rotation"`
	Translation [3]float64 `json:"translation"`
}

// CalibratedSensor is a sensor mount relative to the ego vehicle frame.
type CalibratedSensor struct {
	Token           string      `json:"token"`
	SensorToken     string      `json:"sensor_token"`
	Translation     [3]float64  `json:"translation"`
	Rotation        [4]float64  `json:"rotation"`
	CameraIntrinsic [][]float64 `json:"camera_intrinsic"`
}

// Sensor names a channel and its modality (lidar, radar or camera).
type Sensor struct {
	Token    string `json:"token"`
	Channel  string `json:"channel"`
	Modality string `json:"modality"`
}

// SampleAnnotation is one object box at one sample.
type SampleAnnotation struct {
	Token           string     `json:"token"`
	SampleToken     string     `json:"sample_token"`
	InstanceToken   string     `json:"instance_token"`
	VisibilityToken string     `json:"visibility_token"`
	AttributeTokens []string   `json:"attribute_tokens"`
	Translation     [3]float64 `json:"translation"`
	Size            [3]float64 `json:"size"`
	Rotation        [4]float64 `json:"rotation"`
	Prev            string     `json:"prev"`
	Next            string     `json:"next"`
	NumLidarPts     int        `json:"num_lidar_pts"`
	NumRadarPts     int        `json:"num_radar_pts"`

	// Velocity is an optional declared velocity in m/s (world frame).
	Velocity []float64 `json:"velocity,omitempty"`

	// CategoryName is derived through instance and category.
	CategoryName string `json:"category_name,omitempty"`
}

// DeclaredVelocity returns the annotation's velocity when present and
// finite.
func (a SampleAnnotation) DeclaredVelocity() ([3]float64, bool) {
	var v [3]float64
	if len(a.Velocity) < 2 {
		return v, false
	}
	for i := 0; i < len(a.Velocity) && i < 3; i++ {
		if math.IsNaN(a.Velocity[i]) || math.IsInf(a.Velocity[i], 0) {
			return [3]float64{}, false
		}
		v[i] = a.Velocity[i]
	}
	return v, true
}

// Instance is a physical object tracked across annotations.
type Instance struct {
	Token                string `json:"token"`
	CategoryToken        string `json:"category_token"`
	NbrAnnotations       int    `json:"nbr_annotations"`
	FirstAnnotationToken string `json:"first_annotation_token"`
	LastAnnotationToken  string `json:"last_annotation_token"`
}

// Category is a taxonomy entry such as "vehicle.car".
type Category struct {
	Token       string `json:"token"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Tables holds every record of a dataset version, one slice per table.
type Tables struct {
	Scenes            []Scene
	Logs              []Log
	Samples           []Sample
	SampleData        []SampleData
	EgoPoses          []EgoPose
	CalibratedSensors []CalibratedSensor
	Sensors           []Sensor
	Annotations       []SampleAnnotation
	Instances         []Instance
	Categories        []Category
}
