// Package convert turns a loaded nuScenes scene into XVIZ metadata and
// frames. Each stream family has its own converter; SceneConverter runs
// them per frame and Runner drives whole scenes to an output writer.
package convert

import (
	"sort"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Stream ids.
const (
	StreamVehiclePose       = "/vehicle_pose"
	StreamVehicleTrajectory = "/vehicle/trajectory"
	StreamLidarPoints       = "/lidar/points"
	StreamTrackingPoint     = "/objects/tracking_point"
	StreamFutureTrajectory  = "/object/future_trajectory"
	StreamFutureBoxes       = "/object/future_boxes"
	StreamFutureInstances   = "/object/future_instances"
	StreamMapDivider        = "/map/divider"
	StreamMapPedCrossing    = "/map/ped_crossing"
	StreamMapBoundary       = "/map/boundary"
	StreamMapDrivableArea   = "/map/drivable_area"
)

// categoryClasses maps nuScenes categories to display classes. Categories
// not listed are dropped.
var categoryClasses = map[string]string{
	"movable_object.barrier":               "barrier",
	"vehicle.bicycle":                      "bicycle",
	"vehicle.bus.bendy":                    "bus",
	"vehicle.bus.rigid":                    "bus",
	"vehicle.car":                          "car",
	"vehicle.construction":                 "construction_vehicle",
	"vehicle.motorcycle":                   "motorcycle",
	"human.pedestrian.adult":               "pedestrian",
	"human.pedestrian.child":               "pedestrian",
	"human.pedestrian.construction_worker": "pedestrian",
	"human.pedestrian.police_officer":      "pedestrian",
	"movable_object.trafficcone":           "traffic_cone",
	"vehicle.trailer":                      "trailer",
	"vehicle.truck":                        "truck",
}

// classInfo holds the palette colour and trajectory width of a class.
type classInfo struct {
	hex   string
	width float64 // metres, typical object width
}

var classes = map[string]classInfo{
	"barrier":              {"#87CEEB", 0.5},
	"bicycle":              {"#FF69B4", 0.6},
	"bus":                  {"#FF8C00", 2.7},
	"car":                  {"#00CED1", 1.8},
	"construction_vehicle": {"#FFD700", 2.5},
	"motorcycle":           {"#EE82EE", 0.8},
	"pedestrian":           {"#FFA500", 0.7},
	"traffic_cone":         {"#FF6347", 0.3},
	"trailer":              {"#9370DB", 2.5},
	"truck":                {"#32CD32", 2.5},
}

// Classes returns every display class in lexical order.
func Classes() []string {
	out := make([]string, 0, len(classes))
	for c := range classes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ClassOf maps a nuScenes category name to its display class.
func ClassOf(category string) (string, bool) {
	c, ok := categoryClasses[category]
	return c, ok
}

// ClassColors returns the fill (half transparent) and stroke (opaque)
// colours of a class. Unknown classes are grey.
func ClassColors(class string) (fill, stroke [4]uint8) {
	info, ok := classes[class]
	if !ok {
		return [4]uint8{128, 128, 128, 0x80}, [4]uint8{128, 128, 128, 0xFF}
	}
	c, err := colorful.Hex(info.hex)
	if err != nil {
		return [4]uint8{128, 128, 128, 0x80}, [4]uint8{128, 128, 128, 0xFF}
	}
	r, g, b := c.RGB255()
	return [4]uint8{r, g, b, 0x80}, [4]uint8{r, g, b, 0xFF}
}

// TrajectoryWidth returns the stroke width of a class history line.
func TrajectoryWidth(class string) float64 {
	if info, ok := classes[class]; ok {
		return info.width
	}
	return 1.0
}

// AnnotationStream is the box stream of a class.
func AnnotationStream(class string) string { return "/annotations/" + class }

// AnnotationTrajectoryStream is the history stream of a class.
func AnnotationTrajectoryStream(class string) string { return AnnotationStream(class) + "/trajectory" }

// RadarStream is the point stream of a radar channel.
func RadarStream(channel string) string { return "/radar/" + strings.ToLower(channel) }

// CameraStream is the image stream of a camera channel.
func CameraStream(channel string) string { return "/camera/" + strings.ToLower(channel) }
