package xviz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/nuscenes-xviz/internal/geom"
)

func testMetadata(t *testing.T) *Metadata {
	t.Helper()
	b := NewMetadataBuilder()
	mount := geom.NewTransform([3]float64{1, 0, 2}, [4]float64{1, 0, 0, 0})
	decls := []StreamDeclaration{
		{StreamID: "/vehicle_pose", Category: CategoryPose},
		{StreamID: "/annotations/car", Category: CategoryPrimitive, PrimitiveType: Polygon, Coordinate: World,
			Style:        Style{"extruded": true, "fill_color": []uint8{0, 0, 0, 128}},
			StyleClasses: []StyleClass{{Name: "car", Style: Style{"fill_color": [4]uint8{0, 206, 209, 128}}}}},
		{StreamID: "/lidar/points", Category: CategoryPrimitive, PrimitiveType: Point, Coordinate: VehicleRelative},
		{StreamID: "/radar/radar_front", Category: CategoryPrimitive, PrimitiveType: Point, Coordinate: VehicleRelative, Transform: &mount},
		{StreamID: "/camera/cam_front", Category: CategoryPrimitive, PrimitiveType: Image, Coordinate: VehicleRelative},
		{StreamID: "/object/future_instances", Category: CategoryFutureInstance, PrimitiveType: Circle, Coordinate: World},
	}
	for _, d := range decls {
		require.NoError(t, b.Declare(d))
	}
	b.SetTimeRange(1, 3)
	return b.Build()
}

func TestMetadataBuilder_Duplicate(t *testing.T) {
	b := NewMetadataBuilder()
	d := StreamDeclaration{StreamID: "/a", Category: CategoryPrimitive, PrimitiveType: Polyline}
	require.NoError(t, b.Declare(d))
	err := b.Declare(d)
	assert.True(t, errors.Is(err, ErrDuplicateStream))
	assert.Len(t, b.Build().Streams, 1)
}

func TestMetadataBuilder_Invalid(t *testing.T) {
	b := NewMetadataBuilder()
	assert.Error(t, b.Declare(StreamDeclaration{StreamID: "nope", Category: CategoryPose}))
	assert.Error(t, b.Declare(StreamDeclaration{StreamID: "/a", Category: CategoryPrimitive}))
	assert.Error(t, b.Declare(StreamDeclaration{StreamID: "/a", Category: "OTHER"}))
}

func TestMetadataBuilder_BuildIsSnapshot(t *testing.T) {
	b := NewMetadataBuilder()
	require.NoError(t, b.Declare(StreamDeclaration{StreamID: "/a", Category: CategoryPose}))
	m := b.Build()
	require.NoError(t, b.Declare(StreamDeclaration{StreamID: "/b", Category: CategoryPose}))
	_, ok := m.Stream("/b")
	assert.False(t, ok)
}

func TestFrameBuilder_Checks(t *testing.T) {
	meta := testMetadata(t)
	fb := NewFrameBuilder(meta, 0, 1)

	square := []r3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}, {}}
	require.NoError(t, fb.Primitive("/annotations/car", NewPolygon(square).WithID("car-1").WithClasses("car")))

	err := fb.Primitive("/annotations/bus", NewPolygon(square))
	assert.True(t, errors.Is(err, ErrUndeclaredStream))

	err = fb.Primitive("/annotations/car", NewPolyline(square))
	assert.True(t, errors.Is(err, ErrPrimitiveMismatch))

	err = fb.Primitive("/vehicle_pose", NewPolyline(square))
	assert.True(t, errors.Is(err, ErrPrimitiveMismatch))

	err = fb.Pose("/lidar/points", PoseSample{})
	assert.True(t, errors.Is(err, ErrPrimitiveMismatch))

	err = fb.Primitive("/lidar/points", NewPoints([]float64{1, 2, 3}, []uint8{1, 2, 3}))
	assert.True(t, errors.Is(err, ErrInvalidPrimitive))

	require.NoError(t, fb.Pose("/vehicle_pose", PoseSample{Timestamp: 1}))
	require.NoError(t, fb.Future("/object/future_instances", 1.5, NewCircle(r3.Vec{X: 1}, 0.2)))
	require.NoError(t, fb.Future("/object/future_instances", 1.5, NewCircle(r3.Vec{X: 2}, 0.2)))
	require.NoError(t, fb.Future("/object/future_instances", 2.0, NewCircle(r3.Vec{X: 3}, 0.2)))

	f := fb.Frame()
	assert.Equal(t, []string{"/annotations/car", "/object/future_instances", "/vehicle_pose"}, f.StreamIDs())
	assert.Equal(t, 4, f.PrimitiveCount())
	fi := f.Futures["/object/future_instances"]
	assert.Equal(t, []float64{1.5, 2.0}, fi.Timestamps)
	assert.Len(t, fi.Primitives[0], 2)
}

func TestPrimitive_Validate(t *testing.T) {
	tests := []struct {
		name string
		p    Primitive
		ok   bool
	}{
		{"points", NewPoints([]float64{1, 2, 3, 4, 5, 6}, make([]uint8, 8)), true},
		{"points without colours", NewPoints([]float64{1, 2, 3}, nil), true},
		{"ragged vertices", Primitive{Type: Polyline, Vertices: []float64{1, 2}}, false},
		{"single vertex polyline", NewPolyline([]r3.Vec{{}}), false},
		{"circle", NewCircle(r3.Vec{}, 0.2), true},
		{"zero radius", NewCircle(r3.Vec{}, 0), false},
		{"image", NewImage([]byte{1}, 2, 2), true},
		{"empty image", NewImage(nil, 2, 2), false},
		{"unknown", Primitive{Type: "BLOB"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCoordinateFrame(t *testing.T) {
	assert.Equal(t, "IDENTITY", World.Wire())
	assert.Equal(t, "VEHICLE_RELATIVE", VehicleRelative.Wire())

	c, err := ParseCoordinateFrame("vehicle")
	require.NoError(t, err)
	assert.Equal(t, VehicleRelative, c)
	c, err = ParseCoordinateFrame("")
	require.NoError(t, err)
	assert.Equal(t, World, c)
	_, err = ParseCoordinateFrame("sensor")
	assert.Error(t, err)
}

func TestMetadataEnvelope(t *testing.T) {
	env, err := testMetadata(t).Envelope()
	require.NoError(t, err)
	assert.Equal(t, TypeMetadata, EnvelopeType(env))

	m := env.AsMap()
	data := m["data"].(map[string]any)
	assert.Equal(t, Version, data["version"])
	logInfo := data["log_info"].(map[string]any)
	assert.Equal(t, 1.0, logInfo["start_time"])
	assert.Equal(t, 3.0, logInfo["end_time"])

	streams := data["streams"].(map[string]any)
	assert.Len(t, streams, 6)
	car := streams["/annotations/car"].(map[string]any)
	assert.Equal(t, "POLYGON", car["primitive_type"])
	assert.Equal(t, "IDENTITY", car["coordinate"])
	classes := car["style_classes"].([]any)
	require.Len(t, classes, 1)
	cls := classes[0].(map[string]any)
	assert.Equal(t, "car", cls["name"])
	assert.Equal(t, []any{0.0, 206.0, 209.0, 128.0}, cls["style"].(map[string]any)["fill_color"])

	radar := streams["/radar/radar_front"].(map[string]any)
	tr := radar["transform"].([]any)
	require.Len(t, tr, 16)

	pose := streams["/vehicle_pose"].(map[string]any)
	assert.Equal(t, "POSE", pose["category"])
	assert.NotContains(t, pose, "coordinate")
}

func TestFrameEnvelope_RoundTrip(t *testing.T) {
	meta := testMetadata(t)
	fb := NewFrameBuilder(meta, 2, 2.5)
	require.NoError(t, fb.Pose("/vehicle_pose", PoseSample{Timestamp: 2.5, Position: r3.Vec{X: 1, Y: 2, Z: 3}}))
	require.NoError(t, fb.Primitive("/annotations/car",
		NewPolygon([]r3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {}}).WithID("car-1").WithClasses("car").WithStyle(Style{"height": 1.5})))
	require.NoError(t, fb.Primitive("/lidar/points", NewPoints([]float64{1, 2, 3}, []uint8{10, 20, 30, 255})))
	require.NoError(t, fb.Primitive("/camera/cam_front", NewImage([]byte{0xff, 0xd8}, 4, 3)))
	require.NoError(t, fb.Future("/object/future_instances", 3.0, NewCircle(r3.Vec{X: 2}, 0.2)))
	require.NoError(t, fb.Future("/object/future_instances", 2.75, NewCircle(r3.Vec{X: 1}, 0.2)))

	env, err := fb.Frame().Envelope()
	require.NoError(t, err)

	for _, format := range []Format{FormatJSON, FormatProtobuf} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Marshal(env, format)
			require.NoError(t, err)
			back, err := Unmarshal(data, format)
			require.NoError(t, err)
			assert.Equal(t, TypeStateUpdate, EnvelopeType(back))

			update := back.AsMap()["data"].(map[string]any)["updates"].([]any)[0].(map[string]any)
			assert.Equal(t, 2.5, update["timestamp"])

			prims := update["primitives"].(map[string]any)
			polys := prims["/annotations/car"].(map[string]any)["polygons"].([]any)
			require.Len(t, polys, 1)
			poly := polys[0].(map[string]any)
			assert.Len(t, poly["vertices"].([]any), 4)
			base := poly["base"].(map[string]any)
			assert.Equal(t, "car-1", base["object_id"])
			assert.Equal(t, []any{"car"}, base["classes"])

			pts := prims["/lidar/points"].(map[string]any)["points"].([]any)[0].(map[string]any)
			assert.Equal(t, []any{1.0, 2.0, 3.0}, pts["points"])
			assert.Equal(t, []any{10.0, 20.0, 30.0, 255.0}, pts["colors"])

			img := prims["/camera/cam_front"].(map[string]any)["images"].([]any)[0].(map[string]any)
			assert.Equal(t, "/9g=", img["data"])
			assert.Equal(t, 4.0, img["width_px"])

			fut := update["future_instances"].(map[string]any)["/object/future_instances"].(map[string]any)
			assert.Equal(t, []any{2.75, 3.0}, fut["timestamps"])
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("protobuf")
	require.NoError(t, err)
	assert.Equal(t, FormatProtobuf, f)
	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
