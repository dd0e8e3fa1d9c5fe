// Package xviz provides the stream declarations, per-frame primitive
// accumulator and message encoding for the XVIZ v2 output protocol.
// This file defines the model shared by every converter.
package xviz

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/nuscenes-xviz/internal/geom"
)

// Version is the XVIZ protocol version written into metadata.
const Version = "2.0.0"

var (
	ErrUndeclaredStream  = errors.New("xviz: stream not declared")
	ErrDuplicateStream   = errors.New("xviz: stream declared twice")
	ErrPrimitiveMismatch = errors.New("xviz: primitive does not match stream declaration")
	ErrInvalidPrimitive  = errors.New("xviz: invalid primitive")
)

// Category is the kind of data a stream carries.
type Category string

const (
	CategoryPrimitive      Category = "PRIMITIVE"
	CategoryPose           Category = "POSE"
	CategoryFutureInstance Category = "FUTURE_INSTANCE"
)

// PrimitiveType is the geometry variant of a primitive stream.
type PrimitiveType string

const (
	Polygon  PrimitiveType = "POLYGON"
	Polyline PrimitiveType = "POLYLINE"
	Point    PrimitiveType = "POINT"
	Circle   PrimitiveType = "CIRCLE"
	Image    PrimitiveType = "IMAGE"
)

// CoordinateFrame is the frame a stream's geometry is expressed in.
type CoordinateFrame string

const (
	World           CoordinateFrame = "WORLD"
	VehicleRelative CoordinateFrame = "VEHICLE_RELATIVE"
)

// Wire returns the coordinate name XVIZ viewers expect. The world frame is
// written as IDENTITY.
func (c CoordinateFrame) Wire() string {
	if c == World {
		return "IDENTITY"
	}
	return string(c)
}

// ParseCoordinateFrame accepts "world"/"vehicle" config spellings as well
// as the protocol names.
func ParseCoordinateFrame(s string) (CoordinateFrame, error) {
	switch s {
	case "world", "WORLD", "IDENTITY", "":
		return World, nil
	case "vehicle", "vehicle_relative", "VEHICLE_RELATIVE":
		return VehicleRelative, nil
	}
	return "", fmt.Errorf("unknown coordinate frame %q", s)
}

// Style maps style attribute names to values. Values are numbers, strings,
// bools, colour arrays ([]uint8 or [4]uint8) or float slices.
type Style map[string]any

// StyleClass is a named style selectable by primitives through Classes.
type StyleClass struct {
	Name  string
	Style Style
}

// StreamDeclaration describes one stream in the metadata message.
type StreamDeclaration struct {
	StreamID      string
	Category      Category
	PrimitiveType PrimitiveType // required when Category is primitive or future instance
	Coordinate    CoordinateFrame
	Style         Style
	StyleClasses  []StyleClass
	Transform     *geom.Transform // static mount pose, optional
}

// Validate checks the declaration is complete.
func (d StreamDeclaration) Validate() error {
	if d.StreamID == "" || d.StreamID[0] != '/' {
		return fmt.Errorf("stream id %q must start with /", d.StreamID)
	}
	switch d.Category {
	case CategoryPose:
		return nil
	case CategoryPrimitive, CategoryFutureInstance:
		if d.PrimitiveType == "" {
			return fmt.Errorf("stream %s: primitive type required", d.StreamID)
		}
	default:
		return fmt.Errorf("stream %s: unknown category %q", d.StreamID, d.Category)
	}
	return nil
}

// Primitive is one frame-time geometry element.
type Primitive struct {
	Type     PrimitiveType
	Vertices []float64 // flat x,y,z triples
	Colors   []uint8   // flat RGBA, points only
	Radius   float64   // circles; the centre is Vertices[0:3]
	Data     []byte    // encoded image
	Width    int
	Height   int
	ID       string
	Classes  []string
	Style    Style
}

// NewPolygon returns a polygon through the given vertices.
func NewPolygon(vertices []r3.Vec) Primitive {
	return Primitive{Type: Polygon, Vertices: flatten(vertices)}
}

// NewPolyline returns a polyline through the given vertices.
func NewPolyline(vertices []r3.Vec) Primitive {
	return Primitive{Type: Polyline, Vertices: flatten(vertices)}
}

// NewPoints returns a point cloud from flat positions and RGBA colours.
func NewPoints(vertices []float64, colors []uint8) Primitive {
	return Primitive{Type: Point, Vertices: vertices, Colors: colors}
}

// NewCircle returns a circle around center.
func NewCircle(center r3.Vec, radius float64) Primitive {
	return Primitive{Type: Circle, Vertices: []float64{center.X, center.Y, center.Z}, Radius: radius}
}

// NewImage returns an encoded image primitive.
func NewImage(data []byte, width, height int) Primitive {
	return Primitive{Type: Image, Data: data, Width: width, Height: height}
}

// WithID tags the primitive with a stable object id.
func (p Primitive) WithID(id string) Primitive {
	p.ID = id
	return p
}

// WithClasses sets the style classes applied to the primitive.
func (p Primitive) WithClasses(classes ...string) Primitive {
	p.Classes = classes
	return p
}

// WithStyle sets a per-primitive style override.
func (p Primitive) WithStyle(s Style) Primitive {
	p.Style = s
	return p
}

// PointCount is the number of vertices.
func (p Primitive) PointCount() int {
	return len(p.Vertices) / 3
}

// Validate checks the vertex and colour list shapes.
func (p Primitive) Validate() error {
	if len(p.Vertices)%3 != 0 {
		return fmt.Errorf("%w: %s has %d coordinates, not a multiple of 3", ErrInvalidPrimitive, p.Type, len(p.Vertices))
	}
	switch p.Type {
	case Point:
		if p.Colors != nil && len(p.Colors) != 4*p.PointCount() {
			return fmt.Errorf("%w: %d colour bytes for %d points", ErrInvalidPrimitive, len(p.Colors), p.PointCount())
		}
	case Circle:
		if p.PointCount() != 1 || p.Radius <= 0 {
			return fmt.Errorf("%w: circle needs one centre and a positive radius", ErrInvalidPrimitive)
		}
	case Image:
		if len(p.Data) == 0 || p.Width <= 0 || p.Height <= 0 {
			return fmt.Errorf("%w: empty image", ErrInvalidPrimitive)
		}
	case Polygon, Polyline:
		if p.PointCount() < 2 {
			return fmt.Errorf("%w: %s needs at least 2 vertices", ErrInvalidPrimitive, p.Type)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidPrimitive, p.Type)
	}
	return nil
}

func flatten(vs []r3.Vec) []float64 {
	out := make([]float64, 0, 3*len(vs))
	for _, v := range vs {
		out = append(out, v.X, v.Y, v.Z)
	}
	return out
}

// PoseSample is the vehicle pose written on a pose stream.
type PoseSample struct {
	Timestamp   float64
	MapOrigin   [3]float64 // longitude, latitude, altitude
	Position    r3.Vec
	Orientation geom.Euler
}

// FutureInstances holds predicted primitives grouped by future timestamp.
type FutureInstances struct {
	Timestamps []float64
	Primitives [][]Primitive
}

func (f *FutureInstances) add(ts float64, p Primitive) {
	for i, t := range f.Timestamps {
		if t == ts {
			f.Primitives[i] = append(f.Primitives[i], p)
			return
		}
	}
	f.Timestamps = append(f.Timestamps, ts)
	f.Primitives = append(f.Primitives, []Primitive{p})
}
