package xviz

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Envelope message types.
const (
	TypeMetadata    = "xviz/metadata"
	TypeStateUpdate = "xviz/state_update"
)

// Format selects the byte encoding of envelopes.
type Format string

const (
	FormatJSON     Format = "json"
	FormatProtobuf Format = "protobuf"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatProtobuf, "pb", "binary":
		return FormatProtobuf, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Envelope wraps the metadata in an xviz/metadata message.
func (m *Metadata) Envelope() (*structpb.Struct, error) {
	streams := make(map[string]any, len(m.Streams))
	for _, d := range m.Streams {
		streams[d.StreamID] = declarationValue(d)
	}
	data := map[string]any{
		"version": m.Version,
		"log_info": map[string]any{
			"start_time": m.StartTime,
			"end_time":   m.EndTime,
		},
		"streams": streams,
	}
	return envelope(TypeMetadata, data)
}

func declarationValue(d StreamDeclaration) map[string]any {
	out := map[string]any{"category": string(d.Category)}
	if d.Category == CategoryPose {
		return out
	}
	out["primitive_type"] = string(d.PrimitiveType)
	out["coordinate"] = d.Coordinate.Wire()
	if len(d.Style) > 0 {
		out["stream_style"] = styleValue(d.Style)
	}
	if len(d.StyleClasses) > 0 {
		classes := make([]any, len(d.StyleClasses))
		for i, c := range d.StyleClasses {
			classes[i] = map[string]any{"name": c.Name, "style": styleValue(c.Style)}
		}
		out["style_classes"] = classes
	}
	if d.Transform != nil {
		m := d.Transform.Matrix()
		out["transform"] = floats(m[:])
	}
	return out
}

// Envelope wraps the frame in an xviz/state_update snapshot.
func (f *Frame) Envelope() (*structpb.Struct, error) {
	update := map[string]any{"timestamp": f.Timestamp}
	if len(f.Poses) > 0 {
		poses := make(map[string]any, len(f.Poses))
		for id, p := range f.Poses {
			poses[id] = map[string]any{
				"timestamp": p.Timestamp,
				"map_origin": map[string]any{
					"longitude": p.MapOrigin[0],
					"latitude":  p.MapOrigin[1],
					"altitude":  p.MapOrigin[2],
				},
				"position":    []any{p.Position.X, p.Position.Y, p.Position.Z},
				"orientation": []any{p.Orientation.Roll, p.Orientation.Pitch, p.Orientation.Yaw},
			}
		}
		update["poses"] = poses
	}
	if len(f.Primitives) > 0 {
		prims := make(map[string]any, len(f.Primitives))
		for id, ps := range f.Primitives {
			prims[id] = primitiveSet(ps)
		}
		update["primitives"] = prims
	}
	if len(f.Futures) > 0 {
		futures := make(map[string]any, len(f.Futures))
		for id, fi := range f.Futures {
			order := make([]int, len(fi.Timestamps))
			for i := range order {
				order[i] = i
			}
			sort.SliceStable(order, func(a, b int) bool { return fi.Timestamps[order[a]] < fi.Timestamps[order[b]] })
			ts := make([]any, len(order))
			sets := make([]any, len(order))
			for k, i := range order {
				ts[k] = fi.Timestamps[i]
				sets[k] = primitiveSet(fi.Primitives[i])
			}
			futures[id] = map[string]any{"timestamps": ts, "primitives": sets}
		}
		update["future_instances"] = futures
	}
	data := map[string]any{
		"update_type": "SNAPSHOT",
		"updates":     []any{update},
	}
	return envelope(TypeStateUpdate, data)
}

// primitiveSet groups primitives under the XVIZ plural keys.
func primitiveSet(ps []Primitive) map[string]any {
	out := make(map[string]any)
	add := func(key string, v any) {
		list, _ := out[key].([]any)
		out[key] = append(list, v)
	}
	for _, p := range ps {
		switch p.Type {
		case Polygon:
			add("polygons", withBase(p, map[string]any{"vertices": triples(p.Vertices)}))
		case Polyline:
			add("polylines", withBase(p, map[string]any{"vertices": triples(p.Vertices)}))
		case Point:
			v := map[string]any{"points": floats(p.Vertices)}
			if p.Colors != nil {
				v["colors"] = bytesValue(p.Colors)
			}
			add("points", withBase(p, v))
		case Circle:
			add("circles", withBase(p, map[string]any{"center": floats(p.Vertices[:3]), "radius": p.Radius}))
		case Image:
			add("images", withBase(p, map[string]any{
				"data":      p.Data,
				"width_px":  p.Width,
				"height_px": p.Height,
			}))
		}
	}
	return out
}

func withBase(p Primitive, v map[string]any) map[string]any {
	base := map[string]any{}
	if p.ID != "" {
		base["object_id"] = p.ID
	}
	if len(p.Classes) > 0 {
		classes := make([]any, len(p.Classes))
		for i, c := range p.Classes {
			classes[i] = c
		}
		base["classes"] = classes
	}
	if len(p.Style) > 0 {
		base["style"] = styleValue(p.Style)
	}
	if len(base) > 0 {
		v["base"] = base
	}
	return v
}

func styleValue(s Style) map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		switch v := v.(type) {
		case []uint8:
			out[k] = bytesValue(v)
		case [4]uint8:
			out[k] = bytesValue(v[:])
		case [3]uint8:
			out[k] = bytesValue(v[:])
		case []float64:
			out[k] = floats(v)
		default:
			out[k] = v
		}
	}
	return out
}

func triples(flat []float64) []any {
	out := make([]any, 0, len(flat)/3)
	for i := 0; i+2 < len(flat); i += 3 {
		out = append(out, []any{flat[i], flat[i+1], flat[i+2]})
	}
	return out
}

func floats(v []float64) []any {
	out := make([]any, len(v))
	for i, f := range v {
		out[i] = f
	}
	return out
}

func bytesValue(v []uint8) []any {
	out := make([]any, len(v))
	for i, b := range v {
		out[i] = int(b)
	}
	return out
}

func envelope(typ string, data map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(map[string]any{"type": typ, "data": data})
	if err != nil {
		return nil, fmt.Errorf("failed to build %s envelope: %w", typ, err)
	}
	return s, nil
}

// Marshal encodes an envelope in the given format.
func Marshal(s *structpb.Struct, f Format) ([]byte, error) {
	switch f {
	case FormatProtobuf:
		return proto.Marshal(s)
	default:
		return protojson.Marshal(s)
	}
}

// Unmarshal decodes an envelope previously written by Marshal.
func Unmarshal(data []byte, f Format) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	var err error
	switch f {
	case FormatProtobuf:
		err = proto.Unmarshal(data, s)
	default:
		err = protojson.Unmarshal(data, s)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return s, nil
}

// EnvelopeType returns the "type" field of an envelope.
func EnvelopeType(s *structpb.Struct) string {
	return s.GetFields()["type"].GetStringValue()
}
