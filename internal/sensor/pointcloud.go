// Package sensor decodes raw sensor payloads (LiDAR sweeps, radar PCD files
// and camera images) into the numeric arrays and encoded images the
// converters consume.
package sensor

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LidarFields is the field count of a .pcd.bin sweep: x, y, z, intensity,
// ring index.
const LidarFields = 5

// RadarFieldNames is the nuScenes radar field order, used for headerless
// radar files stored as raw float32 rows.
var RadarFieldNames = []string{
	"x", "y", "z", "dyn_prop", "id", "rcs", "vx", "vy", "vx_comp", "vy_comp",
	"is_quality_valid", "ambig_state", "x_rms", "y_rms", "invalid_state", "pdh0", "vx_rms", "vy_rms",
}

// ReadFloat32Points decodes little-endian float32 rows of width fields. It
// returns the flat values and the row count. A trailing partial row is an
// error.
func ReadFloat32Points(data []byte, width int) ([]float32, int, error) {
	if width <= 0 {
		return nil, 0, fmt.Errorf("invalid field width %d", width)
	}
	rowBytes := 4 * width
	if len(data)%rowBytes != 0 {
		return nil, 0, fmt.Errorf("payload of %d bytes is not a multiple of %d-byte rows", len(data), rowBytes)
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return out, len(data) / rowBytes, nil
}

// PointCloud is a decoded PCD file with per-field columns.
type PointCloud struct {
	Fields  []string
	Count   int
	columns map[string][]float64
}

// Column returns the values of the named field.
func (pc *PointCloud) Column(name string) ([]float64, bool) {
	c, ok := pc.columns[name]
	return c, ok
}

type pcdField struct {
	name string
	size int
	typ  byte
}

// ReadPCD decodes a PCD v0.7 file with binary or ascii data. Payloads that
// carry no PCD header are read as raw float32 rows in RadarFieldNames order.
func ReadPCD(data []byte) (*PointCloud, error) {
	if !looksLikePCD(data) {
		return readHeaderlessRadar(data)
	}

	r := bufio.NewReader(bytes.NewReader(data))
	var (
		names  []string
		sizes  []int
		types  []string
		counts []int
		points = -1
		mode   string
		offset int
	)
	for mode == "" {
		line, err := r.ReadString('\n')
		offset += len(line)
		if err != nil {
			return nil, fmt.Errorf("pcd header: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		switch strings.ToUpper(parts[0]) {
		case "FIELDS":
			names = parts[1:]
		case "SIZE":
			if sizes, err = atois(parts[1:]); err != nil {
				return nil, fmt.Errorf("pcd SIZE: %w", err)
			}
		case "TYPE":
			types = parts[1:]
		case "COUNT":
			if counts, err = atois(parts[1:]); err != nil {
				return nil, fmt.Errorf("pcd COUNT: %w", err)
			}
		case "POINTS":
			if len(parts) < 2 {
				return nil, fmt.Errorf("pcd POINTS: missing value")
			}
			if points, err = strconv.Atoi(parts[1]); err != nil {
				return nil, fmt.Errorf("pcd POINTS: %w", err)
			}
		case "DATA":
			if len(parts) < 2 {
				return nil, fmt.Errorf("pcd DATA: missing mode")
			}
			mode = strings.ToLower(parts[1])
		}
	}
	if counts == nil {
		counts = make([]int, len(names))
		for i := range counts {
			counts[i] = 1
		}
	}
	if len(names) == 0 || len(sizes) != len(names) || len(types) != len(names) || len(counts) != len(names) || points < 0 {
		return nil, fmt.Errorf("pcd header inconsistent: %d fields, %d sizes, %d types, %d counts", len(names), len(sizes), len(types), len(counts))
	}

	var fields []pcdField
	for i, n := range names {
		if len(types[i]) != 1 {
			return nil, fmt.Errorf("pcd TYPE %q", types[i])
		}
		for c := 0; c < counts[i]; c++ {
			name := n
			if c > 0 {
				name = n + "_" + strconv.Itoa(c)
			}
			fields = append(fields, pcdField{name: name, size: sizes[i], typ: types[i][0]})
		}
	}

	pc := &PointCloud{Count: points, columns: make(map[string][]float64, len(fields))}
	for _, f := range fields {
		pc.Fields = append(pc.Fields, f.name)
		pc.columns[f.name] = make([]float64, points)
	}

	switch mode {
	case "binary":
		return pc, decodeBinaryRows(pc, fields, data[offset:])
	case "ascii":
		return pc, decodeASCIIRows(pc, fields, r)
	default:
		return nil, fmt.Errorf("unsupported pcd data mode %q", mode)
	}
}

func looksLikePCD(data []byte) bool {
	head := data
	if len(head) > 64 {
		head = head[:64]
	}
	return bytes.HasPrefix(head, []byte("#")) || bytes.HasPrefix(head, []byte("VERSION")) || bytes.HasPrefix(head, []byte("FIELDS"))
}

func readHeaderlessRadar(data []byte) (*PointCloud, error) {
	values, n, err := ReadFloat32Points(data, len(RadarFieldNames))
	if err != nil {
		return nil, err
	}
	pc := &PointCloud{Fields: RadarFieldNames, Count: n, columns: make(map[string][]float64)}
	for fi, name := range RadarFieldNames {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = float64(values[i*len(RadarFieldNames)+fi])
		}
		pc.columns[name] = col
	}
	return pc, nil
}

func decodeBinaryRows(pc *PointCloud, fields []pcdField, body []byte) error {
	rowSize := 0
	for _, f := range fields {
		rowSize += f.size
	}
	if len(body) < rowSize*pc.Count {
		return fmt.Errorf("pcd body has %d bytes, need %d for %d points", len(body), rowSize*pc.Count, pc.Count)
	}
	for i := 0; i < pc.Count; i++ {
		off := i * rowSize
		for _, f := range fields {
			v, err := decodeValue(body[off:off+f.size], f)
			if err != nil {
				return err
			}
			pc.columns[f.name][i] = v
			off += f.size
		}
	}
	return nil
}

func decodeValue(b []byte, f pcdField) (float64, error) {
	le := binary.LittleEndian
	switch {
	case f.typ == 'F' && f.size == 4:
		return float64(math.Float32frombits(le.Uint32(b))), nil
	case f.typ == 'F' && f.size == 8:
		return math.Float64frombits(le.Uint64(b)), nil
	case f.typ == 'I' && f.size == 1:
		return float64(int8(b[0])), nil
	case f.typ == 'I' && f.size == 2:
		return float64(int16(le.Uint16(b))), nil
	case f.typ == 'I' && f.size == 4:
		return float64(int32(le.Uint32(b))), nil
	case f.typ == 'I' && f.size == 8:
		return float64(int64(le.Uint64(b))), nil
	case f.typ == 'U' && f.size == 1:
		return float64(b[0]), nil
	case f.typ == 'U' && f.size == 2:
		return float64(le.Uint16(b)), nil
	case f.typ == 'U' && f.size == 4:
		return float64(le.Uint32(b)), nil
	case f.typ == 'U' && f.size == 8:
		return float64(le.Uint64(b)), nil
	}
	return 0, fmt.Errorf("unsupported pcd field %s: type %c size %d", f.name, f.typ, f.size)
}

func decodeASCIIRows(pc *PointCloud, fields []pcdField, r *bufio.Reader) error {
	for i := 0; i < pc.Count; i++ {
		line, err := r.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) < len(fields) {
			if err != nil {
				return fmt.Errorf("pcd ascii row %d: %w", i, err)
			}
			return fmt.Errorf("pcd ascii row %d has %d values, want %d", i, len(parts), len(fields))
		}
		for fi, f := range fields {
			v, perr := strconv.ParseFloat(parts[fi], 64)
			if perr != nil {
				return fmt.Errorf("pcd ascii row %d field %s: %w", i, f.name, perr)
			}
			pc.columns[f.name][i] = v
		}
	}
	return nil
}

func atois(parts []string) ([]int, error) {
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
