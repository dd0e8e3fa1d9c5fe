package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
)

// Float32Points encodes rows of float32 fields little-endian, the layout of
// .pcd.bin LiDAR sweeps.
func Float32Points(rows ...[]float32) []byte {
	var buf bytes.Buffer
	for _, r := range rows {
		for _, v := range r {
			_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
		}
	}
	return buf.Bytes()
}

// radarFields is the nuScenes radar PCD field layout.
var radarFields = []struct {
	name string
	size int
	typ  byte
}{
	{"x", 4, 'F'}, {"y", 4, 'F'}, {"z", 4, 'F'}, {"dyn_prop", 1, 'I'}, {"id", 2, 'I'},
	{"rcs", 4, 'F'}, {"vx", 4, 'F'}, {"vy", 4, 'F'}, {"vx_comp", 4, 'F'}, {"vy_comp", 4, 'F'},
	{"is_quality_valid", 1, 'I'}, {"ambig_state", 1, 'I'}, {"x_rms", 1, 'I'}, {"y_rms", 1, 'I'},
	{"invalid_state", 1, 'I'}, {"pdh0", 1, 'I'}, {"vx_rms", 1, 'I'}, {"vy_rms", 1, 'I'},
}

// RadarPoint holds the radar fields the converter reads.
type RadarPoint struct {
	X, Y, Z        float32
	RCS            float32
	VxComp, VyComp float32
}

// RadarPCD encodes points as a binary PCD v0.7 file with the nuScenes radar
// field layout.
func RadarPCD(points ...RadarPoint) []byte {
	var hdr bytes.Buffer
	hdr.WriteString("# .PCD v0.7 - Point Cloud Data file format\nVERSION 0.7\nFIELDS")
	for _, f := range radarFields {
		hdr.WriteString(" " + f.name)
	}
	hdr.WriteString("\nSIZE")
	for _, f := range radarFields {
		fmt.Fprintf(&hdr, " %d", f.size)
	}
	hdr.WriteString("\nTYPE")
	for _, f := range radarFields {
		fmt.Fprintf(&hdr, " %c", f.typ)
	}
	hdr.WriteString("\nCOUNT")
	for range radarFields {
		hdr.WriteString(" 1")
	}
	fmt.Fprintf(&hdr, "\nWIDTH %d\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS %d\nDATA binary\n", len(points), len(points))

	for _, p := range points {
		values := map[string]float32{
			"x": p.X, "y": p.Y, "z": p.Z, "rcs": p.RCS, "vx_comp": p.VxComp, "vy_comp": p.VyComp,
		}
		for _, f := range radarFields {
			switch {
			case f.typ == 'F':
				_ = binary.Write(&hdr, binary.LittleEndian, values[f.name])
			case f.size == 1:
				hdr.WriteByte(0)
			default:
				_ = binary.Write(&hdr, binary.LittleEndian, int16(0))
			}
		}
	}
	return hdr.Bytes()
}

// JPEG encodes a solid-colour image of the given size.
func JPEG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}
