package sensor

import "math"

// Radar colour ramp limits.
const (
	RadarMaxSpeed = 30.0  // m/s mapped to full velocity colour
	RadarMinRCSdB = -10.0 // dBsm mapped to zero
	RadarRCSRange = 30.0  // dBsm span of the RCS ramp
)

// IntensityColor maps a LiDAR return intensity (0-255) to a grey-blue RGBA.
func IntensityColor(intensity float64) [4]uint8 {
	n := clip01(intensity / 255)
	return [4]uint8{
		uint8(80 + n*80),
		uint8(80 + n*80),
		uint8(80 + n*60),
		255,
	}
}

// RadarColor colours a radar return by compensated speed (red for fast, blue
// for slow) and radar cross section (green and opacity).
func RadarColor(vx, vy, rcs float64) [4]uint8 {
	vn := clip01(math.Hypot(vx, vy) / RadarMaxSpeed)
	rcsDB := 10 * math.Log10(math.Max(rcs, 1e-10))
	rn := clip01((rcsDB - RadarMinRCSdB) / RadarRCSRange)
	return [4]uint8{
		uint8(50 + vn*205),
		uint8(50 + rn*100),
		uint8(50 + (1-vn)*205),
		uint8(100 + rn*155),
	}
}

func clip01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
