// Package geom holds the rigid-body math shared by every converter: ego pose
// resolution, quaternion and Euler conversions, world/vehicle transforms and
// oriented box footprints.
//
// Quaternions are gonum quat.Number values with Real as the scalar part, so a
// dataset rotation [w, x, y, z] maps to {Real: w, Imag: x, Jmag: y, Kmag: z}.
package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// gimbalEpsilon is the cos(pitch) below which roll and yaw are no longer
// separable and roll is pinned to zero.
const gimbalEpsilon = 1e-9

// Euler holds extrinsic XYZ angles in radians, composed as
// R = Rz(Yaw) · Ry(Pitch) · Rx(Roll).
type Euler struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// Array returns the angles as [roll, pitch, yaw].
func (e Euler) Array() [3]float64 {
	return [3]float64{e.Roll, e.Pitch, e.Yaw}
}

// Quat builds a normalized quaternion from scalar-first components.
func Quat(w, x, y, z float64) quat.Number {
	return Normalize(quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z})
}

// QuatFromArray builds a normalized quaternion from a scalar-first array as
// stored in dataset records.
func QuatFromArray(r [4]float64) quat.Number {
	return Quat(r[0], r[1], r[2], r[3])
}

// Normalize scales q to unit length. The zero quaternion maps to identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// Matrix returns the row-major 3x3 rotation matrix of a unit quaternion.
func Matrix(q quat.Number) [9]float64 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}
}

// EulerMatrix returns the row-major rotation matrix Rz(yaw)·Ry(pitch)·Rx(roll)
// computed directly from the angles.
func EulerMatrix(e Euler) [9]float64 {
	sr, cr := math.Sincos(e.Roll)
	sp, cp := math.Sincos(e.Pitch)
	sy, cy := math.Sincos(e.Yaw)
	return [9]float64{
		cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr,
		sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr,
		-sp, cp * sr, cp * cr,
	}
}

// ToEuler decomposes q into extrinsic XYZ angles. The pitch sine is clamped
// to [-1, 1] so floating-point overshoot at ±90° cannot leave asin's domain.
// At gimbal lock roll is reported as zero and yaw absorbs the rotation.
func ToEuler(q quat.Number) Euler {
	m := Matrix(Normalize(q))
	pitch := math.Asin(clamp(-m[6], -1, 1))
	if math.Hypot(m[0], m[3]) < gimbalEpsilon {
		return Euler{Pitch: pitch, Yaw: math.Atan2(-m[1], m[4])}
	}
	return Euler{
		Roll:  math.Atan2(m[7], m[8]),
		Pitch: pitch,
		Yaw:   math.Atan2(m[3], m[0]),
	}
}

// FromEuler builds the unit quaternion of Rz(yaw)·Ry(pitch)·Rx(roll).
func FromEuler(e Euler) quat.Number {
	sr, cr := math.Sincos(e.Roll / 2)
	sp, cp := math.Sincos(e.Pitch / 2)
	sy, cy := math.Sincos(e.Yaw / 2)
	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// Heading returns the yaw of the body x axis projected onto the ground
// plane, in radians.
func Heading(q quat.Number) float64 {
	v := Rotate(q, r3.Vec{X: 1})
	return math.Atan2(v.Y, v.X)
}

// Rotate applies the rotation of unit quaternion q to v (q·v·q*).
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vec{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
