package geom

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is a resolved pose in the world frame. Orientation is kept both as
// the normalized quaternion and as its extrinsic XYZ Euler decomposition.
type Pose struct {
	Timestamp   float64 // seconds
	Position    r3.Vec
	Orientation quat.Number
	Euler       Euler
}

// Resolve converts a raw dataset pose (translation plus scalar-first
// quaternion) into a Pose.
func Resolve(translation [3]float64, rotation [4]float64, timestamp float64) Pose {
	q := QuatFromArray(rotation)
	return Pose{
		Timestamp:   timestamp,
		Position:    r3.Vec{X: translation[0], Y: translation[1], Z: translation[2]},
		Orientation: q,
		Euler:       ToEuler(q),
	}
}

// Transform returns the vehicle-to-world transform of the pose.
func (p Pose) Transform() Transform {
	return Transform{Translation: p.Position, Rotation: p.Orientation}
}

// Heading returns the ground-plane yaw of the pose in radians.
func (p Pose) Heading() float64 {
	return Heading(p.Orientation)
}

// Lookahead returns up to n positions from poses starting at index i
// (inclusive). It stops early at the end of the sequence and returns nil when
// i is out of range.
func Lookahead(poses []Pose, i, n int) []r3.Vec {
	if i < 0 || i >= len(poses) || n <= 0 {
		return nil
	}
	end := i + n
	if end > len(poses) {
		end = len(poses)
	}
	out := make([]r3.Vec, 0, end-i)
	for _, p := range poses[i:end] {
		out = append(out, p.Position)
	}
	return out
}
