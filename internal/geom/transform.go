package geom

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a rigid transform taking coordinates in a child frame into
// its parent frame: p' = R·p + t.
type Transform struct {
	Translation r3.Vec
	Rotation    quat.Number
}

// Identity returns the transform that leaves points unchanged.
func Identity() Transform {
	return Transform{Rotation: quat.Number{Real: 1}}
}

// NewTransform builds a transform from a dataset translation and a
// scalar-first rotation quaternion.
func NewTransform(translation [3]float64, rotation [4]float64) Transform {
	return Transform{
		Translation: r3.Vec{X: translation[0], Y: translation[1], Z: translation[2]},
		Rotation:    QuatFromArray(rotation),
	}
}

// Apply maps a child-frame point into the parent frame.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(Rotate(t.Rotation, p), t.Translation)
}

// ApplyInverse maps a parent-frame point into the child frame by subtracting
// the translation and rotating by the conjugate.
func (t Transform) ApplyInverse(p r3.Vec) r3.Vec {
	return Rotate(quat.Conj(t.Rotation), r3.Sub(p, t.Translation))
}

// Then returns the transform equivalent to applying t and then outer.
func (t Transform) Then(outer Transform) Transform {
	return Transform{
		Translation: outer.Apply(t.Translation),
		Rotation:    Normalize(quat.Mul(outer.Rotation, t.Rotation)),
	}
}

// Inverse returns the transform mapping parent coordinates into the child.
func (t Transform) Inverse() Transform {
	inv := quat.Conj(t.Rotation)
	return Transform{
		Translation: Rotate(inv, r3.Scale(-1, t.Translation)),
		Rotation:    inv,
	}
}

// Matrix returns the row-major 4x4 homogeneous matrix of t.
func (t Transform) Matrix() [16]float64 {
	r := Matrix(t.Rotation)
	return [16]float64{
		r[0], r[1], r[2], t.Translation.X,
		r[3], r[4], r[5], t.Translation.Y,
		r[6], r[7], r[8], t.Translation.Z,
		0, 0, 0, 1,
	}
}

// ApplyMatrix transforms (x, y, z) by a row-major 4x4 homogeneous matrix.
func ApplyMatrix(x, y, z float64, m [16]float64) (float64, float64, float64) {
	return m[0]*x + m[1]*y + m[2]*z + m[3],
		m[4]*x + m[5]*y + m[6]*z + m[7],
		m[8]*x + m[9]*y + m[10]*z + m[11]
}

// ToVehicleFrame expresses a world point relative to the ego vehicle.
func ToVehicleFrame(p r3.Vec, ego Pose) r3.Vec {
	return ego.Transform().ApplyInverse(p)
}

// ToWorldFrame expresses a vehicle-relative point in world coordinates.
func ToWorldFrame(p r3.Vec, ego Pose) r3.Vec {
	return ego.Transform().Apply(p)
}
