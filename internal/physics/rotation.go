package physics

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

var identity = r3.Rotation{Real: 1}

// compose returns the rotation that applies b then a.
func compose(a, b r3.Rotation) r3.Rotation {
	return r3.Rotation(quat.Mul(quat.Number(a), quat.Number(b)))
}

func inverse(r r3.Rotation) r3.Rotation {
	return r3.Rotation(quat.Conj(quat.Number(r)))
}

func mulMat3(m [3][3]float64, v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// applyInertia computes R·I·Rᵀ·v for a body-frame inertia I.
func applyInertia(rot r3.Rotation, inertia [3][3]float64, v r3.Vec) r3.Vec {
	return rot.Rotate(mulMat3(inertia, inverse(rot).Rotate(v)))
}

// rotateInertia re-expresses a tensor given in a frame rotated by rot.
func rotateInertia(rot r3.Rotation, inertia [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	basis := [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
	for col, e := range basis {
		c := applyInertia(rot, inertia, e)
		out[0][col], out[1][col], out[2][col] = c.X, c.Y, c.Z
	}
	return out
}

// yawPitchRoll decomposes r as Rz(yaw)·Ry(pitch)·Rx(roll).
func yawPitchRoll(r r3.Rotation) (yaw, pitch, roll float64) {
	w, x, y, z := r.Real, r.Imag, r.Jmag, r.Kmag
	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	s := 2 * (w*y - z*x)
	s = math.Max(-1, math.Min(1, s))
	pitch = math.Asin(s)
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return yaw, pitch, roll
}
