// Package geom provides vector and orientation helpers shared by the simulation.
// The horizontal plane is XZ; +Y is up and +Z is the identity forward.
package geom

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-6

var (
	Up      = mgl64.Vec3{0, 1, 0}
	Forward = mgl64.Vec3{0, 0, 1}
)

// Horizontal projects v onto the XZ plane.
func Horizontal(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], 0, v[2]}
}

// NormalizeOr returns v normalized, or fallback if v is degenerate.
func NormalizeOr(v, fallback mgl64.Vec3) mgl64.Vec3 {
	if !Finite(v) {
		return fallback
	}
	l := v.Len()
	if l < Epsilon {
		return fallback
	}
	return v.Mul(1 / l)
}

// ClampLen caps the length of v at max.
func ClampLen(v mgl64.Vec3, max float64) mgl64.Vec3 {
	l := v.Len()
	if l > max && l > 0 {
		return v.Mul(max / l)
	}
	return v
}

// Finite reports whether every component of v is a real number.
func Finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// FiniteQuat reports whether q holds only real numbers and is not degenerate.
func FiniteQuat(q mgl64.Quat) bool {
	if math.IsNaN(q.W) || math.IsInf(q.W, 0) || !Finite(q.V) {
		return false
	}
	return q.Len() > Epsilon
}

// ForwardOf returns the forward vector of orientation q.
func ForwardOf(q mgl64.Quat) mgl64.Vec3 {
	return q.Rotate(Forward)
}

// HeadingOf returns the horizontal unit forward of q, falling back to +Z
// when the agent points straight up or down.
func HeadingOf(q mgl64.Quat) mgl64.Vec3 {
	return NormalizeOr(Horizontal(ForwardOf(q)), Forward)
}

// Yaw returns the rotation about +Y that maps +Z onto dir's horizontal part.
func Yaw(dir mgl64.Vec3) float64 {
	return math.Atan2(dir[0], dir[2])
}

// YawQuat builds an orientation from a yaw angle in radians.
func YawQuat(yaw float64) mgl64.Quat {
	return mgl64.QuatRotate(yaw, Up)
}

// Right returns the horizontal perpendicular of fwd, clockwise seen from above.
func Right(fwd mgl64.Vec3) mgl64.Vec3 {
	return NormalizeOr(Up.Cross(Horizontal(fwd)), mgl64.Vec3{1, 0, 0})
}

// WrapAngle wraps an angle to [-Pi, Pi].
func WrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// Clamp clamps v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampVec clamps each component of v to the box [lo, hi].
func ClampVec(v, lo, hi mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		Clamp(v[0], lo[0], hi[0]),
		Clamp(v[1], lo[1], hi[1]),
		Clamp(v[2], lo[2], hi[2]),
	}
}

// RandomInDisc returns a uniformly distributed horizontal offset within radius.
func RandomInDisc(rng *rand.Rand, radius float64) mgl64.Vec3 {
	r := radius * math.Sqrt(rng.Float64())
	theta := rng.Float64() * 2 * math.Pi
	return mgl64.Vec3{r * math.Cos(theta), 0, r * math.Sin(theta)}
}

// Vec converts a config triple to a vector.
func Vec(a [3]float64) mgl64.Vec3 {
	return mgl64.Vec3{a[0], a[1], a[2]}
}
