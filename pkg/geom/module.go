// Package geom holds the handful of vector helpers shared by the simulation,
// the physics arena and the client.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	Up      = mgl32.Vec3{0, 1, 0}
	Right   = mgl32.Vec3{1, 0, 0}
	Forward = mgl32.Vec3{0, 0, -1}
)

const Epsilon float32 = 1.1920929e-07

func Lateral(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{v.X(), 0, v.Z()}
}

func LateralLen(v mgl32.Vec3) float32 {
	return float32(math.Hypot(float64(v.X()), float64(v.Z())))
}

func LenSqr(v mgl32.Vec3) float32 {
	return v.Dot(v)
}

func IsZero(v mgl32.Vec3) bool {
	return v.X() == 0 && v.Y() == 0 && v.Z() == 0
}

// NormalizeOrZero returns the unit vector along v, or the zero vector when v
// is too short to have a direction.
func NormalizeOrZero(v mgl32.Vec3) mgl32.Vec3 {
	length := v.Len()
	if length <= Epsilon {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / length)
}

// YawBasis rotates local movement into the world around +Y. Local +Z maps
// onto Forward.
func YawBasis(yaw float32) mgl32.Mat3 {
	m := mgl32.Rotate3DY(yaw)
	m.SetCol(2, m.Col(2).Mul(-1))
	return m
}

// LookBasis is YawBasis with pitch applied to the forward axis while keeping
// vertical movement aligned with the world.
func LookBasis(yaw, pitch float32) mgl32.Mat3 {
	m := mgl32.Rotate3DY(yaw).Mul3(mgl32.Rotate3DX(pitch))
	m.SetCol(2, m.Col(2).Mul(-1))
	m.SetCol(1, Up)
	return m
}

// LookRotation is the eye orientation for the given angles, yaw first.
func LookRotation(yaw, pitch float32) mgl32.Quat {
	return mgl32.QuatRotate(yaw, Up).Mul(mgl32.QuatRotate(pitch, Right))
}

func Lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// LerpAngle blends two angles along the shortest arc.
func LerpAngle(a, b, t float32) float32 {
	delta := WrapAngle(b - a)
	return WrapAngle(a + delta*t)
}

// WrapAngle maps an angle into (-π, π].
func WrapAngle(angle float32) float32 {
	wrapped := float32(math.Mod(float64(angle)+math.Pi, 2*math.Pi))
	if wrapped <= 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}

func Clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
