// Package input turns device state into per-tick samples and hands them to
// the simulation, either locally for prediction or from the network on the
// server.
package input

import (
	"math"

	"github.com/cfoust/strafe/pkg/geom"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	DEFAULT_SENSITIVITY float32 = 0.001
	// Keeps pitch just inside straight up and straight down.
	ANGLE_EPSILON float32 = 0.001953125
	MAX_PITCH             = math.Pi/2 - ANGLE_EPSILON
)

// Sample is everything a player asked for during one tick.
type Sample struct {
	_ struct{} `cbor:",toarray"`
	// X is lateral, Y is vertical (noclip only), Z is forward. Each in [-1, 1].
	Movement mgl32.Vec3
	Jump     bool
	Crouch   bool
	Sprint   bool
	// Fly toggles between ground movement and noclip. Raised for one tick
	// per key press.
	Fly    bool
	Shoot  bool
	Reload bool
	Pitch  float32
	Yaw    float32
}

// Held returns the sample with its one-shot flags cleared, which is what
// repeating it for a missing tick should look like.
func (s Sample) Held() Sample {
	s.Fly = false
	s.Reload = false
	return s
}

type Look struct {
	Pitch float32
	Yaw   float32
}

// Apply turns a mouse delta into new look angles.
func (l *Look) Apply(delta mgl32.Vec2, sensitivity float32) {
	delta = delta.Mul(sensitivity)
	l.Pitch = geom.Clamp(l.Pitch-delta.Y(), -MAX_PITCH, MAX_PITCH)
	l.Yaw = wrapYaw(l.Yaw - delta.X())
}

// Apply hands a sample to a controller's look angles and returns the sample
// as the simulation should see it. Both the predicting client and the server
// go through here, so a sample behaves the same wherever it came from.
func Apply(look *Look, sample Sample) Sample {
	sample = Sanitize(sample)
	look.Pitch = sample.Pitch
	look.Yaw = sample.Yaw
	return sample
}

// Sanitize clamps a sample into the ranges a well-behaved client produces.
func Sanitize(sample Sample) Sample {
	for i := 0; i < 3; i++ {
		sample.Movement[i] = geom.Clamp(finite(sample.Movement[i]), -1, 1)
	}
	sample.Pitch = geom.Clamp(finite(sample.Pitch), -MAX_PITCH, MAX_PITCH)
	sample.Yaw = wrapYaw(finite(sample.Yaw))
	return sample
}

func wrapYaw(yaw float32) float32 {
	if abs(yaw) > math.Pi {
		return geom.WrapAngle(yaw)
	}
	return yaw
}

func finite(x float32) float32 {
	if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
		return 0
	}
	return x
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
