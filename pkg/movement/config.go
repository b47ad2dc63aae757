package movement

import (
	"fmt"

	"github.com/cfoust/strafe/pkg/physics"
)

// Config holds the tuning for a player controller. Every client must use the
// same values as the server or prediction will drift.
type Config struct {
	Radius          float32
	UprightHeight   float32
	CrouchHeight    float32
	EyeHeightOffset float32
	// Capsule selects a capsule collider instead of a cylinder. Step-up only
	// works with cylinders.
	Capsule bool

	FlySpeed     float32
	FastFlySpeed float32
	FlyFriction  float32

	Gravity         float32
	WalkSpeed       float32
	RunSpeed        float32
	CrouchedSpeed   float32
	ForwardSpeed    float32
	SideSpeed       float32
	AirSpeedCap     float32
	AirAcceleration float32
	MaxAirSpeed     float32
	Acceleration    float32
	Friction        float32
	StopSpeed       float32
	JumpSpeed       float32

	// Ground whose normal has a smaller dot product with up than this is too
	// steep to stand on.
	TractionNormalCutoff float32
	FrictionSpeedCutoff  float32

	CrouchSpeed   float32
	UncrouchSpeed float32
	StepOffset    float32
}

func DefaultConfig() Config {
	return Config{
		Radius:               0.5,
		UprightHeight:        3.0,
		CrouchHeight:         1.5,
		EyeHeightOffset:      2.0,
		FlySpeed:             10.0,
		FastFlySpeed:         30.0,
		FlyFriction:          0.5,
		Gravity:              23.0,
		WalkSpeed:            9.0,
		RunSpeed:             14.0,
		CrouchedSpeed:        5.0,
		ForwardSpeed:         30.0,
		SideSpeed:            30.0,
		AirSpeedCap:          2.0,
		AirAcceleration:      80.0,
		MaxAirSpeed:          15.0,
		Acceleration:         10.0,
		Friction:             10.0,
		StopSpeed:            1.0,
		JumpSpeed:            8.5,
		TractionNormalCutoff: 0.7,
		FrictionSpeedCutoff:  0.1,
		CrouchSpeed:          6.0,
		UncrouchSpeed:        8.0,
		StepOffset:           0.25,
	}
}

func (c *Config) Validate() error {
	positive := map[string]float32{
		"radius":        c.Radius,
		"uprightHeight": c.UprightHeight,
		"crouchHeight":  c.CrouchHeight,
		"walkSpeed":     c.WalkSpeed,
		"runSpeed":      c.RunSpeed,
		"crouchedSpeed": c.CrouchedSpeed,
		"maxAirSpeed":   c.MaxAirSpeed,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, value)
		}
	}

	if c.CrouchHeight > c.UprightHeight {
		return fmt.Errorf(
			"crouchHeight (%f) is taller than uprightHeight (%f)",
			c.CrouchHeight,
			c.UprightHeight,
		)
	}

	if c.Capsule && c.CrouchHeight < 2*c.Radius {
		return fmt.Errorf("a capsule cannot crouch below twice its radius")
	}

	if c.StepOffset < 0 {
		return fmt.Errorf("stepOffset cannot be negative")
	}

	return nil
}

// Collider returns the upright collider for a new player.
func (c *Config) Collider() physics.Collider {
	if c.Capsule {
		return physics.Capsule(c.UprightHeight/2-c.Radius, c.Radius)
	}
	return physics.Cylinder(c.UprightHeight/2, c.Radius)
}
