// Package movement is the player controller. Step is deterministic: the
// server runs it with inputs received from clients and each client runs it
// ahead of the server for its own player.
package movement

import (
	"errors"
	"fmt"

	"github.com/cfoust/strafe/pkg/geom"
	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/physics"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// How far below the collider the ground may be for the player to count
	// as standing on it.
	GROUNDED_DISTANCE float32 = 0.125
	// Lateral shrink for the ground probe so that walls are not mistaken for
	// floors.
	SLIGHT_SCALE_DOWN float32 = 0.9375
)

var ErrUnsupportedCollider = errors.New("controller must use a cylinder or capsule collider")

// State is everything the simulation knows about one player.
type State struct {
	Mode     Mode
	Look     input.Look
	Height   float32
	Collider physics.Collider
	Position mgl32.Vec3
	Scale    mgl32.Vec3
	Velocity mgl32.Vec3
}

func NewState(config *Config, position mgl32.Vec3) State {
	return State{
		Mode:     Ground{},
		Height:   config.UprightHeight,
		Collider: config.Collider(),
		Position: position,
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Grounded reports whether the controller touched the ground last tick.
func (s *State) Grounded() bool {
	ground, ok := s.Mode.(Ground)
	return ok && ground.Tick > 0
}

// Eye returns the point hitscan rays start from.
func (s *State) Eye(config *Config) mgl32.Vec3 {
	return s.Position.Add(geom.Up.Mul(config.EyeHeightOffset))
}

func checkCollider(collider physics.Collider) error {
	switch collider.Kind {
	case physics.ShapeCylinder, physics.ShapeCapsule:
		return nil
	}
	return fmt.Errorf("%w, not a %s", ErrUnsupportedCollider, collider.Kind)
}

// Step advances the controller by dt. It changes velocity, collider height
// and, when stepping up onto a ledge, position; moving the body along its
// velocity is left to the physics world.
func Step(
	config *Config,
	state *State,
	sample input.Sample,
	dt float32,
	caster physics.Caster,
	self physics.EntityID,
) error {
	if err := checkCollider(state.Collider); err != nil {
		return err
	}

	sample = input.Apply(&state.Look, sample)
	state.Mode = Transition(state.Mode, sample)

	switch mode := state.Mode.(type) {
	case Noclip:
		fly(config, state, sample)
	case Ground:
		state.Mode = walk(config, state, mode, sample, dt, caster, self)
	}

	return nil
}

func fly(config *Config, state *State, sample input.Sample) {
	if geom.IsZero(sample.Movement) {
		friction := geom.Clamp(config.FlyFriction, 0, 1)
		state.Velocity = state.Velocity.Mul(1 - friction)
		if geom.LenSqr(state.Velocity) < geom.Epsilon {
			state.Velocity = mgl32.Vec3{}
		}
		return
	}

	speed := config.FlySpeed
	if sample.Sprint {
		speed = config.FastFlySpeed
	}

	world := geom.LookBasis(state.Look.Yaw, state.Look.Pitch)
	state.Velocity = world.Mul3x1(sample.Movement).Mul(speed)
}

// accelerate returns the velocity to add to reach wishSpeed along
// wishDirection without overshooting it.
func accelerate(
	wishDirection mgl32.Vec3,
	wishSpeed float32,
	acceleration float32,
	velocity mgl32.Vec3,
	dt float32,
) mgl32.Vec3 {
	projection := velocity.Dot(wishDirection)
	addSpeed := wishSpeed - projection
	if addSpeed <= 0 {
		return mgl32.Vec3{}
	}

	speed := acceleration * wishSpeed * dt
	if speed > addSpeed {
		speed = addSpeed
	}
	return wishDirection.Mul(speed)
}
