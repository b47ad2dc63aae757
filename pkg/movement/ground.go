package movement

import (
	"math"

	"github.com/cfoust/strafe/pkg/geom"
	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/physics"

	"github.com/go-gl/mathgl/mgl32"
	opt "github.com/repeale/fp-go/option"
)

var down = geom.Up.Mul(-1)

// scaledLaterally shrinks a collider in the XZ plane only.
func scaledLaterally(collider physics.Collider, scale float32) physics.Collider {
	collider.Radius *= scale
	return collider
}

// footOffset is the distance from the center of the collider to its bottom.
func footOffset(collider physics.Collider) mgl32.Vec3 {
	if collider.Kind == physics.ShapeCapsule {
		return geom.Up.Mul(collider.HalfHeight + collider.Radius)
	}
	return geom.Up.Mul(collider.HalfHeight)
}

func maxSpeed(config *Config, sample input.Sample) float32 {
	switch {
	case sample.Crouch:
		return config.CrouchedSpeed
	case sample.Sprint:
		return config.RunSpeed
	}
	return config.WalkSpeed
}

// wish returns the direction and speed the player is trying to move in.
func wish(config *Config, state *State, sample input.Sample) (mgl32.Vec3, float32) {
	local := mgl32.Vec3{
		sample.Movement.X() * config.SideSpeed,
		0,
		sample.Movement.Z() * config.ForwardSpeed,
	}
	direction := geom.YawBasis(state.Look.Yaw).Mul3x1(local)
	speed := direction.Len()
	if speed > geom.Epsilon {
		direction = direction.Mul(1 / speed)
	}
	return direction, min(speed, maxSpeed(config, sample))
}

func walk(
	config *Config,
	state *State,
	mode Ground,
	sample input.Sample,
	dt float32,
	caster physics.Caster,
	self physics.EntityID,
) Ground {
	ground := caster.Sweep(
		state.Position,
		mgl32.QuatIdent(),
		down,
		scaledLaterally(state.Collider, SLIGHT_SCALE_DOWN),
		GROUNDED_DISTANCE,
		self,
	)

	wishDirection, wishSpeed := wish(config, state, sample)
	velocity := state.Velocity

	if opt.IsSome(ground) {
		hit := ground.Value
		traction := hit.Normal.Dot(geom.Up) > config.TractionNormalCutoff

		// Friction waits a tick so that landing and jumping again keeps speed.
		if mode.Tick >= 1 && traction {
			velocity = friction(config, velocity, dt)
			if mode.Tick == 1 {
				velocity[1] = -hit.Distance
			}
		}

		add := accelerate(wishDirection, wishSpeed, config.Acceleration, velocity, dt)
		if !traction {
			add[1] -= config.Gravity * dt
		}
		velocity = velocity.Add(add)

		if traction {
			velocity = velocity.Sub(hit.Normal.Mul(velocity.Dot(hit.Normal)))
			if sample.Jump {
				velocity[1] = config.JumpSpeed
			}
		}

		if mode.Tick < math.MaxUint8 {
			mode.Tick++
		}
	} else {
		mode.Tick = 0
		wishSpeed = min(wishSpeed, config.AirSpeedCap)

		add := accelerate(wishDirection, wishSpeed, config.AirAcceleration, velocity, dt)
		add[1] = -config.Gravity * dt
		velocity = velocity.Add(add)
		velocity = clampAirSpeed(velocity, config.MaxAirSpeed)
	}

	state.Velocity = velocity

	crouch(config, state, sample, dt)
	stepUp(config, state, mode, dt, caster, self)
	preventLedgeFall(config, state, mode, sample, dt, caster, self)

	return mode
}

func friction(config *Config, velocity mgl32.Vec3, dt float32) mgl32.Vec3 {
	lateral := geom.LateralLen(velocity)
	if lateral <= config.FrictionSpeedCutoff {
		return mgl32.Vec3{}
	}

	control := max(lateral, config.StopSpeed)
	drop := control * config.Friction * dt
	scale := max((lateral-drop)/lateral, 0)
	velocity[0] *= scale
	velocity[2] *= scale
	return velocity
}

func clampAirSpeed(velocity mgl32.Vec3, maxAirSpeed float32) mgl32.Vec3 {
	speed := geom.LateralLen(velocity)
	if speed <= maxAirSpeed {
		return velocity
	}
	ratio := maxAirSpeed / speed
	velocity[0] *= ratio
	velocity[2] *= ratio
	return velocity
}

func crouch(config *Config, state *State, sample input.Sample, dt float32) {
	rate := config.UncrouchSpeed
	if sample.Crouch {
		rate = -config.CrouchSpeed
	}
	state.Height = geom.Clamp(state.Height+dt*rate, config.CrouchHeight, config.UprightHeight)

	switch state.Collider.Kind {
	case physics.ShapeCapsule:
		state.Collider.HalfHeight = state.Height*0.5 - state.Collider.Radius
	case physics.ShapeCylinder:
		state.Collider.HalfHeight = state.Height * 0.5
	}
}

// stepUp lifts the player onto a low ledge in front of them instead of
// letting them run into it.
func stepUp(
	config *Config,
	state *State,
	mode Ground,
	dt float32,
	caster physics.Caster,
	self physics.EntityID,
) {
	if state.Collider.Kind != physics.ShapeCylinder ||
		config.StepOffset <= geom.Epsilon ||
		mode.Tick < 1 {
		return
	}

	future := state.Position.Add(state.Velocity.Mul(dt))
	lifted := future.Add(geom.Up.Mul(config.StepOffset))
	cast := caster.Sweep(
		lifted,
		mgl32.QuatIdent(),
		down,
		state.Collider,
		config.StepOffset*SLIGHT_SCALE_DOWN,
		self,
	)
	if opt.IsNone(cast) {
		return
	}

	if cast.Value.Normal.Dot(geom.Up) > config.TractionNormalCutoff {
		state.Position[1] += config.StepOffset - cast.Value.Distance
	}
}
