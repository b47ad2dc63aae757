package movement

import (
	"math"
	"testing"

	"github.com/cfoust/strafe/pkg/geom"
	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/physics/arena"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func drawVec3(t *rapid.T, name string, limit float32) mgl32.Vec3 {
	return mgl32.Vec3{
		rapid.Float32Range(-limit, limit).Draw(t, name+".x"),
		rapid.Float32Range(-limit, limit).Draw(t, name+".y"),
		rapid.Float32Range(-limit, limit).Draw(t, name+".z"),
	}
}

func TestFrictionNeverAddsSpeed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		config := DefaultConfig()
		config.Friction = rapid.Float32Range(0, 50).Draw(t, "friction")
		step := rapid.Float32Range(0.001, 0.1).Draw(t, "dt")

		velocity := drawVec3(t, "velocity", 50)
		before := geom.LateralLen(velocity)
		after := geom.LateralLen(friction(&config, velocity, step))
		assert.LessOrEqual(t, after, before)
		assert.GreaterOrEqual(t, after, float32(0))
	})
}

func TestAccelerationNeverOvershoots(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		direction := geom.NormalizeOrZero(drawVec3(t, "direction", 1))
		wishSpeed := rapid.Float32Range(0, 30).Draw(t, "wishSpeed")
		acceleration := rapid.Float32Range(0.01, 200).Draw(t, "acceleration")
		step := rapid.Float32Range(0.001, 0.1).Draw(t, "dt")
		velocity := drawVec3(t, "velocity", 40)

		add := accelerate(direction, wishSpeed, acceleration, velocity, step)
		before := velocity.Dot(direction)
		after := velocity.Add(add).Dot(direction)

		if before >= wishSpeed {
			assert.Equal(t, mgl32.Vec3{}, add)
			return
		}
		assert.LessOrEqual(t, after, wishSpeed+1e-4)
		assert.GreaterOrEqual(t, after, before-1e-4)
	})
}

func TestAirSpeedIsClamped(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		world := arena.New()
		config := DefaultConfig()

		state := NewState(&config, mgl32.Vec3{0, 100, 0})
		state.Mode = Ground{Tick: uint8(rapid.IntRange(0, 255).Draw(t, "tick"))}
		state.Velocity = drawVec3(t, "velocity", 60)

		sample := input.Sample{
			Movement: mgl32.Vec3{
				rapid.Float32Range(-1, 1).Draw(t, "side"),
				0,
				rapid.Float32Range(-1, 1).Draw(t, "forward"),
			},
			Sprint: rapid.Bool().Draw(t, "sprint"),
			Crouch: rapid.Bool().Draw(t, "crouch"),
			Yaw:    rapid.Float32Range(-math.Pi, math.Pi).Draw(t, "yaw"),
		}

		require.NoError(t, Step(&config, &state, sample, dt, world, self))
		assert.LessOrEqual(t, geom.LateralLen(state.Velocity), config.MaxAirSpeed+1e-3)
	})
}

func TestCrouchHeightStaysInBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		world := arena.New()
		world.AddStatic(mgl32.Vec3{0, -0.5, 0}, mgl32.Vec3{50, 0.5, 50})

		config := DefaultConfig()
		config.Capsule = rapid.Bool().Draw(t, "capsule")
		state := NewState(&config, mgl32.Vec3{0, 1.5 + arena.SKIN, 0})

		crouches := rapid.SliceOfN(rapid.Bool(), 1, 200).Draw(t, "crouches")
		for i, crouching := range crouches {
			step := rapid.Float32Range(0.001, 0.5).Draw(t, "dt")
			require.NoError(t, Step(&config, &state, input.Sample{Crouch: crouching}, step, world, self))

			assert.GreaterOrEqual(t, state.Height, config.CrouchHeight, "tick %d", i)
			assert.LessOrEqual(t, state.Height, config.UprightHeight, "tick %d", i)
		}
	})
}
