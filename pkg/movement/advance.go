package movement

import (
	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/physics"

	"github.com/go-gl/mathgl/mgl32"
)

// World is a Caster that also owns the bodies it casts against.
type World interface {
	physics.Caster
	Update(id physics.EntityID, position mgl32.Vec3, collider physics.Collider)
	Integrate(id physics.EntityID, velocity mgl32.Vec3, dt float32) (mgl32.Vec3, mgl32.Vec3)
}

// Advance runs one full tick for a body: Step, then moving it through the
// world along the resulting velocity. The server and the predicting client
// both call this so that they agree on where a sample leaves the player.
func Advance(
	config *Config,
	state *State,
	sample input.Sample,
	dt float32,
	world World,
	self physics.EntityID,
) error {
	if err := Step(config, state, sample, dt, world, self); err != nil {
		return err
	}

	// Step-up and crouch change the body before it moves.
	world.Update(self, state.Position, state.Collider)
	state.Position, state.Velocity = world.Integrate(self, state.Velocity, dt)
	return nil
}
