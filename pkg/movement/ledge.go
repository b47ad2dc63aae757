package movement

import (
	"github.com/cfoust/strafe/pkg/geom"
	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/physics"

	"github.com/go-gl/mathgl/mgl32"
	opt "github.com/repeale/fp-go/option"
)

const LEDGE_PASSES = 2

// A thin vertical segment swept back from where the feet are headed. If it
// catches the edge of what the player is standing on, the player is about to
// walk off it.
var ledgeProbe = physics.Capsule(0.25, 0.01)

// preventLedgeFall keeps a crouching player from walking off an edge.
func preventLedgeFall(
	config *Config,
	state *State,
	mode Ground,
	sample input.Sample,
	dt float32,
	caster physics.Caster,
	self physics.EntityID,
) {
	if mode.Tick < 1 || !sample.Crouch || sample.Jump {
		return
	}

	for i := 0; i < LEDGE_PASSES; i++ {
		overhang := overhangComponent(state, dt, caster, self)
		if opt.IsSome(overhang) {
			state.Velocity = state.Velocity.Sub(overhang.Value)
		}
	}

	// Still hanging over after every pass; stop dead.
	if opt.IsSome(overhangComponent(state, dt, caster, self)) {
		state.Velocity = mgl32.Vec3{}
	}
}

// overhangComponent returns the part of the velocity that carries the feet
// past an edge with no ground beneath it.
func overhangComponent(
	state *State,
	dt float32,
	caster physics.Caster,
	self physics.EntityID,
) opt.Option[mgl32.Vec3] {
	velocity := state.Velocity
	foot := state.Position.Sub(footOffset(state.Collider)).Add(velocity.Mul(dt))

	edge := caster.Sweep(
		foot,
		mgl32.QuatIdent(),
		velocity.Mul(-1),
		ledgeProbe,
		0.5,
		self,
	)
	if opt.IsNone(edge) {
		return opt.None[mgl32.Vec3]()
	}

	below := caster.Raycast(
		foot.Add(geom.Up.Mul(0.125)),
		down,
		0.375,
		false,
		self,
	)
	if opt.IsSome(below) {
		return opt.None[mgl32.Vec3]()
	}

	normal := edge.Value.Normal.Mul(-1)
	return opt.Some(normal.Mul(velocity.Dot(normal)))
}
