package arena

import (
	"testing"

	"github.com/cfoust/strafe/pkg/geom"
	"github.com/cfoust/strafe/pkg/physics"

	"github.com/go-gl/mathgl/mgl32"
	opt "github.com/repeale/fp-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const delta = 1e-4

func TestLanding(t *testing.T) {
	world := DefaultLevel.Build()
	player := world.Spawn(mgl32.Vec3{0, 1.625, 0}, physics.Cylinder(1.5, 0.5))

	position, velocity := world.Integrate(player, mgl32.Vec3{0, -10, 0}, 1)
	assert.InDelta(t, 1.1+SKIN, position.Y(), delta)
	assert.InDelta(t, 0, velocity.Y(), delta)

	body, ok := world.Get(player)
	require.True(t, ok)
	assert.Equal(t, position, body.Position)

	ground := world.Sweep(
		position,
		mgl32.QuatIdent(),
		geom.Up.Mul(-1),
		physics.Cylinder(1.5, 0.5*0.9375),
		0.125,
		player,
	)
	require.True(t, opt.IsSome(ground))
	assert.InDelta(t, SKIN, ground.Value.Distance, delta)
	assert.Equal(t, geom.Up, ground.Value.Normal)
}

func TestSlideAlongWall(t *testing.T) {
	world := DefaultLevel.Build()
	player := world.Spawn(mgl32.Vec3{0, 1.1 + SKIN, 8}, physics.Cylinder(1.5, 0.5))

	position, velocity := world.Integrate(player, mgl32.Vec3{1, 0, 10}, 1)
	assert.InDelta(t, 9-SKIN, position.Z(), delta)
	assert.InDelta(t, 1, position.X(), 1e-3)
	assert.InDelta(t, 0, velocity.Z(), delta)
	assert.InDelta(t, 1, velocity.X(), delta)
}

func TestSweepIgnoresParallelContact(t *testing.T) {
	world := DefaultLevel.Build()

	hit := world.Sweep(
		mgl32.Vec3{0, 1.1 + SKIN, 0},
		mgl32.QuatIdent(),
		mgl32.Vec3{1, 0, 0},
		physics.Cylinder(1.5, 0.5),
		2,
		physics.NoEntity,
	)
	assert.True(t, opt.IsNone(hit))
}

func TestSweepFromInside(t *testing.T) {
	world := DefaultLevel.Build()
	origin := mgl32.Vec3{0, 1.05, 0}

	down := world.Sweep(origin, mgl32.QuatIdent(), mgl32.Vec3{0, -1, 0}, physics.Cylinder(1.5, 0.5), 0.125, physics.NoEntity)
	require.True(t, opt.IsSome(down))
	assert.Equal(t, float32(0), down.Value.Distance)
	assert.Equal(t, geom.Up, down.Value.Normal)

	up := world.Sweep(origin, mgl32.QuatIdent(), geom.Up, physics.Cylinder(1.5, 0.5), 0.125, physics.NoEntity)
	assert.True(t, opt.IsNone(up))
}

func TestRaycast(t *testing.T) {
	world := DefaultLevel.Build()
	origin := mgl32.Vec3{0, 1, 0}
	forward := mgl32.Vec3{0, 0, 1}

	wall := world.Raycast(origin, forward, 100, true, physics.NoEntity)
	require.True(t, opt.IsSome(wall))
	assert.Equal(t, physics.EntityID(2), wall.Value.Entity)
	assert.InDelta(t, 9.5, wall.Value.Distance, delta)

	player := world.Spawn(mgl32.Vec3{0, 1, 5}, physics.Cylinder(1.5, 0.5))
	hit := world.Raycast(origin, forward, 100, true, physics.NoEntity)
	require.True(t, opt.IsSome(hit))
	assert.Equal(t, player, hit.Value.Entity)
	assert.InDelta(t, 4.5, hit.Value.Distance, delta)

	excluded := world.Raycast(origin, forward, 100, true, player)
	require.True(t, opt.IsSome(excluded))
	assert.Equal(t, physics.EntityID(2), excluded.Value.Entity)

	short := world.Raycast(origin, forward, 3, true, physics.NoEntity)
	assert.True(t, opt.IsNone(short))

	// Distances are in multiples of the direction.
	scaled := world.Raycast(origin, forward.Mul(2), 100, true, player)
	require.True(t, opt.IsSome(scaled))
	assert.InDelta(t, 4.75, scaled.Value.Distance, delta)
}

func TestRaycastBall(t *testing.T) {
	world := New()
	target := world.Spawn(mgl32.Vec3{0, 1, 3}, physics.Ball(0.5))

	hit := world.Raycast(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}, 100, true, physics.NoEntity)
	require.True(t, opt.IsSome(hit))
	assert.Equal(t, target, hit.Value.Entity)
	assert.InDelta(t, 2.5, hit.Value.Distance, delta)

	inside := world.Raycast(mgl32.Vec3{0, 1, 3}, mgl32.Vec3{0, 0, 1}, 100, false, physics.NoEntity)
	require.True(t, opt.IsSome(inside))
	assert.InDelta(t, 0.5, inside.Value.Distance, delta)

	miss := world.Raycast(mgl32.Vec3{0, 3, 0}, mgl32.Vec3{0, 0, 1}, 100, true, physics.NoEntity)
	assert.True(t, opt.IsNone(miss))
}

func TestRemove(t *testing.T) {
	world := New()
	target := world.Spawn(mgl32.Vec3{0, 0, 3}, physics.Ball(0.5))
	world.Remove(target)

	_, ok := world.Get(target)
	assert.False(t, ok)

	hit := world.Raycast(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}, 100, true, physics.NoEntity)
	assert.True(t, opt.IsNone(hit))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel([]byte(`
name: steps
spawn: [0, 2, 0]
boxes:
  - center: [0, -0.5, 0]
    halfExtents: [10, 0.5, 10]
  - center: [0, 0.1, -3]
    halfExtents: [2, 0.1, 1]
`))
	require.NoError(t, err)
	assert.Equal(t, "steps", level.Name)
	assert.Equal(t, mgl32.Vec3{0, 2, 0}, level.SpawnPoint())
	require.Len(t, level.Boxes, 2)

	world := level.Build()
	_, ok := world.Get(2)
	assert.True(t, ok)

	_, err = ParseLevel([]byte(`
boxes:
  - center: [0, 0, 0]
    halfExtents: [1, 0, 1]
`))
	assert.Error(t, err)
}
