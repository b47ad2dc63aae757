package combat

import (
	"math/rand"
	"testing"

	"github.com/cfoust/strafe/pkg/geom"
	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/physics"
	"github.com/cfoust/strafe/pkg/physics/arena"
	"github.com/cfoust/strafe/pkg/replication"

	"github.com/go-gl/mathgl/mgl32"
	opt "github.com/repeale/fp-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt float32 = 1.0 / 64.0

var (
	shoot   = input.Sample{Shoot: true}
	release = input.Sample{}
)

func standing(entity physics.EntityID) Shooter {
	return Shooter{
		Entity: entity,
		Snapshot: replication.Snapshot{
			Scale: mgl32.Vec3{1, 1, 1},
		},
		EyeHeight: 2,
	}
}

func TestWalkingSpray(t *testing.T) {
	assert.Equal(t, mgl32.Vec3{}, Spray(0, mgl32.Vec3{0.05, 0, 0}))
	assert.Equal(t, RandomSprayDirections[0], Spray(0, mgl32.Vec3{0.2, 0, 0}))

	// Past the scripted recoil the fixed set is cycled.
	count := len(SprayDirections) + 1
	assert.Equal(t, RandomSprayDirections[count%len(RandomSprayDirections)], Spray(count, mgl32.Vec3{}))
}

func TestCooldown(t *testing.T) {
	world := arena.New()
	rng := rand.New(rand.NewSource(1))
	gun := NewGun()
	shooter := standing(physics.NoEntity)

	assert.True(t, opt.IsSome(gun.Trigger(shooter, shoot, dt, world, rng)))

	fired := 0
	for i := 0; i < 6; i++ {
		if opt.IsSome(gun.Trigger(shooter, shoot, dt, world, rng)) {
			fired++
		}
	}
	assert.Equal(t, 0, fired)

	// Seven ticks is the first point past the cooldown.
	assert.True(t, opt.IsSome(gun.Trigger(shooter, shoot, dt, world, rng)))
	assert.Equal(t, 2, gun.Count)
	assert.Equal(t, MAGAZINE_SIZE-2, gun.Ammo)
}

func TestSprayResets(t *testing.T) {
	world := arena.New()
	rng := rand.New(rand.NewSource(1))
	gun := NewGun()
	shooter := standing(physics.NoEntity)

	for i := 0; i < 40; i++ {
		gun.Trigger(shooter, shoot, dt, world, rng)
	}
	require.Greater(t, gun.Count, 1)

	gun.Trigger(shooter, release, dt, world, rng)
	assert.Equal(t, 0, gun.Count)

	for i := 0; i < 10; i++ {
		shot := gun.Trigger(shooter, shoot, dt, world, rng)
		if opt.IsNone(shot) {
			continue
		}
		// The first shot of a burst goes where the player looks.
		assert.Equal(t, geom.Forward, shot.Value.Direction)
		break
	}
	assert.Equal(t, 1, gun.Count)
}

func TestShotHitsWall(t *testing.T) {
	world := arena.New()
	wall := world.AddStatic(mgl32.Vec3{0, 2, -10}, mgl32.Vec3{5, 5, 0.5})
	self := world.Spawn(mgl32.Vec3{}, physics.Cylinder(1.5, 0.5))

	rng := rand.New(rand.NewSource(7))
	gun := NewGun()
	result := gun.Trigger(standing(self), shoot, dt, world, rng)
	require.True(t, opt.IsSome(result))

	shot := result.Value
	assert.Equal(t, mgl32.Vec3{0, 2, 0}, shot.Origin)
	require.True(t, opt.IsSome(shot.Hit))
	assert.Equal(t, self, shot.Hit.Value.Shooter)
	assert.Equal(t, wall, shot.Hit.Value.Target)
	assert.InDelta(t, -9.5, shot.Hit.Value.HitPoint.Z(), 1e-4)

	require.Len(t, shot.Sounds, 2)
	muzzle, impact := shot.Sounds[0], shot.Sounds[1]

	assert.Equal(t, MUZZLE_SOUND, muzzle.Asset)
	assert.Equal(t, self, muzzle.Emitter)
	assert.InDelta(t, 1.1, muzzle.Speed, float64(SOUND_JITTER))
	assert.Zero(t, muzzle.SpatialScale)

	assert.Equal(t, IMPACT_SOUND, impact.Asset)
	assert.Equal(t, wall, impact.Emitter)
	assert.InDelta(t, 1.0, impact.Speed, float64(SOUND_JITTER))
	assert.Equal(t, float32(0.2), impact.SpatialScale)
	assert.Equal(t, shot.Hit.Value.HitPoint, impact.Position)
}

func TestMissHasOnlyMuzzleSound(t *testing.T) {
	world := arena.New()
	rng := rand.New(rand.NewSource(1))
	gun := NewGun()

	shot := gun.Trigger(standing(physics.NoEntity), shoot, dt, world, rng)
	require.True(t, opt.IsSome(shot))
	assert.True(t, opt.IsNone(shot.Value.Hit))
	assert.Len(t, shot.Value.Sounds, 1)
}

func TestReload(t *testing.T) {
	world := arena.New()
	rng := rand.New(rand.NewSource(1))
	shooter := standing(physics.NoEntity)

	gun := NewGun()
	gun.Ammo = 1

	require.True(t, opt.IsSome(gun.Trigger(shooter, shoot, dt, world, rng)))
	assert.Equal(t, 0, gun.Ammo)

	// Holding the trigger on an empty magazine starts a reload.
	for i := 0; i < 10; i++ {
		assert.True(t, opt.IsNone(gun.Trigger(shooter, shoot, dt, world, rng)))
	}
	assert.True(t, gun.IsReloading())

	for gun.IsReloading() {
		gun.Trigger(shooter, release, dt, world, rng)
	}
	assert.Equal(t, MAGAZINE_SIZE, gun.Ammo)

	// A full magazine ignores the reload key.
	gun.Trigger(shooter, input.Sample{Reload: true}, dt, world, rng)
	assert.False(t, gun.IsReloading())

	gun.Ammo = 3
	gun.Trigger(shooter, input.Sample{Reload: true}, dt, world, rng)
	assert.True(t, gun.IsReloading())
}
