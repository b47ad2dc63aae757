// Package combat resolves hitscan shots. It runs inside the simulation tick
// on both sides of the connection and never touches the network itself.
package combat

import (
	"math/rand"

	"github.com/cfoust/strafe/pkg/geom"
	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/physics"
	"github.com/cfoust/strafe/pkg/replication"

	"github.com/go-gl/mathgl/mgl32"
	opt "github.com/repeale/fp-go/option"
)

const (
	SHOOT_COOLDOWN float32 = 0.1
	MAX_DISTANCE   float32 = 100
	MAGAZINE_SIZE          = 30
	RELOAD_TIME    float32 = 2.5
	// Shooters moving faster than this get extra spread.
	WALKING_SPEED float32 = 0.1
	// Half width of the playback speed jitter on both sounds.
	SOUND_JITTER float32 = 0.12

	MUZZLE_SOUND = "sounds/weapons-rifle-assault-rifle-fire-01.ogg"
	IMPACT_SOUND = "sounds/weapons-shield-metal-impact-ring-02.ogg"
)

// Recoil for the start of a burst, in eye space.
var SprayDirections = [...]mgl32.Vec3{
	{0, 0, 0},
	{-0.01, 0.025, 0},
	{-0.02, 0.05, 0},
	{-0.03, 0.055, 0},
	{-0.032, 0.065, 0},
	{-0.034, 0.075, 0},
	{-0.038, 0.08, 0},
	{-0.042, 0.082, 0},
	{-0.046, 0.085, 0},
	{-0.042, 0.087, 0},
	{-0.039, 0.090, 0},
	{-0.038, 0.093, 0},
}

// Cycled through once a burst outlasts SprayDirections, and added on top
// while walking.
var RandomSprayDirections = [...]mgl32.Vec3{
	{-0.12, 0.12, 0},
	{0.05, -0.07, 0},
	{0.12, -0.13, 0},
	{-0.10, 0.11, 0},
	{0.09, 0.08, 0},
	{-0.04, -0.11, 0},
}

// ShotEvent reports a bullet that struck something.
type ShotEvent struct {
	Shooter physics.EntityID
	Target  physics.EntityID
	// Where the bullet landed. Impact markers are drawn here.
	HitPoint mgl32.Vec3
}

// SoundEvent asks collaborators to play a sound. An Emitter of NoEntity means
// the sound is not attached to anything, and a zero SpatialScale means the
// listener's default.
type SoundEvent struct {
	Emitter      physics.EntityID
	Asset        string
	Position     mgl32.Vec3
	Volume       float32
	Speed        float32
	Spatial      bool
	SpatialScale float32
}

// Shooter is what the gun needs to know about who is holding it.
type Shooter struct {
	Entity physics.EntityID
	// The shooter's replicated movement. Walking spray is judged from its
	// velocity so every peer agrees on it.
	Snapshot replication.Snapshot
	// Height of the eyes above the body's center.
	EyeHeight float32
}

// Shot is one bullet fired during a tick.
type Shot struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
	Hit       opt.Option[ShotEvent]
	Sounds    []SoundEvent
}

// Gun is the per-player weapon state. The zero value is a gun with an empty
// magazine; use NewGun.
type Gun struct {
	// Seconds since the last shot.
	Elapsed float32
	// Shots fired since the trigger was last released.
	Count int
	Ammo  int
	// Seconds left until the magazine is full again. Zero when not reloading.
	Reloading float32
}

func NewGun() Gun {
	return Gun{
		Elapsed: SHOOT_COOLDOWN,
		Ammo:    MAGAZINE_SIZE,
	}
}

func (g *Gun) IsReloading() bool {
	return g.Reloading > 0
}

func (g *Gun) reload() {
	if g.IsReloading() || g.Ammo == MAGAZINE_SIZE {
		return
	}
	g.Reloading = RELOAD_TIME
}

// Spray is the eye-space offset added to the aim of the count'th shot of a
// burst.
func Spray(count int, velocity mgl32.Vec3) mgl32.Vec3 {
	var spray mgl32.Vec3
	if count < len(SprayDirections) {
		spray = SprayDirections[count]
	} else {
		spray = RandomSprayDirections[count%len(RandomSprayDirections)]
	}

	if geom.LenSqr(velocity) > WALKING_SPEED*WALKING_SPEED {
		spray = spray.Add(RandomSprayDirections[count%len(RandomSprayDirections)])
	}
	return spray
}

func jitter(rng *rand.Rand) float32 {
	return (rng.Float32()*2 - 1) * SOUND_JITTER
}

// Trigger advances the gun by dt and fires it if the sample asks to and the
// gun is ready.
func (g *Gun) Trigger(
	shooter Shooter,
	sample input.Sample,
	dt float32,
	caster physics.Caster,
	rng *rand.Rand,
) opt.Option[Shot] {
	g.Elapsed += dt

	if g.IsReloading() {
		g.Reloading -= dt
		if g.Reloading <= 0 {
			g.Reloading = 0
			g.Ammo = MAGAZINE_SIZE
		}
	}

	if sample.Reload {
		g.reload()
	}

	if !sample.Shoot {
		g.Count = 0
		return opt.None[Shot]()
	}

	if g.IsReloading() {
		return opt.None[Shot]()
	}

	if g.Ammo <= 0 {
		g.reload()
		return opt.None[Shot]()
	}

	if g.Elapsed <= SHOOT_COOLDOWN {
		return opt.None[Shot]()
	}

	snapshot := shooter.Snapshot
	origin := snapshot.Translation.Add(geom.Up.Mul(shooter.EyeHeight))
	rotation := geom.LookRotation(snapshot.Yaw, snapshot.Pitch)
	spray := Spray(g.Count, snapshot.Velocity)
	direction := rotation.Rotate(geom.Forward).Add(rotation.Rotate(spray))

	g.Count++
	g.Ammo--
	g.Elapsed = 0

	shot := Shot{
		Origin:    origin,
		Direction: direction,
		Hit:       opt.None[ShotEvent](),
		Sounds: []SoundEvent{
			{
				Emitter:  shooter.Entity,
				Asset:    MUZZLE_SOUND,
				Position: origin,
				Volume:   0.3,
				Speed:    1.1 + jitter(rng),
				Spatial:  true,
			},
		},
	}

	cast := caster.Raycast(origin, direction, MAX_DISTANCE, true, shooter.Entity)
	if opt.IsNone(cast) {
		return opt.Some(shot)
	}

	hit := cast.Value
	point := origin.Add(direction.Mul(hit.Distance))
	shot.Hit = opt.Some(ShotEvent{
		Shooter:  shooter.Entity,
		Target:   hit.Entity,
		HitPoint: point,
	})
	shot.Sounds = append(shot.Sounds, SoundEvent{
		Emitter:      hit.Entity,
		Asset:        IMPACT_SOUND,
		Position:     point,
		Volume:       0.35,
		Speed:        1.0 + jitter(rng),
		Spatial:      true,
		SpatialScale: 0.2,
	})
	return opt.Some(shot)
}
