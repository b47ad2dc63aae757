// Package sim is the authoritative game world. It owns every player and
// target and advances them one fixed tick at a time.
package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/cfoust/strafe/pkg/combat"
	"github.com/cfoust/strafe/pkg/events"
	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/movement"
	"github.com/cfoust/strafe/pkg/physics"
	"github.com/cfoust/strafe/pkg/physics/arena"
	"github.com/cfoust/strafe/pkg/replication"
	"github.com/cfoust/strafe/pkg/session"
	"github.com/cfoust/strafe/pkg/tick"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog/log"
)

const (
	// Players below this height have fallen out of the level.
	RESPAWN_HEIGHT float32 = -50
	// Players spawn spread around the level's spawn point on a circle this
	// big so that they do not land inside each other.
	SPAWN_RING_RADIUS float32 = 2
	SPAWN_RING_SLOTS          = 8
)

var PlayerColors = [...][3]float32{
	{0, 0, 1},
	{1, 0, 0},
	{0, 1, 0},
	{1, 1, 0},
	{1, 0, 1},
	{0, 1, 1},
	{1, 0.5, 0},
	{0.5, 0, 1},
}

type Kind uint8

const (
	KindPlayer Kind = iota
	KindTarget
)

type Player struct {
	Client session.ClientID
	Entity physics.EntityID
	State  movement.State
	Gun    combat.Gun
	Inputs input.Buffer
	Color  [3]float32
	Stats  session.Stats
	// The state as of the end of the last tick; what everyone else sees.
	Snapshot replication.Snapshot

	slot int
}

type Target struct {
	Entity   physics.EntityID
	Position mgl32.Vec3
	Radius   float32
}

// Spawned describes an entity to clients that have not seen it yet.
type Spawned struct {
	Entity   physics.EntityID
	Kind     Kind
	Client   session.ClientID
	Collider physics.Collider
	Color    [3]float32
	Snapshot replication.Snapshot
}

type Replicated struct {
	Entity   physics.EntityID
	Snapshot replication.Snapshot
}

type Rejection struct {
	Client session.ClientID
	Err    error
}

type Score struct {
	Client session.ClientID
	Points int
}

// Frame is everything that happened during one tick that the outside world
// needs to hear about.
type Frame struct {
	Tick      tick.Tick
	Joined    []session.Identity
	Rejected  []Rejection
	Left      []session.Identity
	Spawned   []Spawned
	Despawned []physics.EntityID
	Players   []Replicated
	// The newest input tick consumed per client.
	Acks    map[session.ClientID]tick.Tick
	Shots   []combat.ShotEvent
	Sounds  []combat.SoundEvent
	Scores  []Score
	Changes []session.Change
}

type Settings struct {
	Rate     int
	Targets  int
	Movement movement.Config
	Level    *arena.Level
	Seed     int64
}

type World struct {
	Config   movement.Config
	Level    *arena.Level
	Arena    *arena.Arena
	Registry *session.Registry
	Tick     tick.Tick

	players map[physics.EntityID]*Player
	targets map[physics.EntityID]*Target
	order   []physics.EntityID
	slots   [SPAWN_RING_SLOTS]bool

	dt  float32
	rng *rand.Rand

	connects    events.Queue[session.ClientID]
	disconnects events.Queue[session.ClientID]
	shots       events.Queue[combat.ShotEvent]
	sounds      events.Queue[combat.SoundEvent]

	frame *Frame
}

func NewWorld(settings Settings, registry *session.Registry) (*World, error) {
	if err := settings.Movement.Validate(); err != nil {
		return nil, fmt.Errorf("invalid movement config: %w", err)
	}
	if settings.Rate <= 0 {
		settings.Rate = tick.DEFAULT_RATE
	}
	level := settings.Level
	if level == nil {
		level = &arena.DefaultLevel
	}

	world := &World{
		Config:   settings.Movement,
		Level:    level,
		Arena:    level.Build(),
		Registry: registry,
		players:  make(map[physics.EntityID]*Player),
		targets:  make(map[physics.EntityID]*Target),
		dt:       tick.Seconds(settings.Rate),
		rng:      rand.New(rand.NewSource(settings.Seed)),
	}

	world.frame = world.newFrame()
	for i := 0; i < settings.Targets; i++ {
		world.spawnTarget()
	}

	return world, nil
}

func (w *World) newFrame() *Frame {
	return &Frame{
		Tick: w.Tick,
		Acks: make(map[session.ClientID]tick.Tick),
	}
}

// Connect asks for a player to be created for client on the next tick.
func (w *World) Connect(client session.ClientID) {
	w.connects.Push(client)
}

// Disconnect asks for the client's player to be removed at the end of the
// next tick.
func (w *World) Disconnect(client session.ClientID) {
	w.disconnects.Push(client)
}

// Receive queues a client's samples. Samples from clients without a player
// are ignored. It returns how many samples were new.
func (w *World) Receive(client session.ClientID, entries []input.Entry) int {
	identity, ok := w.Registry.Lookup(client)
	if !ok {
		return 0
	}
	player, ok := w.players[identity.Entity]
	if !ok {
		return 0
	}

	accepted := 0
	for _, entry := range entries {
		if player.Inputs.Push(entry.Tick, entry.Sample) {
			accepted++
		}
	}
	return accepted
}

func (w *World) Player(entity physics.EntityID) (*Player, bool) {
	player, ok := w.players[entity]
	return player, ok
}

func (w *World) Target(entity physics.EntityID) (*Target, bool) {
	target, ok := w.targets[entity]
	return target, ok
}

func (w *World) NumPlayers() int {
	return len(w.players)
}

// Entities describes everything currently in the world, for clients that
// just joined.
func (w *World) Entities() []Spawned {
	entities := make([]Spawned, 0, len(w.players)+len(w.targets))
	for _, entity := range w.order {
		entities = append(entities, w.describePlayer(w.players[entity]))
	}

	targets := make([]physics.EntityID, 0, len(w.targets))
	for entity := range w.targets {
		targets = append(targets, entity)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	for _, entity := range targets {
		entities = append(entities, w.describeTarget(w.targets[entity]))
	}
	return entities
}

func (w *World) describePlayer(player *Player) Spawned {
	return Spawned{
		Entity:   player.Entity,
		Kind:     KindPlayer,
		Client:   player.Client,
		Collider: player.State.Collider,
		Color:    player.Color,
		Snapshot: player.Snapshot,
	}
}

func (w *World) describeTarget(target *Target) Spawned {
	return Spawned{
		Entity:   target.Entity,
		Kind:     KindTarget,
		Collider: physics.Ball(target.Radius),
		Color:    [3]float32{1, 1, 1},
		Snapshot: replication.Snapshot{
			Translation: target.Position,
			Scale:       mgl32.Vec3{1, 1, 1},
		},
	}
}

func (w *World) spawnPosition(slot int) mgl32.Vec3 {
	angle := float64(slot) * 2 * math.Pi / SPAWN_RING_SLOTS
	offset := mgl32.Vec3{
		float32(math.Cos(angle)) * SPAWN_RING_RADIUS,
		0,
		float32(math.Sin(angle)) * SPAWN_RING_RADIUS,
	}
	return w.Level.SpawnPoint().Add(offset)
}

func (w *World) takeSlot() int {
	for i, taken := range w.slots {
		if !taken {
			w.slots[i] = true
			return i
		}
	}
	// Everyone after the first few shares the ring.
	return len(w.order) % SPAWN_RING_SLOTS
}

func (w *World) releaseSlot(slot int) {
	// Only free a slot nobody else still stands on.
	for _, entity := range w.order {
		if w.players[entity].slot == slot {
			return
		}
	}
	w.slots[slot] = false
}

func (w *World) randomIn(low, high float32) float32 {
	return low + w.rng.Float32()*(high-low)
}

func (w *World) spawnTarget() *Target {
	target := &Target{
		Position: mgl32.Vec3{
			w.randomIn(-4, 4),
			w.randomIn(2, 5),
			w.randomIn(1, 2),
		},
		Radius: w.randomIn(0.3, 0.8),
	}
	target.Entity = w.Arena.Spawn(target.Position, physics.Ball(target.Radius))
	w.targets[target.Entity] = target
	w.frame.Spawned = append(w.frame.Spawned, w.describeTarget(target))
	return target
}

func (w *World) connect(client session.ClientID) {
	slot := w.takeSlot()
	state := movement.NewState(&w.Config, w.spawnPosition(slot))
	entity := w.Arena.Spawn(state.Position, state.Collider)

	identity, err := w.Registry.Bind(client, entity)
	if err != nil {
		w.Arena.Remove(entity)
		w.releaseSlot(slot)
		w.frame.Rejected = append(w.frame.Rejected, Rejection{Client: client, Err: err})
		return
	}

	player := &Player{
		Client: client,
		Entity: entity,
		State:  state,
		Gun:    combat.NewGun(),
		Color:  PlayerColors[w.rng.Intn(len(PlayerColors))],
		slot:   slot,
	}
	player.Snapshot = replication.Capture(&player.State)

	w.players[entity] = player
	w.order = append(w.order, entity)
	sort.Slice(w.order, func(i, j int) bool { return w.order[i] < w.order[j] })

	w.frame.Joined = append(w.frame.Joined, identity)
	w.frame.Spawned = append(w.frame.Spawned, w.describePlayer(player))
	w.frame.Changes = append(w.frame.Changes, session.Change{
		Kind:     session.ChangeConnected,
		Identity: identity,
		Color:    player.Color,
		At:       time.Now(),
	})

	log.Info().
		Uint64("client", uint64(client)).
		Uint32("entity", uint32(entity)).
		Uint32("tick", uint32(w.Tick)).
		Msg("player joined")
}

func (w *World) disconnect(client session.ClientID) {
	identity, ok := w.Registry.Unbind(client)
	if !ok {
		return
	}

	player, ok := w.players[identity.Entity]
	if !ok {
		return
	}

	delete(w.players, identity.Entity)
	for i, entity := range w.order {
		if entity == identity.Entity {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.releaseSlot(player.slot)
	w.Arena.Remove(identity.Entity)

	gone := func(entity physics.EntityID) bool {
		return entity == identity.Entity
	}
	w.shots.Filter(func(shot combat.ShotEvent) bool {
		return !gone(shot.Shooter) && !gone(shot.Target)
	})
	w.sounds.Filter(func(sound combat.SoundEvent) bool {
		return !gone(sound.Emitter)
	})

	w.frame.Left = append(w.frame.Left, identity)
	w.frame.Despawned = append(w.frame.Despawned, identity.Entity)
	w.frame.Changes = append(w.frame.Changes, session.Change{
		Kind:     session.ChangeDisconnected,
		Identity: identity,
		Stats:    player.Stats,
		At:       time.Now(),
	})

	log.Info().
		Uint64("client", uint64(client)).
		Uint32("entity", uint32(identity.Entity)).
		Uint32("tick", uint32(w.Tick)).
		Msg("player left")
}
