package sim

import (
	"github.com/cfoust/strafe/pkg/combat"
	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/movement"
	"github.com/cfoust/strafe/pkg/physics"
	"github.com/cfoust/strafe/pkg/replication"

	opt "github.com/repeale/fp-go/option"
	"github.com/rs/zerolog/log"
)

// Step advances the world by one tick and reports what happened.
//
// Joins happen first and leaves last, so a player who leaves during a tick
// still moves in it, but its shots and sounds are dropped.
func (w *World) Step() Frame {
	w.Tick++
	w.frame.Tick = w.Tick

	w.connects.Drain(w.connect)

	samples := make(map[*Player]input.Sample, len(w.players))
	for _, entity := range w.order {
		player := w.players[entity]
		samples[player] = w.move(player)
	}

	for _, entity := range w.order {
		player := w.players[entity]
		player.Snapshot = replication.Capture(&player.State)
		w.frame.Players = append(w.frame.Players, Replicated{
			Entity:   entity,
			Snapshot: player.Snapshot,
		})
	}

	for _, entity := range w.order {
		player := w.players[entity]
		w.shoot(player, samples[player])
	}

	w.disconnects.Drain(w.disconnect)

	for _, entity := range w.order {
		player := w.players[entity]
		w.frame.Acks[player.Client] = player.Inputs.Acked()
	}

	w.shots.Drain(func(shot combat.ShotEvent) {
		w.frame.Shots = append(w.frame.Shots, shot)
	})
	w.sounds.Drain(func(sound combat.SoundEvent) {
		w.frame.Sounds = append(w.frame.Sounds, sound)
	})

	frame := *w.frame
	w.frame = w.newFrame()
	return frame
}

func (w *World) move(player *Player) input.Sample {
	entry, repeated := player.Inputs.Next()
	if repeated {
		log.Debug().
			Uint64("client", uint64(player.Client)).
			Uint32("tick", uint32(w.Tick)).
			Msg("no input, repeating last")
	}

	err := movement.Advance(&w.Config, &player.State, entry.Sample, w.dt, w.Arena, player.Entity)
	if err != nil {
		log.Error().Err(err).
			Uint64("client", uint64(player.Client)).
			Uint32("entity", uint32(player.Entity)).
			Uint32("tick", uint32(w.Tick)).
			Msg("could not move player")
		return entry.Sample
	}

	if player.State.Position.Y() < RESPAWN_HEIGHT {
		w.respawn(player)
	}
	return entry.Sample
}

func (w *World) respawn(player *Player) {
	player.State = movement.NewState(&w.Config, w.spawnPosition(player.slot))
	player.Gun = combat.NewGun()
	w.Arena.Update(player.Entity, player.State.Position, player.State.Collider)

	log.Info().
		Uint64("client", uint64(player.Client)).
		Uint32("entity", uint32(player.Entity)).
		Msg("player fell out of the world")
}

func (w *World) shoot(player *Player, sample input.Sample) {
	shooter := combat.Shooter{
		Entity:    player.Entity,
		Snapshot:  player.Snapshot,
		EyeHeight: w.Config.EyeHeightOffset,
	}

	fired := player.Gun.Trigger(shooter, sample, w.dt, w.Arena, w.rng)
	if opt.IsNone(fired) {
		return
	}
	shot := fired.Value
	player.Stats.Shots++

	for _, sound := range shot.Sounds {
		w.sounds.Push(sound)
	}

	points := -1
	if opt.IsSome(shot.Hit) {
		hit := shot.Hit.Value
		w.shots.Push(hit)

		if _, ok := w.targets[hit.Target]; ok {
			points = 1
			player.Stats.Hits++
			w.replaceTarget(hit.Target)
		}
	}

	player.Stats.Points += points
	w.frame.Scores = append(w.frame.Scores, Score{
		Client: player.Client,
		Points: player.Stats.Points,
	})
}

func (w *World) replaceTarget(entity physics.EntityID) {
	delete(w.targets, entity)
	w.Arena.Remove(entity)
	w.frame.Despawned = append(w.frame.Despawned, entity)
	w.spawnTarget()
}
