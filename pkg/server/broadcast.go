package server

import (
	"github.com/cfoust/strafe/pkg/events"
	"github.com/cfoust/strafe/pkg/ingress"
	"github.com/cfoust/strafe/pkg/physics"
	"github.com/cfoust/strafe/pkg/protocol"
	"github.com/cfoust/strafe/pkg/session"
	"github.com/cfoust/strafe/pkg/sim"

	"github.com/rs/zerolog/log"
)

func encode(message protocol.Message) (ingress.Packet, bool) {
	data, err := protocol.Encode(message)
	if err != nil {
		log.Error().Err(err).Msg("could not encode message")
		return ingress.Packet{}, false
	}
	return ingress.Packet{
		Channel: protocol.Channel(message),
		Data:    data,
	}, true
}

func send(conn ingress.Connection, message protocol.Message) {
	if packet, ok := encode(message); ok {
		conn.Send(packet)
	}
}

// broadcast sends a message to every client that has joined.
func (s *Server) broadcast(message protocol.Message) {
	packet, ok := encode(message)
	if !ok {
		return
	}
	for _, c := range s.clients {
		if c.joined {
			c.conn.Send(packet)
		}
	}
}

func spawnMessage(spawned sim.Spawned) protocol.Spawn {
	kind := protocol.EntityPlayer
	if spawned.Kind == sim.KindTarget {
		kind = protocol.EntityTarget
	}
	return protocol.Spawn{
		Entity:   spawned.Entity,
		Kind:     kind,
		ClientID: uint64(spawned.Client),
		Collider: spawned.Collider,
		Color:    spawned.Color,
		Snapshot: spawned.Snapshot,
	}
}

// publish tells everyone what happened during a tick.
func (s *Server) publish(frame sim.Frame) {
	for _, rejection := range frame.Rejected {
		c, ok := s.clients[rejection.Client]
		if !ok {
			continue
		}
		delete(s.clients, rejection.Client)
		s.reject(c.conn, ingress.DisconnectDuplicate, rejection.Err)
	}

	// Newcomers are sent everything that exists, so they skip this tick's
	// spawns.
	welcomed := make(map[session.ClientID]struct{})
	for _, identity := range frame.Joined {
		c, ok := s.clients[identity.Client]
		if !ok {
			continue
		}
		s.welcome(c, identity.Entity, frame)
		welcomed[c.id] = struct{}{}
	}

	for _, spawned := range frame.Spawned {
		packet, ok := encode(spawnMessage(spawned))
		if !ok {
			continue
		}
		for _, c := range s.clients {
			if _, isNew := welcomed[c.id]; c.joined && !isNew {
				c.conn.Send(packet)
			}
		}
	}

	for _, entity := range frame.Despawned {
		s.broadcast(protocol.Despawn{Entity: entity})
	}

	entities := make([]protocol.EntityState, len(frame.Players))
	for i, player := range frame.Players {
		entities[i] = protocol.EntityState{
			Entity:   player.Entity,
			Snapshot: player.Snapshot,
		}
	}
	for _, c := range s.clients {
		if !c.joined {
			continue
		}
		send(c.conn, protocol.World{
			Tick:     frame.Tick,
			Ack:      frame.Acks[c.id],
			Entities: entities,
		})
	}

	for i := range frame.Shots {
		shot := frame.Shots[i]
		s.broadcast(protocol.Shot{
			Shooter:  shot.Shooter,
			Target:   shot.Target,
			HitPoint: shot.HitPoint,
		})
		s.Events.Publish(events.Record{Tick: frame.Tick, Shot: &shot})
	}

	for i := range frame.Sounds {
		sound := frame.Sounds[i]
		s.broadcast(protocol.Sound{
			Emitter:      sound.Emitter,
			Asset:        sound.Asset,
			Position:     sound.Position,
			Volume:       sound.Volume,
			Speed:        sound.Speed,
			Spatial:      sound.Spatial,
			SpatialScale: sound.SpatialScale,
		})
		s.Events.Publish(events.Record{Tick: frame.Tick, Sound: &sound})
	}

	for _, score := range frame.Scores {
		if c, ok := s.clients[score.Client]; ok && c.joined {
			send(c.conn, protocol.Score{Points: score.Points})
		}
	}

	for _, change := range frame.Changes {
		select {
		case s.changes <- change:
		default:
			log.Warn().Msg("session store is behind, dropping change")
		}
	}
}

func (s *Server) welcome(c *client, entity physics.EntityID, frame sim.Frame) {
	send(c.conn, protocol.Welcome{
		ClientID: uint64(c.id),
		Entity:   entity,
		Tick:     frame.Tick,
		Rate:     s.settings.World.Rate,
		Level:    *s.World.Level,
	})
	for _, spawned := range s.World.Entities() {
		send(c.conn, spawnMessage(spawned))
	}
	c.joined = true
}
