// Package client is the player's side of a connection: it predicts its own
// movement, interpolates everyone else, and keeps a local copy of the arena
// for both.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cfoust/strafe/pkg/events"
	"github.com/cfoust/strafe/pkg/ingress"
	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/movement"
	"github.com/cfoust/strafe/pkg/physics"
	"github.com/cfoust/strafe/pkg/physics/arena"
	"github.com/cfoust/strafe/pkg/protocol"
	"github.com/cfoust/strafe/pkg/replication"
	"github.com/cfoust/strafe/pkg/tick"

	opt "github.com/repeale/fp-go/option"
	"github.com/rs/zerolog/log"
)

var (
	ErrRejected     = errors.New("rejected by server")
	ErrDisconnected = errors.New("disconnected by server")
)

type Transport interface {
	Send(packet ingress.Packet)
	ReceivePackets() <-chan ingress.Packet
	ReceiveDisconnect() <-chan bool
}

// Source produces the local player's sample for each tick.
type Source interface {
	Next() input.Sample
}

type Settings struct {
	ID       uint64
	Key      protocol.Key
	Movement movement.Config
}

// Remote is an entity someone else controls.
type Remote struct {
	Entity   physics.EntityID
	Kind     protocol.EntityKind
	ClientID uint64
	Color    [3]float32
	Collider physics.Collider
	Role     replication.Role
	// The entity's body in the local arena.
	Body         physics.EntityID
	Interpolator *replication.Interpolator
}

type Client struct {
	ID     uint64
	Config movement.Config
	Score  int
	Chat   *events.Topic[protocol.Chat]

	// Known once the server has welcomed us.
	Entity    physics.EntityID
	Level     *arena.Level
	Arena     *arena.Arena
	Predictor *replication.Predictor
	Remotes   map[physics.EntityID]*Remote

	key       protocol.Key
	transport Transport
	rate      int
	welcomed  bool
	tick      tick.Tick
	// The newest World applied.
	world tick.Tick
}

func New(settings Settings, transport Transport) *Client {
	return &Client{
		ID:        settings.ID,
		Config:    settings.Movement,
		Chat:      events.NewTopic[protocol.Chat](),
		Remotes:   make(map[physics.EntityID]*Remote),
		key:       settings.Key,
		transport: transport,
		rate:      tick.DEFAULT_RATE,
	}
}

func (c *Client) send(message protocol.Message) {
	data, err := protocol.Encode(message)
	if err != nil {
		log.Error().Err(err).Msg("could not encode message")
		return
	}
	c.transport.Send(ingress.Packet{
		Channel: protocol.Channel(message),
		Data:    data,
	})
}

func (c *Client) Hello() {
	c.send(protocol.NewHello(c.key, c.ID))
}

func (c *Client) Say(text string) {
	c.send(protocol.Chat{ClientID: c.ID, Text: text})
}

func (c *Client) Rate() int {
	return c.rate
}

// Spawned reports whether our own entity exists yet.
func (c *Client) Spawned() bool {
	return c.Predictor != nil
}

func (c *Client) Handle(message protocol.Message) error {
	switch message := message.(type) {
	case protocol.Welcome:
		c.welcome(message)
	case protocol.Reject:
		return fmt.Errorf("%w: %s", ErrRejected, message.Reason)
	case protocol.Spawn:
		return c.spawn(message)
	case protocol.Despawn:
		c.despawn(message.Entity)
	case protocol.World:
		return c.apply(message)
	case protocol.Score:
		c.Score = message.Points
	case protocol.Chat:
		log.Info().Uint64("client", message.ClientID).Msg(message.Text)
		c.Chat.Publish(message)
	case protocol.Shot:
		log.Debug().
			Uint32("shooter", uint32(message.Shooter)).
			Uint32("target", uint32(message.Target)).
			Msg("shot landed")
	case protocol.Sound:
	default:
		log.Debug().Str("op", message.Type().String()).Msg("unexpected message from server")
	}
	return nil
}

func (c *Client) welcome(welcome protocol.Welcome) {
	level := welcome.Level
	c.Level = &level
	c.Arena = level.Build()
	c.Entity = welcome.Entity
	c.rate = welcome.Rate
	c.world = welcome.Tick
	c.welcomed = true

	log.Info().
		Uint64("client", c.ID).
		Uint32("entity", uint32(c.Entity)).
		Str("level", level.Name).
		Msg("joined server")
}

func (c *Client) spawn(spawn protocol.Spawn) error {
	if !c.welcomed {
		return nil
	}

	role := replication.RoleFor(spawn.Entity == c.Entity)
	if role == replication.Predicted {
		state := movement.NewState(&c.Config, spawn.Snapshot.Translation)
		spawn.Snapshot.Restore(&state)
		body := c.Arena.Spawn(state.Position, state.Collider)
		c.Predictor = replication.NewPredictor(&c.Config, state, body, c.rate)
		return nil
	}

	if _, ok := c.Remotes[spawn.Entity]; ok {
		return nil
	}

	remote := &Remote{
		Entity:       spawn.Entity,
		Kind:         spawn.Kind,
		ClientID:     spawn.ClientID,
		Color:        spawn.Color,
		Collider:     spawn.Collider,
		Role:         role,
		Body:         c.Arena.Spawn(spawn.Snapshot.Translation, spawn.Collider),
		Interpolator: replication.NewInterpolator(c.rate),
	}
	remote.Interpolator.Push(replication.Stamped{
		Tick:     c.world,
		Snapshot: spawn.Snapshot,
	})
	c.Remotes[spawn.Entity] = remote
	return nil
}

func (c *Client) despawn(entity physics.EntityID) {
	remote, ok := c.Remotes[entity]
	if !ok {
		return
	}
	c.Arena.Remove(remote.Body)
	delete(c.Remotes, entity)
}

func (c *Client) apply(world protocol.World) error {
	if !c.welcomed {
		return nil
	}
	if !tick.Newer(world.Tick, c.world) {
		log.Debug().Uint32("tick", uint32(world.Tick)).Msg("dropping stale world")
		return nil
	}
	c.world = world.Tick

	for _, entity := range world.Entities {
		if entity.Entity == c.Entity {
			if c.Predictor == nil {
				continue
			}
			_, err := c.Predictor.Reconcile(world.Ack, entity.Snapshot, c.Arena)
			if err != nil {
				return err
			}
			continue
		}

		remote, ok := c.Remotes[entity.Entity]
		if !ok {
			continue
		}
		remote.Interpolator.Push(replication.Stamped{
			Tick:     world.Tick,
			Snapshot: entity.Snapshot,
		})
	}
	return nil
}

// Step runs one local tick: the sample is predicted and sent, and remote
// entities move along their interpolation.
func (c *Client) Step(sample input.Sample) error {
	if !c.Spawned() {
		return nil
	}

	c.tick++
	if err := c.Predictor.Predict(c.tick, sample, c.Arena); err != nil {
		return err
	}
	c.send(protocol.Input{
		Entries: c.Predictor.History.Latest(protocol.INPUT_REDUNDANCY),
	})

	dt := tick.Seconds(c.rate)
	for _, remote := range c.Remotes {
		snapshot := remote.Interpolator.Sample(dt)
		if opt.IsNone(snapshot) {
			continue
		}
		c.Arena.Update(remote.Body, snapshot.Value.Translation, remote.Collider)
	}
	return nil
}

// Run says hello and plays until ctx is done or the server lets us go.
func (c *Client) Run(ctx context.Context, source Source) error {
	c.Hello()

	ticker := time.NewTicker(tick.Duration(c.rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.transport.ReceiveDisconnect():
			return ErrDisconnected
		case packet := <-c.transport.ReceivePackets():
			message, err := protocol.Decode(packet.Data)
			if err != nil {
				log.Debug().Err(err).Msg("dropping undecodable packet")
				continue
			}

			rate := c.rate
			if err := c.Handle(message); err != nil {
				return err
			}
			if c.rate != rate {
				ticker.Reset(tick.Duration(c.rate))
			}
		case <-ticker.C:
			if err := c.Step(source.Next()); err != nil {
				return err
			}
		}
	}
}
