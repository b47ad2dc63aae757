// Package server runs the authoritative simulation for connected players. It
// admits clients from any ingress, feeds their inputs to the world, and
// sends each of them what happened every tick.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cfoust/strafe/pkg/chanlock"
	"github.com/cfoust/strafe/pkg/events"
	"github.com/cfoust/strafe/pkg/ingress"
	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/protocol"
	"github.com/cfoust/strafe/pkg/session"
	"github.com/cfoust/strafe/pkg/sim"
	"github.com/cfoust/strafe/pkg/tick"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// How long a new connection has to say hello.
	HELLO_TIMEOUT = 5 * time.Second
	// Pending session store writes before new ones are dropped.
	CHANGE_BUFFER = 256
)

type Settings struct {
	Key        protocol.Key
	MaxClients int
	// Input packets per second per client.
	InputRate float64
	World     sim.Settings
}

type hello struct {
	conn    ingress.Connection
	message protocol.Hello
}

type inbound struct {
	client  session.ClientID
	message protocol.Message
}

type leave struct {
	client session.ClientID
	conn   ingress.Connection
}

type client struct {
	id      session.ClientID
	conn    ingress.Connection
	limiter *rate.Limiter
	// Set once the client has been sent its Welcome.
	joined bool
}

type Server struct {
	settings Settings

	World    *sim.World
	Registry *session.Registry
	// Combat events for sinks outside the server.
	Events *events.Topic[events.Record]

	connections chan ingress.Connection
	hellos      chan hello
	inbound     chan inbound
	leaves      chan leave
	changes     chan session.Change

	// Only touched by the goroutine running Poll.
	clients map[session.ClientID]*client
	ticker  *tick.Ticker
	paused  bool
}

func New(settings Settings) (*Server, error) {
	if settings.MaxClients <= 0 {
		return nil, fmt.Errorf("maxClients must be positive")
	}
	if settings.InputRate <= 0 {
		settings.InputRate = float64(tick.DEFAULT_RATE) * 2
	}
	if settings.World.Rate <= 0 {
		settings.World.Rate = tick.DEFAULT_RATE
	}

	registry := session.NewRegistry()
	world, err := sim.NewWorld(settings.World, registry)
	if err != nil {
		return nil, err
	}

	return &Server{
		settings:    settings,
		World:       world,
		Registry:    registry,
		Events:      events.NewTopic[events.Record](),
		connections: make(chan ingress.Connection),
		hellos:      make(chan hello),
		inbound:     make(chan inbound, ingress.CLIENT_MESSAGE_LIMIT),
		leaves:      make(chan leave),
		changes:     make(chan session.Change, CHANGE_BUFFER),
		clients:     make(map[session.ClientID]*client),
	}, nil
}

// Connections is where ingresses hand over new connections.
func (s *Server) Connections() chan<- ingress.Connection {
	return s.connections
}

// Changes carries connection records for the session store.
func (s *Server) Changes() <-chan session.Change {
	return s.changes
}

func (s *Server) NumClients() int {
	return len(s.clients)
}

// Poll runs the server until ctx is done. The simulation only ticks while
// somebody is connected.
func (s *Server) Poll(ctx context.Context) error {
	s.ticker = tick.NewTicker(s.settings.World.Rate)
	defer s.ticker.Stop()
	s.pause()

	lock := chanlock.New(log.Logger)
	health := lock.Poll(ctx)

	log.Info().
		Int("rate", s.settings.World.Rate).
		Str("level", s.World.Level.Name).
		Msg("server started")

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case <-health:
			continue
		case conn := <-s.connections:
			go s.greet(ctx, conn)
		case hello := <-s.hellos:
			lock.Mark("admit")
			s.admit(ctx, hello.conn, hello.message)
		case message := <-s.inbound:
			lock.Mark("handle " + message.message.Type().String())
			s.handle(message)
		case leave := <-s.leaves:
			lock.Mark("leave")
			s.leave(leave)
		case <-s.ticker.C:
			lock.Mark("step")
			s.step()
		}
	}
}

// greet waits for a connection's Hello and hands it to the main loop.
func (s *Server) greet(ctx context.Context, conn ingress.Connection) {
	logger := log.With().Str("conn", conn.Reference()).Logger()

	timeout := time.NewTimer(HELLO_TIMEOUT)
	defer timeout.Stop()

	select {
	case packet := <-conn.ReceivePackets():
		message, err := protocol.Decode(packet.Data)
		if err != nil {
			logger.Debug().Err(err).Msg("undecodable hello")
			conn.Disconnect(ingress.DisconnectBadHello)
			return
		}

		hi, ok := message.(protocol.Hello)
		if !ok {
			logger.Debug().Str("op", message.Type().String()).Msg("expected hello")
			conn.Disconnect(ingress.DisconnectBadHello)
			return
		}

		select {
		case s.hellos <- hello{conn: conn, message: hi}:
		case <-ctx.Done():
		}
	case <-timeout.C:
		logger.Debug().Msg("client never said hello")
		conn.Disconnect(ingress.DisconnectTimeout)
	case <-conn.ReceiveDisconnect():
	case <-ctx.Done():
	}
}

func (s *Server) reject(conn ingress.Connection, reason ingress.DisconnectReason, err error) {
	log.Info().
		Str("conn", conn.Reference()).
		Err(err).
		Msg("rejected client")

	send(conn, protocol.Reject{Reason: err.Error()})
	conn.Disconnect(reason)
}

func (s *Server) admit(ctx context.Context, conn ingress.Connection, hi protocol.Hello) {
	if err := hi.Verify(s.settings.Key); err != nil {
		reason := ingress.DisconnectBadHello
		if errors.Is(err, protocol.ErrProtocolMismatch) {
			reason = ingress.DisconnectProtocolMismatch
		}
		s.reject(conn, reason, err)
		return
	}

	id := session.ClientID(hi.ClientID)
	if _, ok := s.clients[id]; ok {
		s.reject(conn, ingress.DisconnectDuplicate, session.ErrAlreadyConnected)
		return
	}

	if len(s.clients) >= s.settings.MaxClients {
		s.reject(conn, ingress.DisconnectFull, fmt.Errorf("server is full"))
		return
	}

	c := &client{
		id:      id,
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(s.settings.InputRate), input.BUFFER_LIMIT),
	}
	s.clients[id] = c
	s.World.Connect(id)
	s.resume()

	log.Info().
		Uint64("client", uint64(id)).
		Str("conn", conn.Reference()).
		Str("type", conn.Type().String()).
		Str("device", conn.DeviceType()).
		Msg("client admitted")

	go s.relay(ctx, c)
}

// relay decodes a client's packets until it goes away.
func (s *Server) relay(ctx context.Context, c *client) {
	logger := log.With().Uint64("client", uint64(c.id)).Logger()
	lifetime := c.conn.Lifetime().Ctx()

	defer func() {
		select {
		case s.leaves <- leave{client: c.id, conn: c.conn}:
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case packet := <-c.conn.ReceivePackets():
			message, err := protocol.Decode(packet.Data)
			if err != nil {
				logger.Debug().Err(err).Msg("dropping undecodable packet")
				continue
			}

			if message.Type() == protocol.InputOp && !c.limiter.Allow() {
				logger.Debug().Msg("input rate exceeded")
				continue
			}

			select {
			case s.inbound <- inbound{client: c.id, message: message}:
			case <-ctx.Done():
				return
			}
		case <-c.conn.ReceiveDisconnect():
			return
		case <-lifetime.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handle(message inbound) {
	c, ok := s.clients[message.client]
	if !ok {
		return
	}

	switch message := message.message.(type) {
	case protocol.Input:
		s.World.Receive(c.id, message.Entries)
	case protocol.Chat:
		log.Info().
			Uint64("client", uint64(c.id)).
			Str("text", message.Text).
			Msg("chat")
		s.broadcast(protocol.Chat{
			ClientID: uint64(c.id),
			Text:     message.Text,
		})
	default:
		log.Debug().
			Uint64("client", uint64(c.id)).
			Str("op", message.Type().String()).
			Msg("unexpected message from client")
	}
}

func (s *Server) leave(leave leave) {
	c, ok := s.clients[leave.client]
	// A client that reconnected is not removed by its old connection.
	if !ok || c.conn != leave.conn {
		return
	}

	delete(s.clients, leave.client)
	s.World.Disconnect(leave.client)

	log.Info().
		Uint64("client", uint64(leave.client)).
		Msg("client left")
}

func (s *Server) step() {
	frame := s.World.Step()
	s.publish(frame)

	if len(s.clients) == 0 && s.World.NumPlayers() == 0 {
		s.pause()
	}
}

func (s *Server) resume() {
	if s.ticker == nil || !s.paused {
		return
	}
	s.ticker.Resume()
	s.paused = false
}

func (s *Server) pause() {
	if s.ticker == nil || s.paused {
		return
	}
	log.Debug().Msg("nobody connected, pausing simulation")
	s.ticker.Pause()
	s.paused = true
}

func (s *Server) shutdown() {
	for id, c := range s.clients {
		c.conn.Disconnect(ingress.DisconnectShutdown)
		delete(s.clients, id)
	}
}
