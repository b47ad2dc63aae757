package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cfoust/strafe/pkg/ingress"
	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/movement"
	"github.com/cfoust/strafe/pkg/physics"
	"github.com/cfoust/strafe/pkg/physics/arena"
	"github.com/cfoust/strafe/pkg/protocol"
	"github.com/cfoust/strafe/pkg/replication"
	"github.com/cfoust/strafe/pkg/server"
	"github.com/cfoust/strafe/pkg/sim"
	"github.com/cfoust/strafe/pkg/tick"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	sent       chan ingress.Packet
	received   chan ingress.Packet
	disconnect chan bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sent:       make(chan ingress.Packet, 256),
		received:   make(chan ingress.Packet, 256),
		disconnect: make(chan bool, 1),
	}
}

func (f *fakeTransport) Send(packet ingress.Packet) { f.sent <- packet }
func (f *fakeTransport) ReceivePackets() <-chan ingress.Packet { return f.received }
func (f *fakeTransport) ReceiveDisconnect() <-chan bool { return f.disconnect }

func (f *fakeTransport) inputs(t *testing.T) []protocol.Input {
	var inputs []protocol.Input
	for {
		select {
		case packet := <-f.sent:
			message, err := protocol.Decode(packet.Data)
			require.NoError(t, err)
			if typed, ok := message.(protocol.Input); ok {
				inputs = append(inputs, typed)
			}
		default:
			return inputs
		}
	}
}

const (
	self   physics.EntityID = 10
	target physics.EntityID = 11
)

func standing() replication.Snapshot {
	return replication.Snapshot{
		Translation: mgl32.Vec3{0, 1.5, 0},
		Scale:       mgl32.Vec3{1, 1, 1},
	}
}

// joined returns a client that has been welcomed and sees one target.
func joined(t *testing.T) (*Client, *fakeTransport) {
	transport := newFakeTransport()
	client := New(Settings{ID: 1, Movement: movement.DefaultConfig()}, transport)

	require.NoError(t, client.Handle(protocol.Welcome{
		ClientID: 1,
		Entity:   self,
		Tick:     100,
		Rate:     tick.DEFAULT_RATE,
		Level:    arena.DefaultLevel,
	}))
	require.NoError(t, client.Handle(protocol.Spawn{
		Entity:   self,
		Kind:     protocol.EntityPlayer,
		ClientID: 1,
		Snapshot: standing(),
	}))
	require.NoError(t, client.Handle(protocol.Spawn{
		Entity:   target,
		Kind:     protocol.EntityTarget,
		Collider: physics.Ball(0.5),
		Snapshot: replication.Snapshot{Translation: mgl32.Vec3{0, 3, 1}},
	}))
	return client, transport
}

func TestJoin(t *testing.T) {
	client, _ := joined(t)

	require.True(t, client.Spawned())
	assert.Equal(t, "range", client.Level.Name)
	require.Contains(t, client.Remotes, target)
	assert.Equal(t, replication.Interpolated, client.Remotes[target].Role)
	assert.Equal(t, replication.Predicted, client.Predictor.Role)

	body, ok := client.Arena.Get(client.Remotes[target].Body)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{0, 3, 1}, body.Position)

	_, ok = client.Arena.Get(client.Predictor.Entity)
	assert.True(t, ok)

	require.NoError(t, client.Handle(protocol.Despawn{Entity: target}))
	assert.NotContains(t, client.Remotes, target)
}

func TestIgnoresStateBeforeWelcome(t *testing.T) {
	client := New(Settings{Movement: movement.DefaultConfig()}, newFakeTransport())
	require.NoError(t, client.Handle(protocol.Spawn{Entity: 4}))
	require.NoError(t, client.Handle(protocol.World{Tick: 5}))
	assert.False(t, client.Spawned())
	assert.NoError(t, client.Step(input.Sample{}))
}

func TestInputsAreRedundant(t *testing.T) {
	client, transport := joined(t)

	for i := 0; i < 4; i++ {
		require.NoError(t, client.Step(input.Sample{}))
	}

	inputs := transport.inputs(t)
	require.Len(t, inputs, 4)
	assert.Len(t, inputs[0].Entries, 1)

	last := inputs[3].Entries
	require.Len(t, last, protocol.INPUT_REDUNDANCY)
	assert.Equal(t, tick.Tick(2), last[0].Tick)
	assert.Equal(t, tick.Tick(4), last[2].Tick)
}

func TestWorldReconciles(t *testing.T) {
	client, _ := joined(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, client.Step(input.Sample{}))
	}
	require.Equal(t, 5, client.Predictor.History.Len())

	require.NoError(t, client.Handle(protocol.World{
		Tick: 101,
		Ack:  3,
		Entities: []protocol.EntityState{
			{Entity: self, Snapshot: replication.Capture(&client.Predictor.State)},
			{Entity: target, Snapshot: replication.Snapshot{Translation: mgl32.Vec3{1, 3, 1}}},
		},
	}))
	assert.Equal(t, 2, client.Predictor.History.Len())

	older, newer, ok := client.Remotes[target].Interpolator.Ticks()
	require.True(t, ok)
	assert.Equal(t, tick.Tick(100), older)
	assert.Equal(t, tick.Tick(101), newer)

	// Anything older than what was applied is dropped.
	require.NoError(t, client.Handle(protocol.World{
		Tick: 100,
		Ack:  5,
	}))
	assert.Equal(t, 2, client.Predictor.History.Len())
}

func TestRemotesMove(t *testing.T) {
	client, _ := joined(t)

	require.NoError(t, client.Handle(protocol.World{
		Tick: 101,
		Entities: []protocol.EntityState{
			{Entity: target, Snapshot: replication.Snapshot{Translation: mgl32.Vec3{2, 3, 1}}},
		},
	}))
	require.NoError(t, client.Step(input.Sample{}))

	body, ok := client.Arena.Get(client.Remotes[target].Body)
	require.True(t, ok)
	assert.InDelta(t, 2, body.Position.X(), 1e-4)
}

func TestReject(t *testing.T) {
	client := New(Settings{Movement: movement.DefaultConfig()}, newFakeTransport())
	err := client.Handle(protocol.Reject{Reason: "server is full"})
	assert.True(t, errors.Is(err, ErrRejected))
}

func TestScoreAndChat(t *testing.T) {
	client, _ := joined(t)
	subscriber := client.Chat.Subscribe()

	require.NoError(t, client.Handle(protocol.Score{Points: -3}))
	assert.Equal(t, -3, client.Score)

	require.NoError(t, client.Handle(protocol.Chat{ClientID: 2, Text: "gg"}))
	select {
	case chat := <-subscriber.Recv():
		assert.Equal(t, "gg", chat.Text)
	default:
		t.Fatal("chat was not published")
	}
}

func TestBot(t *testing.T) {
	bot := NewBot()

	first := bot.Next()
	assert.InDelta(t, bot.TurnRate, first.Yaw, 1e-6)

	shots := 0
	if first.Shoot {
		shots++
	}
	for i := 1; i < 640; i++ {
		sample := bot.Next()
		assert.Equal(t, float32(1), sample.Movement.Z())
		assert.LessOrEqual(t, sample.Yaw, float32(3.1416))
		assert.GreaterOrEqual(t, sample.Yaw, float32(-3.1416))
		if sample.Shoot {
			shots++
		}
	}
	assert.Equal(t, 10*bot.BurstLength, shots)
}

// pipe connects a client to a server connection in memory.
type pipe struct {
	*fakeTransport
	lifetime *ingress.Lifetime
	toServer chan ingress.Packet
}

func (p *pipe) Send(packet ingress.Packet) { p.toServer <- packet }
func (p *pipe) Lifetime() *ingress.Lifetime { return p.lifetime }
func (p *pipe) NetworkStatus() ingress.NetworkStatus { return ingress.NetworkStatusConnected }
func (p *pipe) Reference() string { return "pipe" }
func (p *pipe) Type() ingress.ClientType { return ingress.ClientTypeENet }
func (p *pipe) DeviceType() string { return "test" }
func (p *pipe) Disconnect(reason ingress.DisconnectReason) { p.lifetime.Cancel() }

type serverSide struct{ *pipe }

func (s serverSide) Send(packet ingress.Packet) { s.received <- packet }
func (s serverSide) ReceivePackets() <-chan ingress.Packet { return s.toServer }

func TestPlaysAgainstServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := protocol.Key{4}
	srv, err := server.New(server.Settings{
		Key:        key,
		MaxClients: 2,
		World: sim.Settings{
			Rate:     tick.DEFAULT_RATE,
			Targets:  1,
			Movement: movement.DefaultConfig(),
		},
	})
	require.NoError(t, err)
	go srv.Poll(ctx)

	link := &pipe{
		fakeTransport: newFakeTransport(),
		lifetime:      ingress.NewLifetime(ctx),
		toServer:      make(chan ingress.Packet, 256),
	}
	srv.Connections() <- serverSide{link}

	client := New(Settings{ID: 9, Key: key, Movement: movement.DefaultConfig()}, link)
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx, NewBot()) }()

	// Play for half a second.
	select {
	case err := <-done:
		t.Fatalf("client stopped: %v", err)
	case <-time.After(500 * time.Millisecond):
	}

	cancel()
	assert.NoError(t, <-done)
	assert.True(t, client.Spawned())
	assert.Len(t, client.Remotes, 1)
}
