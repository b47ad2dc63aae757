package ingress

import (
	"context"
	"fmt"
	"sync"

	"github.com/cfoust/strafe/pkg/protocol"

	"github.com/codecat/go-enet"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

const (
	// How long a single Service call may block, in milliseconds.
	SERVICE_TIMEOUT_MS = 1
	OUTGOING_LIMIT     = 1024
)

var initialize sync.Once

func initializeENet() {
	initialize.Do(func() {
		enet.Initialize()
	})
}

type outbound struct {
	peer       enet.Peer
	packet     Packet
	disconnect bool
	reason     DisconnectReason
}

// endpoint owns an ENet host. The host is not safe for concurrent use, so
// other goroutines only ever queue work for the one running service.
type endpoint struct {
	host        enet.Host
	outgoing    chan outbound
	conditioner *Conditioner
}

func (e *endpoint) enqueue(out outbound) {
	select {
	case e.outgoing <- out:
	default:
		log.Debug().Msg("enet send queue full, dropping packet")
	}
}

func (e *endpoint) send(peer enet.Peer, packet Packet) {
	out := outbound{peer: peer, packet: packet}
	if packet.Channel != protocol.CHANNEL_UNRELIABLE {
		e.enqueue(out)
		return
	}
	e.conditioner.Deliver(func() { e.enqueue(out) })
}

func (e *endpoint) flush() {
	for {
		select {
		case out := <-e.outgoing:
			if out.disconnect {
				out.peer.Disconnect(uint32(out.reason))
				continue
			}

			flags := enet.PacketFlagReliable
			if out.packet.Channel == protocol.CHANNEL_UNRELIABLE {
				flags = enet.PacketFlagUnsequenced
			}

			err := out.peer.SendBytes(out.packet.Data, out.packet.Channel, flags)
			if err != nil {
				log.Debug().Err(err).Msg("could not send packet")
			}
		default:
			return
		}
	}
}

// service runs the host until ctx is done or handle returns false.
func (e *endpoint) service(ctx context.Context, handle func(enet.Event) bool) {
	defer e.host.Destroy()

	for ctx.Err() == nil {
		e.flush()

		event := e.host.Service(SERVICE_TIMEOUT_MS)
		if event.GetType() == enet.EventNone {
			continue
		}
		if !handle(event) {
			break
		}
	}

	// Get any goodbyes out before the host goes away.
	e.flush()
	e.host.Service(0)
}

// receive copies a packet out of ENet's memory and frees it.
func receive(event enet.Event) Packet {
	packet := event.GetPacket()
	defer packet.Destroy()

	return Packet{
		Channel: event.GetChannelID(),
		Data:    append([]byte(nil), packet.GetData()...),
	}
}

type ENetClient struct {
	id       uint32
	peer     enet.Peer
	endpoint *endpoint
	lifetime *Lifetime

	mutex  deadlock.Mutex
	status NetworkStatus

	toServer   chan Packet
	disconnect chan bool
}

func newENetClient(id uint32, peer enet.Peer, endpoint *endpoint, lifetime *Lifetime) *ENetClient {
	return &ENetClient{
		id:         id,
		peer:       peer,
		endpoint:   endpoint,
		lifetime:   lifetime,
		status:     NetworkStatusConnected,
		toServer:   make(chan Packet, CLIENT_MESSAGE_LIMIT),
		disconnect: make(chan bool, 1),
	}
}

func (c *ENetClient) Lifetime() *Lifetime {
	return c.lifetime
}

func (c *ENetClient) NetworkStatus() NetworkStatus {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.status
}

func (c *ENetClient) Reference() string {
	return fmt.Sprintf("enet:%d", c.id)
}

func (c *ENetClient) Host() string {
	return fmt.Sprintf("%s", c.peer.GetAddress())
}

func (c *ENetClient) Type() ClientType {
	return ClientTypeENet
}

func (c *ENetClient) DeviceType() string {
	return "desktop"
}

func (c *ENetClient) Send(packet Packet) {
	if c.lifetime.IsDone() {
		return
	}
	c.endpoint.send(c.peer, packet)
}

func (c *ENetClient) ReceivePackets() <-chan Packet {
	return c.toServer
}

func (c *ENetClient) ReceiveDisconnect() <-chan bool {
	return c.disconnect
}

func (c *ENetClient) Disconnect(reason DisconnectReason) {
	c.lifetime.Cancel()
	c.endpoint.enqueue(outbound{
		peer:       c.peer,
		disconnect: true,
		reason:     reason,
	})
}

func (c *ENetClient) receive(packet Packet) {
	select {
	case c.toServer <- packet:
	default:
		log.Debug().Str("client", c.Reference()).Msg("inbound queue full, dropping packet")
	}
}

func (c *ENetClient) closed() {
	c.mutex.Lock()
	c.status = NetworkStatusDisconnected
	c.mutex.Unlock()

	c.lifetime.Cancel()
	select {
	case c.disconnect <- true:
	default:
	}
}

// ENetIngress accepts desktop clients over UDP.
type ENetIngress struct {
	endpoint
	newClients chan<- Connection

	// Only touched by the service goroutine.
	clients map[enet.Peer]*ENetClient
	nextID  uint32
}

func NewENetIngress(newClients chan<- Connection, conditioner *Conditioner) *ENetIngress {
	return &ENetIngress{
		endpoint: endpoint{
			outgoing:    make(chan outbound, OUTGOING_LIMIT),
			conditioner: conditioner,
		},
		newClients: newClients,
		clients:    make(map[enet.Peer]*ENetClient),
	}
}

func (i *ENetIngress) Serve(port int, maxClients int) error {
	initializeENet()

	host, err := enet.NewHost(
		enet.NewListenAddress(uint16(port)),
		uint64(maxClients),
		uint64(protocol.CHANNEL_COUNT),
		0,
		0,
	)
	if err != nil {
		return fmt.Errorf("could not listen on udp port %d: %w", port, err)
	}

	i.host = host
	log.Info().Int("port", port).Msg("listening for enet clients")
	return nil
}

// Poll services the host until ctx is done. Serve must have succeeded.
func (i *ENetIngress) Poll(ctx context.Context) error {
	i.service(ctx, func(event enet.Event) bool {
		i.handle(ctx, event)
		return true
	})

	for _, client := range i.clients {
		client.closed()
	}
	return nil
}

func (i *ENetIngress) handle(ctx context.Context, event enet.Event) {
	peer := event.GetPeer()

	switch event.GetType() {
	case enet.EventConnect:
		i.nextID++
		client := newENetClient(i.nextID, peer, &i.endpoint, NewLifetime(ctx))
		i.clients[peer] = client

		log.Debug().
			Str("client", client.Reference()).
			Str("host", client.Host()).
			Msg("enet client connected")

		select {
		case i.newClients <- client:
		case <-ctx.Done():
		}

	case enet.EventReceive:
		packet := receive(event)
		client, ok := i.clients[peer]
		if !ok {
			return
		}
		client.receive(packet)

	case enet.EventDisconnect:
		client, ok := i.clients[peer]
		if !ok {
			return
		}
		delete(i.clients, peer)
		client.closed()
	}
}

// ENetConn is a client's connection to a server.
type ENetConn struct {
	endpoint
	peer enet.Peer

	connected  chan struct{}
	toClient   chan Packet
	disconnect chan bool
}

func DialENet(address string, port int, conditioner *Conditioner) (*ENetConn, error) {
	initializeENet()

	host, err := enet.NewHost(nil, 1, uint64(protocol.CHANNEL_COUNT), 0, 0)
	if err != nil {
		return nil, fmt.Errorf("could not create enet host: %w", err)
	}

	peer, err := host.Connect(
		enet.NewAddress(address, uint16(port)),
		int(protocol.CHANNEL_COUNT),
		0,
	)
	if err != nil {
		host.Destroy()
		return nil, fmt.Errorf("could not connect to %s:%d: %w", address, port, err)
	}

	return &ENetConn{
		endpoint: endpoint{
			host:        host,
			outgoing:    make(chan outbound, OUTGOING_LIMIT),
			conditioner: conditioner,
		},
		peer:       peer,
		connected:  make(chan struct{}),
		toClient:   make(chan Packet, CLIENT_MESSAGE_LIMIT),
		disconnect: make(chan bool, 1),
	}, nil
}

// Poll services the connection until ctx is done or the server hangs up.
func (c *ENetConn) Poll(ctx context.Context) error {
	c.service(ctx, func(event enet.Event) bool {
		switch event.GetType() {
		case enet.EventConnect:
			close(c.connected)
		case enet.EventReceive:
			packet := receive(event)
			select {
			case c.toClient <- packet:
			default:
				log.Debug().Msg("inbound queue full, dropping packet")
			}
		case enet.EventDisconnect:
			c.disconnect <- true
			return false
		}
		return true
	})
	return nil
}

// Connected is closed once the handshake with the server completes.
func (c *ENetConn) Connected() <-chan struct{} {
	return c.connected
}

func (c *ENetConn) Send(packet Packet) {
	c.send(c.peer, packet)
}

func (c *ENetConn) ReceivePackets() <-chan Packet {
	return c.toClient
}

func (c *ENetConn) ReceiveDisconnect() <-chan bool {
	return c.disconnect
}

func (c *ENetConn) Close() {
	c.enqueue(outbound{
		peer:       c.peer,
		disconnect: true,
		reason:     DisconnectNone,
	})
}
