package ingress

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mileusna/useragent"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	"nhooyr.io/websocket"
)

const WRITE_TIMEOUT = 5 * time.Second

var ErrEmptyFrame = errors.New("empty frame")

// WebSocket messages carry their channel in the first byte.
func frame(packet Packet) []byte {
	data := make([]byte, 0, len(packet.Data)+1)
	data = append(data, packet.Channel)
	return append(data, packet.Data...)
}

func unframe(data []byte) (Packet, error) {
	if len(data) == 0 {
		return Packet{}, ErrEmptyFrame
	}
	return Packet{
		Channel: data[0],
		Data:    data[1:],
	}, nil
}

// DeviceType describes the kind of device a browser runs on.
func DeviceType(userAgent string) string {
	agent := useragent.Parse(userAgent)
	switch {
	case agent.Bot:
		return "bot"
	case agent.Tablet:
		return "tablet"
	case agent.Mobile:
		return "mobile"
	case agent.Desktop:
		return "desktop"
	}
	return "unknown"
}

type WSClient struct {
	id       uint32
	host     string
	device   string
	lifetime *Lifetime

	mutex  deadlock.Mutex
	status NetworkStatus

	send       chan []byte
	toServer   chan Packet
	disconnect chan bool
	kick       chan DisconnectReason
}

func NewWSClient(id uint32, lifetime *Lifetime) *WSClient {
	return &WSClient{
		id:         id,
		lifetime:   lifetime,
		status:     NetworkStatusConnected,
		send:       make(chan []byte, CLIENT_MESSAGE_LIMIT),
		toServer:   make(chan Packet, CLIENT_MESSAGE_LIMIT),
		disconnect: make(chan bool, 1),
		kick:       make(chan DisconnectReason, 1),
	}
}

func (c *WSClient) Lifetime() *Lifetime {
	return c.lifetime
}

func (c *WSClient) NetworkStatus() NetworkStatus {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.status
}

func (c *WSClient) Reference() string {
	return fmt.Sprintf("ws:%d", c.id)
}

func (c *WSClient) Host() string {
	return c.host
}

func (c *WSClient) Type() ClientType {
	return ClientTypeWS
}

func (c *WSClient) DeviceType() string {
	return c.device
}

func (c *WSClient) Send(packet Packet) {
	select {
	case c.send <- frame(packet):
	default:
		log.Debug().Str("client", c.Reference()).Msg("outbound queue full, dropping packet")
	}
}

func (c *WSClient) ReceivePackets() <-chan Packet {
	return c.toServer
}

func (c *WSClient) ReceiveDisconnect() <-chan bool {
	return c.disconnect
}

func (c *WSClient) Disconnect(reason DisconnectReason) {
	select {
	case c.kick <- reason:
	default:
	}
}

func (c *WSClient) closed() {
	c.mutex.Lock()
	c.status = NetworkStatusDisconnected
	c.mutex.Unlock()

	c.lifetime.Cancel()
	select {
	case c.disconnect <- true:
	default:
	}
}

// WSIngress accepts browser clients.
type WSIngress struct {
	newClients chan<- Connection
	httpServer *http.Server

	mutex   deadlock.Mutex
	clients map[*WSClient]struct{}
	nextID  uint32
}

func NewWSIngress(newClients chan<- Connection) *WSIngress {
	return &WSIngress{
		newClients: newClients,
		clients:    make(map[*WSClient]struct{}),
	}
}

func WriteTimeout(ctx context.Context, timeout time.Duration, c *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageBinary, msg)
}

func (server *WSIngress) addClient(lifetime *Lifetime) *WSClient {
	server.mutex.Lock()
	defer server.mutex.Unlock()

	server.nextID++
	client := NewWSClient(server.nextID, lifetime)
	server.clients[client] = struct{}{}
	return client
}

func (server *WSIngress) removeClient(client *WSClient) {
	server.mutex.Lock()
	delete(server.clients, client)
	server.mutex.Unlock()
}

func (server *WSIngress) NumClients() int {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return len(server.clients)
}

func (server *WSIngress) HandleClient(ctx context.Context, c *websocket.Conn, host string, device string) error {
	client := server.addClient(NewLifetime(ctx))
	defer server.removeClient(client)
	defer client.closed()

	client.host = host
	client.device = device

	logger := log.With().
		Str("client", client.Reference()).
		Str("host", host).
		Str("device", device).
		Logger()
	logger.Info().Msg("client connected")

	ctx = client.lifetime.Ctx()
	select {
	case server.newClients <- client:
	case <-ctx.Done():
		return ctx.Err()
	}

	readErr := make(chan error, 1)
	go func() {
		for {
			typ, message, err := c.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			if typ != websocket.MessageBinary {
				continue
			}

			packet, err := unframe(message)
			if err != nil {
				logger.Debug().Err(err).Msg("dropping message")
				continue
			}

			select {
			case client.toServer <- packet:
			default:
				logger.Debug().Msg("inbound queue full, dropping packet")
			}
		}
	}()

	for {
		select {
		case msg := <-client.send:
			err := WriteTimeout(ctx, WRITE_TIMEOUT, c, msg)
			if err != nil {
				logger.Error().Msg("client missed write timeout; disconnecting")
				return err
			}
		case reason := <-client.kick:
			logger.Info().Str("reason", reason.String()).Msg("disconnecting client")
			return c.Close(websocket.StatusPolicyViolation, reason.String())
		case err := <-readErr:
			logger.Info().Msg("client left")
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (server *WSIngress) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error().Err(err).Msg("error accepting client connection")
		return
	}

	defer c.Close(websocket.StatusInternalError, "operational fault")

	hostname := r.RemoteAddr
	if original, ok := r.Header["X-Forwarded-For"]; ok {
		hostname = original[0]
	}

	err = server.HandleClient(r.Context(), c, hostname, DeviceType(r.UserAgent()))
	if errors.Is(err, context.Canceled) {
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway {
		return
	}
	if err != nil {
		log.Debug().Err(err).Msg("websocket client closed")
	}
}

func (server *WSIngress) Serve(ctx context.Context, port int) error {
	listen, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return fmt.Errorf("could not bind websocket port %d: %w", port, err)
	}

	log.Info().Msgf("listening on http://%v", listen.Addr())

	server.httpServer = &http.Server{
		Handler: server,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	err = server.httpServer.Serve(listen)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (server *WSIngress) Shutdown(ctx context.Context) {
	if server.httpServer != nil {
		server.httpServer.Shutdown(ctx)
	}
}
