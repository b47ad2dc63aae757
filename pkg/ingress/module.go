// Package ingress accepts player connections and turns them into streams of
// packets. The server does not care whether a player came in over ENet or a
// WebSocket.
package ingress

import (
	"fmt"
)

type ClientType uint8

const (
	ClientTypeWS ClientType = iota
	ClientTypeENet
)

func (c ClientType) String() string {
	switch c {
	case ClientTypeWS:
		return "ws"
	case ClientTypeENet:
		return "enet"
	}
	return fmt.Sprintf("client(%d)", uint8(c))
}

// How many packets may wait in either direction before new ones are dropped.
const CLIENT_MESSAGE_LIMIT int = 64

type NetworkStatus uint8

const (
	NetworkStatusConnected NetworkStatus = iota
	NetworkStatusDisconnected
)

type Packet struct {
	Channel uint8
	Data    []byte
}

type Connection interface {
	// Ends when the connection does.
	Lifetime() *Lifetime
	NetworkStatus() NetworkStatus
	// A short name for logs, such as "enet:4".
	Reference() string
	Type() ClientType
	DeviceType() string
	// Send never blocks. Packets that do not fit are dropped.
	Send(packet Packet)
	ReceivePackets() <-chan Packet
	// Fires when the client goes away on its own.
	ReceiveDisconnect() <-chan bool
	// Forcibly disconnect this client. Packets already sent are delivered
	// first where the transport allows it.
	Disconnect(reason DisconnectReason)
}

var _ Connection = (*WSClient)(nil)
var _ Connection = (*ENetClient)(nil)
