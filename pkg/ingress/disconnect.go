package ingress

import "strconv"

// DisconnectReason travels to the client in the transport's disconnect
// notification.
type DisconnectReason uint32

const (
	DisconnectNone DisconnectReason = iota
	DisconnectShutdown
	DisconnectKick
	DisconnectFull
	DisconnectTimeout
	DisconnectOverflow
	DisconnectBadHello
	DisconnectProtocolMismatch
	DisconnectDuplicate
)

func (r DisconnectReason) String() string {
	switch r {
	case DisconnectNone:
		return ""
	case DisconnectShutdown:
		return "server shutting down"
	case DisconnectKick:
		return "kicked"
	case DisconnectFull:
		return "server full"
	case DisconnectTimeout:
		return "connection timed out"
	case DisconnectOverflow:
		return "overflow"
	case DisconnectBadHello:
		return "invalid hello"
	case DisconnectProtocolMismatch:
		return "protocol mismatch"
	case DisconnectDuplicate:
		return "client id already connected"
	default:
		return strconv.Itoa(int(r))
	}
}
