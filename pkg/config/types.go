package config

import (
	"github.com/cfoust/strafe/pkg/events"
	"github.com/cfoust/strafe/pkg/ingress"
	"github.com/cfoust/strafe/pkg/movement"
)

type WebIngress struct {
	// Zero disables the WebSocket ingress.
	Port int
}

type ServerIngress struct {
	Web WebIngress
}

type ServerSettings struct {
	Port       int
	MaxClients int
	TickRate   int
	ProtocolID uint32 `json:"protocolId"`
	// Hex encoded. Clients must know it to connect.
	Key string
	// Path to a YAML level. Empty means the built-in range.
	Level       string
	DBPath      string `json:"dbPath"`
	LogSessions bool
	Redis       events.RedisSettings
	Ingress     ServerIngress
	// Input packets per second a client may send before they are dropped.
	InputRate   float64
	Conditioner ingress.Conditions
	Targets     int
}

type ClientSettings struct {
	// host:port of the server to join.
	Server   string
	ClientID uint64 `json:"clientId"`
}

type Config struct {
	Server   ServerSettings
	Movement movement.Config
	Client   ClientSettings
}
