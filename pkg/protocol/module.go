// Package protocol defines the messages exchanged between the server and its
// clients. Every datagram is one cbor-encoded message behind an op code.
package protocol

import (
	"errors"
	"fmt"

	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/physics"
	"github.com/cfoust/strafe/pkg/physics/arena"
	"github.com/cfoust/strafe/pkg/replication"
	"github.com/cfoust/strafe/pkg/tick"

	"github.com/fxamacker/cbor/v2"
)

const (
	// Inputs and world updates. Lost datagrams are never resent.
	CHANNEL_UNRELIABLE uint8 = iota
	// Everything else, in order.
	CHANNEL_RELIABLE
	CHANNEL_COUNT
)

// How many of its newest samples a client repeats in every Input.
const INPUT_REDUNDANCY = 3

type Op uint8

const (
	// Client -> server
	HelloOp Op = iota
	InputOp
	// Server -> client
	WelcomeOp
	RejectOp
	WorldOp
	SpawnOp
	DespawnOp
	ShotOp
	SoundOp
	ScoreOp
	// server -> client OR client -> server
	ChatOp
)

var ErrUnknownOp = errors.New("unknown op")

type Message interface {
	Type() Op
}

// Hello is the first thing a client sends. The token proves it knows the
// server's key.
type Hello struct {
	ProtocolID uint32
	ClientID   uint64
	Token      uint64
}

// Input carries the client's newest samples. Older ones are repeated so that
// one lost datagram does not lose a tick.
type Input struct {
	Entries []input.Entry
}

type Welcome struct {
	ClientID uint64
	Entity   physics.EntityID
	Tick     tick.Tick
	Rate     int
	Level    arena.Level
}

type Reject struct {
	Reason string
}

type EntityState struct {
	_        struct{} `cbor:",toarray"`
	Entity   physics.EntityID
	Snapshot replication.Snapshot
}

// World is the state of every replicated entity after a tick. Ack is the
// newest input tick of the recipient the server has consumed.
type World struct {
	Tick     tick.Tick
	Ack      tick.Tick
	Entities []EntityState
}

type EntityKind uint8

const (
	EntityPlayer EntityKind = iota
	EntityTarget
)

type Spawn struct {
	Entity   physics.EntityID
	Kind     EntityKind
	ClientID uint64
	Collider physics.Collider
	Color    [3]float32
	Snapshot replication.Snapshot
}

type Despawn struct {
	Entity physics.EntityID
}

type Shot struct {
	Shooter  physics.EntityID
	Target   physics.EntityID
	HitPoint [3]float32
}

type Sound struct {
	Emitter      physics.EntityID
	Asset        string
	Position     [3]float32
	Volume       float32
	Speed        float32
	Spatial      bool
	SpatialScale float32
}

type Score struct {
	Points int
}

type Chat struct {
	ClientID uint64
	Text     string
}

func (Hello) Type() Op   { return HelloOp }
func (Input) Type() Op   { return InputOp }
func (Welcome) Type() Op { return WelcomeOp }
func (Reject) Type() Op  { return RejectOp }
func (World) Type() Op   { return WorldOp }
func (Spawn) Type() Op   { return SpawnOp }
func (Despawn) Type() Op { return DespawnOp }
func (Shot) Type() Op    { return ShotOp }
func (Sound) Type() Op   { return SoundOp }
func (Score) Type() Op   { return ScoreOp }
func (Chat) Type() Op    { return ChatOp }

func (o Op) String() string {
	switch o {
	case HelloOp:
		return "hello"
	case InputOp:
		return "input"
	case WelcomeOp:
		return "welcome"
	case RejectOp:
		return "reject"
	case WorldOp:
		return "world"
	case SpawnOp:
		return "spawn"
	case DespawnOp:
		return "despawn"
	case ShotOp:
		return "shot"
	case SoundOp:
		return "sound"
	case ScoreOp:
		return "score"
	case ChatOp:
		return "chat"
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Channel is the channel a message is sent on.
func Channel(message Message) uint8 {
	switch message.Type() {
	case InputOp, WorldOp, SoundOp, ShotOp:
		return CHANNEL_UNRELIABLE
	}
	return CHANNEL_RELIABLE
}

type envelope struct {
	_    struct{} `cbor:",toarray"`
	Op   Op
	Body cbor.RawMessage
}

func Encode(message Message) ([]byte, error) {
	body, err := cbor.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("could not encode %s: %w", message.Type(), err)
	}

	return cbor.Marshal(envelope{
		Op:   message.Type(),
		Body: body,
	})
}

func Decode(data []byte) (Message, error) {
	var wrapper envelope
	if err := cbor.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode envelope: %w", err)
	}

	switch wrapper.Op {
	case HelloOp:
		return decode[Hello](wrapper.Body)
	case InputOp:
		return decode[Input](wrapper.Body)
	case WelcomeOp:
		return decode[Welcome](wrapper.Body)
	case RejectOp:
		return decode[Reject](wrapper.Body)
	case WorldOp:
		return decode[World](wrapper.Body)
	case SpawnOp:
		return decode[Spawn](wrapper.Body)
	case DespawnOp:
		return decode[Despawn](wrapper.Body)
	case ShotOp:
		return decode[Shot](wrapper.Body)
	case SoundOp:
		return decode[Sound](wrapper.Body)
	case ScoreOp:
		return decode[Score](wrapper.Body)
	case ChatOp:
		return decode[Chat](wrapper.Body)
	}

	return nil, fmt.Errorf("%w: %d", ErrUnknownOp, wrapper.Op)
}

func decode[T Message](body []byte) (Message, error) {
	var message T
	if err := cbor.Unmarshal(body, &message); err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", message.Type(), err)
	}
	return message, nil
}
