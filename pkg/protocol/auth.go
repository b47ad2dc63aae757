package protocol

import (
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

const (
	PROTOCOL_ID  uint32 = 1
	DEFAULT_PORT        = 25565
	KEY_SIZE            = 32
)

type Key [KEY_SIZE]byte

var (
	ErrProtocolMismatch = errors.New("protocol mismatch")
	ErrBadToken         = errors.New("bad token")
)

// ParseKey reads a hex encoded key. An empty string is the all-zero key.
func ParseKey(text string) (Key, error) {
	var key Key
	if text == "" {
		return key, nil
	}

	data, err := hex.DecodeString(text)
	if err != nil {
		return key, fmt.Errorf("could not decode key: %w", err)
	}
	if len(data) != KEY_SIZE {
		return key, fmt.Errorf("key must be %d bytes, got %d", KEY_SIZE, len(data))
	}
	copy(key[:], data)
	return key, nil
}

// Token binds a client id to a protocol and a key.
func Token(key Key, protocolID uint32, clientID uint64) uint64 {
	var buffer [KEY_SIZE + 4 + 8]byte
	copy(buffer[:], key[:])
	binary.LittleEndian.PutUint32(buffer[KEY_SIZE:], protocolID)
	binary.LittleEndian.PutUint64(buffer[KEY_SIZE+4:], clientID)
	return xxhash.Sum64(buffer[:])
}

func NewHello(key Key, clientID uint64) Hello {
	return Hello{
		ProtocolID: PROTOCOL_ID,
		ClientID:   clientID,
		Token:      Token(key, PROTOCOL_ID, clientID),
	}
}

// Verify checks a Hello against the server's key.
func (h Hello) Verify(key Key) error {
	if h.ProtocolID != PROTOCOL_ID {
		return fmt.Errorf("%w: client speaks %d, server %d", ErrProtocolMismatch, h.ProtocolID, PROTOCOL_ID)
	}
	var got, want [8]byte
	binary.LittleEndian.PutUint64(got[:], h.Token)
	binary.LittleEndian.PutUint64(want[:], Token(key, h.ProtocolID, h.ClientID))
	if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
		return ErrBadToken
	}
	return nil
}
