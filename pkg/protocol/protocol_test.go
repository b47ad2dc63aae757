package protocol

import (
	"errors"
	"testing"

	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/replication"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputRoundTrip(t *testing.T) {
	message := Input{
		Entries: []input.Entry{
			{Tick: 41, Sample: input.Sample{Movement: mgl32.Vec3{0, 0, 1}, Yaw: 0.5}},
			{Tick: 42, Sample: input.Sample{Movement: mgl32.Vec3{1, 0, 1}, Jump: true, Shoot: true, Pitch: -0.25}},
		},
	}

	data, err := Encode(message)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, message, decoded)
	assert.Equal(t, CHANNEL_UNRELIABLE, Channel(decoded))
}

func TestSnapshotIsPositional(t *testing.T) {
	snapshot := replication.Snapshot{
		Translation: mgl32.Vec3{1, 2, 3},
		Scale:       mgl32.Vec3{1, 1, 1},
		Velocity:    mgl32.Vec3{0, -1, 0},
		Yaw:         0.5,
		Pitch:       0.25,
	}

	data, err := cbor.Marshal(snapshot)
	require.NoError(t, err)

	var fields []any
	require.NoError(t, cbor.Unmarshal(data, &fields))
	assert.Len(t, fields, 5)
}

func TestUnknownOp(t *testing.T) {
	data, err := cbor.Marshal(envelope{Op: 200})
	require.NoError(t, err)

	_, err = Decode(data)
	assert.True(t, errors.Is(err, ErrUnknownOp))

	_, err = Decode([]byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestChannels(t *testing.T) {
	assert.Equal(t, CHANNEL_RELIABLE, Channel(Chat{}))
	assert.Equal(t, CHANNEL_RELIABLE, Channel(Spawn{}))
	assert.Equal(t, CHANNEL_UNRELIABLE, Channel(World{}))
}

func TestHello(t *testing.T) {
	key, err := ParseKey("")
	require.NoError(t, err)

	hello := NewHello(key, 77)
	assert.NoError(t, hello.Verify(key))

	other := key
	other[0] = 1
	assert.True(t, errors.Is(hello.Verify(other), ErrBadToken))

	forged := hello
	forged.Token ^= 1 << 63
	assert.True(t, errors.Is(forged.Verify(key), ErrBadToken))

	// A token is only good for the client id it was made for.
	borrowed := hello
	borrowed.ClientID = 78
	assert.True(t, errors.Is(borrowed.Verify(key), ErrBadToken))

	hello.ProtocolID = 2
	assert.True(t, errors.Is(hello.Verify(key), ErrProtocolMismatch))

	_, err = ParseKey("abcd")
	assert.Error(t, err)
}
