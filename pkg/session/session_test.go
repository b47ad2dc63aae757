package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRegistryIsOneToOne(t *testing.T) {
	registry := NewRegistry()

	identity, err := registry.Bind(1, 10)
	require.NoError(t, err)
	assert.Equal(t, ClientID(1), identity.Client)

	_, err = registry.Bind(1, 11)
	assert.True(t, errors.Is(err, ErrAlreadyConnected))

	_, err = registry.Bind(2, 10)
	assert.True(t, errors.Is(err, ErrEntityTaken))

	owner, ok := registry.Owner(10)
	require.True(t, ok)
	assert.Equal(t, ClientID(1), owner)

	unbound, ok := registry.Unbind(1)
	require.True(t, ok)
	assert.Equal(t, identity, unbound)
	assert.Equal(t, 0, registry.Len())

	_, ok = registry.Owner(10)
	assert.False(t, ok)
	_, ok = registry.Unbind(1)
	assert.False(t, ok)

	// Once released, both the client id and the entity can be bound again.
	again, err := registry.Bind(1, 10)
	require.NoError(t, err)
	assert.NotEqual(t, identity.Record, again.Record)
}

func TestRegistryLookupMiss(t *testing.T) {
	registry := NewRegistry()
	_, ok := registry.Lookup(99)
	assert.False(t, ok)
	assert.Empty(t, registry.Identities())
}

func TestStore(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	registry := NewRegistry()
	identity, err := registry.Bind(5, 3)
	require.NoError(t, err)

	connected := time.Now()
	require.NoError(t, store.Apply(ctx, Change{
		Kind:     ChangeConnected,
		Identity: identity,
		Color:    [3]float32{1, 0, 0},
		At:       connected,
	}))

	record, err := store.Get(ctx, identity.Record)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), record.ClientID)
	assert.Equal(t, float32(1), record.ColorR)
	assert.Nil(t, record.Disconnected)

	require.NoError(t, store.Apply(ctx, Change{
		Kind:     ChangeDisconnected,
		Identity: identity,
		Stats:    Stats{Shots: 10, Hits: 4, Points: -2},
		At:       connected.Add(time.Minute),
	}))

	record, err = store.Get(ctx, identity.Record)
	require.NoError(t, err)
	assert.Equal(t, 10, record.Shots)
	assert.Equal(t, -2, record.Points)
	require.NotNil(t, record.Disconnected)

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	_, err = store.Get(ctx, registry.Identities()[0].Record)
	require.NoError(t, err)

	registry.Unbind(5)
	other, _ := registry.Bind(6, 4)
	_, err = store.Get(ctx, other.Record)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
