// Package session binds connected clients to the entities they control.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/cfoust/strafe/pkg/physics"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
)

type ClientID uint64

var (
	ErrAlreadyConnected = errors.New("client is already connected")
	ErrEntityTaken      = errors.New("entity already belongs to a client")
)

// Identity ties one client to one entity for as long as it stays connected.
type Identity struct {
	Client    ClientID
	Entity    physics.EntityID
	Connected time.Time
	// Names the connection in the session store.
	Record uuid.UUID
}

type Registry struct {
	mutex    deadlock.RWMutex
	byClient map[ClientID]Identity
	byEntity map[physics.EntityID]ClientID
}

func NewRegistry() *Registry {
	return &Registry{
		byClient: make(map[ClientID]Identity),
		byEntity: make(map[physics.EntityID]ClientID),
	}
}

// Bind creates the identity for a newly connected client.
func (r *Registry) Bind(client ClientID, entity physics.EntityID) (Identity, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.byClient[client]; ok {
		return Identity{}, fmt.Errorf("%w: %d", ErrAlreadyConnected, client)
	}
	if owner, ok := r.byEntity[entity]; ok {
		return Identity{}, fmt.Errorf("%w: entity %d is client %d's", ErrEntityTaken, entity, owner)
	}

	identity := Identity{
		Client:    client,
		Entity:    entity,
		Connected: time.Now(),
		Record:    uuid.New(),
	}
	r.byClient[client] = identity
	r.byEntity[entity] = client
	return identity, nil
}

// Unbind tears down a client's identity and returns what it was.
func (r *Registry) Unbind(client ClientID) (Identity, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	identity, ok := r.byClient[client]
	if !ok {
		return Identity{}, false
	}
	delete(r.byClient, client)
	delete(r.byEntity, identity.Entity)
	return identity, true
}

func (r *Registry) Lookup(client ClientID) (Identity, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	identity, ok := r.byClient[client]
	return identity, ok
}

func (r *Registry) Owner(entity physics.EntityID) (ClientID, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	client, ok := r.byEntity[entity]
	return client, ok
}

func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.byClient)
}

// Identities returns every bound identity in no particular order.
func (r *Registry) Identities() []Identity {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	identities := make([]Identity, 0, len(r.byClient))
	for _, identity := range r.byClient {
		identities = append(identities, identity)
	}
	return identities
}
