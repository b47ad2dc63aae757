// Package replication carries movement state from the server to clients and
// turns it back into something to draw or predict from.
package replication

import (
	"fmt"

	"github.com/cfoust/strafe/pkg/geom"
	"github.com/cfoust/strafe/pkg/movement"
	"github.com/cfoust/strafe/pkg/tick"

	"github.com/go-gl/mathgl/mgl32"
)

// Role is how a networked movement component is kept up to date on this
// side of the connection.
type Role uint8

const (
	// Written by the server every tick.
	Authoritative Role = iota
	// Simulated ahead by the client that owns it.
	Predicted
	// Blended between snapshots; never simulated.
	Interpolated
)

func (r Role) String() string {
	switch r {
	case Authoritative:
		return "authoritative"
	case Predicted:
		return "predicted"
	case Interpolated:
		return "interpolated"
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// RoleFor decides how a client treats an entity it learns about.
func RoleFor(owned bool) Role {
	if owned {
		return Predicted
	}
	return Interpolated
}

// Snapshot is the replicated part of a player's movement. Fields are encoded
// positionally so the layout must not change.
type Snapshot struct {
	_           struct{} `cbor:",toarray"`
	Translation mgl32.Vec3
	Scale       mgl32.Vec3
	Velocity    mgl32.Vec3
	Yaw         float32
	Pitch       float32
}

// Stamped is a snapshot with the tick it was taken on.
type Stamped struct {
	_        struct{} `cbor:",toarray"`
	Tick     tick.Tick
	Snapshot Snapshot
}

func Capture(state *movement.State) Snapshot {
	return Snapshot{
		Translation: state.Position,
		Scale:       state.Scale,
		Velocity:    state.Velocity,
		Yaw:         state.Look.Yaw,
		Pitch:       state.Look.Pitch,
	}
}

// Restore overwrites the replicated fields of state. Mode, height and
// collider stay as the local simulation left them.
func (s Snapshot) Restore(state *movement.State) {
	state.Position = s.Translation
	state.Scale = s.Scale
	state.Velocity = s.Velocity
	state.Look.Yaw = s.Yaw
	state.Look.Pitch = s.Pitch
}

// Lerp blends two snapshots. Yaw takes the shorter way around.
func Lerp(from, to Snapshot, t float32) Snapshot {
	t = geom.Clamp(t, 0, 1)
	return Snapshot{
		Translation: geom.Lerp(from.Translation, to.Translation, t),
		Scale:       geom.Lerp(from.Scale, to.Scale, t),
		Velocity:    geom.Lerp(from.Velocity, to.Velocity, t),
		Yaw:         geom.LerpAngle(from.Yaw, to.Yaw, t),
		Pitch:       from.Pitch + (to.Pitch-from.Pitch)*t,
	}
}
