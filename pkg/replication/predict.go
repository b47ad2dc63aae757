package replication

import (
	"fmt"

	"github.com/cfoust/strafe/pkg/input"
	"github.com/cfoust/strafe/pkg/movement"
	"github.com/cfoust/strafe/pkg/physics"
	"github.com/cfoust/strafe/pkg/tick"
)

// predicted is the controller as it was left by one predicted tick.
type predicted struct {
	Tick  tick.Tick
	State movement.State
}

// Predictor runs the local player ahead of the server and pulls it back in
// line whenever the server reports where it actually is.
type Predictor struct {
	Config  *movement.Config
	Role    Role
	State   movement.State
	Entity  physics.EntityID
	History input.History

	// Parallel to History, plus the entry for the last acknowledged tick.
	states []predicted
	dt     float32
}

func NewPredictor(config *movement.Config, state movement.State, entity physics.EntityID, rate int) *Predictor {
	return &Predictor{
		Config: config,
		Role:   Predicted,
		State:  state,
		Entity: entity,
		dt:     tick.Seconds(rate),
	}
}

// Predict simulates one local tick and remembers the sample for replay.
func (p *Predictor) Predict(t tick.Tick, sample input.Sample, world movement.World) error {
	p.History.Record(t, sample)
	if err := movement.Advance(p.Config, &p.State, sample, p.dt, world, p.Entity); err != nil {
		return fmt.Errorf("could not predict tick %d: %w", t, err)
	}

	p.states = append(p.states, predicted{Tick: t, State: p.State})
	if len(p.states) > input.HISTORY_LIMIT+1 {
		p.states = p.states[len(p.states)-input.HISTORY_LIMIT-1:]
	}
	return nil
}

// rewind finds the state left by tick t and forgets everything before it.
func (p *Predictor) rewind(t tick.Tick) (movement.State, bool) {
	i := 0
	for i < len(p.states) && tick.Newer(t, p.states[i].Tick) {
		i++
	}
	p.states = p.states[i:]

	if len(p.states) == 0 || p.states[0].Tick != t {
		return movement.State{}, false
	}
	return p.states[0].State, true
}

// Reconcile takes the server's snapshot as truth and replays every sample
// the server had not consumed when it took it. It returns how many samples
// were replayed.
//
// Only part of the controller is replicated, so the rest (mode, crouch
// height, collider) is rolled back to what this client predicted for the
// acknowledged tick before replaying.
func (p *Predictor) Reconcile(ack tick.Tick, snapshot Snapshot, world movement.World) (int, error) {
	p.History.Ack(ack)
	pending := p.History.Since(ack)

	past, ok := p.rewind(ack)
	if ok {
		p.State.Mode = past.Mode
		p.State.Height = past.Height
		p.State.Collider = past.Collider
	}
	snapshot.Restore(&p.State)
	world.Update(p.Entity, p.State.Position, p.State.Collider)

	if ok {
		p.states = p.states[:1]
	} else {
		p.states = p.states[:0]
	}
	for _, entry := range pending {
		sample := entry.Sample
		if !ok {
			// Nothing to roll back to; the mode already reflects every
			// toggle in the history.
			sample = sample.Held()
		}
		if err := movement.Advance(p.Config, &p.State, sample, p.dt, world, p.Entity); err != nil {
			return 0, fmt.Errorf("could not replay tick %d: %w", entry.Tick, err)
		}
		p.states = append(p.states, predicted{Tick: entry.Tick, State: p.State})
	}
	return len(pending), nil
}
