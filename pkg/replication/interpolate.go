package replication

import (
	"github.com/cfoust/strafe/pkg/tick"

	opt "github.com/repeale/fp-go/option"
	"github.com/sasha-s/go-deadlock"
)

// Buffer keeps the two newest snapshots of an entity by tick.
type Buffer struct {
	older Stamped
	newer Stamped
	count int
}

// Push stores a snapshot unless it is not newer than the newest one held.
// Late and duplicate arrivals are dropped and Push returns false.
func (b *Buffer) Push(stamped Stamped) bool {
	if b.count > 0 && !tick.Newer(stamped.Tick, b.newer.Tick) {
		return false
	}

	b.older = b.newer
	b.newer = stamped
	if b.count < 2 {
		b.count++
	}
	if b.count == 1 {
		b.older = stamped
	}
	return true
}

func (b *Buffer) Len() int {
	return b.count
}

// Pair returns the older and newer snapshots. With a single snapshot held
// both are the same.
func (b *Buffer) Pair() (Stamped, Stamped, bool) {
	return b.older, b.newer, b.count > 0
}

// Interpolator renders a remote entity between the two newest snapshots.
// The network goroutine pushes and the frame loop samples.
type Interpolator struct {
	mutex deadlock.RWMutex

	buffer Buffer
	// Seconds of a tick.
	step float32
	// Seconds since the newest snapshot arrived.
	elapsed float32
}

func NewInterpolator(rate int) *Interpolator {
	return &Interpolator{
		step: tick.Seconds(rate),
	}
}

func (i *Interpolator) Push(stamped Stamped) bool {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if !i.buffer.Push(stamped) {
		return false
	}
	i.elapsed = 0
	return true
}

// Sample advances the interpolation clock by elapsed seconds and returns the
// blended snapshot. Once the newest snapshot is reached the entity holds
// there until another arrives.
func (i *Interpolator) Sample(elapsed float32) opt.Option[Snapshot] {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	older, newer, ok := i.buffer.Pair()
	if !ok {
		return opt.None[Snapshot]()
	}

	i.elapsed += elapsed

	span := float32(newer.Tick-older.Tick) * i.step
	if span <= 0 {
		return opt.Some(newer.Snapshot)
	}
	return opt.Some(Lerp(older.Snapshot, newer.Snapshot, i.elapsed/span))
}

// Ticks returns the ticks being blended between.
func (i *Interpolator) Ticks() (tick.Tick, tick.Tick, bool) {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	older, newer, ok := i.buffer.Pair()
	return older.Tick, newer.Tick, ok
}

// Latest is the newest snapshot received, if any.
func (i *Interpolator) Latest() opt.Option[Stamped] {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	_, newer, ok := i.buffer.Pair()
	if !ok {
		return opt.None[Stamped]()
	}
	return opt.Some(newer)
}
