package input

import (
	"sort"

	"github.com/cfoust/strafe/pkg/tick"
)

const (
	// The most samples a client may have queued on the server.
	BUFFER_LIMIT = 16
	// How many samples the client keeps for replay.
	HISTORY_LIMIT = 128
)

type Entry struct {
	_      struct{} `cbor:",toarray"`
	Tick   tick.Tick
	Sample Sample
}

// Buffer holds a client's samples on the server until the simulation
// consumes them, one per tick, in tick order.
type Buffer struct {
	pending  []Entry
	consumed bool
	last     Entry
}

// Push queues a sample. Samples for ticks that were already consumed or are
// already queued are dropped and Push returns false.
func (b *Buffer) Push(t tick.Tick, sample Sample) bool {
	if b.consumed && !tick.Newer(t, b.last.Tick) {
		return false
	}

	i := sort.Search(len(b.pending), func(i int) bool {
		return !tick.Newer(t, b.pending[i].Tick)
	})
	if i < len(b.pending) && b.pending[i].Tick == t {
		return false
	}

	b.pending = append(b.pending, Entry{})
	copy(b.pending[i+1:], b.pending[i:])
	b.pending[i] = Entry{Tick: t, Sample: sample}

	if len(b.pending) > BUFFER_LIMIT {
		b.pending = b.pending[len(b.pending)-BUFFER_LIMIT:]
	}

	return true
}

// Next hands out the oldest queued sample. When nothing is queued it repeats
// the previous sample without its one-shot flags and reports repeated.
func (b *Buffer) Next() (entry Entry, repeated bool) {
	if len(b.pending) == 0 {
		return Entry{Tick: b.last.Tick, Sample: b.last.Sample.Held()}, true
	}

	entry = b.pending[0]
	b.pending = b.pending[1:]
	b.last = entry
	b.consumed = true
	return entry, false
}

// Acked is the tick of the newest sample the simulation has consumed.
func (b *Buffer) Acked() tick.Tick {
	return b.last.Tick
}

func (b *Buffer) Len() int {
	return len(b.pending)
}
