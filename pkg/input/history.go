package input

import "github.com/cfoust/strafe/pkg/tick"

// History remembers the samples a client has predicted with but the server
// has not yet acknowledged.
type History struct {
	entries []Entry
}

func (h *History) Record(t tick.Tick, sample Sample) {
	h.entries = append(h.entries, Entry{Tick: t, Sample: sample})
	if len(h.entries) > HISTORY_LIMIT {
		h.entries = h.entries[len(h.entries)-HISTORY_LIMIT:]
	}
}

// Ack forgets every sample up to and including t.
func (h *History) Ack(t tick.Tick) {
	i := 0
	for i < len(h.entries) && !tick.Newer(h.entries[i].Tick, t) {
		i++
	}
	h.entries = h.entries[i:]
}

// Since returns the samples recorded after t, oldest first.
func (h *History) Since(t tick.Tick) []Entry {
	for i, entry := range h.entries {
		if tick.Newer(entry.Tick, t) {
			return h.entries[i:]
		}
	}
	return nil
}

// Latest returns up to n of the newest samples, oldest first. Clients send
// these together so a single lost datagram does not lose a tick.
func (h *History) Latest(n int) []Entry {
	if n > len(h.entries) {
		n = len(h.entries)
	}
	return h.entries[len(h.entries)-n:]
}

func (h *History) Len() int {
	return len(h.entries)
}
