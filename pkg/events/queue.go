// Package events moves things that happen during a tick to whoever handles
// them: queues inside the simulation, topics and sinks outside it.
package events

// Queue collects values raised during a tick. The tick's handler drains it
// once, so each value is delivered at most once.
type Queue[T any] struct {
	items []T
}

func (q *Queue[T]) Push(item T) {
	q.items = append(q.items, item)
}

// Drain hands every queued value to handle in the order they were pushed
// and empties the queue. Values pushed by handle wait for the next drain.
func (q *Queue[T]) Drain(handle func(T)) {
	items := q.items
	q.items = nil
	for _, item := range items {
		handle(item)
	}
}

// Filter drops every queued value keep rejects.
func (q *Queue[T]) Filter(keep func(T) bool) {
	kept := q.items[:0]
	for _, item := range q.items {
		if keep(item) {
			kept = append(kept, item)
		}
	}
	var zero T
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = zero
	}
	q.items = kept
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}
