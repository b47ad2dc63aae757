// Package chanlock watches an event loop and complains when it stops
// servicing its channels.
package chanlock

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sasha-s/go-deadlock"
)

const (
	TIMEOUT_DURATION      = 5 * time.Second
	HEALTH_CHECK_DURATION = 1 * time.Second
)

// Chanlock sends the loop a health check every interval. A check the loop has
// not received within the timeout is reported along with the last mark the
// loop left.
type Chanlock struct {
	log      zerolog.Logger
	interval time.Duration
	timeout  time.Duration

	mutex    deadlock.RWMutex
	lastMark string
}

func New(logger zerolog.Logger) *Chanlock {
	return NewWithTimeout(logger, HEALTH_CHECK_DURATION, TIMEOUT_DURATION)
}

func NewWithTimeout(logger zerolog.Logger, interval, timeout time.Duration) *Chanlock {
	return &Chanlock{
		log:      logger,
		interval: interval,
		timeout:  timeout,
	}
}

// Mark records what the loop is about to do.
func (c *Chanlock) Mark(name string) {
	c.mutex.Lock()
	c.lastMark = name
	c.mutex.Unlock()
}

func (c *Chanlock) mark() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.lastMark
}

// Poll returns the channel the loop must keep receiving from.
func (c *Chanlock) Poll(ctx context.Context) <-chan time.Time {
	out := make(chan time.Time)

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case t := <-ticker.C:
				if !c.deliver(ctx, out, t) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (c *Chanlock) deliver(ctx context.Context, out chan<- time.Time, t time.Time) bool {
	timeout := time.NewTimer(c.timeout)
	defer timeout.Stop()

	for {
		select {
		case out <- t:
			c.Mark("")
			return true
		case <-timeout.C:
			event := c.log.Error()
			if mark := c.mark(); mark != "" {
				event = event.Str("mark", mark)
			}
			event.Dur("waited", c.timeout).Msg("event loop no longer healthy")
		case <-ctx.Done():
			return false
		}
	}
}
