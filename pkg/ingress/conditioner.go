package ingress

import (
	"math/rand"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Conditions describe how bad a simulated link should be.
type Conditions struct {
	LatencyMs int
	JitterMs  int
	// Fraction of datagrams to drop, in [0, 1].
	Loss float64
}

func (c Conditions) Enabled() bool {
	return c.LatencyMs > 0 || c.JitterMs > 0 || c.Loss > 0
}

// Conditioner degrades outgoing unreliable traffic so that prediction and
// interpolation can be exercised on a local network.
type Conditioner struct {
	conditions Conditions

	mutex deadlock.Mutex
	rng   *rand.Rand
}

func NewConditioner(conditions Conditions, seed int64) *Conditioner {
	return &Conditioner{
		conditions: conditions,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (c *Conditioner) Conditions() Conditions {
	return c.conditions
}

// Judge decides the fate of one datagram: whether it is dropped and
// otherwise how long it is held back.
func (c *Conditioner) Judge() (delay time.Duration, dropped bool) {
	if c == nil || !c.conditions.Enabled() {
		return 0, false
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.conditions.Loss > 0 && c.rng.Float64() < c.conditions.Loss {
		return 0, true
	}

	delay = time.Duration(c.conditions.LatencyMs) * time.Millisecond
	if c.conditions.JitterMs > 0 {
		jitter := c.rng.Intn(2*c.conditions.JitterMs+1) - c.conditions.JitterMs
		delay += time.Duration(jitter) * time.Millisecond
	}
	if delay < 0 {
		delay = 0
	}
	return delay, false
}

// Deliver calls send after the datagram's delay unless it is dropped.
func (c *Conditioner) Deliver(send func()) {
	delay, dropped := c.Judge()
	if dropped {
		return
	}
	if delay == 0 {
		send()
		return
	}
	time.AfterFunc(delay, send)
}
