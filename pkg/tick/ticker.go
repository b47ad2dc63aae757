package tick

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Ticker delivers one value per simulation step. It can be paused, for
// example while nobody is connected, without losing the step counter.
type Ticker struct {
	C <-chan Tick

	deadlock.Mutex
	pause  chan bool
	paused bool
	stop   chan struct{}
	done   chan struct{}
	ticker *time.Ticker
}

func NewTicker(rate int) *Ticker {
	c := make(chan Tick)
	t := &Ticker{
		C:      c,
		pause:  make(chan bool),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		ticker: time.NewTicker(Duration(rate)),
	}

	go t.run(c, t.pause, t.stop)

	return t
}

func (t *Ticker) run(c chan<- Tick, pause <-chan bool, stop <-chan struct{}) {
	defer close(t.done)

	next := Tick(1)
	for {
		select {
		case <-t.ticker.C:
			select {
			case c <- next:
				next++
			case shouldPause := <-pause:
				if !t.hold(shouldPause, pause, stop) {
					return
				}
			case <-stop:
				return
			}
		case shouldPause := <-pause:
			if !t.hold(shouldPause, pause, stop) {
				return
			}
		case <-stop:
			return
		}
	}
}

// hold blocks while paused. It returns false if the ticker was stopped in
// the meantime.
func (t *Ticker) hold(shouldPause bool, pause <-chan bool, stop <-chan struct{}) bool {
	if !shouldPause {
		return true
	}

	t.setPaused(true)
	for shouldPause {
		select {
		case shouldPause = <-pause:
		case <-stop:
			return false
		}
	}
	t.setPaused(false)
	return true
}

func (t *Ticker) setPaused(paused bool) {
	t.Lock()
	t.paused = paused
	t.Unlock()
}

func (t *Ticker) Pause() {
	t.send(true)
}

func (t *Ticker) Resume() {
	t.send(false)
}

func (t *Ticker) send(value bool) {
	select {
	case t.pause <- value:
	case <-t.done:
	}
}

func (t *Ticker) Paused() bool {
	t.Lock()
	defer t.Unlock()
	return t.paused
}

func (t *Ticker) Stop() {
	t.Lock()
	stop := t.stop
	t.stop = nil
	t.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-t.done
	t.ticker.Stop()
}

func (t *Ticker) Stopped() bool {
	t.Lock()
	defer t.Unlock()
	return t.stop == nil
}
