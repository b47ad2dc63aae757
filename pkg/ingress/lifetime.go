package ingress

import (
	"context"
	"time"
)

// Lifetime is the context a connection's goroutines run under.
type Lifetime struct {
	ctx     context.Context
	cancel  context.CancelFunc
	started time.Time
}

func NewLifetime(ctx context.Context) *Lifetime {
	ctx, cancel := context.WithCancel(ctx)
	return &Lifetime{
		ctx:     ctx,
		cancel:  cancel,
		started: time.Now(),
	}
}

func (l *Lifetime) Ctx() context.Context {
	return l.ctx
}

func (l *Lifetime) Started() time.Time {
	return l.started
}

func (l *Lifetime) Uptime() time.Duration {
	return time.Since(l.started)
}

func (l *Lifetime) IsDone() bool {
	return l.ctx.Err() != nil
}

func (l *Lifetime) Cancel() {
	l.cancel()
}
