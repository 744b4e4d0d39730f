package iocoro

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
	"github.com/ehrlich-b/go-iocoro/internal/registry"
)

// SteadyTimer is a single-shot, cancellable timer bound to a Reactor, built
// on the reactor's timer registry. "Steady" echoes steady_clock naming:
// monotonic, not wall-clock.
type SteadyTimer struct {
	r     *Reactor
	mu    chan struct{} // trivial mutex via 1-buffered channel, avoids importing sync here
	token registry.TimerToken
	armed bool
}

// NewSteadyTimer constructs an unarmed timer on r.
func NewSteadyTimer(r *Reactor) *SteadyTimer {
	t := &SteadyTimer{r: r, mu: make(chan struct{}, 1)}
	t.mu <- struct{}{}
	return t
}

// WaitFor arms the timer to fire after d and blocks until it fires or ctx is
// cancelled. Re-arming a timer that is already pending cancels the previous
// arm first.
func (t *SteadyTimer) WaitFor(ctx context.Context, d time.Duration) error {
	return t.WaitUntil(ctx, time.Now().Add(d))
}

// WaitUntil is WaitFor's absolute-deadline counterpart.
func (t *SteadyTimer) WaitUntil(ctx context.Context, deadline time.Time) error {
	<-t.mu
	if t.armed {
		t.r.internalCore().CancelTimer(t.token)
	}
	t.armed = true
	t.mu <- struct{}{}

	resultCh := make(chan error, 1)
	var delivered atomic.Bool
	op := &registry.FuncOperation{
		Complete: func() {
			if delivered.CompareAndSwap(false, true) {
				resultCh <- nil
			}
		},
		Abort: func(kind ioerr.Kind) {
			if delivered.CompareAndSwap(false, true) {
				resultCh <- kind
			}
		},
	}

	<-t.mu
	t.token = t.r.internalCore().AddTimer(deadline, op)
	t.mu <- struct{}{}

	select {
	case err := <-resultCh:
		<-t.mu
		t.armed = false
		t.mu <- struct{}{}
		return err
	case <-ctx.Done():
		<-t.mu
		tok := t.token
		t.armed = false
		t.mu <- struct{}{}
		t.r.internalCore().CancelTimer(tok)
		<-resultCh
		return ErrOperationAborted
	}
}

// Cancel aborts a pending wait, if any.
func (t *SteadyTimer) Cancel() {
	<-t.mu
	if t.armed {
		t.r.internalCore().CancelTimer(t.token)
		t.armed = false
	}
	t.mu <- struct{}{}
}
