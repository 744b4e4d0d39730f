package iocoro

import (
	"context"
	"sync"
)

// NotifyEvent is a one-shot, multi-waiter wakeup primitive: any number of
// goroutines may Wait concurrently; Notify wakes all of them exactly once.
// Unlike sync.Cond, Wait here is cancellable via ctx, matching this
// runtime's cancellation-first posture.
type NotifyEvent struct {
	mu       sync.Mutex
	ch       chan struct{}
	notified bool
}

// NewNotifyEvent constructs an unfired event.
func NewNotifyEvent() *NotifyEvent {
	return &NotifyEvent{ch: make(chan struct{})}
}

// Notify fires the event, waking every current and future Wait call.
// Subsequent calls are no-ops.
func (e *NotifyEvent) Notify() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.notified {
		return
	}
	e.notified = true
	close(e.ch)
}

// Wait blocks until Notify is called or ctx is cancelled.
func (e *NotifyEvent) Wait(ctx context.Context) error {
	select {
	case <-e.ch:
		return nil
	case <-ctx.Done():
		return ErrOperationAborted
	}
}

// ConditionEvent pairs a NotifyEvent with a predicate: WaitUntil re-checks
// pred every time the event fires, in case the condition is still false (a
// spurious-wakeup-tolerant condition variable), and is itself reusable by
// calling Reset after the predicate becomes true.
type ConditionEvent struct {
	mu    sync.Mutex
	event *NotifyEvent
}

// NewConditionEvent constructs a ready-to-wait condition.
func NewConditionEvent() *ConditionEvent {
	return &ConditionEvent{event: NewNotifyEvent()}
}

// Signal wakes any goroutines blocked in WaitUntil so they re-check pred.
func (c *ConditionEvent) Signal() {
	c.mu.Lock()
	ev := c.event
	c.mu.Unlock()
	ev.Notify()
}

// WaitUntil blocks until pred() returns true or ctx is cancelled, re-checking
// pred each time Signal fires.
func (c *ConditionEvent) WaitUntil(ctx context.Context, pred func() bool) error {
	for {
		if pred() {
			return nil
		}
		c.mu.Lock()
		ev := c.event
		c.mu.Unlock()
		if err := ev.Wait(ctx); err != nil {
			return err
		}
	}
}

// Reset replaces the underlying NotifyEvent so WaitUntil can block again
// after a previous Signal, for condition variables that cycle between false
// and true repeatedly (e.g. a bounded queue's "not full" condition).
func (c *ConditionEvent) Reset() {
	c.mu.Lock()
	c.event = NewNotifyEvent()
	c.mu.Unlock()
}
