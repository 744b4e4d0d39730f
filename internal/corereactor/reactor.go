// Package corereactor implements the single-threaded event loop: one pass
// over posted work, then expired timers, then I/O readiness, repeated until
// stopped or out of work. It composes the leaf registries from
// internal/registry with a backend.Backend and an OS-thread-pinned run
// loop.
package corereactor

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-iocoro/internal/backend"
	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
	"github.com/ehrlich-b/go-iocoro/internal/logging"
	"github.com/ehrlich-b/go-iocoro/internal/registry"
)

// Config controls how a Reactor is constructed. Zero value is valid and
// selects backend.KindAuto with no idle timeout cap.
type Config struct {
	BackendKind backend.Kind
	// MaxWait caps how long a single Wait call may block even with no
	// pending timer, so Run wakes periodically to recheck HasWork(). Zero
	// means no cap (block until Wakeup, a timer, or an I/O event).
	MaxWait time.Duration
}

// Reactor is the reactor core: posted-work queue, timer registry, fd
// registry, and a backend, driven from a single owning goroutine at a time.
type Reactor struct {
	cfg Config
	be  backend.Backend
	log *logging.Logger

	posted *registry.PostQueue
	timers *registry.TimerRegistry
	fds    *registry.ThreadedFDRegistry

	stopped   atomic.Bool
	workGuard atomic.Int64

	// ownerTID is the OS thread ID of the goroutine currently inside
	// Run/RunOne/RunFor, or 0 if none. Dispatch compares the caller's live
	// unix.Gettid() against this to decide inline-vs-post: Run pins itself to
	// one OS thread with runtime.LockOSThread() so the comparison stays valid
	// for the whole run.
	ownerTID atomic.Int32

	runMu sync.Mutex // serializes Run/RunOne/RunFor entry (one owner at a time)
}

// New constructs a Reactor with the given config, creating its backend.
func New(cfg Config) (*Reactor, error) {
	be, err := backend.New(cfg.BackendKind)
	if err != nil {
		return nil, fmt.Errorf("corereactor: %w", err)
	}
	r := &Reactor{
		cfg:    cfg,
		be:     be,
		log:    logging.Default().Named("reactor"),
		posted: registry.NewPostQueue(),
		timers: registry.NewTimerRegistry(),
		fds:    registry.NewThreadedFDRegistry(),
	}
	return r, nil
}

// Stop requests that the current or next Run/RunFor pass exit after
// finishing its current unit of work. Safe to call from any goroutine.
func (r *Reactor) Stop() {
	r.stopped.Store(true)
	r.be.Wakeup()
}

// Restart clears the stopped flag so a subsequent Run resumes processing
// the posted work left behind by a prior Stop.
func (r *Reactor) Restart() {
	r.stopped.Store(false)
}

// Stopped reports whether Stop has been called since the last Restart.
func (r *Reactor) Stopped() bool { return r.stopped.Load() }

// AddWorkGuard increments the outstanding-work counter, so HasWork reports
// true even with an empty queue (e.g. a long-lived listening acceptor).
func (r *Reactor) AddWorkGuard() { r.workGuard.Add(1) }

// RemoveWorkGuard decrements the outstanding-work counter.
func (r *Reactor) RemoveWorkGuard() { r.workGuard.Add(-1) }

// HasWork reports whether the reactor believes it has anything left to do:
// posted thunks, live timers, active fds, or an outstanding work guard.
func (r *Reactor) HasWork() bool {
	return r.posted.Len() > 0 || r.timers.Len() > 0 || r.fds.ActiveCount() > 0 || r.workGuard.Load() > 0
}

// onThread reports whether the calling goroutine is pinned to the same OS
// thread currently running Run/RunOne/RunFor.
func (r *Reactor) onThread() bool {
	owner := r.ownerTID.Load()
	return owner != 0 && owner == int32(unix.Gettid())
}

// Post schedules f to run on the reactor's owning thread. If called from
// that thread it still enqueues rather than running inline, preserving the
// invariant that a continuation posted here never resumes inline from the
// caller's stack; Dispatch is the inline-capable entry point.
func (r *Reactor) Post(f func()) {
	r.posted.Post(f)
	r.be.Wakeup()
}

// Dispatch runs f inline if the caller is already on the reactor's owning
// thread, otherwise posts it.
func (r *Reactor) Dispatch(f func()) {
	if r.onThread() {
		f()
		return
	}
	r.Post(f)
}

// AddTimer schedules op to fire (OnComplete) at expiry, or be aborted if the
// reactor stops first. Returns a token usable with CancelTimer.
func (r *Reactor) AddTimer(expiry time.Time, op registry.Operation) registry.TimerToken {
	tok := r.timers.Add(expiry, op)
	r.be.Wakeup()
	return tok
}

// CancelTimer cancels a pending timer; a stale or already-fired token is a
// harmless no-op.
func (r *Reactor) CancelTimer(tok registry.TimerToken) bool {
	_, cancelled := r.timers.Cancel(tok)
	if cancelled {
		r.be.Wakeup()
	}
	return cancelled
}

// RegisterFDRead arms op to fire when fd becomes readable.
func (r *Reactor) RegisterFDRead(fd int, op registry.Operation) (uint64, error) {
	token, replaced, interest := r.fds.RegisterRead(fd, op)
	if replaced != nil {
		replaced.OnAbort(ioerr.OperationAborted)
		replaced.Destroy()
	}
	if err := r.be.UpdateInterest(fd, interest.Read, interest.Write); err != nil {
		return 0, err
	}
	return token, nil
}

// RegisterFDWrite arms op to fire when fd becomes writable.
func (r *Reactor) RegisterFDWrite(fd int, op registry.Operation) (uint64, error) {
	token, replaced, interest := r.fds.RegisterWrite(fd, op)
	if replaced != nil {
		replaced.OnAbort(ioerr.OperationAborted)
		replaced.Destroy()
	}
	if err := r.be.UpdateInterest(fd, interest.Read, interest.Write); err != nil {
		return 0, err
	}
	return token, nil
}

// CancelFDRead cancels a pending read registration by token; stale tokens are
// a no-op.
func (r *Reactor) CancelFDRead(fd int, token uint64) bool {
	return r.cancelFD(fd, registry.Read, token)
}

// CancelFDWrite cancels a pending write registration by token.
func (r *Reactor) CancelFDWrite(fd int, token uint64) bool {
	return r.cancelFD(fd, registry.Write, token)
}

func (r *Reactor) cancelFD(fd int, kind registry.Kind, token uint64) bool {
	op, interest, matched := r.fds.Cancel(fd, kind, token)
	if !matched {
		return false
	}
	r.be.UpdateInterest(fd, interest.Read, interest.Write)
	op.OnAbort(ioerr.OperationAborted)
	op.Destroy()
	return true
}

// DeregisterFD clears and aborts both slots for fd, then removes it from the
// backend entirely. Callers close fd only after this returns.
func (r *Reactor) DeregisterFD(fd int) {
	readOp, writeOp, had := r.fds.Deregister(fd)
	if !had {
		r.be.RemoveInterest(fd)
		return
	}
	r.be.RemoveInterest(fd)
	if readOp != nil {
		readOp.OnAbort(ioerr.OperationAborted)
		readOp.Destroy()
	}
	if writeOp != nil {
		writeOp.OnAbort(ioerr.OperationAborted)
		writeOp.Destroy()
	}
}

// Run processes posted work, timers, and I/O events until Stop is called.
// It does not return on its own when HasWork reports false: with nothing to
// do it blocks in the backend until Post, a timer, I/O or Stop wakes it,
// whether or not work guards are held. It pins the
// calling goroutine to its OS thread for the duration, so Dispatch's
// thread-identity check stays meaningful throughout the run.
func (r *Reactor) Run() {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	r.ownerTID.Store(int32(unix.Gettid()))
	defer r.ownerTID.Store(0)

	for {
		r.tick(-1)
		if r.stopped.Load() {
			r.drainOnStop()
			return
		}
	}
}

// RunFor runs the loop for up to d, returning early if Stop is called.
func (r *Reactor) RunFor(d time.Duration) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	r.ownerTID.Store(int32(unix.Gettid()))
	defer r.ownerTID.Store(0)

	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		r.tick(remaining)
		if r.stopped.Load() {
			r.drainOnStop()
			return
		}
	}
}

// RunOne processes exactly one unit of progress (a posted thunk, a fired
// timer batch, or one backend.Wait's worth of I/O events) and returns,
// reporting whether anything ran.
func (r *Reactor) RunOne() bool {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	r.ownerTID.Store(int32(unix.Gettid()))
	defer r.ownerTID.Store(0)

	if n := r.posted.DrainUpTo(1); n > 0 {
		return true
	}
	now := time.Now()
	if _, has := r.timers.NextTimeout(now); has {
		before := r.timers.Len()
		r.timers.ProcessExpired(now, r.stopped.Load())
		if r.timers.Len() != before {
			return true
		}
	}
	events, err := r.be.Wait(0)
	if err != nil {
		r.log.Warnf("backend wait error: %v", err)
		return false
	}
	if len(events) == 0 {
		return false
	}
	r.dispatchEvents(events)
	return true
}

// tick runs one pass: drain posted work, process expired timers, wait for
// I/O readiness up to maxWait (capped by cfg.MaxWait if set and smaller).
func (r *Reactor) tick(maxWait time.Duration) {
	r.posted.DrainAll()

	now := time.Now()
	r.timers.ProcessExpired(now, false)

	wait := maxWait
	if timerWait, has := r.timers.NextTimeout(now); has {
		if wait < 0 || timerWait < wait {
			wait = timerWait
		}
	}
	if r.cfg.MaxWait > 0 && (wait < 0 || r.cfg.MaxWait < wait) {
		wait = r.cfg.MaxWait
	}
	if !r.HasWork() && wait < 0 {
		// Nothing scheduled and no cap: still wait, Stop()/Post() will wake us.
		wait = -1
	}

	events, err := r.be.Wait(wait)
	if err != nil {
		r.log.Warnf("backend wait error: %v", err)
		return
	}
	r.dispatchEvents(events)
}

func (r *Reactor) dispatchEvents(events []backend.Event) {
	for _, ev := range events {
		readOp, writeOp, interest := r.fds.TakeReady(ev.FD, ev.Readable, ev.Writable)
		r.be.UpdateInterest(ev.FD, interest.Read, interest.Write)
		if readOp != nil {
			completeOrAbort(readOp, ev.ErrorHint)
		}
		if writeOp != nil {
			completeOrAbort(writeOp, ev.ErrorHint)
		}
	}
}

func completeOrAbort(op registry.Operation, hint ioerr.Kind) {
	if hint != ioerr.None {
		op.OnAbort(hint)
	} else {
		op.OnComplete()
	}
	op.Destroy()
}

// drainOnStop aborts everything left in the registries when Run exits due to
// Stop, completing all outstanding timer and fd operations with
// ioerr.OperationAborted.
func (r *Reactor) drainOnStop() {
	for _, op := range r.timers.DrainAll() {
		op.OnAbort(ioerr.OperationAborted)
		op.Destroy()
	}
	fds, ops := r.fds.DrainAll()
	for i, op := range ops {
		op.OnAbort(ioerr.OperationAborted)
		op.Destroy()
		r.be.RemoveInterest(fds[i])
	}
}

// Close releases the reactor's backend resources. Call after the final Run
// returns.
func (r *Reactor) Close() error {
	return r.be.Close()
}
