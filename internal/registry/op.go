// Package registry implements the fd registry, timer registry, and
// posted-work queue that back the reactor core. All three
// are plain data structures with no knowledge of the OS backend or of
// coroutines; the reactor composes them.
package registry

import "github.com/ehrlich-b/go-iocoro/internal/ioerr"

// Operation is the type-erased reactor continuation: an OnComplete/OnAbort
// callback pair that a registry holds until the awaited condition fires.
//
// Exactly one of OnComplete/OnAbort is invoked by the registry that holds the
// operation, and Destroy is always invoked immediately afterward. Callers
// must not retain a reference to an Operation once it has been handed back by
// a registry accessor (Cancel, TakeReady, Deregister, DrainAll): ownership
// moves out of the registry at that point, on completion or cancellation.
type Operation interface {
	// OnComplete signals that the awaited condition (fd readiness, timer
	// expiry) has arrived.
	OnComplete()

	// OnAbort signals that the operation was cancelled, deregistered, or
	// that the reactor is stopping. kind is attached to the error the
	// awaiting coroutine observes.
	OnAbort(kind ioerr.Kind)

	// Destroy releases any resources the operation's creator attached to it.
	// Called exactly once, immediately after OnComplete or OnAbort.
	Destroy()
}

// FuncOperation adapts three closures into an Operation, the way
// http.HandlerFunc adapts a function into a http.Handler. Release may be nil
// when there is nothing to release.
type FuncOperation struct {
	Complete func()
	Abort    func(ioerr.Kind)
	Release  func()
}

func (f FuncOperation) OnComplete() {
	if f.Complete != nil {
		f.Complete()
	}
}

func (f FuncOperation) OnAbort(kind ioerr.Kind) {
	if f.Abort != nil {
		f.Abort(kind)
	}
}

func (f FuncOperation) Destroy() {
	if f.Release != nil {
		f.Release()
	}
}
