package promise

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
)

// result holds either a value or an error, never both: a Result<T,
// ErrorKind>-style pairing.
type result[T any] struct {
	val T
	err error
}

// Task is a single-consumer future: the outcome of exactly one asynchronous
// computation, deliverable to at most one Await caller. The suspension is a
// goroutine blocked on a channel rather than a suspended coroutine frame,
// but the external contract (await-once, result-or-error, cancellable) is
// the same one a stackless-coroutine return object would provide.
type Task[T any] struct {
	done     chan struct{}
	mu       sync.Mutex
	res      result[T]
	produced bool

	awaited atomic.Bool // CAS-guarded: at most one Await per Task
}

// NewTask constructs an unresolved task.
func NewTask[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

// Resolve completes the task successfully. Resolve/Reject may be called
// exactly once; subsequent calls are no-ops, the same exactly-once
// completion contract Operation implementations provide.
func (t *Task[T]) Resolve(v T) {
	t.mu.Lock()
	if t.produced {
		t.mu.Unlock()
		return
	}
	t.produced = true
	t.res = result[T]{val: v}
	t.mu.Unlock()
	close(t.done)
}

// Reject completes the task with an error.
func (t *Task[T]) Reject(err error) {
	t.mu.Lock()
	if t.produced {
		t.mu.Unlock()
		return
	}
	t.produced = true
	t.res = result[T]{err: err}
	t.mu.Unlock()
	close(t.done)
}

// Await blocks until the task resolves or ctx is cancelled, returning
// ioerr.OperationAborted on cancellation. Calling Await more than once on
// the same Task panics: at most one awaiter is ever allowed, which is what
// lets WhenAnyCancelJoin peek at Done without risking a double-delivered
// result.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	if !t.awaited.CompareAndSwap(false, true) {
		panic("promise: Task awaited more than once")
	}
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.res.val, t.res.err
	case <-ctx.Done():
		var zero T
		return zero, ioerr.OperationAborted
	}
}

// Done returns a channel closed once the task resolves, for callers that
// want to select on multiple tasks without consuming Await's single-use
// guarantee (e.g. WhenAnyCancelJoin joins its losing arms on Done).
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Peek returns the resolved value without blocking or consuming the
// single-Await guarantee. ok is false if the task has not resolved yet.
func (t *Task[T]) Peek() (val T, err error, ok bool) {
	select {
	case <-t.done:
	default:
		return val, nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.res.val, t.res.err, true
}
