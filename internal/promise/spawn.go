package promise

import "context"

// SpawnAwaitable launches fn directly on its own goroutine, passing ctx
// through unchanged, and returns a Task observing its outcome. The start is
// not posted through any executor. Resolve/Reject themselves just close a
// channel, but callers that chain with Then get their continuation posted
// through the executor bound in ctx rather than run on fn's goroutine.
func SpawnAwaitable[T any](ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	t := NewTask[T]()
	go func() {
		v, err := fn(ctx)
		if err != nil {
			t.Reject(err)
			return
		}
		t.Resolve(v)
	}()
	return t
}

// SpawnDetached launches fn without producing an observable Task, for
// fire-and-forget work. Panics inside fn are not recovered: an unhandled
// panic terminates the process rather than being silently swallowed.
func SpawnDetached(ctx context.Context, fn func(context.Context)) {
	go fn(ctx)
}

// Then posts onValue (or onError) to the executor bound in ctx once t
// resolves, returning a Task observing the continuation's own outcome. This
// is the mechanism by which "continuations never run inline" is enforced
// for chained work: even though t.Await happens on a private goroutine here,
// the user-supplied continuation itself is always Post-ed.
func Then[T, U any](ctx context.Context, t *Task[T], onValue func(T) (U, error)) *Task[U] {
	out := NewTask[U]()
	exec := ExecutorFrom(ctx)
	go func() {
		v, err := t.Await(ctx)
		exec.Post(func() {
			if err != nil {
				out.Reject(err)
				return
			}
			u, uerr := onValue(v)
			if uerr != nil {
				out.Reject(uerr)
				return
			}
			out.Resolve(u)
		})
	}()
	return out
}
