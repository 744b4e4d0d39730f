package iocoro

import (
	"context"

	"github.com/ehrlich-b/go-iocoro/internal/promise"
)

// Task is the outcome of exactly one asynchronous computation, awaitable at
// most once.
type Task[T any] = promise.Task[T]

// NewTask constructs an unresolved Task, for callers that drive Resolve /
// Reject manually (e.g. bridging a callback-based API).
func NewTask[T any]() *Task[T] { return promise.NewTask[T]() }

// SpawnAwaitable launches fn directly on its own goroutine with ctx,
// returning a Task observing its outcome; the start is not posted through
// the executor bound in ctx.
func SpawnAwaitable[T any](ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	return promise.SpawnAwaitable(ctx, fn)
}

// SpawnDetached launches fn without an observable result, for fire-and-forget
// work.
func SpawnDetached(ctx context.Context, fn func(context.Context)) {
	promise.SpawnDetached(ctx, fn)
}

// Then posts onValue to the executor bound in ctx once t resolves, returning
// a Task observing the continuation's outcome.
func Then[T, U any](ctx context.Context, t *Task[T], onValue func(T) (U, error)) *Task[U] {
	return promise.Then(ctx, t, onValue)
}
