package iocoro

import (
	"context"

	"github.com/ehrlich-b/go-iocoro/internal/promise"
)

// Executor is execution-context binding: Post schedules work for
// later, Dispatch may run inline if already on the executor's thread.
type Executor = promise.Executor

// InlineExecutor runs everything immediately on the calling goroutine,
// useful in tests that don't need a live Reactor.
type InlineExecutor = promise.InlineExecutor

// WithExecutor returns a context carrying exec, retrievable via
// ExecutorFrom; Then posts its continuations to it.
func WithExecutor(ctx context.Context, exec Executor) context.Context {
	return promise.WithExecutor(ctx, exec)
}

// ExecutorFrom retrieves the executor bound to ctx, defaulting to
// InlineExecutor{}.
func ExecutorFrom(ctx context.Context) Executor {
	return promise.ExecutorFrom(ctx)
}

// NewStrand wraps exec with mutual exclusion: at most one posted function
// from the strand runs at a time.
func NewStrand(exec Executor) Executor {
	return promise.NewStrand(exec)
}
