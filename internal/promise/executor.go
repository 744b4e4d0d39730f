// Package promise implements the coroutine/execution model atop goroutines:
// a Task[T] is a goroutine-backed unit of async work whose continuation is
// always resumed via an Executor.Post, never inline from an arbitrary
// caller's stack.
package promise

import "context"

// Executor is the binding-to-an-execution-context abstraction. Post
// schedules f to run on the executor eventually; Dispatch may run it inline
// if the caller is already on the executor's thread.
type Executor interface {
	Post(f func())
	Dispatch(f func())
}

// reactorLike is the subset of *corereactor.Reactor that promise depends on,
// kept as an interface so this package never imports corereactor directly
// (corereactor has no promise dependency, but this keeps the dependency
// graph acyclic and the package independently testable with a fake).
type reactorLike interface {
	Post(f func())
	Dispatch(f func())
}

// ReactorExecutor adapts a reactorLike (normally *corereactor.Reactor) to
// Executor.
type ReactorExecutor struct {
	r reactorLike
}

// NewReactorExecutor wraps r as an Executor.
func NewReactorExecutor(r reactorLike) *ReactorExecutor {
	return &ReactorExecutor{r: r}
}

func (e *ReactorExecutor) Post(f func())     { e.r.Post(f) }
func (e *ReactorExecutor) Dispatch(f func()) { e.r.Dispatch(f) }

// InlineExecutor runs everything immediately on the calling goroutine. Used
// by tests and by code that has no reactor binding yet.
type InlineExecutor struct{}

func (InlineExecutor) Post(f func())     { f() }
func (InlineExecutor) Dispatch(f func()) { f() }

// contextKey is an unexported type for the executor stored on a context,
// following the standard library's own context-key convention.
type contextKey struct{}

// WithExecutor returns a context carrying exec, retrievable with
// ExecutorFrom. Spawn uses this so a Task can discover which executor should
// run its continuation without threading an explicit parameter through every
// call site.
func WithExecutor(ctx context.Context, exec Executor) context.Context {
	return context.WithValue(ctx, contextKey{}, exec)
}

// ExecutorFrom retrieves the executor bound to ctx, or InlineExecutor{} if
// none was bound.
func ExecutorFrom(ctx context.Context) Executor {
	if e, ok := ctx.Value(contextKey{}).(Executor); ok {
		return e
	}
	return InlineExecutor{}
}
