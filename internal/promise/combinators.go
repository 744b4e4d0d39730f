package promise

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
)

// WhenAllSlice awaits every task in ts and returns their values in order, or
// the first error observed.
func WhenAllSlice[T any](ctx context.Context, ts []*Task[T]) ([]T, error) {
	vals := make([]T, len(ts))
	errs := make([]error, len(ts))
	var wg sync.WaitGroup
	wg.Add(len(ts))
	for i, t := range ts {
		i, t := i, t
		go func() {
			defer wg.Done()
			vals[i], errs[i] = t.Await(ctx)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return vals, err
		}
	}
	return vals, nil
}

// WhenAnyResult is one arm's outcome from WhenAnySlice.
type WhenAnyResult[T any] struct {
	Index int
	Value T
	Err   error
}

// WhenAnySlice returns as soon as the first of ts resolves: it completes
// when the first operation completes, leaving the others running. Callers
// that want the others cancelled should use WhenAnyCancelJoin instead.
func WhenAnySlice[T any](ctx context.Context, ts []*Task[T]) WhenAnyResult[T] {
	out := make(chan WhenAnyResult[T], len(ts))
	for i, t := range ts {
		i, t := i, t
		go func() {
			v, err := t.Await(ctx)
			out <- WhenAnyResult[T]{Index: i, Value: v, Err: err}
		}()
	}
	return <-out
}

// WhenAnyCancelJoin runs fns (each given a child context derived from ctx),
// returns the first to complete, and cancels+joins (awaits completion of)
// every other arm before returning, guaranteeing no operation is still
// running when the combinator returns.
func WhenAnyCancelJoin[T any](ctx context.Context, fns ...func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make([]*Task[T], len(fns))
	for i, fn := range fns {
		tasks[i] = SpawnAwaitable(cctx, fn)
	}

	winner := make(chan WhenAnyResult[T], 1)
	var once sync.Once
	for i, t := range tasks {
		i, t := i, t
		go func() {
			v, err := t.Await(cctx)
			once.Do(func() { winner <- WhenAnyResult[T]{Index: i, Value: v, Err: err} })
		}()
	}

	w := <-winner
	cancel()
	// Join on each loser's real completion (Task.Done, closed only when
	// Resolve/Reject actually runs), not on Await's cancellation-return:
	// Await can return as soon as cctx is cancelled, before the fn goroutine
	// spawned by SpawnAwaitable has finished running it.
	for i, t := range tasks {
		if i == w.Index {
			continue
		}
		<-t.Done()
	}
	return w.Value, w.Err
}

// Race runs a and b concurrently, returns whichever finishes first, and
// cancels and joins the other.
func Race[T any](ctx context.Context, a, b func(context.Context) (T, error)) (T, error) {
	return WhenAnyCancelJoin(ctx, a, b)
}

// WithTimeout runs fn with a context that is cancelled after d and waits
// for fn to return. If fn then fails with ioerr.OperationAborted (bare, or
// an error that errors.Is matches to it) after the deadline passed while
// ctx itself is still live, the result is ioerr.TimedOut; any other outcome,
// including a late success, is returned unchanged.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	v, err := fn(cctx)
	if errors.Is(err, ioerr.OperationAborted) && cctx.Err() != nil && ctx.Err() == nil {
		return v, ioerr.TimedOut
	}
	return v, err
}
