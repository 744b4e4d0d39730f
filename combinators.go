package iocoro

import (
	"context"
	"time"

	"github.com/ehrlich-b/go-iocoro/internal/promise"
)

// WhenAll awaits every task in ts, returning their values in order or the
// first error encountered.
func WhenAll[T any](ctx context.Context, ts ...*Task[T]) ([]T, error) {
	return promise.WhenAllSlice(ctx, ts)
}

// WhenAnyResult is one arm's outcome from WhenAny.
type WhenAnyResult[T any] = promise.WhenAnyResult[T]

// WhenAny returns as soon as the first of ts resolves; the others are left
// running.
func WhenAny[T any](ctx context.Context, ts ...*Task[T]) WhenAnyResult[T] {
	return promise.WhenAnySlice(ctx, ts)
}

// WhenAnyCancelJoin runs fns concurrently, returns the first to complete,
// and cancels+joins every other arm before returning.
func WhenAnyCancelJoin[T any](ctx context.Context, fns ...func(context.Context) (T, error)) (T, error) {
	return promise.WhenAnyCancelJoin(ctx, fns...)
}

// Race is the binary `||` combinator: run a and b, return whichever finishes
// first, cancel and join the other.
func Race[T any](ctx context.Context, a, b func(context.Context) (T, error)) (T, error) {
	return promise.Race(ctx, a, b)
}

// WithTimeout runs fn with a context cancelled after d, returning
// ErrTimedOut when fn then fails with an error matching ErrOperationAborted
// while ctx is still live; any other result of fn is returned unchanged.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	return promise.WithTimeout(ctx, d, fn)
}

// WithTimeoutRead races a Read call against d, a thin convenience over
// WithTimeout for the common "read(conn, buf)" shape. The read unwinds on
// timeout through context cancellation alone: StreamConn.Read and
// DatagramConn.Receive* already suspend in engine.awaitReadable/awaitWritable
// on the same context passed here, and that suspension point cancels the
// underlying fd registration (the same registry.Cancel path CancelRead
// drives) the moment the context is done. A caller holding the connection
// directly and wanting to cancel a read without involving its context can
// call StreamConn.CancelRead/DatagramConn.CancelRead instead.
func WithTimeoutRead(ctx context.Context, d time.Duration, read func(context.Context) (int, error)) (int, error) {
	return WithTimeout(ctx, d, read)
}

// WithTimeoutWrite is WithTimeoutRead's write-direction counterpart; see its
// doc for why context cancellation alone is sufficient here, and
// StreamConn.CancelWrite/DatagramConn.CancelWrite for the explicit surface.
func WithTimeoutWrite(ctx context.Context, d time.Duration, write func(context.Context) (int, error)) (int, error) {
	return WithTimeout(ctx, d, write)
}
