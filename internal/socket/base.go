package socket

import (
	"context"
	"sync/atomic"

	"github.com/ehrlich-b/go-iocoro/internal/corereactor"
	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
	"github.com/ehrlich-b/go-iocoro/internal/registry"
)

// engine binds a socket state machine to the reactor it reads/writes
// through: a per-resource pointer back to the owning reactor. StreamSocket,
// DatagramSocket and Acceptor each embed one.
type engine struct {
	r *corereactor.Reactor
}

func newEngine(r *corereactor.Reactor) engine { return engine{r: r} }

// awaitReadable blocks the calling goroutine until fd is readable,
// ctx is cancelled, or the reactor aborts the registration on stop/close.
// This is the fundamental suspension point every read-side socket operation
// is built from: register with the fd registry, hand the continuation to a
// channel, resume the waiting goroutine from the reactor thread via
// Operation.OnComplete/OnAbort.
func (e engine) awaitReadable(ctx context.Context, fd int) error {
	return e.await(ctx, fd, true)
}

// awaitWritable is the write-direction counterpart of awaitReadable.
func (e engine) awaitWritable(ctx context.Context, fd int) error {
	return e.await(ctx, fd, false)
}

func (e engine) await(ctx context.Context, fd int, read bool) error {
	if err := ctx.Err(); err != nil {
		return ioerr.OperationAborted
	}

	resultCh := make(chan error, 1)
	var delivered atomic.Bool
	op := &registry.FuncOperation{
		Complete: func() {
			if delivered.CompareAndSwap(false, true) {
				resultCh <- nil
			}
		},
		Abort: func(kind ioerr.Kind) {
			if delivered.CompareAndSwap(false, true) {
				resultCh <- kind
			}
		},
	}

	var token uint64
	var err error
	if read {
		token, err = e.r.RegisterFDRead(fd, op)
	} else {
		token, err = e.r.RegisterFDWrite(fd, op)
	}
	if err != nil {
		return err
	}

	select {
	case err := <-resultCh:
		return err
	case <-ctx.Done():
		e.r.Dispatch(func() {
			if read {
				e.r.CancelFDRead(fd, token)
			} else {
				e.r.CancelFDWrite(fd, token)
			}
		})
		<-resultCh // either the cancellation's Abort or an earlier completion delivers
		return ioerr.OperationAborted
	}
}
