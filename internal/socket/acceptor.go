package socket

import (
	"context"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-iocoro/internal/corereactor"
	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
)

// Acceptor listens for incoming stream connections and serializes Accept
// calls in FIFO order: concurrent Accept callers are served in the order
// they called Accept, not in arbitrary wakeup order. Only one Accept is
// actually registered with the reactor at a time; the rest wait on a
// channel-based queue.
type Acceptor struct {
	engine
	fd *FD

	turn    chan struct{} // buffered 1; held by whichever goroutine may call accept4 next
	waiters int32
}

// NewAcceptor creates, binds, and listens on ep.
func NewAcceptor(r *corereactor.Reactor, ep Endpoint, backlog int) (*Acceptor, error) {
	fd, err := NewSocketFD(Domain(ep), unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(fd.Int(), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		fd.Close()
		return nil, err
	}
	sa, err := ToSockaddr(ep)
	if err != nil {
		fd.Close()
		return nil, ioerr.InvalidEndpoint
	}
	if err := unix.Bind(fd.Int(), sa); err != nil {
		fd.Close()
		return nil, ioerr.FromErrno(err.(unix.Errno))
	}
	if err := unix.Listen(fd.Int(), backlog); err != nil {
		fd.Close()
		return nil, ioerr.FromErrno(err.(unix.Errno))
	}
	a := &Acceptor{engine: newEngine(r), fd: fd, turn: make(chan struct{}, 1)}
	a.turn <- struct{}{}
	return a, nil
}

// FD exposes the underlying listening descriptor.
func (a *Acceptor) FD() *FD { return a.fd }

// Accept blocks until a new connection arrives, ctx is cancelled, or the
// acceptor is closed. Callers are served strictly in call order.
func (a *Acceptor) Accept(ctx context.Context) (*StreamSocket, Endpoint, error) {
	atomic.AddInt32(&a.waiters, 1)
	defer atomic.AddInt32(&a.waiters, -1)

	select {
	case <-a.turn:
	case <-ctx.Done():
		return nil, Endpoint{}, ioerr.OperationAborted
	}
	defer func() { a.turn <- struct{}{} }()

	for {
		nfd, sa, err := unix.Accept4(a.fd.Int(), unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch {
		case err == nil:
			peer := FromSockaddr(sa)
			cfd, werr := WrapFD(nfd)
			if werr != nil {
				return nil, Endpoint{}, werr
			}
			return AdoptStreamSocket(a.engine.r, cfd, peer), peer, nil
		case err == unix.EAGAIN:
			if werr := a.engine.awaitReadable(ctx, a.fd.Int()); werr != nil {
				return nil, Endpoint{}, werr
			}
		case err == unix.ECONNABORTED, err == unix.EINTR:
			continue
		default:
			return nil, Endpoint{}, ioerr.FromErrno(err.(unix.Errno))
		}
	}
}

// Waiters reports how many goroutines are currently queued in Accept,
// exposed for metrics.
func (a *Acceptor) Waiters() int32 { return atomic.LoadInt32(&a.waiters) }

// Close deregisters and closes the listening fd.
func (a *Acceptor) Close() error {
	a.engine.r.DeregisterFD(a.fd.Int())
	return a.fd.Close()
}
