package socket

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-iocoro/internal/corereactor"
	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
)

// datagramState is connectionless lifecycle: idle, bound, or
// connected (a UDP socket may be "connected" to fix its default peer without
// giving up sendto/recvfrom to other peers on Linux, but this implementation
// follows the simpler POSIX contract where Connect fixes the only peer).
type datagramState int32

const (
	datagramIdle datagramState = iota
	datagramBound
	datagramConnected
)

// DatagramSocket is a connectionless (UDP or Unix-domain datagram) socket.
type DatagramSocket struct {
	engine
	fd *FD

	mu    sync.Mutex
	state datagramState
	peer  Endpoint

	readBusy, writeBusy atomic.Bool

	readEpoch, writeEpoch   atomic.Uint64
	readCancel, writeCancel atomic.Pointer[cancelSlot]
}

// isZeroEndpoint reports whether e is the Endpoint zero value, the "no
// destination given" sentinel SendTo treats as "use the connected peer."
func isZeroEndpoint(e Endpoint) bool {
	return e.IP == nil && e.Port == 0 && e.Path == ""
}

// endpointsEqual compares two endpoints for the bitwise-equality SendTo
// requires between a connected socket's fixed peer and a caller-supplied
// destination.
func endpointsEqual(a, b Endpoint) bool {
	if a.IsUnix() || b.IsUnix() {
		return a.Path == b.Path
	}
	return a.IP.Equal(b.IP) && a.Port == b.Port
}

// NewDatagramSocket creates an unbound datagram socket.
func NewDatagramSocket(r *corereactor.Reactor, domain int) (*DatagramSocket, error) {
	fd, err := NewSocketFD(domain, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, err
	}
	return &DatagramSocket{engine: newEngine(r), fd: fd}, nil
}

// FD exposes the underlying descriptor.
func (d *DatagramSocket) FD() *FD { return d.fd }

// Bind binds the socket to a local endpoint, e.g. for a UDP server.
func (d *DatagramSocket) Bind(ep Endpoint) error {
	sa, err := ToSockaddr(ep)
	if err != nil {
		return ioerr.InvalidEndpoint
	}
	if berr := unix.Bind(d.fd.Int(), sa); berr != nil {
		return ioerr.FromErrno(berr.(unix.Errno))
	}
	d.mu.Lock()
	d.state = datagramBound
	d.mu.Unlock()
	return nil
}

// Connect fixes ep as the socket's default peer for subsequent Send/Receive
// calls; Unix-domain datagram sockets connect through the same code path
// as UDP.
func (d *DatagramSocket) Connect(ep Endpoint) error {
	sa, err := ToSockaddr(ep)
	if err != nil {
		return ioerr.InvalidEndpoint
	}
	if cerr := unix.Connect(d.fd.Int(), sa); cerr != nil {
		return ioerr.FromErrno(cerr.(unix.Errno))
	}
	d.mu.Lock()
	d.state = datagramConnected
	d.peer = ep
	d.mu.Unlock()
	return nil
}

// SendTo sends buf to ep without requiring a prior Connect. A connected
// socket rejects any dest that doesn't match its fixed peer with
// ioerr.InvalidArgument; passing the zero Endpoint is read as "use the
// connected peer" rather than as a mismatch.
func (d *DatagramSocket) SendTo(ctx context.Context, buf []byte, ep Endpoint) (int, error) {
	if !d.writeBusy.CompareAndSwap(false, true) {
		return 0, ioerr.Busy
	}
	defer d.writeBusy.Store(false)

	d.mu.Lock()
	connected := d.state == datagramConnected
	peer := d.peer
	d.mu.Unlock()

	dest := ep
	if connected {
		if isZeroEndpoint(ep) {
			dest = peer
		} else if !endpointsEqual(ep, peer) {
			return 0, ioerr.InvalidArgument
		}
	}

	sa, err := ToSockaddr(dest)
	if err != nil {
		return 0, ioerr.InvalidEndpoint
	}

	d.writeEpoch.Add(1)
	cctx, cancel := context.WithCancel(ctx)
	slot := &cancelSlot{cancel: cancel}
	d.writeCancel.Store(slot)
	defer func() {
		d.writeCancel.CompareAndSwap(slot, nil)
		cancel()
	}()

	for {
		serr := unix.Sendto(d.fd.Int(), buf, unix.MSG_NOSIGNAL, sa)
		switch {
		case serr == nil:
			return len(buf), nil
		case serr == unix.EAGAIN:
			if werr := d.engine.awaitWritable(cctx, d.fd.Int()); werr != nil {
				return 0, werr
			}
		case serr == unix.EMSGSIZE:
			return 0, ioerr.MessageSize
		default:
			return 0, ioerr.FromErrno(serr.(unix.Errno))
		}
	}
}

// CancelWrite aborts a SendTo/Send currently in flight on this socket. A
// no-op if no write is pending.
func (d *DatagramSocket) CancelWrite() {
	if slot := d.writeCancel.Load(); slot != nil {
		slot.cancel()
	}
}

// Send requires a prior Connect and sends to the fixed peer.
func (d *DatagramSocket) Send(ctx context.Context, buf []byte) (int, error) {
	d.mu.Lock()
	peer := d.peer
	connected := d.state == datagramConnected
	d.mu.Unlock()
	if !connected {
		return 0, ioerr.NotConnected
	}
	return d.SendTo(ctx, buf, peer)
}

// ReceiveFrom reads one datagram into buf, returning the sender's endpoint
// and ioerr.MessageSize if the kernel reports MSG_TRUNC (payload larger than
// buf, truncated).
func (d *DatagramSocket) ReceiveFrom(ctx context.Context, buf []byte) (int, Endpoint, error) {
	if !d.readBusy.CompareAndSwap(false, true) {
		return 0, Endpoint{}, ioerr.Busy
	}
	defer d.readBusy.Store(false)

	d.mu.Lock()
	idle := d.state == datagramIdle
	d.mu.Unlock()
	if idle {
		return 0, Endpoint{}, ioerr.NotBound
	}
	if len(buf) == 0 {
		return 0, Endpoint{}, ioerr.InvalidArgument
	}

	d.readEpoch.Add(1)
	cctx, cancel := context.WithCancel(ctx)
	slot := &cancelSlot{cancel: cancel}
	d.readCancel.Store(slot)
	defer func() {
		d.readCancel.CompareAndSwap(slot, nil)
		cancel()
	}()

	for {
		n, _, flags, from, err := unix.Recvmsg(d.fd.Int(), buf, nil, 0)
		switch {
		case err == nil && flags&unix.MSG_TRUNC != 0:
			return n, FromSockaddr(from), ioerr.MessageSize
		case err == nil:
			return n, FromSockaddr(from), nil
		case err == unix.EAGAIN:
			if werr := d.engine.awaitReadable(cctx, d.fd.Int()); werr != nil {
				return 0, Endpoint{}, werr
			}
		default:
			return 0, Endpoint{}, ioerr.FromErrno(err.(unix.Errno))
		}
	}
}

// CancelRead aborts a ReceiveFrom/Receive currently in flight on this
// socket. A no-op if no read is pending.
func (d *DatagramSocket) CancelRead() {
	if slot := d.readCancel.Load(); slot != nil {
		slot.cancel()
	}
}

// Receive reads one datagram, discarding the sender endpoint; intended for
// connected sockets.
func (d *DatagramSocket) Receive(ctx context.Context, buf []byte) (int, error) {
	n, _, err := d.ReceiveFrom(ctx, buf)
	return n, err
}

// Close deregisters and closes the underlying fd.
func (d *DatagramSocket) Close() error {
	d.engine.r.DeregisterFD(d.fd.Int())
	return d.fd.Close()
}
