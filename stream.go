package iocoro

import (
	"context"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-iocoro/internal/socket"
)

// StreamConn is a connected, duplex byte stream: a TCP or Unix-domain stream
// socket.
type StreamConn struct {
	s       *socket.StreamSocket
	metrics *Metrics
}

// ShutdownMode selects which direction(s) Shutdown tears down.
type ShutdownMode = socket.ShutdownMode

const (
	ShutdownRead  = socket.ShutdownRead
	ShutdownWrite = socket.ShutdownWrite
	ShutdownBoth  = socket.ShutdownBoth
)

// DialTCP connects to addr ("host:port") over TCP, suspending until the
// handshake completes, fails, or DefaultDialTimeout elapses.
func DialTCP(ctx context.Context, r *Reactor, addr string) (*StreamConn, error) {
	ep, err := ParseEndpoint(addr)
	if err != nil {
		return nil, err
	}
	dctx, cancel := context.WithTimeout(ctx, DefaultDialTimeout)
	defer cancel()
	c, err := DialEndpoint(dctx, r, ep)
	if err != nil && KindOf(err) == ErrOperationAborted && dctx.Err() != nil && ctx.Err() == nil {
		return nil, NewEndpointError("dial", ep.String(), ErrTimedOut)
	}
	return c, err
}

// DialUnix connects to a Unix-domain stream socket at path.
func DialUnix(ctx context.Context, r *Reactor, path string) (*StreamConn, error) {
	return DialEndpoint(ctx, r, UnixEndpoint(path))
}

// DialEndpoint connects to an arbitrary Endpoint (IP or Unix-domain).
func DialEndpoint(ctx context.Context, r *Reactor, ep Endpoint) (*StreamConn, error) {
	domain := socket.Domain(ep)
	s, err := socket.NewStreamSocket(r.internalCore(), domain)
	if err != nil {
		return nil, WrapError("dial", err)
	}
	if err := s.Connect(ctx, ep); err != nil {
		s.Close()
		return nil, NewEndpointError("dial", ep.String(), KindOf(err))
	}
	return &StreamConn{s: s, metrics: r.metrics}, nil
}

// Read reads one chunk of data into buf, returning ErrEOF at end of stream.
func (c *StreamConn) Read(ctx context.Context, buf []byte) (int, error) {
	start := time.Now()
	n, err := c.s.Read(ctx, buf)
	c.metrics.RecordRead(uint64(n), time.Since(start), err == nil)
	return n, mapSocketErr("read", c.s.Peer().String(), err)
}

// Write writes one chunk of buf; see StreamSocket.Write for short-write
// semantics.
func (c *StreamConn) Write(ctx context.Context, buf []byte) (int, error) {
	start := time.Now()
	n, err := c.s.Write(ctx, buf)
	c.metrics.RecordWrite(uint64(n), time.Since(start), err == nil)
	return n, mapSocketErr("write", c.s.Peer().String(), err)
}

// WriteAll writes buf in full, looping over short writes.
func (c *StreamConn) WriteAll(ctx context.Context, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := c.Write(ctx, buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// LocalPeer returns the remote endpoint this connection is attached to.
func (c *StreamConn) LocalPeer() Endpoint { return c.s.Peer() }

// Shutdown tears down the read side, write side, or both without closing
// the fd: a subsequent Read observes ErrEOF once the read side is shut
// down, and a subsequent Write observes ErrBrokenPipe once the write side
// is. Returns ErrNotConnected if the connection never completed a
// handshake.
func (c *StreamConn) Shutdown(how ShutdownMode) error {
	if err := c.s.Shutdown(how); err != nil {
		return mapSocketErr("shutdown", c.s.Peer().String(), err)
	}
	return nil
}

// CancelRead aborts a Read currently in flight on this connection,
// independent of whatever context that Read was called with. A no-op if no
// Read is pending.
func (c *StreamConn) CancelRead() { c.s.CancelRead() }

// CancelWrite is CancelRead's write-direction counterpart.
func (c *StreamConn) CancelWrite() { c.s.CancelWrite() }

// SetNoDelay toggles TCP_NODELAY (Nagle's algorithm) on the underlying fd;
// on a non-TCP socket the kernel rejects the option and that error is
// returned.
func (c *StreamConn) SetNoDelay(enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	return unix.SetsockoptInt(c.s.FD().Int(), unix.IPPROTO_TCP, unix.TCP_NODELAY, v)
}

// Close closes the connection.
func (c *StreamConn) Close() error { return c.s.Close() }

func mapSocketErr(op, endpoint string, err error) error {
	if err == nil {
		return nil
	}
	if k, ok := err.(ErrorKind); ok {
		return NewEndpointError(op, endpoint, k)
	}
	return WrapError(op, err)
}
