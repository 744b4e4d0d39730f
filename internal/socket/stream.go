package socket

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-iocoro/internal/corereactor"
	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
)

// streamState is the connection lifecycle of a stream socket: disconnected,
// connecting, or connected.
type streamState int32

const (
	streamDisconnected streamState = iota
	streamConnecting
	streamConnected
)

// ShutdownMode selects which direction(s) Shutdown tears down.
type ShutdownMode int

const (
	ShutdownRead ShutdownMode = iota
	ShutdownWrite
	ShutdownBoth
)

// cancelSlot pairs a cancel func with the pointer identity that Read/Write
// published it under, so CancelRead/CancelWrite can never reach past their
// own call into a later one: the owning call clears the slot with a
// pointer-identity CompareAndSwap on return, so a cancel that loads the slot
// a moment too late simply finds it gone rather than cancelling a stranger.
type cancelSlot struct {
	cancel context.CancelFunc
}

// StreamSocket is a connection-oriented (TCP or Unix-domain stream) socket
// with single-in-flight read/write/connect guards, generalizing a per-tag
// state machine from "one fixed-size I/O slot per tag" to "one socket,
// independently guarded per direction."
type StreamSocket struct {
	engine
	fd *FD

	mu    sync.Mutex
	state streamState
	peer  Endpoint

	// readBusy/writeBusy give each direction an independent in-flight guard:
	// a second concurrent Read call on the same socket is a programming
	// error and returns ioerr.Busy rather than silently interleaving with
	// the first.
	readBusy  atomic.Bool
	writeBusy atomic.Bool

	shutdownRead  atomic.Bool
	shutdownWrite atomic.Bool

	// readEpoch/writeEpoch count calls to Read/Write, giving each in-flight
	// operation a generation number alongside the cancelSlot it publishes.
	readEpoch  atomic.Uint64
	writeEpoch atomic.Uint64

	readCancel  atomic.Pointer[cancelSlot]
	writeCancel atomic.Pointer[cancelSlot]
}

// NewStreamSocket wraps a freshly created, not-yet-connected fd.
func NewStreamSocket(r *corereactor.Reactor, domain int) (*StreamSocket, error) {
	fd, err := NewSocketFD(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	return &StreamSocket{engine: newEngine(r), fd: fd}, nil
}

// AdoptStreamSocket wraps an already-connected fd (e.g. returned by accept),
// used by Acceptor.
func AdoptStreamSocket(r *corereactor.Reactor, fd *FD, peer Endpoint) *StreamSocket {
	s := &StreamSocket{engine: newEngine(r), fd: fd, peer: peer}
	s.state = streamConnected
	return s
}

// FD exposes the underlying descriptor for registration elsewhere (e.g.
// SO_REUSEADDR tuning before bind).
func (s *StreamSocket) FD() *FD { return s.fd }

// Connect dials ep, suspending the caller until the connection completes,
// fails, or ctx is cancelled. Returns ioerr.AlreadyConnected if called on an
// already-connected socket.
func (s *StreamSocket) Connect(ctx context.Context, ep Endpoint) error {
	s.mu.Lock()
	if s.state != streamDisconnected {
		s.mu.Unlock()
		return ioerr.AlreadyConnected
	}
	s.state = streamConnecting
	s.mu.Unlock()

	sa, err := ToSockaddr(ep)
	if err != nil {
		s.setState(streamDisconnected)
		return ioerr.InvalidEndpoint
	}

	err = unix.Connect(s.fd.Int(), sa)
	if err != nil && err != unix.EINPROGRESS {
		s.setState(streamDisconnected)
		return ioerr.FromErrno(err.(unix.Errno))
	}
	if err == nil {
		s.finishConnect(ep)
		return nil
	}

	if werr := s.engine.awaitWritable(ctx, s.fd.Int()); werr != nil {
		s.setState(streamDisconnected)
		return werr
	}

	errno, serr := unix.GetsockoptInt(s.fd.Int(), unix.SOL_SOCKET, unix.SO_ERROR)
	if serr != nil {
		s.setState(streamDisconnected)
		return fmt.Errorf("getsockopt(SO_ERROR): %w", serr)
	}
	if errno != 0 {
		s.setState(streamDisconnected)
		return ioerr.FromErrno(unix.Errno(errno))
	}
	s.finishConnect(ep)
	return nil
}

func (s *StreamSocket) finishConnect(ep Endpoint) {
	s.mu.Lock()
	s.state = streamConnected
	s.peer = ep
	s.mu.Unlock()
}

func (s *StreamSocket) setState(st streamState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Connected reports whether the socket has completed its handshake.
func (s *StreamSocket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == streamConnected
}

// Peer returns the remote endpoint, valid once Connected.
func (s *StreamSocket) Peer() Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// Read performs one recv into buf, suspending until data is available. A
// zero-length return with nil error never happens; EOF is reported as
// ioerr.EOF, including the EOF a prior Shutdown(ShutdownRead) forces.
func (s *StreamSocket) Read(ctx context.Context, buf []byte) (int, error) {
	if !s.readBusy.CompareAndSwap(false, true) {
		return 0, ioerr.Busy
	}
	defer s.readBusy.Store(false)

	if !s.Connected() {
		return 0, ioerr.NotConnected
	}
	if s.shutdownRead.Load() {
		return 0, ioerr.EOF
	}

	s.readEpoch.Add(1)
	cctx, cancel := context.WithCancel(ctx)
	slot := &cancelSlot{cancel: cancel}
	s.readCancel.Store(slot)
	defer func() {
		s.readCancel.CompareAndSwap(slot, nil)
		cancel()
	}()

	for {
		n, err := unix.Read(s.fd.Int(), buf)
		switch {
		case err == nil && n == 0:
			return 0, ioerr.EOF
		case err == nil:
			return n, nil
		case err == unix.EAGAIN:
			if werr := s.engine.awaitReadable(cctx, s.fd.Int()); werr != nil {
				return 0, werr
			}
			continue
		default:
			return 0, ioerr.FromErrno(err.(unix.Errno))
		}
	}
}

// CancelRead aborts a Read currently in flight on this socket, which
// observes ioerr.OperationAborted from the context engine.awaitReadable is
// blocked on. A no-op if no Read is pending.
func (s *StreamSocket) CancelRead() {
	if slot := s.readCancel.Load(); slot != nil {
		slot.cancel()
	}
}

// Write performs one send of buf, suspending as needed until the kernel
// accepts at least one byte. It passes MSG_NOSIGNAL so a write to a peer
// that already closed its read side reports ioerr.BrokenPipe instead of
// raising SIGPIPE. It returns the byte count the kernel reports, which may
// be less than len(buf); the root package's WriteAll loops over such short
// writes.
func (s *StreamSocket) Write(ctx context.Context, buf []byte) (int, error) {
	if !s.writeBusy.CompareAndSwap(false, true) {
		return 0, ioerr.Busy
	}
	defer s.writeBusy.Store(false)

	if !s.Connected() {
		return 0, ioerr.NotConnected
	}
	if s.shutdownWrite.Load() {
		return 0, ioerr.BrokenPipe
	}

	s.writeEpoch.Add(1)
	cctx, cancel := context.WithCancel(ctx)
	slot := &cancelSlot{cancel: cancel}
	s.writeCancel.Store(slot)
	defer func() {
		s.writeCancel.CompareAndSwap(slot, nil)
		cancel()
	}()

	for {
		n, err := unix.SendmsgN(s.fd.Int(), buf, nil, nil, unix.MSG_NOSIGNAL)
		switch {
		case err == nil:
			return n, nil
		case err == unix.EAGAIN:
			if werr := s.engine.awaitWritable(cctx, s.fd.Int()); werr != nil {
				return 0, werr
			}
			continue
		case err == unix.EPIPE:
			return 0, ioerr.BrokenPipe
		default:
			return 0, ioerr.FromErrno(err.(unix.Errno))
		}
	}
}

// CancelWrite is CancelRead's write-direction counterpart.
func (s *StreamSocket) CancelWrite() {
	if slot := s.writeCancel.Load(); slot != nil {
		slot.cancel()
	}
}

// Shutdown tears down the read side, write side, or both, per how. Unlike
// Close it leaves the fd open and registered: a read-side shutdown makes a
// pending or future Read observe ioerr.EOF, a write-side shutdown makes
// Write observe ioerr.BrokenPipe, matching what the peer sees from the
// kernel's own shutdown(2) semantics. Returns ioerr.NotConnected if the
// socket never completed a handshake.
func (s *StreamSocket) Shutdown(how ShutdownMode) error {
	if !s.Connected() {
		return ioerr.NotConnected
	}

	sysHow := unix.SHUT_RDWR
	switch how {
	case ShutdownRead:
		sysHow = unix.SHUT_RD
	case ShutdownWrite:
		sysHow = unix.SHUT_WR
	}
	if err := unix.Shutdown(s.fd.Int(), sysHow); err != nil {
		return ioerr.FromErrno(err.(unix.Errno))
	}

	if how == ShutdownRead || how == ShutdownBoth {
		s.shutdownRead.Store(true)
	}
	if how == ShutdownWrite || how == ShutdownBoth {
		s.shutdownWrite.Store(true)
	}
	return nil
}

// Close deregisters the fd from the reactor (aborting any in-flight
// read/write) and closes it.
func (s *StreamSocket) Close() error {
	s.engine.r.DeregisterFD(s.fd.Int())
	s.setState(streamDisconnected)
	return s.fd.Close()
}
