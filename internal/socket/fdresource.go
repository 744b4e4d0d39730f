package socket

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FD is a non-blocking, close-once file descriptor resource, the common
// base every socket state machine in this package holds: SetNonblock plus
// syscall.Close around a bare int fd, generalized to arbitrary sockets
// rather than one fixed device.
type FD struct {
	fd     int
	closed bool
}

// NewSocketFD creates a non-blocking socket of the given domain/type/proto.
func NewSocketFD(domain, typ, proto int) (*FD, error) {
	fd, err := unix.Socket(domain, typ|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	return &FD{fd: fd}, nil
}

// WrapFD adopts an already-open fd (e.g. from accept4), forcing it
// non-blocking.
func WrapFD(fd int) (*FD, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set nonblock: %w", err)
	}
	return &FD{fd: fd}, nil
}

// Int returns the raw file descriptor.
func (f *FD) Int() int { return f.fd }

// Close closes the fd exactly once; subsequent calls are no-ops.
func (f *FD) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return unix.Close(f.fd)
}

// Closed reports whether Close has been called.
func (f *FD) Closed() bool { return f.closed }
