package iocoro

import (
	"fmt"
	"syscall"

	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
)

// ErrorKind is the stable, inspectable error category every asynchronous
// operation in this package fails with. It is a type alias rather than a
// wrapper so internal packages and this public package share one vocabulary
// with zero conversion cost.
type ErrorKind = ioerr.Kind

const (
	ErrNone                     = ioerr.None
	ErrOperationAborted         = ioerr.OperationAborted
	ErrTimedOut                 = ioerr.TimedOut
	ErrEOF                      = ioerr.EOF
	ErrBrokenPipe               = ioerr.BrokenPipe
	ErrConnectionReset          = ioerr.ConnectionReset
	ErrNotOpen                  = ioerr.NotOpen
	ErrNotConnected             = ioerr.NotConnected
	ErrNotListening             = ioerr.NotListening
	ErrNotBound                 = ioerr.NotBound
	ErrAlreadyConnected         = ioerr.AlreadyConnected
	ErrBusy                     = ioerr.Busy
	ErrInvalidArgument          = ioerr.InvalidArgument
	ErrInvalidEndpoint          = ioerr.InvalidEndpoint
	ErrUnsupportedAddressFamily = ioerr.UnsupportedAddressFamily
	ErrMessageSize              = ioerr.MessageSize
)

// Error is the structured error type returned by operations that need to
// report context beyond a bare ErrorKind: operation name, endpoint, kind,
// raw errno, and an optional wrapped cause.
type Error struct {
	Op       string        // operation that failed, e.g. "connect", "read", "accept"
	Endpoint string        // remote or local endpoint involved, if any
	Kind     ErrorKind     // stable error category
	Errno    syscall.Errno // underlying errno, 0 if not syscall-derived
	Inner    error         // wrapped cause
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Errno != 0 {
		msg = fmt.Sprintf("%s (errno %d)", msg, e.Errno)
	}
	if e.Endpoint != "" {
		return fmt.Sprintf("iocoro: %s %s: %s", e.Op, e.Endpoint, msg)
	}
	return fmt.Sprintf("iocoro: %s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if k, ok := target.(ErrorKind); ok {
		return e.Kind == k
	}
	if te, ok := target.(*Error); ok {
		return e.Kind == te.Kind
	}
	return false
}

// NewError builds a structured Error for op/kind with no endpoint context.
func NewError(op string, kind ErrorKind) *Error {
	return &Error{Op: op, Kind: kind}
}

// NewEndpointError builds a structured Error naming the endpoint involved.
func NewEndpointError(op, endpoint string, kind ErrorKind) *Error {
	return &Error{Op: op, Endpoint: endpoint, Kind: kind}
}

// WrapError attaches op context to inner, mapping a raw syscall.Errno to its
// ErrorKind, or preserving the kind of an already-structured Error.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ie, ok := inner.(*Error); ok {
		return &Error{Op: op, Endpoint: ie.Endpoint, Kind: ie.Kind, Errno: ie.Errno, Inner: ie.Inner}
	}
	if k, ok := inner.(ErrorKind); ok {
		return &Error{Op: op, Kind: k, Inner: inner}
	}
	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Kind: ioerr.FromErrno(errno), Errno: errno, Inner: inner}
	}
	return &Error{Op: op, Kind: ErrInvalidArgument, Inner: inner}
}

// KindOf extracts the ErrorKind from err, defaulting to ErrInvalidArgument
// for errors this runtime did not originate.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrNone
	}
	if k, ok := err.(ErrorKind); ok {
		return k
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ErrInvalidArgument
}
