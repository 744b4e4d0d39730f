// Package backend provides the OS readiness-multiplexer abstraction: update
// interest, remove interest, wait for events, wakeup. It ships an epoll
// implementation and an optional io_uring implementation selected at build
// time behind a single interface, the way a block-device runtime might
// expose one ring abstraction over multiple concrete transports.
package backend

import (
	"time"

	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
)

// Event is one readiness notification returned from Wait.
type Event struct {
	FD       int
	Readable bool
	Writable bool
	// ErrorHint carries the error-kind derived from HUP/RDHUP/ERR bits, or
	// ioerr.None if the event carries no error condition: HUP/RDHUP maps to
	// eof, ERR alone maps to connection_reset.
	ErrorHint ioerr.Kind
}

// Backend is the polymorphic capability set required of both concrete
// backends. Wait is single-threaded and blocking up to max; Wakeup
// is thread-safe and safe to call redundantly (extra wakeups are absorbed by
// draining the wakeup primitive).
type Backend interface {
	// UpdateInterest reconciles the fd's armed interest with the union of
	// its non-empty registry slots.
	UpdateInterest(fd int, wantRead, wantWrite bool) error

	// RemoveInterest clears all interest for fd (used on close/deregister).
	RemoveInterest(fd int) error

	// Wait blocks for up to maxWait for readiness events, io_uring/epoll
	// completions, or a Wakeup call. maxWait < 0 blocks indefinitely;
	// maxWait == 0 polls without blocking.
	Wait(maxWait time.Duration) ([]Event, error)

	// Wakeup unblocks a concurrent Wait call from any goroutine.
	Wakeup() error

	// Close releases the backend's OS resources (epoll fd / ring fd,
	// eventfd). Idempotent.
	Close() error
}

// Kind selects which concrete Backend New constructs.
type Kind int

const (
	// KindAuto prefers io_uring when this binary was built with the
	// `iouring` build tag and the kernel supports it, falling back to epoll
	// otherwise.
	KindAuto Kind = iota
	KindEpoll
	KindIOUring
)
