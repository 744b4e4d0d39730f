//go:build linux && iouring

package backend

import (
	"fmt"
	"sync"
	"time"

	"github.com/pawelgaczynski/giouring"
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
	"github.com/ehrlich-b/go-iocoro/internal/logging"
)

// A CQE's user_data carries the fd in its low 32 bits plus a tag bit, so
// completions can be matched back to an Event without a side table:
// uringDirRead marks a POLL_ADD, uringDirWrite a poll cancel, and
// uringWakeTag a wakeup NOP. No generation is packed in.
const (
	uringDirRead  = uint64(1) << 62
	uringDirWrite = uint64(1) << 61
	uringWakeTag  = ^uint64(0)
)

// UringBackend polls readiness via io_uring POLL_ADD/POLL_REMOVE requests
// rather than performing the read/write itself, keeping the same "tell me
// when fd is ready" contract as EpollBackend so corereactor.Reactor can use
// either interchangeably. This is the minimal, broadly-portable use of
// io_uring; fixed-buffer and multishot poll are a natural follow-on once the
// socket layer wants them.
type UringBackend struct {
	ring      *giouring.Ring
	closeOnce sync.Once
	log       *logging.Logger

	mu      sync.Mutex
	armed   map[int]uint32 // fd -> currently-submitted poll mask
	pending map[int]bool   // fd with an in-flight POLL_ADD awaiting a CQE
}

// NewUringBackend creates a queue-depth-256 ring. Callers should fall back to
// NewEpollBackend if this returns an error (old kernel, io_uring disabled).
func NewUringBackend() (*UringBackend, error) {
	ring, err := giouring.CreateRing(256)
	if err != nil {
		return nil, fmt.Errorf("io_uring_setup: %w", err)
	}
	return &UringBackend{
		ring:    ring,
		armed:   make(map[int]uint32),
		pending: make(map[int]bool),
		log:     logging.Default().Named("backend.uring"),
	}, nil
}

func pollMask(wantRead, wantWrite bool) uint32 {
	var m uint32
	if wantRead {
		m |= unix.POLLIN | unix.POLLRDHUP
	}
	if wantWrite {
		m |= unix.POLLOUT
	}
	return m
}

// UpdateInterest cancels any in-flight poll for fd and resubmits with the new
// mask. io_uring poll requests are single-shot, so every interest change is a
// cancel+resubmit pair rather than epoll's in-place MOD.
func (b *UringBackend) UpdateInterest(fd int, wantRead, wantWrite bool) error {
	want := pollMask(wantRead, wantWrite)

	b.mu.Lock()
	defer b.mu.Unlock()

	if want == 0 {
		delete(b.armed, fd)
		if b.pending[fd] {
			b.submitCancelLocked(fd)
		}
		return nil
	}
	if b.armed[fd] == want && b.pending[fd] {
		return nil
	}
	b.armed[fd] = want
	if b.pending[fd] {
		b.submitCancelLocked(fd)
	}
	return b.submitPollLocked(fd, want)
}

func (b *UringBackend) submitPollLocked(fd int, mask uint32) error {
	sqe := b.ring.GetSQE()
	if sqe == nil {
		if _, err := b.ring.Submit(); err != nil {
			return fmt.Errorf("io_uring submit (sqe starved): %w", err)
		}
		sqe = b.ring.GetSQE()
		if sqe == nil {
			return fmt.Errorf("io_uring: no SQE available for fd=%d", fd)
		}
	}
	sqe.PreparePollAdd(uint64(fd), mask)
	sqe.UserData = uringDirRead | uint64(uint32(fd))
	b.pending[fd] = true
	_, err := b.ring.Submit()
	return err
}

func (b *UringBackend) submitCancelLocked(fd int) {
	sqe := b.ring.GetSQE()
	if sqe == nil {
		return
	}
	sqe.PrepareCancelFd(fd, 0)
	sqe.UserData = uringDirWrite | uint64(uint32(fd))
	b.ring.Submit()
}

// RemoveInterest cancels any outstanding poll for fd.
func (b *UringBackend) RemoveInterest(fd int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.armed, fd)
	if b.pending[fd] {
		b.submitCancelLocked(fd)
	}
	return nil
}

// Wait submits pending SQEs and waits for at least one CQE (or maxWait),
// translating completed POLL_ADD requests back into Events and resubmitting
// any fd whose desired interest is still armed.
func (b *UringBackend) Wait(maxWait time.Duration) ([]Event, error) {
	var cqes [128]*giouring.CompletionQueueEvent

	var n uint32
	var err error
	if maxWait < 0 {
		n, err = b.ring.WaitCQEs(cqes[:], 1, nil, nil)
	} else {
		ts := unix.NsecToTimespec(maxWait.Nanoseconds())
		n, err = b.ring.WaitCQEs(cqes[:], 1, &ts, nil)
	}
	if err != nil {
		if err == unix.ETIME || err == unix.EINTR || err == unix.EAGAIN {
			return nil, nil
		}
		return nil, fmt.Errorf("io_uring_wait_cqe: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	events := make([]Event, 0, n)
	for i := uint32(0); i < n; i++ {
		cqe := cqes[i]
		b.ring.CQAdvance(1)
		if cqe.UserData == uringWakeTag {
			continue
		}
		fd := int(uint32(cqe.UserData))
		isCancel := cqe.UserData&uringDirWrite != 0 && cqe.UserData&uringDirRead == 0
		if isCancel {
			continue
		}
		b.pending[fd] = false

		res := cqe.Res
		ev := Event{FD: fd}
		if res < 0 {
			ev.ErrorHint = ioerr.FromErrno(unix.Errno(-res))
		} else {
			mask := uint32(res)
			if mask&(unix.POLLIN|unix.POLLRDHUP) != 0 {
				ev.Readable = true
			}
			if mask&unix.POLLOUT != 0 {
				ev.Writable = true
			}
			if mask&(unix.POLLHUP|unix.POLLRDHUP) != 0 {
				ev.ErrorHint = ioerr.EOF
			} else if mask&unix.POLLERR != 0 {
				ev.ErrorHint = ioerr.ConnectionReset
				ev.Readable = true
				ev.Writable = true
			}
		}
		events = append(events, ev)

		if want, stillArmed := b.armed[fd]; stillArmed {
			b.submitPollLocked(fd, want)
		}
	}
	return events, nil
}

// Wakeup submits a no-op NOP SQE, which produces an immediate CQE and breaks
// a concurrent WaitCQEs call.
func (b *UringBackend) Wakeup() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	sqe := b.ring.GetSQE()
	if sqe == nil {
		return fmt.Errorf("io_uring: no SQE available for wakeup")
	}
	sqe.PrepareNop()
	sqe.UserData = uringWakeTag
	_, err := b.ring.Submit()
	return err
}

// Close tears down the ring, idempotently.
func (b *UringBackend) Close() error {
	b.closeOnce.Do(func() {
		b.ring.QueueExit()
		b.log.Debugf("io_uring backend closed")
	})
	return nil
}
