//go:build linux

package backend

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
	"github.com/ehrlich-b/go-iocoro/internal/logging"
)

// EpollBackend is the default reactor backend: an epoll instance plus an
// eventfd used purely for cross-thread Wakeup, watching an arbitrary,
// growing set of socket fds.
type EpollBackend struct {
	epfd      int
	wakeFD    int
	closeOnce sync.Once
	log       *logging.Logger

	// armed tracks what interest bits are currently registered with epoll
	// per fd, so UpdateInterest can decide ADD vs MOD vs DEL.
	mu    sync.Mutex
	armed map[int]uint32
}

// NewEpollBackend creates the epoll instance and wakeup eventfd.
func NewEpollBackend() (*EpollBackend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	wfd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wfd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wfd, &ev); err != nil {
		unix.Close(wfd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll_ctl(wakeup): %w", err)
	}
	return &EpollBackend{
		epfd:   epfd,
		wakeFD: wfd,
		armed:  make(map[int]uint32),
		log:    logging.Default().Named("backend.epoll"),
	}, nil
}

func interestBits(wantRead, wantWrite bool) uint32 {
	var e uint32
	if wantRead {
		e |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if wantWrite {
		e |= unix.EPOLLOUT
	}
	return e
}

// UpdateInterest reconciles epoll's armed bits for fd with the requested
// interest, issuing ADD/MOD/DEL as needed.
func (b *EpollBackend) UpdateInterest(fd int, wantRead, wantWrite bool) error {
	want := interestBits(wantRead, wantWrite)

	b.mu.Lock()
	prev, existed := b.armed[fd]
	if want == 0 {
		delete(b.armed, fd)
	} else {
		b.armed[fd] = want
	}
	b.mu.Unlock()

	switch {
	case want == 0 && existed:
		if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil && err != unix.ENOENT {
			return fmt.Errorf("epoll_ctl(del fd=%d): %w", fd, err)
		}
		return nil
	case want == 0:
		return nil
	}

	ev := unix.EpollEvent{Events: want, Fd: int32(fd)}
	op := unix.EPOLL_CTL_MOD
	if !existed || prev == 0 {
		op = unix.EPOLL_CTL_ADD
	}
	if err := unix.EpollCtl(b.epfd, op, fd, &ev); err != nil {
		if op == unix.EPOLL_CTL_ADD && err == unix.EEXIST {
			return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
		}
		return fmt.Errorf("epoll_ctl(fd=%d): %w", fd, err)
	}
	return nil
}

// RemoveInterest deletes fd from epoll entirely.
func (b *EpollBackend) RemoveInterest(fd int) error {
	b.mu.Lock()
	delete(b.armed, fd)
	b.mu.Unlock()
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil && err != unix.ENOENT && err != unix.EBADF {
		return fmt.Errorf("epoll_ctl(del fd=%d): %w", fd, err)
	}
	return nil
}

// Wait blocks in epoll_wait for up to maxWait, draining the wakeup eventfd
// whenever it fires so repeated Wakeup calls do not leak readiness events.
func (b *EpollBackend) Wait(maxWait time.Duration) ([]Event, error) {
	timeoutMS := -1
	if maxWait >= 0 {
		timeoutMS = int(maxWait / time.Millisecond)
	}

	var raw [128]unix.EpollEvent
	n, err := unix.EpollWait(b.epfd, raw[:], timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("epoll_wait: %w", err)
	}

	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		re := raw[i]
		if int(re.Fd) == b.wakeFD {
			var buf [8]byte
			for {
				_, rerr := unix.Read(b.wakeFD, buf[:])
				if rerr != nil {
					break
				}
			}
			continue
		}
		ev := Event{FD: int(re.Fd)}
		if re.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
			ev.Readable = true
		}
		if re.Events&unix.EPOLLOUT != 0 {
			ev.Writable = true
		}
		switch {
		case re.Events&unix.EPOLLRDHUP != 0:
			ev.ErrorHint = ioerr.EOF
		case re.Events&unix.EPOLLHUP != 0:
			ev.ErrorHint = ioerr.EOF
		case re.Events&unix.EPOLLERR != 0:
			ev.ErrorHint = ioerr.ConnectionReset
			ev.Readable = true
			ev.Writable = true
		}
		events = append(events, ev)
	}
	return events, nil
}

// Wakeup writes to the eventfd, unblocking a concurrent epoll_wait.
func (b *EpollBackend) Wakeup() error {
	var one [8]byte
	one[0] = 1
	_, err := unix.Write(b.wakeFD, one[:])
	if err != nil && err != unix.EAGAIN {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

// Close releases the epoll fd and wakeup eventfd, idempotently.
func (b *EpollBackend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if cerr := unix.Close(b.wakeFD); cerr != nil {
			err = cerr
		}
		if cerr := unix.Close(b.epfd); cerr != nil {
			err = cerr
		}
		b.log.Debugf("epoll backend closed")
	})
	return err
}
