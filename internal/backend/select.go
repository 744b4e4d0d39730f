package backend

import "fmt"

// New constructs the requested backend. KindAuto tries io_uring first (a
// no-op unless built with -tags iouring) and falls back to epoll.
func New(kind Kind) (Backend, error) {
	switch kind {
	case KindEpoll:
		return NewEpollBackend()
	case KindIOUring:
		return NewUringBackend()
	case KindAuto:
		if b, err := NewUringBackend(); err == nil {
			return b, nil
		}
		return NewEpollBackend()
	default:
		return nil, fmt.Errorf("backend: unknown kind %d", kind)
	}
}
