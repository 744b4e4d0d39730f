//go:build !(linux && iouring)

package backend

import (
	"errors"
	"time"
)

// NewUringBackend is unavailable without the `iouring` build tag (and
// outside Linux): a build-tag-gated stub returning a clear error instead of
// failing to compile.
func NewUringBackend() (*UringBackend, error) {
	return nil, errors.New("backend: io_uring support not compiled in (build with -tags iouring on linux)")
}

// UringBackend is an unusable placeholder when the iouring build tag is
// absent, kept so other packages can reference the type name unconditionally.
type UringBackend struct{}

func (b *UringBackend) UpdateInterest(fd int, wantRead, wantWrite bool) error {
	return errors.New("backend: io_uring support not compiled in")
}

func (b *UringBackend) RemoveInterest(fd int) error {
	return errors.New("backend: io_uring support not compiled in")
}

func (b *UringBackend) Wait(maxWait time.Duration) ([]Event, error) {
	return nil, errors.New("backend: io_uring support not compiled in")
}

func (b *UringBackend) Wakeup() error {
	return errors.New("backend: io_uring support not compiled in")
}

func (b *UringBackend) Close() error { return nil }
