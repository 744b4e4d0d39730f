package iocoro

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapErrorMapsErrno(t *testing.T) {
	err := WrapError("read", syscall.ECONNRESET)
	assert.Equal(t, ErrConnectionReset, err.Kind)
	assert.Equal(t, syscall.ECONNRESET, err.Errno)
}

func TestWrapErrorPreservesStructuredError(t *testing.T) {
	inner := NewEndpointError("dial", "1.2.3.4:80", ErrTimedOut)
	wrapped := WrapError("retry", inner)
	assert.Equal(t, ErrTimedOut, wrapped.Kind)
	assert.Equal(t, "1.2.3.4:80", wrapped.Endpoint)
	assert.Equal(t, "retry", wrapped.Op)
}

func TestErrorIsMatchesByKind(t *testing.T) {
	err := NewError("write", ErrBrokenPipe)
	assert.True(t, errors.Is(err, ErrBrokenPipe))
	assert.False(t, errors.Is(err, ErrTimedOut))
}

func TestKindOfDefaultsForUnknownErrors(t *testing.T) {
	assert.Equal(t, ErrInvalidArgument, KindOf(errors.New("mystery")))
	assert.Equal(t, ErrNone, KindOf(nil))
}
