package promise

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
)

func TestTaskResolveDeliversValue(t *testing.T) {
	task := NewTask[int]()
	go task.Resolve(42)

	v, err := task.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestTaskRejectDeliversError(t *testing.T) {
	task := NewTask[int]()
	wantErr := errors.New("boom")
	go task.Reject(wantErr)

	_, err := task.Await(context.Background())
	assert.Equal(t, wantErr, err)
}

func TestTaskResolveAfterRejectIsNoop(t *testing.T) {
	task := NewTask[int]()
	task.Reject(errors.New("first"))
	task.Resolve(99)

	v, err := task.Await(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, v)
}

func TestTaskAwaitCancelledByContext(t *testing.T) {
	task := NewTask[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := task.Await(ctx)
	assert.Equal(t, ioerr.OperationAborted, err)
}

func TestTaskAwaitTwicePanics(t *testing.T) {
	task := NewTask[int]()
	go task.Resolve(1)
	_, _ = task.Await(context.Background())

	assert.Panics(t, func() {
		task.Await(context.Background())
	})
}

func TestTaskPeekBeforeResolve(t *testing.T) {
	task := NewTask[int]()
	_, _, ok := task.Peek()
	assert.False(t, ok)

	task.Resolve(7)
	v, err, ok := task.Peek()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
