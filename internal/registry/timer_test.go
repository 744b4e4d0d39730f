package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
)

type recordingOp struct {
	completed bool
	aborted   ioerr.Kind
	destroyed bool
}

func (r *recordingOp) OnComplete()          { r.completed = true }
func (r *recordingOp) OnAbort(k ioerr.Kind) { r.aborted = k }
func (r *recordingOp) Destroy()             { r.destroyed = true }

func TestTimerRegistryFiresInExpiryOrder(t *testing.T) {
	reg := NewTimerRegistry()
	now := time.Now()

	var order []int
	for i, delta := range []time.Duration{30 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond} {
		i := i
		op := &FuncOperation{Complete: func() { order = append(order, i) }}
		reg.Add(now.Add(delta), op)
	}

	reg.ProcessExpired(now.Add(time.Hour), false)
	assert.Equal(t, []int{1, 2, 0}, order)
}

func TestTimerCancelStaleTokenIsNoop(t *testing.T) {
	reg := NewTimerRegistry()
	op1 := &recordingOp{}
	tok1 := reg.Add(time.Now().Add(time.Hour), op1)

	_, cancelled := reg.Cancel(tok1)
	require.True(t, cancelled)

	// Cancel only marks the slot; processing frees it, and the next Add
	// recycles it for a different timer.
	reg.ProcessExpired(time.Now(), false)
	op2 := &recordingOp{}
	reg.Add(time.Now().Add(time.Hour), op2)

	// Re-using the stale token must be a no-op even though the slot has
	// been recycled.
	_, cancelledAgain := reg.Cancel(tok1)
	assert.False(t, cancelledAgain)
}

func TestTimerProcessExpiredInvokesCallbacksAfterMutation(t *testing.T) {
	reg := NewTimerRegistry()
	op := &recordingOp{}
	reg.Add(time.Now().Add(-time.Second), op)

	reg.ProcessExpired(time.Now(), false)

	assert.True(t, op.completed)
	assert.True(t, op.destroyed)
	assert.Equal(t, 0, reg.Len())
}

func TestTimerProcessExpiredAbortsOnReactorStop(t *testing.T) {
	reg := NewTimerRegistry()
	op := &recordingOp{}
	reg.Add(time.Now().Add(time.Hour), op)

	reg.ProcessExpired(time.Now(), true)

	assert.Equal(t, ioerr.OperationAborted, op.aborted)
	assert.True(t, op.destroyed)
}

func TestTimerNextTimeoutEmptyRegistry(t *testing.T) {
	reg := NewTimerRegistry()
	_, has := reg.NextTimeout(time.Now())
	assert.False(t, has)
}
