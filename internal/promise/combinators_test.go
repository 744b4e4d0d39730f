package promise

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
)

func TestWhenAllSliceCollectsValuesInOrder(t *testing.T) {
	ctx := context.Background()
	ts := make([]*Task[int], 3)
	for i := range ts {
		i := i
		ts[i] = SpawnAwaitable(ctx, func(context.Context) (int, error) {
			time.Sleep(time.Duration(3-i) * time.Millisecond)
			return i, nil
		})
	}
	vals, err := WhenAllSlice(ctx, ts)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, vals)
}

func TestWhenAllSliceReturnsFirstError(t *testing.T) {
	ctx := context.Background()
	wantErr := errors.New("fail")
	ts := []*Task[int]{
		SpawnAwaitable(ctx, func(context.Context) (int, error) { return 1, nil }),
		SpawnAwaitable(ctx, func(context.Context) (int, error) { return 0, wantErr }),
	}
	_, err := WhenAllSlice(ctx, ts)
	assert.Equal(t, wantErr, err)
}

func TestWhenAnyCancelJoinCancelsLosers(t *testing.T) {
	ctx := context.Background()
	var loserCancelled bool

	winner, err := WhenAnyCancelJoin(ctx,
		func(ctx context.Context) (string, error) {
			return "fast", nil
		},
		func(ctx context.Context) (string, error) {
			<-ctx.Done()
			loserCancelled = true
			return "", ioerr.OperationAborted
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "fast", winner)
	assert.True(t, loserCancelled)
}

func TestWhenAnyCancelJoinWaitsForLoserFnToActuallyReturn(t *testing.T) {
	ctx := context.Background()
	var loserFinished atomic.Bool

	winner, err := WhenAnyCancelJoin(ctx,
		func(ctx context.Context) (string, error) {
			return "fast", nil
		},
		func(ctx context.Context) (string, error) {
			<-ctx.Done()
			time.Sleep(30 * time.Millisecond) // simulate slow unwind after cancellation
			loserFinished.Store(true)
			return "", ioerr.OperationAborted
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "fast", winner)
	assert.True(t, loserFinished.Load(), "WhenAnyCancelJoin returned before the loser's fn actually finished")
}

func TestRaceReturnsFasterResult(t *testing.T) {
	ctx := context.Background()
	v, err := Race(ctx,
		func(ctx context.Context) (int, error) {
			time.Sleep(20 * time.Millisecond)
			return 1, nil
		},
		func(ctx context.Context) (int, error) {
			return 2, nil
		},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestWithTimeoutReturnsTimedOut(t *testing.T) {
	ctx := context.Background()
	_, err := WithTimeout(ctx, 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ioerr.OperationAborted
	})
	assert.Equal(t, ioerr.TimedOut, err)
}

func TestWithTimeoutDoesNotRemapARealErrorRacingTheDeadline(t *testing.T) {
	ctx := context.Background()
	_, err := WithTimeout(ctx, 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ioerr.ConnectionReset
	})
	assert.Equal(t, ioerr.ConnectionReset, err)
}

func TestWithTimeoutPropagatesParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WithTimeout(parent, time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ioerr.OperationAborted
	})
	assert.Equal(t, ioerr.OperationAborted, err)
}
