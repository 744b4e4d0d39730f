package iocoro

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyEventWakesAllWaiters(t *testing.T) {
	ev := NewNotifyEvent()
	var wg sync.WaitGroup
	woken := make([]bool, 10)
	for i := range woken {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ev.Wait(context.Background())
			woken[i] = err == nil
		}()
	}
	time.Sleep(5 * time.Millisecond)
	ev.Notify()
	wg.Wait()
	for _, w := range woken {
		assert.True(t, w)
	}
}

func TestNotifyEventWaitCancelledByContext(t *testing.T) {
	ev := NewNotifyEvent()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err := ev.Wait(ctx)
	assert.Equal(t, ErrOperationAborted, err)
}

func TestConditionEventWaitUntilRechecksPredicate(t *testing.T) {
	c := NewConditionEvent()
	var mu sync.Mutex
	ready := false

	go func() {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		ready = true
		mu.Unlock()
		c.Signal()
	}()

	err := c.WaitUntil(context.Background(), func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ready
	})
	require.NoError(t, err)
}

func TestConditionEventResetAllowsReuse(t *testing.T) {
	c := NewConditionEvent()
	n := 0
	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			err := c.WaitUntil(context.Background(), func() bool { return n > i })
			require.NoError(t, err)
		}
		close(done)
	}()

	for i := 1; i <= 3; i++ {
		time.Sleep(2 * time.Millisecond)
		n = i
		c.Signal()
		c.Reset()
	}
	<-done
}
