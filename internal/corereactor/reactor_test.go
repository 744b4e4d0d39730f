package corereactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/go-iocoro/internal/backend"
	"github.com/ehrlich-b/go-iocoro/internal/registry"
)

func newTestReactor(t *testing.T) *Reactor {
	t.Helper()
	r, err := New(Config{BackendKind: backend.KindEpoll})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestReactorRunsPostedWorkThenStops(t *testing.T) {
	r := newTestReactor(t)
	var ran bool
	r.Post(func() {
		ran = true
		r.Stop()
	})
	r.Run()
	assert.True(t, ran)
}

func TestReactorTimerFires(t *testing.T) {
	r := newTestReactor(t)
	fired := make(chan struct{})
	r.AddTimer(time.Now().Add(5*time.Millisecond), &registry.FuncOperation{
		Complete: func() { close(fired); r.Stop() },
	})
	r.Run()
	select {
	case <-fired:
	default:
		t.Fatal("timer did not fire")
	}
}

func TestReactorStopThenRestartResumesPostedWork(t *testing.T) {
	r := newTestReactor(t)
	var second bool

	r.Post(func() { r.Stop() })
	r.Run()
	assert.False(t, r.HasWork())

	r.Post(func() { second = true })
	r.Restart()
	r.Post(func() { r.Stop() })
	r.Run()

	assert.True(t, second)
}

func TestReactorDispatchInlineOnOwningThread(t *testing.T) {
	r := newTestReactor(t)
	var insideReactor bool
	r.Post(func() {
		r.Dispatch(func() { insideReactor = true })
		r.Stop()
	})
	r.Run()
	assert.True(t, insideReactor)
}
