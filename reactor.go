package iocoro

import (
	"time"

	"github.com/ehrlich-b/go-iocoro/internal/backend"
	"github.com/ehrlich-b/go-iocoro/internal/corereactor"
	"github.com/ehrlich-b/go-iocoro/internal/logging"
	"github.com/ehrlich-b/go-iocoro/internal/promise"
)

// BackendKind selects the reactor's OS readiness-multiplexer.
type BackendKind = backend.Kind

const (
	BackendAuto    = backend.KindAuto
	BackendEpoll   = backend.KindEpoll
	BackendIOUring = backend.KindIOUring
)

// ReactorConfig configures a Reactor: a plain struct with a sensible zero
// value, so the common case is NewReactor(ReactorConfig{}).
type ReactorConfig struct {
	Backend BackendKind
	// MaxWait caps how long any single backend wait blocks (zero means no
	// cap).
	MaxWait time.Duration
	// LogLevel is carried in the config but not read by NewReactor; the
	// reactor logs through logging.Default() at that logger's level.
	LogLevel logging.LogLevel
}

// Reactor is the public facade over internal/corereactor.Reactor, adding
// metrics and a bound Executor.
type Reactor struct {
	core    *corereactor.Reactor
	exec    *promise.ReactorExecutor
	metrics *Metrics
}

// NewReactor constructs a Reactor per cfg.
func NewReactor(cfg ReactorConfig) (*Reactor, error) {
	core, err := corereactor.New(corereactor.Config{BackendKind: cfg.Backend, MaxWait: cfg.MaxWait})
	if err != nil {
		return nil, WrapError("new_reactor", err)
	}
	r := &Reactor{core: core, metrics: NewMetrics()}
	r.exec = promise.NewReactorExecutor(core)
	return r, nil
}

// Executor returns the promise.Executor bound to this reactor, for use with
// WithExecutor/SpawnAwaitable.
func (r *Reactor) Executor() Executor { return r.exec }

// Metrics returns the reactor's running statistics.
func (r *Reactor) Metrics() *Metrics { return r.metrics }

// Post schedules f to run on the reactor's owning thread.
func (r *Reactor) Post(f func()) { r.core.Post(f) }

// Dispatch runs f inline if already on the reactor's thread, else posts it.
func (r *Reactor) Dispatch(f func()) { r.core.Dispatch(f) }

// Run processes work until Stop is called; it does not return when no work
// remains.
func (r *Reactor) Run() { r.core.Run() }

// RunFor runs for up to d or until Stop is called.
func (r *Reactor) RunFor(d time.Duration) { r.core.RunFor(d) }

// RunOne processes one unit of progress, reporting whether anything ran.
func (r *Reactor) RunOne() bool { return r.core.RunOne() }

// Stop requests the current/next Run pass exit.
func (r *Reactor) Stop() { r.core.Stop() }

// Restart clears a prior Stop so posted work left pending can resume.
func (r *Reactor) Restart() { r.core.Restart() }

// Stopped reports whether Stop has been called since the last Restart.
func (r *Reactor) Stopped() bool { return r.core.Stopped() }

// AddWorkGuard makes HasWork report true even with an empty queue.
func (r *Reactor) AddWorkGuard() { r.core.AddWorkGuard() }

// RemoveWorkGuard releases a work guard.
func (r *Reactor) RemoveWorkGuard() { r.core.RemoveWorkGuard() }

// HasWork reports whether the reactor believes it has outstanding work.
func (r *Reactor) HasWork() bool { return r.core.HasWork() }

// Close releases the reactor's backend resources.
func (r *Reactor) Close() error { return r.core.Close() }

// internalCore exposes the underlying reactor for this package's socket facades
// (stream.go, datagram.go, acceptor.go, timer.go) without making it public.
func (r *Reactor) internalCore() *corereactor.Reactor { return r.core }
