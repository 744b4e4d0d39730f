package promise

import "sync"

// Strand serializes access to an Executor: at most one posted function runs
// at a time even if multiple goroutines call Post concurrently — an
// executor adapter providing mutual exclusion without a dedicated
// goroutine (a mutex guards only its queue and running flag). It is itself
// an Executor, so it composes with Then/SpawnAwaitable transparently.
type Strand struct {
	inner Executor

	mu      sync.Mutex
	running bool
	queue   []func()
}

// NewStrand wraps inner with mutual exclusion.
func NewStrand(inner Executor) *Strand {
	return &Strand{inner: inner}
}

// Post enqueues f for serialized execution; if nothing is currently running
// on the strand, it schedules a drain via the inner executor.
func (s *Strand) Post(f func()) {
	s.mu.Lock()
	s.queue = append(s.queue, f)
	start := !s.running
	if start {
		s.running = true
	}
	s.mu.Unlock()
	if start {
		s.inner.Post(s.drain)
	}
}

// Dispatch behaves like Post; strands never run inline because "on the
// strand" has no single owning thread to compare against.
func (s *Strand) Dispatch(f func()) { s.Post(f) }

// drain runs queued work one thunk at a time, re-posting itself (rather than
// looping in place) so a strand under heavy load still yields to other work
// on the inner executor between thunks.
func (s *Strand) drain() {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.running = false
		s.mu.Unlock()
		return
	}
	f := s.queue[0]
	s.queue = s.queue[1:]
	s.mu.Unlock()

	f()
	s.inner.Post(s.drain)
}
