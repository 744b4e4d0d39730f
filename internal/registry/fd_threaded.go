package registry

import "sync"

// ThreadedFDRegistry wraps FDRegistry with a mutex so it can be reached
// safely from goroutines other than the owning reactor thread. Socket
// cancellation calls arrive from arbitrary callers, so the reactor keeps
// its fd registry behind this wrapper rather than the bare
// reactor-thread-only FDRegistry.
type ThreadedFDRegistry struct {
	mu sync.Mutex
	r  *FDRegistry
}

// NewThreadedFDRegistry constructs an empty threaded registry.
func NewThreadedFDRegistry() *ThreadedFDRegistry {
	return &ThreadedFDRegistry{r: NewFDRegistry()}
}

func (t *ThreadedFDRegistry) RegisterRead(fd int, op Operation) (uint64, Operation, Interest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.r.RegisterRead(fd, op)
}

func (t *ThreadedFDRegistry) RegisterWrite(fd int, op Operation) (uint64, Operation, Interest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.r.RegisterWrite(fd, op)
}

func (t *ThreadedFDRegistry) Cancel(fd int, kind Kind, token uint64) (Operation, Interest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.r.Cancel(fd, kind, token)
}

func (t *ThreadedFDRegistry) TakeReady(fd int, canRead, canWrite bool) (Operation, Operation, Interest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.r.TakeReady(fd, canRead, canWrite)
}

func (t *ThreadedFDRegistry) Deregister(fd int) (Operation, Operation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.r.Deregister(fd)
}

func (t *ThreadedFDRegistry) DrainAll() ([]int, []Operation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.r.DrainAll()
}

func (t *ThreadedFDRegistry) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.r.ActiveCount()
}

func (t *ThreadedFDRegistry) MaxActiveFD() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.r.MaxActiveFD()
}
