package registry

import (
	"container/heap"
	"sync"
	"time"

	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
)

// timerState is the lifecycle of a timerSlot.
type timerState int

const (
	timerPending timerState = iota
	timerFired
	timerCancelled
)

// timerSlot is a registry node: expiry, operation, generation, state.
// Recycled slots keep their index in the backing slice and bump generation.
type timerSlot struct {
	expiry     time.Time
	op         Operation
	generation uint64
	state      timerState
	heapIndex  int // index in the heap, -1 when not in the heap
	slotIndex  int // fixed index into TimerRegistry.slots, set once at creation
}

// TimerToken identifies an active timer registration as a (slot, generation)
// pair. The zero value is never issued by Add (generation 0 is reserved for
// "invalid").
type TimerToken struct {
	slot       int
	generation uint64
}

// Valid reports whether the token could possibly refer to a live
// registration (a zero-value TimerToken never can).
func (t TimerToken) Valid() bool { return t.generation != 0 }

// timerHeap implements container/heap.Interface over slot indices, ordered
// by expiry (earlier expiry = higher priority).
type timerHeap []*timerSlot

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	return h[i].expiry.Before(h[j].expiry)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}
func (h *timerHeap) Push(x any) {
	s := x.(*timerSlot)
	s.heapIndex = len(*h)
	*h = append(*h, s)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	s.heapIndex = -1
	*h = old[:n-1]
	return s
}

// TimerRegistry is the min-heap of timers: slots are recycled on
// completion/cancellation, generations defeat ABA on reuse.
type TimerRegistry struct {
	mu      sync.Mutex
	heap    timerHeap
	slots   []*timerSlot // index == slot index; recycled in place
	freeIdx []int        // indices of slots eligible for reuse
	nextGen uint64       // monotonically increasing, skips 0
}

// NewTimerRegistry constructs an empty registry.
func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{nextGen: 1}
}

func (r *TimerRegistry) allocGeneration() uint64 {
	g := r.nextGen
	r.nextGen++
	if r.nextGen == 0 { // wrapped past math.MaxUint64; skip the reserved 0
		r.nextGen = 1
	}
	return g
}

// Add allocates or recycles a slot for a new timer and pushes it into the
// heap. Returns the token the caller must present to Cancel.
func (r *TimerRegistry) Add(expiry time.Time, op Operation) TimerToken {
	r.mu.Lock()
	defer r.mu.Unlock()

	gen := r.allocGeneration()

	var s *timerSlot
	if n := len(r.freeIdx); n > 0 {
		idx := r.freeIdx[n-1]
		r.freeIdx = r.freeIdx[:n-1]
		s = r.slots[idx]
	} else {
		s = &timerSlot{heapIndex: -1, slotIndex: len(r.slots)}
		r.slots = append(r.slots, s)
	}

	s.expiry = expiry
	s.op = op
	s.generation = gen
	s.state = timerPending
	heap.Push(&r.heap, s)

	return TimerToken{slot: s.slotIndex, generation: gen}
}

// Cancel transitions a pending timer to cancelled iff token matches the
// slot's current generation. Returns the slot's operation and whether the
// cancellation took effect; the operation stays owned by the registry, and
// ProcessExpired aborts and releases it once the cancelled slot reaches the
// heap top. Stale tokens are no-ops:
// a token whose generation no longer matches the slot must be a no-op even
// if the slot has since been recycled for a different timer.
func (r *TimerRegistry) Cancel(token TimerToken) (op Operation, cancelled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !token.Valid() || token.slot < 0 || token.slot >= len(r.slots) {
		return nil, false
	}
	s := r.slots[token.slot]
	if s.generation != token.generation || s.state != timerPending {
		return nil, false
	}
	s.state = timerCancelled
	return s.op, true
}

// NextTimeout returns the duration until the registry needs attention: 0 if
// the heap top is cancelled or already expired (forcing a drain pass), the
// remaining time otherwise, or (0, false) if the heap is empty.
func (r *TimerRegistry) NextTimeout(now time.Time) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.heap) == 0 {
		return 0, false
	}
	top := r.heap[0]
	if top.state == timerCancelled {
		return 0, true
	}
	d := top.expiry.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

// ProcessExpired pops all cancelled/expired roots and invokes their
// callbacks. The callbacks run *after* the registry mutation completes
// (ready operations are collected first, heap popped and slots recycled,
// lock released, then callbacks invoked), because a callback may legally
// re-enter the registry (e.g. posting a new timer).
func (r *TimerRegistry) ProcessExpired(now time.Time, reactorStopped bool) {
	type ready struct {
		op      Operation
		aborted bool
	}
	var batch []ready

	r.mu.Lock()
	for len(r.heap) > 0 {
		top := r.heap[0]
		switch {
		case top.state == timerCancelled:
			heap.Pop(&r.heap)
			batch = append(batch, ready{op: top.op, aborted: true})
			r.recycleLocked(top)
		case reactorStopped:
			heap.Pop(&r.heap)
			batch = append(batch, ready{op: top.op, aborted: true})
			r.recycleLocked(top)
		case !top.expiry.After(now):
			heap.Pop(&r.heap)
			top.state = timerFired
			batch = append(batch, ready{op: top.op})
			r.recycleLocked(top)
		default:
			goto done
		}
	}
done:
	r.mu.Unlock()

	for _, b := range batch {
		if b.aborted {
			b.op.OnAbort(ioerr.OperationAborted)
		} else {
			b.op.OnComplete()
		}
		b.op.Destroy()
	}
}

// recycleLocked clears a popped slot's operation pointer and marks it free
// for reuse by Add. Must be called with r.mu held.
func (r *TimerRegistry) recycleLocked(s *timerSlot) {
	s.op = nil
	r.freeIdx = append(r.freeIdx, s.slotIndex)
}

// Len reports the number of timers currently tracked (pending or awaiting a
// drain pass), used by the reactor's "has work" predicate.
func (r *TimerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.heap)
}

// DrainAll empties the registry, returning every still-owned operation so the
// caller (reactor teardown) can abort them.
func (r *TimerRegistry) DrainAll() []Operation {
	r.mu.Lock()
	ops := make([]Operation, 0, len(r.heap))
	for _, s := range r.heap {
		if s.op != nil {
			ops = append(ops, s.op)
		}
		s.op = nil
	}
	r.heap = nil
	r.slots = nil
	r.freeIdx = nil
	r.mu.Unlock()
	return ops
}
