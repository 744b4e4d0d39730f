package iocoro

import (
	"sync/atomic"
	"time"
)

// latencyBuckets are the histogram bucket upper bounds in nanoseconds,
// covering 1us to 10s. The bounds carry over unchanged from a block I/O
// latency histogram, since network round-trips and disk I/O occupy the same
// broad range.
var latencyBuckets = [...]uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = len(latencyBuckets)

// Metrics tracks connection and I/O statistics for a Reactor: an
// atomic-counter and cumulative-histogram shape with accept/read/write/timer
// counters.
type Metrics struct {
	AcceptOps  atomic.Uint64
	ReadOps    atomic.Uint64
	WriteOps   atomic.Uint64
	TimerFires atomic.Uint64

	ReadBytes  atomic.Uint64
	WriteBytes atomic.Uint64

	ReadErrors   atomic.Uint64
	WriteErrors  atomic.Uint64
	AcceptErrors atomic.Uint64

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics constructs an empty metrics set stamped with the current time.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordRead records a completed or failed read of n bytes taking latency.
func (m *Metrics) RecordRead(n uint64, latency time.Duration, success bool) {
	m.ReadOps.Add(1)
	if success {
		m.ReadBytes.Add(n)
	} else {
		m.ReadErrors.Add(1)
	}
	m.recordLatency(uint64(latency.Nanoseconds()))
}

// RecordWrite records a completed or failed write of n bytes taking latency.
func (m *Metrics) RecordWrite(n uint64, latency time.Duration, success bool) {
	m.WriteOps.Add(1)
	if success {
		m.WriteBytes.Add(n)
	} else {
		m.WriteErrors.Add(1)
	}
	m.recordLatency(uint64(latency.Nanoseconds()))
}

// RecordAccept records a completed or failed accept.
func (m *Metrics) RecordAccept(success bool) {
	m.AcceptOps.Add(1)
	if !success {
		m.AcceptErrors.Add(1)
	}
}

// RecordTimerFire records one timer completion.
func (m *Metrics) RecordTimerFire() {
	m.TimerFires.Add(1)
}

func (m *Metrics) recordLatency(ns uint64) {
	m.TotalLatencyNs.Add(ns)
	m.OpCount.Add(1)
	for i, bucket := range latencyBuckets {
		if ns <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics safe to read without
// racing further updates.
type MetricsSnapshot struct {
	AcceptOps, ReadOps, WriteOps, TimerFires       uint64
	ReadBytes, WriteBytes                          uint64
	ReadErrors, WriteErrors, AcceptErrors          uint64
	AverageLatencyNs                               uint64
	LatencyBuckets                                 [numLatencyBuckets]uint64
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var s MetricsSnapshot
	s.AcceptOps = m.AcceptOps.Load()
	s.ReadOps = m.ReadOps.Load()
	s.WriteOps = m.WriteOps.Load()
	s.TimerFires = m.TimerFires.Load()
	s.ReadBytes = m.ReadBytes.Load()
	s.WriteBytes = m.WriteBytes.Load()
	s.ReadErrors = m.ReadErrors.Load()
	s.WriteErrors = m.WriteErrors.Load()
	s.AcceptErrors = m.AcceptErrors.Load()
	if n := m.OpCount.Load(); n > 0 {
		s.AverageLatencyNs = m.TotalLatencyNs.Load() / n
	}
	for i := range s.LatencyBuckets {
		s.LatencyBuckets[i] = m.LatencyBuckets[i].Load()
	}
	return s
}
