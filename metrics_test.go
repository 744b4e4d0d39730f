package iocoro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordReadTracksBytesAndErrors(t *testing.T) {
	m := NewMetrics()
	m.RecordRead(128, time.Microsecond, true)
	m.RecordRead(0, time.Microsecond, false)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.ReadOps)
	assert.Equal(t, uint64(128), snap.ReadBytes)
	assert.Equal(t, uint64(1), snap.ReadErrors)
}

func TestMetricsRecordWriteTracksBytesAndErrors(t *testing.T) {
	m := NewMetrics()
	m.RecordWrite(64, 500*time.Microsecond, true)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.WriteOps)
	assert.Equal(t, uint64(64), snap.WriteBytes)
	assert.Equal(t, uint64(0), snap.WriteErrors)
}

func TestMetricsRecordAcceptTracksErrors(t *testing.T) {
	m := NewMetrics()
	m.RecordAccept(true)
	m.RecordAccept(false)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.AcceptOps)
	assert.Equal(t, uint64(1), snap.AcceptErrors)
}

func TestMetricsRecordTimerFire(t *testing.T) {
	m := NewMetrics()
	m.RecordTimerFire()
	m.RecordTimerFire()

	assert.Equal(t, uint64(2), m.Snapshot().TimerFires)
}

func TestMetricsSnapshotComputesAverageLatency(t *testing.T) {
	m := NewMetrics()
	m.RecordRead(1, 10*time.Millisecond, true)
	m.RecordRead(1, 30*time.Millisecond, true)

	snap := m.Snapshot()
	assert.Equal(t, uint64(20*time.Millisecond.Nanoseconds()), snap.AverageLatencyNs)
}

func TestMetricsSnapshotBucketsLatency(t *testing.T) {
	m := NewMetrics()
	m.RecordRead(1, 500*time.Nanosecond, true)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.LatencyBuckets[0])
}
