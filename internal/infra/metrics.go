package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	tasksRun    atomic.Uint64
	errorsTotal atomic.Uint64

	// Task duration tracking
	durationSumNs atomic.Int64
	durationCount atomic.Uint64

	// Gauges
	feedConnected atomic.Int32 // 1 = connected, 0 = down
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTask records one completed scheduled task run with its duration.
func (m *Metrics) RecordTask(durationNs int64) {
	m.tasksRun.Add(1)
	m.durationSumNs.Add(durationNs)
	m.durationCount.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// SetFeedConnected sets the block feed connection gauge.
func (m *Metrics) SetFeedConnected(connected bool) {
	if connected {
		m.feedConnected.Store(1)
	} else {
		m.feedConnected.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TasksRun      uint64
	ErrorsTotal   uint64
	AvgDurationNs int64
	FeedConnected bool
	Timestamp     time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgDuration int64
	count := m.durationCount.Load()
	if count > 0 {
		avgDuration = m.durationSumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		TasksRun:      m.tasksRun.Load(),
		ErrorsTotal:   m.errorsTotal.Load(),
		AvgDurationNs: avgDuration,
		FeedConnected: m.feedConnected.Load() == 1,
		Timestamp:     time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.tasksRun.Store(0)
	m.errorsTotal.Store(0)
	m.durationSumNs.Store(0)
	m.durationCount.Store(0)
	m.feedConnected.Store(0)
}
