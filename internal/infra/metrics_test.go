package infra

import (
	"testing"
)

func TestMetrics_RecordTask(t *testing.T) {
	m := &Metrics{}

	m.RecordTask(1000)
	m.RecordTask(2000)
	m.RecordTask(3000)

	snap := m.Snapshot()

	if snap.TasksRun != 3 {
		t.Errorf("Expected 3 tasks, got %d", snap.TasksRun)
	}

	// Average duration: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgDurationNs != 2000 {
		t.Errorf("Expected avg duration 2000, got %d", snap.AvgDurationNs)
	}
}

func TestMetrics_FeedGauge(t *testing.T) {
	m := &Metrics{}

	snap := m.Snapshot()
	if snap.FeedConnected {
		t.Error("Expected feed down initially")
	}

	m.SetFeedConnected(true)
	snap = m.Snapshot()
	if !snap.FeedConnected {
		t.Error("Expected feed connected")
	}

	m.SetFeedConnected(false)
	snap = m.Snapshot()
	if snap.FeedConnected {
		t.Error("Expected feed down")
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordTask(1000)
	m.RecordError()
	m.SetFeedConnected(true)

	m.Reset()
	snap := m.Snapshot()

	if snap.TasksRun != 0 {
		t.Error("Expected 0 tasks after reset")
	}
	if snap.ErrorsTotal != 0 {
		t.Error("Expected 0 errors after reset")
	}
	if snap.FeedConnected {
		t.Error("Expected feed gauge cleared after reset")
	}
}
