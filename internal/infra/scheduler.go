package infra

import (
	"context"
	"log/slog"
	"time"

	"dexmetrics/internal/domain"
)

// SystemClock is the wall-clock implementation of domain.Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time                         { return time.Now() }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Loop runs a task to completion, then waits Interval before the next run.
// Runs never overlap: a slow pass delays the next one rather than stacking.
// Task failures are logged and the loop keeps going; only context
// cancellation stops it.
type Loop struct {
	Name     string
	Interval time.Duration
	Clock    domain.Clock
	Task     func(ctx context.Context) error
	Log      *slog.Logger
}

func (l *Loop) Run(ctx context.Context) {
	for {
		start := l.Clock.Now()
		if err := l.Task(ctx); err != nil {
			GlobalMetrics.RecordError()
			l.Log.Error("scheduled task failed",
				slog.String("loop", l.Name),
				slog.Any("error", err))
		} else {
			took := l.Clock.Now().Sub(start)
			GlobalMetrics.RecordTask(took.Nanoseconds())
			l.Log.Debug("scheduled task complete",
				slog.String("loop", l.Name),
				slog.Duration("took", took))
		}

		select {
		case <-ctx.Done():
			return
		case <-l.Clock.After(l.Interval):
		}
	}
}
