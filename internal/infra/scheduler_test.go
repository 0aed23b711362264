package infra

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

// tickClock releases a waiter immediately for a bounded number of ticks, then
// blocks forever.
type tickClock struct {
	ticks int
}

func (c *tickClock) Now() time.Time { return time.Unix(0, 0) }

func (c *tickClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	if c.ticks > 0 {
		c.ticks--
		ch <- time.Unix(0, 0)
	}
	return ch
}

func TestLoop_Run(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Reruns After Each Completion", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		runs := 0
		loop := &Loop{
			Name:     "test",
			Interval: time.Minute,
			Clock:    &tickClock{ticks: 2},
			Log:      log,
			Task: func(context.Context) error {
				runs++
				if runs == 3 {
					cancel()
				}
				return nil
			},
		}
		loop.Run(ctx)
		if runs != 3 {
			t.Errorf("expected 3 runs, got %d", runs)
		}
	})

	t.Run("Task Failure Does Not Stop The Loop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		runs := 0
		loop := &Loop{
			Name:     "flaky",
			Interval: time.Minute,
			Clock:    &tickClock{ticks: 1},
			Log:      log,
			Task: func(context.Context) error {
				runs++
				if runs == 2 {
					cancel()
				}
				return errors.New("boom")
			},
		}
		loop.Run(ctx)
		if runs != 2 {
			t.Errorf("expected the loop to survive failures, got %d runs", runs)
		}
	})

	t.Run("Cancellation Stops Before The Next Run", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		runs := 0
		loop := &Loop{
			Name:     "once",
			Interval: time.Minute,
			Clock:    &tickClock{}, // never ticks
			Log:      log,
			Task: func(context.Context) error {
				runs++
				cancel()
				return nil
			},
		}
		loop.Run(ctx)
		if runs != 1 {
			t.Errorf("expected exactly one run, got %d", runs)
		}
	})
}
