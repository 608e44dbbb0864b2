// Package clock schedules work on wall-clock intervals.
package clock

import (
	"context"
	"time"
)

// Repeat calls fn immediately and then every interval until ctx is done or fn fails. A non-positive
// interval runs fn once. Cancellation between runs is not an error.
func Repeat(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	for {
		if err := fn(ctx); err != nil {
			return err
		}
		if interval <= 0 {
			return nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
