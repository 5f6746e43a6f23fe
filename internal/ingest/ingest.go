package ingest

import (
	"context"
	"log/slog"
	"time"

	"icsguard/internal/model"
)

// SendNonBlocking offers a batch to the submission channel, dropping it
// with a warning when the channel is full rather than stalling the
// consumer loop.
func SendNonBlocking(ctx context.Context, out chan<- model.SensorBatch, batch model.SensorBatch, logger *slog.Logger) bool {
	select {
	case out <- batch:
		return true
	case <-ctx.Done():
		return false
	default:
		if logger != nil {
			logger.Warn("batch channel full, dropping batch", "rows", batch.Size())
		}
		return false
	}
}

// BackoffSleep waits d or until ctx is canceled, reporting whether the
// full wait elapsed.
func BackoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
