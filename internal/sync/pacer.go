package sync

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out calls to the external classifier.
type Pacer interface {
	Wait(ctx context.Context) error
}

// newPacer builds a limiter allowing one call per interval, with the
// first call passing immediately. A non-positive interval disables
// pacing.
func newPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return noopPacer{}
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

type noopPacer struct{}

func (noopPacer) Wait(context.Context) error { return nil }
