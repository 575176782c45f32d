package syncer

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out per-folder work to stay under the remote rate limits.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewPacer allows one folder per interval. A non-positive interval disables pacing.
func NewPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return noPacer{}
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

type noPacer struct{}

func (noPacer) Wait(ctx context.Context) error {
	return ctx.Err()
}
