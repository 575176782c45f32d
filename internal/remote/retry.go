package remote

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
)

type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withRetry runs fn until it succeeds, fails permanently, or exhausts the
// policy. Exhaustion yields a *TransientFetchError.
func (c *DriveClient) withRetry(ctx context.Context, op string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			remoteRequests.WithLabelValues(op, "ok").Inc()
			return nil
		}

		if !isRetryable(err) {
			remoteRequests.WithLabelValues(op, "error").Inc()
			return err
		}
		remoteRequests.WithLabelValues(op, "retryable").Inc()

		if attempt > c.retry.MaxRetries {
			return &TransientFetchError{Op: op, Attempts: attempt, Err: err}
		}

		delay := c.retry.delay(attempt)
		log.WithFields(log.Fields{"op": op, "attempt": attempt, "delay": delay}).Warnf("retrying remote call: %v", err)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests:
			return true
		case gerr.Code >= 500:
			return true
		case gerr.Code == http.StatusForbidden:
			for _, item := range gerr.Errors {
				if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
					return true
				}
			}
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
