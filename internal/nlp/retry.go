package nlp

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// retrySleepFunc waits between attempts; tests replace it
var retrySleepFunc = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// statusError carries a non-2xx service status
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return http.StatusText(e.StatusCode)
	}
	return http.StatusText(e.StatusCode) + ": " + e.Body
}

// isTransient reports whether a failed call is worth repeating: network
// errors, rate limiting, and 5xx (including the 503 returned while a model loads).
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// backoff returns the wait before retry n (0-indexed) with jitter
func backoff(base time.Duration, attempt int) time.Duration {
	d := base << uint(attempt)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	if d <= 0 {
		return 0
	}
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}

// withRetry runs fn up to retries+1 times while it fails transiently
func withRetry(ctx context.Context, retries int, base time.Duration, fn func() error) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if serr := retrySleepFunc(ctx, backoff(base, attempt-1)); serr != nil {
				return serr
			}
		}
		err = fn()
		if !isTransient(err) {
			return err
		}
	}
	return err
}
