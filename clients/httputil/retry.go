package httputil

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy implements the exponential backoff described in spec.md 4.3:
// base 1s, factor 2, 3 attempts, retrying on 429 and 5xx but never on 4xx.
// The backoff timing itself is driven by github.com/cenkalti/backoff/v4
// rather than a hand-rolled sleep loop.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
}

// DefaultRetryPolicy is the standard MM-client policy.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Factor: 2}

// ShouldRetryStatus reports whether an HTTP status code is worth retrying.
func ShouldRetryStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Do runs attempt repeatedly per the policy. attempt should perform one
// HTTP round trip and return (response-status-code, error). It is retried
// only while the status/error pair is retryable and attempts remain; a 4xx
// with a nil error is treated as a permanent (non-retried) outcome, per
// spec.md 4.3 "no retry on 4xx".
func (p RetryPolicy) Do(ctx context.Context, attempt func() (status int, err error)) (int, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.Multiplier = p.Factor
	eb.MaxElapsedTime = 0 // bounded by MaxRetries below, not wall-clock

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)

	var lastStatus int
	var lastErr error
	boErr := backoff.Retry(func() error {
		status, attemptErr := attempt()
		lastStatus, lastErr = status, attemptErr
		if attemptErr != nil {
			return attemptErr
		}
		if ShouldRetryStatus(status) {
			return fmt.Errorf("retryable status %d", status)
		}
		return nil // success, or a permanent 4xx the caller will interpret
	}, bo)

	if boErr != nil && lastErr != nil {
		return lastStatus, lastErr
	}
	if boErr != nil {
		return lastStatus, boErr
	}
	return lastStatus, nil
}
