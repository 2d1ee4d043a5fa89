package provider

import (
	"context"
	"time"
)

const (
	// DefaultMaxAttempts bounds SendWithRetry when the caller passes 0.
	DefaultMaxAttempts = 3

	retryBaseDelay = 100 * time.Millisecond
)

// SendWithRetry sends through the adapter with exponential backoff
// (100ms, 200ms, 400ms, ...) while failures classify as retryable.
// Permanent failures and the final attempt's error return immediately.
// The delivery scheduler does not use this; it exists for callers that
// want per-message retries instead of relying on the next poll pass.
func SendWithRetry(ctx context.Context, a Adapter, msg *Message, maxAttempts int) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	delay := retryBaseDelay
	for attempt := 1; ; attempt++ {
		err := a.Send(ctx, msg)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt >= maxAttempts {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
