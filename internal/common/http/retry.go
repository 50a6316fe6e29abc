package http

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"menu-advisor/internal/common/logger"
)

// RetryPolicy bounds RetryWithBackoff. Delay doubles after every failed attempt.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	// Retryable decides whether an error is worth another attempt. Nil retries everything.
	Retryable func(error) bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond}
}

// RetryWithBackoff runs operation until it succeeds, the policy gives up or ctx ends.
func RetryWithBackoff(ctx context.Context, policy RetryPolicy, log logger.Logger, operationName string, operation func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := policy.InitialDelay

	var err error
	for i := 0; i < attempts; i++ {
		err = operation(ctx)
		if err == nil {
			return nil
		}
		if policy.Retryable != nil && !policy.Retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}

		log.Warn(fmt.Sprintf("%s failed, retrying", operationName), map[string]interface{}{
			"error":       err,
			"attempt":     i + 1,
			"maxAttempts": attempts,
			"nextRetryIn": delay.String(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", operationName, ctx.Err())
		case <-timer.C:
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, err)
}

// IsTransient reports whether err is worth retrying: network failures, 5xx and 429.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == nethttp.StatusTooManyRequests
	}
	return true
}
