// pkg/retry/retry.go - retrying actions with exponential backoff.

package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/windowsadmins/winsetup/pkg/logging"
)

// nonRetryable marks an error that should stop the retry loop.
type nonRetryable struct {
	err error
}

func (e *nonRetryable) Error() string { return e.err.Error() }
func (e *nonRetryable) Unwrap() error { return e.err }

// NonRetryable wraps err so that Do returns it immediately.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryable{err: err}
}

// IsNonRetryable reports whether err was wrapped with NonRetryable.
func IsNonRetryable(err error) bool {
	var nr *nonRetryable
	return errors.As(err, &nr)
}

// RetryConfig defines the configuration for retry attempts
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	Multiplier      float64
}

// DefaultConfig is used for downloads: three attempts, 1s then 2s apart.
var DefaultConfig = RetryConfig{MaxRetries: 3, InitialInterval: time.Second, Multiplier: 2.0}

// Do runs action until it succeeds, returns a non-retryable error, the
// attempts are used up, or ctx is done. The last error is wrapped in the
// returned error.
func Do(ctx context.Context, config RetryConfig, action func() error) error {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	interval := config.InitialInterval

	var lastErr error
	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		lastErr = action()
		if lastErr == nil {
			return nil
		}
		if IsNonRetryable(lastErr) {
			logging.Warn("Non-retryable error encountered", "attempt", attempt, "error", lastErr)
			return lastErr
		}
		if attempt == config.MaxRetries {
			logging.Warn(fmt.Sprintf("Attempt %d/%d failed. No more retries.", attempt, config.MaxRetries),
				"error", lastErr)
			break
		}

		logging.Warn(fmt.Sprintf("Attempt %d/%d failed. Retrying in %s...", attempt, config.MaxRetries, interval),
			"error", lastErr)
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt, ctx.Err())
		case <-timer.C:
		}
		interval = time.Duration(float64(interval) * config.Multiplier)
	}

	return fmt.Errorf("action failed after %d attempts: %w", config.MaxRetries, lastErr)
}
