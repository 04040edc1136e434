package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/rthomann/docmill/internal/source"
	"github.com/rthomann/docmill/internal/vlm"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var fetchErr *source.RetryableError
	if errors.As(err, &fetchErr) {
		return true
	}
	var vlmErr *vlm.RetryableError
	return errors.As(err, &vlmErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3
