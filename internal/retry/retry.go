// Package retry holds the backoff shared by the dialer and the webhook client.
package retry

import (
	"context"
	"time"
)

const (
	baseDelay   = 100 * time.Millisecond
	maxDoubling = 6
)

// Backoff returns the wait before retry number attempt (1-based): 100ms, 200ms, 400ms,
// doubling up to 3.2s.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > maxDoubling {
		attempt = maxDoubling
	}
	return time.Duration(1<<uint(attempt-1)) * baseDelay
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
