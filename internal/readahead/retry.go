package readahead

import (
	"context"
	"time"

	"github.com/leil-io/saunafs-chunkserver-core/clock"
)

const maxBackoff = 10 * time.Second

// Backoff returns the exponential backoff delay for retry attempt try
// (0-indexed): 2^try ms, capped at 10s.
func Backoff(try int) time.Duration {
	if try < 0 {
		try = 0
	}
	if try > 13 { // 2^14 ms and beyond exceed the 10s cap
		return maxBackoff
	}
	d := time.Duration(1<<uint(try)) * time.Millisecond
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// RetryWithBackoff calls attempt up to maxRetries+1 times, sleeping the
// exponential backoff delay between attempts, stopping as soon as attempt
// returns a nil error or the context is cancelled. attempt receives the
// 0-indexed try number so it can re-prepare (re-locate the chunk) before
// each retry.
func RetryWithBackoff(ctx context.Context, c clock.Clock, maxRetries int, attempt func(try int) error) error {
	var lastErr error
	for try := 0; try <= maxRetries; try++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = attempt(try)
		if lastErr == nil {
			return nil
		}
		if try == maxRetries {
			break
		}
		select {
		case <-c.After(Backoff(try)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
