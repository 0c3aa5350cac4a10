package reliability

import (
	"context"
	"time"
)

// Do runs fn up to attempts times with a fixed delay between tries,
// returning nil on the first success. The last error is returned when
// every attempt fails or the context ends while waiting.
func Do(ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := fn(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(delay):
		}
	}
	return lastErr
}
