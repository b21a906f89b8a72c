package repository

import (
	"context"
	"time"
)

// RateLimiter counts hits per key inside an expiring window.
// The window starts at the first hit and the key resets once it expires.
type RateLimiter interface {
	Attempts(ctx context.Context, key string) (int, error)
	// Hit atomically increments the counter, starting the decay window on the first hit.
	Hit(ctx context.Context, key string, decay time.Duration) (int, error)
	AvailableIn(ctx context.Context, key string) (time.Duration, error)
	Clear(ctx context.Context, key string) error
}
