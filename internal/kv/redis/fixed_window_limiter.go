package redis

import (
	"context"
	"fmt"
	"time"
)

// FixedWindowLimiter counts events per (key, window) bucket. Used to throttle
// link creation per authenticated user.
type FixedWindowLimiter struct {
	store  *Store
	prefix string
	window time.Duration
	now    func() time.Time
}

func NewFixedWindowLimiter(store *Store, prefix string, window time.Duration) *FixedWindowLimiter {
	if prefix == "" {
		prefix = "rate"
	}
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindowLimiter{
		store:  store,
		prefix: prefix,
		window: window,
		now:    time.Now,
	}
}

// Incr increments the counter for (key, current window) and returns the
// current count.
func (l *FixedWindowLimiter) Incr(ctx context.Context, key string) (int64, error) {
	if key == "" {
		key = "unknown"
	}

	windowSeconds := int64(l.window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 60
	}

	bucket := l.now().UTC().Unix() / windowSeconds
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	count, err := l.store.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, err
	}

	// For cleanup only. Extending the TTL doesn't change the fixed-window
	// behavior because the key includes the bucket.
	_ = l.store.client.Expire(ctx, redisKey, time.Duration(windowSeconds*2)*time.Second).Err()

	return count, nil
}
