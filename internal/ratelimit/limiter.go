package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// window is the bucket length. Buckets are aligned to the wall-clock minute.
const window = time.Minute

// Limiter is a per-subject request quota.
type Limiter interface {
	CheckAndIncrement(ctx context.Context, subject string) (bool, error)
}

// FixedWindow counts requests per subject in one-minute buckets keyed
// "<prefix><subject>:<minute-of-hour>". A burst across a bucket edge is allowed.
type FixedWindow struct {
	client  redis.Cmdable
	prefix  string
	ceiling int64
	now     func() time.Time
}

// NewFixedWindow creates a limiter allowing ceiling requests per minute.
func NewFixedWindow(client redis.Cmdable, ceiling int, prefix string) *FixedWindow {
	if prefix == "" {
		prefix = "rl:"
	}
	return &FixedWindow{client: client, prefix: prefix, ceiling: int64(ceiling), now: time.Now}
}

func (l *FixedWindow) key(subject string, t time.Time) string {
	return fmt.Sprintf("%s%s:%d", l.prefix, subject, t.Minute())
}

// CheckAndIncrement counts the request and reports whether it is within the
// quota. INCR and EXPIRE go out in one MULTI/EXEC so concurrent requests never
// observe a counter without its expiry.
func (l *FixedWindow) CheckAndIncrement(ctx context.Context, subject string) (bool, error) {
	key := l.key(subject, l.now())
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window-time.Second)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", subject, err)
	}
	return incr.Val() <= l.ceiling, nil
}
