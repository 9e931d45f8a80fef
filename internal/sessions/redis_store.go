package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// RedisStore implements Store with TTL keys:
// "<prefix><userID>:<tokenID>" -> "1", expiring with the token.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed token store. Prefix may be empty.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "token:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(userID, tokenID string) string {
	return s.prefix + userID + ":" + tokenID
}

func (s *RedisStore) Register(ctx context.Context, userID, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		// ensure a minimal TTL so Redis won't keep the record forever
		ttl = time.Second
	}
	if err := s.client.Set(ctx, s.key(userID, tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("register token: %w", err)
	}
	return nil
}

func (s *RedisStore) Revoke(ctx context.Context, userID, tokenID string) error {
	if err := s.client.Del(ctx, s.key(userID, tokenID)).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, userID, tokenID string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(userID, tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	return n > 0, nil
}

// RevokeAll scans the user's keys and deletes them batch by batch.
func (s *RedisStore) RevokeAll(ctx context.Context, userID string) error {
	pattern := s.prefix + userID + ":*"
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan tokens: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("revoke tokens: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *RedisStore) Exists(ctx context.Context, userID, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(userID, tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check token: %w", err)
	}
	return n > 0, nil
}

// Ping checks the connection (readiness).
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
