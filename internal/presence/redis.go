package presence

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const activeSetKey = "presence:active"

// RedisStore keeps heartbeats in a sorted set scored by unix milliseconds,
// so the active window is a range query rather than per-key expiry.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Touch(ctx context.Context, userID string, at time.Time) error {
	return s.client.ZAdd(ctx, activeSetKey, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: userID,
	}).Err()
}

func (s *RedisStore) ActiveSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	// Exclusive bound: a heartbeat exactly one TTL old is already stale.
	return s.client.ZRangeByScore(ctx, activeSetKey, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
}

func (s *RedisStore) TrimBefore(ctx context.Context, cutoff time.Time) error {
	max := strconv.FormatInt(cutoff.UnixMilli(), 10)
	return s.client.ZRemRangeByScore(ctx, activeSetKey, "-inf", max).Err()
}
