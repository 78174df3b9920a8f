package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// SlidingWindowCount records one hit against key and returns whether the hit
// is within limit, plus the number of hits already in the window. On Redis it
// uses a sorted-set sliding window; in fallback mode it keeps a fixed-window
// counter that expires with the window.
func (s *Store) SlidingWindowCount(ctx context.Context, key string, limit int, window time.Duration) (bool, int) {
	if s.useRedis() {
		allowed, count, err := s.redisWindowCount(ctx, key, limit, window)
		if err == nil {
			return allowed, count
		}
		s.markDegraded(err)
	}

	return s.fallbackWindowCount(key, limit, window)
}

func (s *Store) redisWindowCount(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	pipe := s.rdb.TxPipeline()

	now := time.Now().UnixNano()
	windowStart := now - window.Nanoseconds()

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(now), Member: now})
	pipe.Expire(ctx, key, window*2) // keep data a bit longer than the window

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	count := int(countCmd.Val())
	return count < limit, count, nil
}

func (s *Store) fallbackWindowCount(key string, limit int, window time.Duration) (bool, int) {
	counterKey := "window:" + key

	if err := s.fallback.Add(counterKey, 1, window); err == nil {
		return limit > 0, 0
	}

	count, err := s.fallback.IncrementInt(counterKey, 1)
	if err != nil {
		// Entry expired between Add and Increment; start a fresh window.
		s.fallback.Set(counterKey, 1, window)
		return limit > 0, 0
	}

	return count <= limit, count - 1
}
