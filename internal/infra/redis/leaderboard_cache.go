// Package redis caches computed leaderboard standings. The cache is strictly
// optional: every read path degrades to recomputing from Postgres when the
// client errors or the key is cold.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-attempt-service/internal/domain"
)

// LeaderboardCache stores standings as a JSON blob per board key with a
// jittered TTL.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	rnd    *rand.Rand
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LeaderboardCache) Get(ctx context.Context, key string) ([]domain.LeaderboardEntry, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		// A corrupt value is treated as a miss and will be overwritten.
		return nil, false, nil
	}
	return entries, true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, key string, entries []domain.LeaderboardEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
