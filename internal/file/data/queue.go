package data

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/4shil/axium/internal/file/biz"
)

// purgeQueueKey is the sorted set of slugs awaiting a deferred purge,
// scored by the unix time the grace delay elapses.
const purgeQueueKey = "axium:purge:due"

// RedisPurgeQueue implements biz.PurgeQueue on a redis sorted set. Entries
// survive a process restart; the database purge_after mark stays the
// authority, so the queue only buys promptness.
type RedisPurgeQueue struct {
	client *redis.Client
}

func NewRedisPurgeQueue(client *redis.Client) biz.PurgeQueue {
	return &RedisPurgeQueue{client: client}
}

func (q *RedisPurgeQueue) Schedule(ctx context.Context, slug string, at time.Time) error {
	return q.client.ZAdd(ctx, purgeQueueKey, redis.Z{
		Score:  float64(at.Unix()),
		Member: slug,
	}).Err()
}

func (q *RedisPurgeQueue) Due(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return q.client.ZRangeByScore(ctx, purgeQueueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(limit),
	}).Result()
}

func (q *RedisPurgeQueue) Remove(ctx context.Context, slug string) error {
	return q.client.ZRem(ctx, purgeQueueKey, slug).Err()
}
