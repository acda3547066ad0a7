package sink

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultRedisKey    = "prices:snapshots"
	DefaultRedisMaxLen = 100
)

// RedisPublisher pushes each snapshot onto a capped redis list, newest first.
type RedisPublisher struct {
	client *redis.Client
	key    string
	maxLen int64
}

// NewRedisPublisher creates a RedisPublisher. maxLen <= 0 uses DefaultRedisMaxLen.
func NewRedisPublisher(client *redis.Client, key string, maxLen int64) *RedisPublisher {
	if key == "" {
		key = DefaultRedisKey
	}
	if maxLen <= 0 {
		maxLen = DefaultRedisMaxLen
	}
	return &RedisPublisher{client: client, key: key, maxLen: maxLen}
}

func (p *RedisPublisher) Name() string { return "redis" }

// Publish runs LPUSH and LTRIM in one pipeline.
func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, p.key, msg.Payload)
		pipe.LTrim(ctx, p.key, 0, p.maxLen-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push snapshot to %s: %w", p.key, err)
	}
	return nil
}
