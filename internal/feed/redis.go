package feed

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	DefaultRedisKey = "tokens:new"

	redisPopTimeout = time.Second
	redisErrorPause = time.Second
)

// RedisSource pops feed messages from a redis list with BRPOP.
type RedisSource struct {
	client  *redis.Client
	key     string
	handler *Handler
	logger  *zap.Logger
}

// NewRedisSource creates a RedisSource reading key.
func NewRedisSource(client *redis.Client, key string, handler *Handler, logger *zap.Logger) *RedisSource {
	if key == "" {
		key = DefaultRedisKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSource{
		client:  client,
		key:     key,
		handler: handler,
		logger:  logger.Named("feed.redis"),
	}
}

// Run pops until ctx ends. Connection errors are logged and retried.
func (s *RedisSource) Run(ctx context.Context) error {
	s.logger.Info("consuming redis feed", zap.String("key", s.key))

	for {
		if ctx.Err() != nil {
			return nil
		}

		res, err := s.client.BRPop(ctx, redisPopTimeout, s.key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("brpop failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(redisErrorPause):
			}
			continue
		}

		// BRPOP replies [key, value]
		if len(res) == 2 {
			s.handler.Handle([]byte(res[1]))
		}
	}
}
