package collaborators

import (
	"context"
	"fmt"
	"time"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"
	"pairwave/pkg/cache"
	"pairwave/pkg/circuitbreaker"
	"pairwave/pkg/retry"
	"pairwave/pkg/tracing"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBlockStore resolves blockedBy(userID) against a Redis set keyed
// "blocked_by:<userID>", wrapped in retry and circuit-breaker logic to
// protect calls to an unreliable dependency, plus a short-TTL cache so a hot enqueue path
// does not hammer Redis for the same user repeatedly.
type RedisBlockStore struct {
	client *redis.Client
	logger *zap.SugaredLogger

	retryConfig retry.Config
	breaker     *circuitbreaker.CircuitBreaker
	cache       *cache.Cache
}

// NewRedisBlockStore creates a BlockStore backed by the given Redis client.
func NewRedisBlockStore(client *redis.Client, retryConfig retry.Config, cbConfig circuitbreaker.Config, cacheTTL time.Duration, logger *zap.SugaredLogger) *RedisBlockStore {
	breaker := circuitbreaker.New(cbConfig)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Infow("block store circuit breaker state changed", "from", from.String(), "to", to.String())
	})

	return &RedisBlockStore{
		client:      client,
		logger:      logger,
		retryConfig: retryConfig,
		breaker:     breaker,
		cache:       cache.NewCache(cacheTTL),
	}
}

var _ ports.BlockStore = (*RedisBlockStore)(nil)

func (s *RedisBlockStore) BlockedBy(ctx context.Context, user domain.UserID) (map[domain.UserID]struct{}, error) {
	ctx, span := tracing.TraceCollaborator(ctx, "block_store", "blocked_by")
	defer span.End()

	key := fmt.Sprintf("blocked_by:%s", user)

	if cached, ok := s.cache.Get(key); ok {
		return cached.(map[domain.UserID]struct{}), nil
	}

	members, err := retry.RetryWithResult(ctx, s.retryConfig, func() ([]string, error) {
		res, err := s.breaker.ExecuteWithResult(ctx, func() (interface{}, error) {
			return s.client.SMembers(ctx, key).Result()
		})
		if err != nil {
			return nil, err
		}
		return res.([]string), nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	blocked := make(map[domain.UserID]struct{}, len(members))
	for _, m := range members {
		blocked[domain.UserID(m)] = struct{}{}
	}

	s.cache.Set(key, blocked)
	return blocked, nil
}
