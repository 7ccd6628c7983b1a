package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pricewatch/internal/ledger/domain"
	"go.uber.org/zap"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const keyPrefix = "pricewatch:lock:"

// Redis is a cross-instance lock built on SET NX with a token-checked release.
type Redis struct {
	client     *redis.Client
	script     *redis.Script
	ttl        time.Duration
	retryEvery time.Duration
	log        *zap.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{
		client:     client,
		script:     redis.NewScript(releaseScript),
		ttl:        ttl,
		retryEvery: 25 * time.Millisecond,
		log:        log,
	}
}

func RedisKey(key string) string {
	return keyPrefix + slug.Make(key)
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	if r == nil || r.client == nil {
		return nil, errors.New("lock client not configured")
	}
	if key == "" {
		return nil, errors.New("lock key is empty")
	}

	redisKey := RedisKey(key)
	token := uuid.NewString()

	ticker := time.NewTicker(r.retryEvery)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrLockUnavailable, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", domain.ErrLockUnavailable, ctx.Err())
		case <-ticker.C:
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := r.script.Run(releaseCtx, r.client, []string{redisKey}, token).Err(); err != nil {
			r.log.Warn("failed to release lock", zap.String("key", redisKey), zap.Error(err))
		}
	}, nil
}
