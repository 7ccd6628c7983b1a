package lock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pricewatch/internal/config"
	"github.com/smallbiznis/pricewatch/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Provide returns the in-process lock, chained with a redis lock when
// REDIS_ADDR is configured so several instances can share one database.
func Provide(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) domain.Locker {
	local := NewLocal()
	if !cfg.Redis.Enabled() {
		return local
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	log.Named("ledger.lock").Info("distributed ledger lock enabled", zap.String("addr", cfg.Redis.Addr))
	return Chain(local, NewRedis(client, cfg.Redis.LockTTL, log.Named("ledger.lock")))
}
