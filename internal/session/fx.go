package session

import (
	"github.com/opentribe/membership/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("session",
	fx.Provide(NewManager),
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Store {
	if cfg.RedisAddr == "" {
		return NewMemoryStore()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisStore(client, cfg.SessionTTL)
}
