package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/vogiaan1904/ticketbottle-boxoffice/config"
)

func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	return client, nil
}

// AppendOnly reports whether the server persists every write to its AOF.
// Queue positions and admission windows live only in Redis, so without it a
// restart can lose them.
func AppendOnly(ctx context.Context, cli *redis.Client) (bool, error) {
	res, err := cli.ConfigGet(ctx, "appendonly").Result()
	if err != nil {
		return false, err
	}
	return res["appendonly"] == "yes", nil
}
