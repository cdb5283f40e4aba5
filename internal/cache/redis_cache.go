package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"salepoint/backend/internal/domain"
)

type RedisTransactionCache struct {
	client *redis.Client
}

func NewRedisTransactionCache(addr string, password string, db int) *RedisTransactionCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisTransactionCache{client: client}
}

func (c *RedisTransactionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisTransactionCache) Close() error {
	return c.client.Close()
}

func cacheKey(transactionID string) string {
	return "txview:" + transactionID
}

func (c *RedisTransactionCache) Get(ctx context.Context, transactionID string) (*domain.TransactionView, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(transactionID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var view domain.TransactionView
	if err := json.Unmarshal([]byte(val), &view); err != nil {
		return nil, false, err
	}
	return &view, true, nil
}

func (c *RedisTransactionCache) Set(ctx context.Context, view *domain.TransactionView, ttl time.Duration) error {
	if view == nil {
		return nil
	}
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(view.ID), payload, ttl).Err()
}

func (c *RedisTransactionCache) Delete(ctx context.Context, transactionID string) error {
	return c.client.Del(ctx, cacheKey(transactionID)).Err()
}
