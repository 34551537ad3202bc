// Package cache is a Redis read-through cache for records looked up by reference.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cdr_api/config"
	"cdr_api/internal/api/cdr/models"

	"github.com/redis/go-redis/v9"
)

const keyRecord = "cdr:ref:%s"

// RedisClient is the part of *redis.Client the cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RecordCache stores records as JSON under cdr:ref:<reference>.
type RecordCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewRecordCache(client RedisClient, ttl time.Duration) *RecordCache {
	return &RecordCache{client: client, ttl: ttl}
}

// Open connects to Redis_Addr. It returns nil, nil when no address is configured.
func Open(ctx context.Context, cfg *config.Configuration) (*RecordCache, error) {
	if cfg.Redis_Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis_Addr,
		Password: cfg.Redis_Password,
		DB:       cfg.Redis_DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis_Addr, err)
	}
	return NewRecordCache(client, time.Duration(cfg.Redis_TTL)*time.Second), nil
}

func key(reference string) string {
	return fmt.Sprintf(keyRecord, reference)
}

// Get returns nil, nil on a miss.
func (c *RecordCache) Get(ctx context.Context, reference string) (*models.CallDetailRecord, error) {
	data, err := c.client.Get(ctx, key(reference)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var rec models.CallDetailRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode cached record %s: %w", reference, err)
	}
	return &rec, nil
}

func (c *RecordCache) Set(ctx context.Context, rec *models.CallDetailRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.Reference, err)
	}
	return c.client.Set(ctx, key(rec.Reference), data, c.ttl).Err()
}

func (c *RecordCache) Close() error {
	return c.client.Close()
}
