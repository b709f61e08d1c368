package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"vurc_dashboard/ingestion/internal/dataset"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrCacheMiss is returned when no snapshot has been published yet
var ErrCacheMiss = errors.New("cache miss")

// Config holds Redis configuration
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	// KeyPrefix namespaces the snapshot keys, e.g. "vurc:dataset"
	KeyPrefix string

	// TTL expires the snapshot; zero keeps it until replaced
	TTL time.Duration
}

// RedisCache mirrors the latest dataset into Redis for the dashboard
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "vurc:dataset"
	}

	log.Info().
		Str("addr", client.Options().Addr).
		Str("prefix", prefix).
		Msg("Connected to Redis")

	return &RedisCache{client: client, prefix: prefix, ttl: cfg.TTL}, nil
}

// Name identifies the publisher in logs and metrics
func (c *RedisCache) Name() string {
	return "redis"
}

func (c *RedisCache) key(suffix string) string {
	return c.prefix + ":" + suffix
}

// Publish stores the CSV, the JSON rows and the update time atomically
func (c *RedisCache) Publish(ctx context.Context, ds *dataset.Dataset) error {
	csvData, err := ds.CSV()
	if err != nil {
		return fmt.Errorf("failed to encode csv: %w", err)
	}
	jsonData, err := ds.JSON()
	if err != nil {
		return err
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.key("csv"), csvData, c.ttl)
		pipe.Set(ctx, c.key("json"), jsonData, c.ttl)
		pipe.Set(ctx, c.key("updated_at"), ds.GeneratedAt.Format(time.RFC3339), c.ttl)
		pipe.Set(ctx, c.key("run_id"), ds.RunID, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store dataset in redis: %w", err)
	}

	log.Info().
		Str("key", c.key("csv")).
		Int("bytes", len(csvData)).
		Msg("Snapshot stored in Redis")
	return nil
}

// CSV returns the cached CSV snapshot
func (c *RedisCache) CSV(ctx context.Context) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key("csv")).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset from redis: %w", err)
	}
	return data, nil
}

// UpdatedAt returns when the cached snapshot was generated
func (c *RedisCache) UpdatedAt(ctx context.Context) (time.Time, error) {
	raw, err := c.client.Get(ctx, c.key("updated_at")).Result()
	if err == redis.Nil {
		return time.Time{}, ErrCacheMiss
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read update time from redis: %w", err)
	}
	return time.Parse(time.RFC3339, raw)
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
