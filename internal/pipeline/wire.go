package pipeline

import (
	"context"
	"fmt"

	"vurc_dashboard/ingestion/internal/cache"
	"vurc_dashboard/ingestion/internal/client"
	"vurc_dashboard/ingestion/internal/config"
	"vurc_dashboard/ingestion/internal/dataset"
	"vurc_dashboard/ingestion/internal/history"
	"vurc_dashboard/ingestion/internal/repository"
	"vurc_dashboard/ingestion/internal/storage"

	"github.com/rs/zerolog/log"
)

// ClientOptions maps configuration onto fetcher options
func ClientOptions(cfg *config.Config) client.Options {
	return client.Options{
		Timeout:             cfg.RobotEventsTimeout,
		PerPage:             cfg.PerPage,
		RequestInterval:     cfg.RequestInterval,
		RateLimitBackoffMin: cfg.RateLimitBackoffMin,
		RateLimitBackoffMax: cfg.RateLimitBackoffMax,
		MaxThrottleRetries:  cfg.MaxThrottleRetries,
		MaxRetries:          cfg.MaxRetries,
		RetryBaseDelay:      cfg.RetryBaseDelay,
		RetryMaxDelay:       cfg.RetryMaxDelay,
	}
}

// FromConfig wires the fetcher, the builder and every configured publisher.
// The CSV file is always published first. The returned func releases the
// connections opened for the mirrors.
func FromConfig(ctx context.Context, cfg *config.Config) (*Pipeline, func(), error) {
	apiClient := client.NewClient(cfg.RobotEventsBaseURL, cfg.RobotEventsToken, ClientOptions(cfg))
	log.Info().Str("base_url", cfg.RobotEventsBaseURL).Msg("RobotEvents client initialized")

	builder := history.NewBuilder(apiClient, cfg.PhaseCooldown)

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	publishers := []Publisher{dataset.NewFileWriter(cfg.OutputCSV)}

	if cfg.DatabaseEnabled() {
		db, err := repository.NewDatabase(ctx, repository.Config{
			Host:     cfg.DatabaseHost,
			Port:     cfg.DatabasePort,
			User:     cfg.DatabaseUser,
			Password: cfg.DatabasePassword,
			Database: cfg.DatabaseName,
			SSLMode:  cfg.DatabaseSSLMode,
		})
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, db.Close)

		if err := db.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		publishers = append(publishers, db.Metrics)
	}

	if cfg.RedisEnabled() {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Host:      cfg.RedisHost,
			Port:      cfg.RedisPort,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
			TTL:       cfg.RedisTTL,
		})
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		closers = append(closers, func() {
			if err := redisCache.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close redis connection")
			}
		})
		publishers = append(publishers, redisCache)
	}

	if cfg.ObjectStoreEnabled() {
		store, err := storage.NewObjectStore(ctx, storage.Config{
			Bucket:          cfg.S3Bucket,
			Key:             cfg.S3Key,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to create object store: %w", err)
		}
		publishers = append(publishers, store)
	}

	names := make([]string, len(publishers))
	for i, p := range publishers {
		names[i] = p.Name()
	}
	log.Info().Strs("publishers", names).Msg("Publishers configured")

	return New(builder, OptionsFromConfig(cfg), publishers...), closeAll, nil
}
