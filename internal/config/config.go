package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// RobotEvents API
	RobotEventsToken   string        `envconfig:"ROBOTEVENTS_TOKEN" required:"true"`
	RobotEventsBaseURL string        `envconfig:"ROBOTEVENTS_BASE_URL" default:"https://www.robotevents.com/api/v2"`
	RobotEventsTimeout time.Duration `envconfig:"ROBOTEVENTS_TIMEOUT" default:"30s"`

	// Season selection
	ProgramID  int `envconfig:"PROGRAM_ID" default:"4"` // VEX U
	SeasonYear int `envconfig:"SEASON_YEAR" default:"2025"`
	SeasonID   int `envconfig:"SEASON_ID" default:"0"` // 0 resolves the season from SeasonYear
	PerPage    int `envconfig:"PER_PAGE" default:"250"`

	// API Rate Limiting
	RequestInterval     time.Duration `envconfig:"REQUEST_INTERVAL" default:"2s"`
	RateLimitBackoffMin time.Duration `envconfig:"RATE_LIMIT_BACKOFF_MIN" default:"30s"`
	RateLimitBackoffMax time.Duration `envconfig:"RATE_LIMIT_BACKOFF_MAX" default:"90s"`
	MaxThrottleRetries  int           `envconfig:"MAX_THROTTLE_RETRIES" default:"8"`
	MaxRetries          int           `envconfig:"MAX_RETRIES" default:"5"`
	RetryBaseDelay      time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
	RetryMaxDelay       time.Duration `envconfig:"RETRY_MAX_DELAY" default:"30s"`
	PhaseCooldown       time.Duration `envconfig:"PHASE_COOLDOWN" default:"30s"`

	// Rating
	EloKFactor float64 `envconfig:"ELO_K_FACTOR" default:"32"`
	EloInitial float64 `envconfig:"ELO_INITIAL" default:"1500"`
	SoSMin     float64 `envconfig:"SOS_MIN" default:"0.30"`
	SoSMax     float64 `envconfig:"SOS_MAX" default:"0.80"`

	// Output
	OutputCSV            string `envconfig:"OUTPUT_CSV" default:"dashboard_data.csv"`
	IncludeInactiveTeams bool   `envconfig:"INCLUDE_INACTIVE_TEAMS" default:"true"`

	// Database (optional snapshot mirror)
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:""`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"vurc"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"vurc_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:""`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis (optional snapshot mirror)
	RedisHost      string        `envconfig:"REDIS_HOST" default:""`
	RedisPort      int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	RedisKeyPrefix string        `envconfig:"REDIS_KEY_PREFIX" default:"vurc:dataset"`
	RedisTTL       time.Duration `envconfig:"REDIS_TTL" default:"0s"` // 0 keeps the snapshot until replaced

	// Object storage (optional snapshot mirror, S3 or R2)
	S3Bucket          string `envconfig:"S3_BUCKET" default:""`
	S3Key             string `envconfig:"S3_KEY" default:"rankings/dashboard_data.csv"`
	S3Region          string `envconfig:"S3_REGION" default:"auto"`
	S3Endpoint        string `envconfig:"S3_ENDPOINT" default:""`
	S3AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID" default:""`
	S3SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY" default:""`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Scheduler
	EnableScheduler bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	RefreshCron     string `envconfig:"REFRESH_CRON" default:"@every 10m"`
	RunOnStart      bool   `envconfig:"RUN_ON_START" default:"true"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.RobotEventsToken == "" {
		return fmt.Errorf("ROBOTEVENTS_TOKEN is required")
	}

	if c.ProgramID <= 0 {
		return fmt.Errorf("PROGRAM_ID must be positive")
	}

	if c.SeasonID <= 0 && c.SeasonYear <= 0 {
		return fmt.Errorf("either SEASON_ID or SEASON_YEAR must be set")
	}

	if c.PerPage <= 0 {
		return fmt.Errorf("PER_PAGE must be positive")
	}

	if c.RateLimitBackoffMin < 0 || c.RateLimitBackoffMax < c.RateLimitBackoffMin {
		return fmt.Errorf("RATE_LIMIT_BACKOFF_MIN (%s) must not exceed RATE_LIMIT_BACKOFF_MAX (%s)",
			c.RateLimitBackoffMin, c.RateLimitBackoffMax)
	}

	if c.MaxRetries < 0 || c.MaxThrottleRetries < 0 {
		return fmt.Errorf("retry ceilings must not be negative")
	}

	if c.EloKFactor <= 0 {
		return fmt.Errorf("ELO_K_FACTOR must be positive")
	}

	if c.SoSMin >= c.SoSMax {
		return fmt.Errorf("SOS_MIN (%.4f) must be less than SOS_MAX (%.4f)", c.SoSMin, c.SoSMax)
	}

	if c.OutputCSV == "" {
		return fmt.Errorf("OUTPUT_CSV is required")
	}

	if c.DatabaseEnabled() && c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required when DATABASE_HOST is set")
	}

	return nil
}

// DatabaseEnabled returns true if the PostgreSQL mirror is configured
func (c *Config) DatabaseEnabled() bool {
	return c.DatabaseHost != ""
}

// RedisEnabled returns true if the Redis mirror is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// ObjectStoreEnabled returns true if the object storage mirror is configured
func (c *Config) ObjectStoreEnabled() bool {
	return c.S3Bucket != ""
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
