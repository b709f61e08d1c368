package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ROBOTEVENTS_TOKEN", "test-token")

	cfg, err := Load()
	require.NoError(t, err, "Should load with only the token set")

	assert.Equal(t, "https://www.robotevents.com/api/v2", cfg.RobotEventsBaseURL)
	assert.Equal(t, 4, cfg.ProgramID)
	assert.Equal(t, 250, cfg.PerPage)
	assert.Equal(t, 2*time.Second, cfg.RequestInterval)
	assert.Equal(t, 30*time.Second, cfg.RateLimitBackoffMin)
	assert.Equal(t, 90*time.Second, cfg.RateLimitBackoffMax)
	assert.Equal(t, 32.0, cfg.EloKFactor)
	assert.Equal(t, 1500.0, cfg.EloInitial)
	assert.Equal(t, 0.30, cfg.SoSMin)
	assert.Equal(t, 0.80, cfg.SoSMax)
	assert.True(t, cfg.IncludeInactiveTeams)
	assert.False(t, cfg.DatabaseEnabled(), "Database mirror should be off by default")
	assert.False(t, cfg.RedisEnabled(), "Redis mirror should be off by default")
	assert.False(t, cfg.ObjectStoreEnabled(), "Object storage mirror should be off by default")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ROBOTEVENTS_TOKEN", "test-token")
	t.Setenv("ELO_K_FACTOR", "24")
	t.Setenv("SOS_MIN", "0.1")
	t.Setenv("SOS_MAX", "0.9")
	t.Setenv("RATE_LIMIT_BACKOFF_MIN", "5s")
	t.Setenv("RATE_LIMIT_BACKOFF_MAX", "10s")
	t.Setenv("SEASON_ID", "190")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 24.0, cfg.EloKFactor)
	assert.Equal(t, 0.1, cfg.SoSMin)
	assert.Equal(t, 0.9, cfg.SoSMax)
	assert.Equal(t, 5*time.Second, cfg.RateLimitBackoffMin)
	assert.Equal(t, 10*time.Second, cfg.RateLimitBackoffMax)
	assert.Equal(t, 190, cfg.SeasonID)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			RobotEventsToken:    "token",
			ProgramID:           4,
			SeasonYear:          2025,
			PerPage:             250,
			RateLimitBackoffMin: 30 * time.Second,
			RateLimitBackoffMax: 90 * time.Second,
			MaxRetries:          5,
			MaxThrottleRetries:  8,
			EloKFactor:          32,
			SoSMin:              0.3,
			SoSMax:              0.8,
			OutputCSV:           "out.csv",
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"missing token", func(c *Config) { c.RobotEventsToken = "" }, false},
		{"inverted sos range", func(c *Config) { c.SoSMin, c.SoSMax = 0.8, 0.3 }, false},
		{"empty sos range", func(c *Config) { c.SoSMin, c.SoSMax = 0.5, 0.5 }, false},
		{"inverted backoff band", func(c *Config) { c.RateLimitBackoffMin = 2 * time.Minute }, false},
		{"zero k factor", func(c *Config) { c.EloKFactor = 0 }, false},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, false},
		{"no season selector", func(c *Config) { c.SeasonYear = 0 }, false},
		{"season id only", func(c *Config) { c.SeasonYear, c.SeasonID = 0, 190 }, true},
		{"database without password", func(c *Config) { c.DatabaseHost = "localhost" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
