package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL          string   `mapstructure:"REDIS_URL"`
	AuthIssuer        string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL       string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience      string   `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey    string   `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int      `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout    int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	WorkerConcurrency int      `mapstructure:"WORKER_CONCURRENCY"`

	// Viewing rules. Times are HH:MM in ViewingTimezone.
	ViewingStartTime     string `mapstructure:"VIEWING_START_TIME"`
	ViewingEndTime       string `mapstructure:"VIEWING_END_TIME"`
	ViewingSlotMinutes   int    `mapstructure:"VIEWING_SLOT_MINUTES"`
	ViewingDaysInAdvance int    `mapstructure:"VIEWING_DAYS_IN_ADVANCE"`
	ViewingMinNoticeHrs  int    `mapstructure:"VIEWING_MIN_NOTICE_HOURS"`
	ViewingExcludeDays   string `mapstructure:"VIEWING_EXCLUDE_DAYS"`
	ViewingTimezone      string `mapstructure:"VIEWING_TIMEZONE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 15)
	v.SetDefault("WORKER_CONCURRENCY", 5)
	v.SetDefault("VIEWING_START_TIME", "09:00")
	v.SetDefault("VIEWING_END_TIME", "17:00")
	v.SetDefault("VIEWING_SLOT_MINUTES", 60)
	v.SetDefault("VIEWING_DAYS_IN_ADVANCE", 30)
	v.SetDefault("VIEWING_MIN_NOTICE_HOURS", 24)
	v.SetDefault("VIEWING_EXCLUDE_DAYS", "0,6")
	v.SetDefault("VIEWING_TIMEZONE", "UTC")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
		"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY", "CORS_ORIGINS",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT_SECONDS", "WORKER_CONCURRENCY",
		"VIEWING_START_TIME", "VIEWING_END_TIME", "VIEWING_SLOT_MINUTES",
		"VIEWING_DAYS_IN_ADVANCE", "VIEWING_MIN_NOTICE_HOURS", "VIEWING_EXCLUDE_DAYS",
		"VIEWING_TIMEZONE",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in DEVELOPMENT mode (ENV=development); requests without a token get admin access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ExcludedWeekdays parses VIEWING_EXCLUDE_DAYS ("0,6") into weekday indices
// where 0 is Sunday.
func (c *Config) ExcludedWeekdays() ([]int, error) {
	var days []int
	for _, part := range strings.Split(c.ViewingExcludeDays, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("VIEWING_EXCLUDE_DAYS: %q is not a weekday index", part)
		}
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("VIEWING_EXCLUDE_DAYS: %d is outside 0..6", d)
		}
		days = append(days, d)
	}
	return days, nil
}

// Validate checks that the configuration is safe to run. Outside development
// either AUTH_SIGNING_KEY or AUTH_JWKS_URL must be set so that bearer tokens
// are actually verified.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY or AUTH_JWKS_URL must be set when ENV=%q", c.Env)
	}
	if c.IsProduction() && len(c.AuthSigningKey) > 0 && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes in production, got %d", len(c.AuthSigningKey))
	}
	if c.ViewingSlotMinutes <= 0 {
		return fmt.Errorf("VIEWING_SLOT_MINUTES must be positive, got %d", c.ViewingSlotMinutes)
	}
	if c.ViewingDaysInAdvance < 0 {
		return fmt.Errorf("VIEWING_DAYS_IN_ADVANCE must not be negative, got %d", c.ViewingDaysInAdvance)
	}
	if c.ViewingMinNoticeHrs < 0 {
		return fmt.Errorf("VIEWING_MIN_NOTICE_HOURS must not be negative, got %d", c.ViewingMinNoticeHrs)
	}
	if _, err := c.ExcludedWeekdays(); err != nil {
		return err
	}
	return nil
}
