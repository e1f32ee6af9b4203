package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the dashboard service
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Returns  ReturnsConfig  `mapstructure:"returns"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// UpstreamConfig holds the order service connection settings
type UpstreamConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RPS         int           `mapstructure:"rps"`
	Burst       int           `mapstructure:"burst"`
}

// RedisConfig holds Redis cache configuration
type RedisConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	PolicyCacheTTL time.Duration `mapstructure:"policy_cache_ttl"`
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// ReturnsConfig holds return flow tuning
type ReturnsConfig struct {
	FlowSessionTTL          time.Duration `mapstructure:"flow_session_ttl"`
	EligibilityReasonMaxLen int           `mapstructure:"eligibility_reason_max_len"`
	ExpiringSoonDays        int           `mapstructure:"expiring_soon_days"`
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.AutomaticEnv()

	_ = v.BindEnv("app.name", "APP_NAME")
	_ = v.BindEnv("app.env", "APP_ENV")
	_ = v.BindEnv("app.port", "APP_PORT")

	_ = v.BindEnv("upstream.base_url", "UPSTREAM_BASE_URL")
	_ = v.BindEnv("upstream.timeout", "UPSTREAM_TIMEOUT")
	_ = v.BindEnv("upstream.max_attempts", "UPSTREAM_MAX_ATTEMPTS")
	_ = v.BindEnv("upstream.rps", "UPSTREAM_RPS")
	_ = v.BindEnv("upstream.burst", "UPSTREAM_BURST")

	// Redis
	_ = v.BindEnv("redis.host", "REDIS_HOST")
	_ = v.BindEnv("redis.port", "REDIS_PORT")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("redis.policy_cache_ttl", "POLICY_CACHE_TTL")

	_ = v.BindEnv("nats.url", "NATS_URL")

	_ = v.BindEnv("returns.flow_session_ttl", "FLOW_SESSION_TTL")
	_ = v.BindEnv("returns.eligibility_reason_max_len", "ELIGIBILITY_REASON_MAX_LEN")
	_ = v.BindEnv("returns.expiring_soon_days", "EXPIRING_SOON_DAYS")

	_ = v.BindEnv("cors.allowed_origins", "ALLOWED_ORIGINS")

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL is not set")
	}
	if c.Returns.EligibilityReasonMaxLen <= 0 {
		return fmt.Errorf("ELIGIBILITY_REASON_MAX_LEN must be positive, got %d", c.Returns.EligibilityReasonMaxLen)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "service-dashboard")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8010")

	// Upstream order service
	v.SetDefault("upstream.base_url", "http://localhost:8000")
	v.SetDefault("upstream.timeout", 15*time.Second)
	v.SetDefault("upstream.max_attempts", 3)
	v.SetDefault("upstream.rps", 20)
	v.SetDefault("upstream.burst", 40)

	// Redis
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.policy_cache_ttl", 24*time.Hour)

	// NATS
	v.SetDefault("nats.url", "")

	// Returns
	v.SetDefault("returns.flow_session_ttl", 30*time.Minute)
	v.SetDefault("returns.eligibility_reason_max_len", 120)
	v.SetDefault("returns.expiring_soon_days", 7)

	v.SetDefault("cors.allowed_origins", "http://localhost:3000")
}
