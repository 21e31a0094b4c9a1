// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	State     StateConfig     `mapstructure:"state"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Assets    AssetsConfig    `mapstructure:"assets"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	Synchronous bool          `mapstructure:"synchronous"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds Redis connection configuration for the redis intent backend.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StateConfig selects where pending check-in intents live.
type StateConfig struct {
	// Backend is "postgres" or "redis".
	Backend   string        `mapstructure:"backend"`
	IntentTTL time.Duration `mapstructure:"intent_ttl"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// TrackerConfig holds the ledger and progression tuning.
type TrackerConfig struct {
	Timezone             string  `mapstructure:"timezone"`
	RatingAlpha          float64 `mapstructure:"rating_alpha"`
	LevelStep            int     `mapstructure:"level_step"`
	AchievementThreshold int     `mapstructure:"achievement_threshold"`
}

// AssetsConfig points at the sticker and animation folders.
type AssetsConfig struct {
	StickersDir   string `mapstructure:"stickers_dir"`
	AnimationsDir string `mapstructure:"animations_dir"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig holds the prometheus endpoint configuration.
// An empty Listen disables the endpoint.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Addr returns host:port for the Redis client.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Location resolves the tracker timezone.
func (t *TrackerConfig) Location() (*time.Location, error) {
	if t.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", t.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase
	// e.g., BOT_TOKEN, DATABASE_HOST, TRACKER_TIMEZONE
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional - env vars can provide all config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside the services.
func (c *Config) Validate() error {
	switch c.State.Backend {
	case "postgres", "redis":
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}
	if c.Tracker.RatingAlpha <= 0 || c.Tracker.RatingAlpha > 1 {
		return fmt.Errorf("tracker.rating_alpha must be in (0,1], got %v", c.Tracker.RatingAlpha)
	}
	if c.Tracker.LevelStep <= 0 {
		return fmt.Errorf("tracker.level_step must be positive, got %d", c.Tracker.LevelStep)
	}
	if c.Tracker.AchievementThreshold <= 0 {
		return fmt.Errorf("tracker.achievement_threshold must be positive, got %d", c.Tracker.AchievementThreshold)
	}
	if _, err := c.Tracker.Location(); err != nil {
		return err
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.poll_timeout", "10s")
	v.SetDefault("bot.synchronous", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "health")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "health")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("state.backend", "postgres")
	v.SetDefault("state.intent_ttl", "24h")

	// Tracker defaults
	v.SetDefault("tracker.timezone", "Europe/Moscow")
	v.SetDefault("tracker.rating_alpha", 0.01)
	v.SetDefault("tracker.level_step", 30)
	v.SetDefault("tracker.achievement_threshold", 20)

	v.SetDefault("assets.stickers_dir", "stickers")
	v.SetDefault("assets.animations_dir", "animations")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.compress", false)

	v.SetDefault("metrics.listen", "")
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
