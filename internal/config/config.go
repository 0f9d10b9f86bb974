package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"freight-rating/internal/models"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort   string `mapstructure:"SERVER_PORT"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`

	Rating    RatingConfig              `mapstructure:"rating"`
	Carriers  []models.Carrier          `mapstructure:"carriers"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Topology  []models.TopologyTable    `mapstructure:"topology"`
	Sealift   SealiftConfig             `mapstructure:"sealift"`
}

// RatingConfig tunes the orchestration engine.
type RatingConfig struct {
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	ProviderTimeout    time.Duration `mapstructure:"provider_timeout"`
	MaxProviderRetries int           `mapstructure:"max_provider_retries"`
	RetryBackoff       time.Duration `mapstructure:"retry_backoff"`
	RateLimitPerSecond float64       `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
	CrossDockFee       float64       `mapstructure:"cross_dock_fee"`
	TimeZone           string        `mapstructure:"time_zone"`
}

// ProviderConfig points a carrier family at its rating gateway.
type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type SealiftConfig struct {
	PackingStations []models.PackingStation `mapstructure:"packing_stations"`
}

// Location resolves the configured time zone, falling back to UTC.
func (r RatingConfig) Location() *time.Location {
	if r.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.TimeZone)
	if err != nil {
		slog.Warn("unknown time zone, using UTC", "time_zone", r.TimeZone, "error", err)
		return time.UTC
	}
	return loc
}

// LoadConfig reads config.yaml from path and overlays environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // Read in environment variables that match

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		slog.Info("no config.yaml found, using defaults and environment", "path", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("CLIENT_ORIGIN", "*")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("rating.request_timeout", 25*time.Second)
	v.SetDefault("rating.provider_timeout", 10*time.Second)
	v.SetDefault("rating.max_provider_retries", 2)
	v.SetDefault("rating.retry_backoff", 200*time.Millisecond)
	v.SetDefault("rating.rate_limit_per_second", 20.0)
	v.SetDefault("rating.rate_limit_burst", 5)
	v.SetDefault("rating.cross_dock_fee", 35.0)
	v.SetDefault("rating.time_zone", "America/Edmonton")
}

func (c *Config) validate() error {
	seen := make(map[int]bool, len(c.Carriers))
	for _, carrier := range c.Carriers {
		if seen[carrier.ID] {
			return fmt.Errorf("config: carrier %d declared twice", carrier.ID)
		}
		seen[carrier.ID] = true
		if carrier.Family == "" {
			return fmt.Errorf("config: carrier %d has no family", carrier.ID)
		}
	}
	for _, table := range c.Topology {
		if !seen[table.CarrierID] {
			return fmt.Errorf("config: topology references unknown carrier %d", table.CarrierID)
		}
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
