package config

import (
	"embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed example.yaml
var exampleConfig embed.FS

// Config represents the complete ripple configuration
type Config struct {
	Site        Site        `yaml:"site"`
	Server      Server      `yaml:"server"`
	Storage     Storage     `yaml:"storage"`
	Leaderboard Leaderboard `yaml:"leaderboard"`
	Limits      Limits      `yaml:"limits"`
	Logging     Logging     `yaml:"logging"`
	Metrics     Metrics     `yaml:"metrics"`
}

// Site contains site metadata
type Site struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Server contains the HTTP API server settings
type Server struct {
	Host               string   `yaml:"host"`
	Port               int      `yaml:"port"`
	Bind               string   `yaml:"bind"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	ShutdownTimeoutSec int      `yaml:"shutdown_timeout_sec"`
}

// Storage contains engagement store settings
type Storage struct {
	Driver     string `yaml:"driver"` // sqlite
	SQLitePath string `yaml:"sqlite_path"`
}

// Leaderboard contains scoring window and ranking settings. Weights default
// to 1/1 so every like scores one point; the per-type knobs exist so a
// deployment can value post likes above comment likes.
type Leaderboard struct {
	WindowHours       int  `yaml:"window_hours"`
	PostLikeWeight    int  `yaml:"post_like_weight"`
	CommentLikeWeight int  `yaml:"comment_like_weight"`
	Limit             int  `yaml:"limit"`         // 0 = no truncation
	CacheEnabled      bool `yaml:"cache_enabled"` // results stay indistinguishable from recomputation
}

// Window returns the trailing scoring window as a duration.
func (l *Leaderboard) Window() time.Duration {
	return time.Duration(l.WindowHours) * time.Hour
}

// Limits contains content validation limits
type Limits struct {
	MaxContentLength int `yaml:"max_content_length"` // runes, 0 = unlimited
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// Metrics contains prometheus exposition settings
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Site: Site{
			Title:       "ripple",
			Description: "Community discussion feed",
		},
		Server: Server{
			Host:               "localhost",
			Port:               8000,
			Bind:               "0.0.0.0",
			CORSAllowedOrigins: []string{"*"},
			ShutdownTimeoutSec: 10,
		},
		Storage: Storage{
			Driver:     "sqlite",
			SQLitePath: "ripple.db",
		},
		Leaderboard: Leaderboard{
			WindowHours:       24,
			PostLikeWeight:    1,
			CommentLikeWeight: 1,
			Limit:             0,
			CacheEnabled:      false,
		},
		Limits: Limits{
			MaxContentLength: 5000,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Metrics: Metrics{
			Enabled: false,
			Path:    "/metrics",
		},
	}
}

// applyDefaults fills in missing fields from the default configuration
func applyDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Site.Title == "" {
		cfg.Site.Title = defaults.Site.Title
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaults.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = defaults.Server.Bind
	}
	if len(cfg.Server.CORSAllowedOrigins) == 0 {
		cfg.Server.CORSAllowedOrigins = defaults.Server.CORSAllowedOrigins
	}
	if cfg.Server.ShutdownTimeoutSec == 0 {
		cfg.Server.ShutdownTimeoutSec = defaults.Server.ShutdownTimeoutSec
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = defaults.Storage.Driver
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = defaults.Storage.SQLitePath
	}
	if cfg.Leaderboard.WindowHours == 0 {
		cfg.Leaderboard.WindowHours = defaults.Leaderboard.WindowHours
	}
	if cfg.Leaderboard.PostLikeWeight == 0 {
		cfg.Leaderboard.PostLikeWeight = defaults.Leaderboard.PostLikeWeight
	}
	if cfg.Leaderboard.CommentLikeWeight == 0 {
		cfg.Leaderboard.CommentLikeWeight = defaults.Leaderboard.CommentLikeWeight
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaults.Metrics.Path
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) error {
	if path := os.Getenv("RIPPLE_SQLITE_PATH"); path != "" {
		cfg.Storage.SQLitePath = path
	}
	if port := os.Getenv("RIPPLE_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid RIPPLE_PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}
	if level := os.Getenv("RIPPLE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	return nil
}

// Load reads, defaults, env-overrides and validates a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

var validStorageDrivers = map[string]bool{
	"sqlite": true,
}

// Validate checks a configuration for consistency
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if !validStorageDrivers[cfg.Storage.Driver] {
		return fmt.Errorf("invalid storage driver: %s (must be sqlite)", cfg.Storage.Driver)
	}
	if cfg.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path is required")
	}

	if cfg.Leaderboard.WindowHours < 1 {
		return fmt.Errorf("leaderboard window must be at least 1 hour")
	}
	if cfg.Leaderboard.PostLikeWeight < 0 || cfg.Leaderboard.CommentLikeWeight < 0 {
		return fmt.Errorf("leaderboard weights must be non-negative")
	}
	if cfg.Leaderboard.Limit < 0 {
		return fmt.Errorf("leaderboard limit must be non-negative")
	}

	if cfg.Limits.MaxContentLength < 0 {
		return fmt.Errorf("limits.max_content_length must be non-negative")
	}

	if !validLogLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", cfg.Logging.Level)
	}
	if !validLogFormats[strings.ToLower(cfg.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /")
	}

	return nil
}

// GetExampleConfig returns the embedded example configuration
func GetExampleConfig() ([]byte, error) {
	return exampleConfig.ReadFile("example.yaml")
}
