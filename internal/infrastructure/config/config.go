package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/AgentOS/webshell/internal/shared/paths"
)

// Config holds all shell configuration.
type Config struct {
	Shell     ShellConfig
	Update    UpdateConfig
	Server    ServerConfig
	Logging   LogConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
}

// ShellConfig holds resource resolution configuration.
type ShellConfig struct {
	SandboxRoot    string   `envconfig:"SHELL_SANDBOX_ROOT" default:"/data/storage/sandbox"`
	BundleRoot     string   `envconfig:"SHELL_BUNDLE_ROOT" default:"resources/rawfile"`
	InternalScheme string   `envconfig:"SHELL_INTERNAL_SCHEME" default:"internal:"`
	CachePrefix    string   `envconfig:"SHELL_CACHE_PREFIX"`
	UseCache       bool     `envconfig:"SHELL_USE_CACHE" default:"true"`
	CacheInclude   []string `envconfig:"SHELL_CACHE_INCLUDE"`
}

// UpdateConfig holds update bundle configuration.
type UpdateConfig struct {
	Root         string        `envconfig:"SHELL_UPDATE_ROOT" default:"/data/storage/update"`
	Watch        bool          `envconfig:"SHELL_UPDATE_WATCH" default:"true"`
	MaxRetries   int           `envconfig:"SHELL_DOWNLOAD_RETRIES" default:"3"`
	RetryWaitMin time.Duration `envconfig:"SHELL_DOWNLOAD_WAIT_MIN" default:"1s"`
	RetryWaitMax time.Duration `envconfig:"SHELL_DOWNLOAD_WAIT_MAX" default:"30s"`
	Timeout      time.Duration `envconfig:"SHELL_DOWNLOAD_TIMEOUT" default:"5m"`
}

// ServerConfig holds the loopback bridge configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8765"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}

// RateLimitConfig holds admin route rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.Shell.InternalScheme == "" {
		return fmt.Errorf("internal scheme cannot be empty")
	}
	if c.Shell.SandboxRoot == "" {
		return fmt.Errorf("sandbox root cannot be empty")
	}
	if c.Update.Root == "" {
		return fmt.Errorf("update root cannot be empty")
	}
	if c.Update.MaxRetries < 0 {
		return fmt.Errorf("download retries cannot be negative")
	}
	if c.Update.RetryWaitMax < c.Update.RetryWaitMin {
		return fmt.Errorf("download max wait %s is below min wait %s", c.Update.RetryWaitMax, c.Update.RetryWaitMin)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Shell: ShellConfig{
			SandboxRoot:    paths.SandboxRoot,
			BundleRoot:     paths.BundleRoot,
			InternalScheme: paths.InternalScheme,
			UseCache:       true,
		},
		Update: UpdateConfig{
			Root:         paths.UpdateRoot,
			Watch:        true,
			MaxRetries:   3,
			RetryWaitMin: time.Second,
			RetryWaitMax: 30 * time.Second,
			Timeout:      5 * time.Minute,
		},
		Server: ServerConfig{
			Port: "8765",
			Host: "127.0.0.1",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}
