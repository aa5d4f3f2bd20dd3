package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Content   ContentConfig
	Sandbox   SandboxConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
	SessionIdle     time.Duration `envconfig:"SESSION_IDLE" default:"24h"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// ContentConfig describes the upstream content repository.
type ContentConfig struct {
	BaseURL        string        `envconfig:"CONTENT_BASE_URL" default:"http://localhost:3000/browserpike/content/"`
	ListingTimeout time.Duration `envconfig:"LISTING_TIMEOUT" default:"15s"`
	ArchiveTimeout time.Duration `envconfig:"ARCHIVE_TIMEOUT" default:"20s"`
	MaxArchiveMB   int64         `envconfig:"MAX_ARCHIVE_MB" default:"256"`
	MaxCrawlDepth  int           `envconfig:"MAX_CRAWL_DEPTH" default:"32"`
	CrawlTimeout   time.Duration `envconfig:"CRAWL_TIMEOUT" default:"10m"`
	CrawlRetry     time.Duration `envconfig:"CRAWL_RETRY" default:"30s"`
	UpstreamRPS    float64       `envconfig:"UPSTREAM_RPS" default:"0"`
	Retries        int           `envconfig:"UPSTREAM_RETRIES" default:"2"`
}

// SandboxConfig holds sandbox bundle settings.
type SandboxConfig struct {
	Prefix       string        `envconfig:"SANDBOX_PREFIX" default:"/sandbox"`
	MaxBundles   int           `envconfig:"SANDBOX_MAX_BUNDLES" default:"64"`
	TTL          time.Duration `envconfig:"SANDBOX_TTL" default:"1h"`
	ProbeTimeout time.Duration `envconfig:"SANDBOX_PROBE_TIMEOUT" default:"2s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds inbound rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// MaxArchiveBytes returns the archive download cap in bytes.
func (c ContentConfig) MaxArchiveBytes() int64 {
	return c.MaxArchiveMB * 1024 * 1024
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

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Content.BaseURL == "" {
		return fmt.Errorf("invalid config: CONTENT_BASE_URL is empty")
	}
	if c.Content.ListingTimeout <= 0 || c.Content.ArchiveTimeout <= 0 {
		return fmt.Errorf("invalid config: upstream timeouts must be positive")
	}
	if c.Content.CrawlTimeout <= 0 {
		return fmt.Errorf("invalid config: CRAWL_TIMEOUT must be positive")
	}
	if c.Content.MaxArchiveMB <= 0 {
		return fmt.Errorf("invalid config: MAX_ARCHIVE_MB must be positive")
	}
	if c.Sandbox.MaxBundles <= 0 {
		return fmt.Errorf("invalid config: SANDBOX_MAX_BUNDLES must be positive")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			CORSOrigins:     []string{"*"},
			SessionIdle:     24 * time.Hour,
			ShutdownTimeout: 10 * time.Second,
		},
		Content: ContentConfig{
			BaseURL:        "http://localhost:3000/browserpike/content/",
			ListingTimeout: 15 * time.Second,
			ArchiveTimeout: 20 * time.Second,
			MaxArchiveMB:   256,
			MaxCrawlDepth:  32,
			CrawlTimeout:   10 * time.Minute,
			CrawlRetry:     30 * time.Second,
			UpstreamRPS:    0,
			Retries:        2,
		},
		Sandbox: SandboxConfig{
			Prefix:       "/sandbox",
			MaxBundles:   64,
			TTL:          time.Hour,
			ProbeTimeout: 2 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
