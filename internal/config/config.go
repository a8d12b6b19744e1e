// Package config loads server settings from an optional TOML file and
// BECMI_* environment variables. Environment values override the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DatabaseURL string `toml:"database_url"` // BECMI_DATABASE_URL (required)
	HTTPAddr    string `toml:"http_addr"`    // BECMI_HTTP_ADDR (default ":8080")
	NATSURL     string `toml:"nats_url"`     // BECMI_NATS_URL (optional, empty = single instance)
	LogFormat   string `toml:"log_format"`   // BECMI_LOG_FORMAT ("text" or "json")
	LogLevel    string `toml:"log_level"`    // BECMI_LOG_LEVEL (default "info")

	// Long-poll settings
	PollMaxTimeout     time.Duration `toml:"poll_max_timeout"`     // BECMI_POLL_MAX_TIMEOUT (default 30s)
	PollDefaultTimeout time.Duration `toml:"poll_default_timeout"` // BECMI_POLL_DEFAULT_TIMEOUT (default 25s)
	PollTick           time.Duration `toml:"poll_tick"`            // BECMI_POLL_TICK (default 1s)
	PollBatch          int           `toml:"poll_batch"`           // BECMI_POLL_BATCH (default 50)

	// Presence and auth
	OnlineWindow  time.Duration `toml:"online_window"`  // BECMI_ONLINE_WINDOW (default 30s)
	PresenceSweep time.Duration `toml:"presence_sweep"` // BECMI_PRESENCE_SWEEP (default 1m; 0 = disabled)
	SessionTTL    time.Duration `toml:"session_ttl"`    // BECMI_SESSION_TTL (default 24h)

	// Archive settings
	ArchiveInterval   time.Duration `toml:"archive_interval"`    // BECMI_ARCHIVE_INTERVAL (default 0 = disabled)
	ArchiveS3Bucket   string        `toml:"archive_s3_bucket"`   // BECMI_ARCHIVE_S3_BUCKET (enables S3 when set)
	ArchiveS3Prefix   string        `toml:"archive_s3_prefix"`   // BECMI_ARCHIVE_S3_PREFIX (default "becmi/events/")
	ArchiveS3Region   string        `toml:"archive_s3_region"`   // BECMI_ARCHIVE_S3_REGION (default "us-east-1")
	ArchiveS3Endpoint string        `toml:"archive_s3_endpoint"` // BECMI_ARCHIVE_S3_ENDPOINT (custom endpoint for MinIO)
}

// Defaults returns the built-in settings.
func Defaults() *Config {
	return &Config{
		HTTPAddr:           ":8080",
		LogFormat:          "text",
		LogLevel:           "info",
		PollMaxTimeout:     30 * time.Second,
		PollDefaultTimeout: 25 * time.Second,
		PollTick:           time.Second,
		PollBatch:          50,
		OnlineWindow:       30 * time.Second,
		PresenceSweep:      time.Minute,
		SessionTTL:         24 * time.Hour,
		ArchiveS3Prefix:    "becmi/events/",
		ArchiveS3Region:    "us-east-1",
	}
}

// Load builds the configuration from defaults, the TOML file named by
// BECMI_CONFIG (if any), and the environment, then validates it.
func Load() (*Config, error) {
	c := Defaults()

	if path := os.Getenv("BECMI_CONFIG"); path != "" {
		md, err := toml.DecodeFile(path, c)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	c.DatabaseURL = envOrDefault("BECMI_DATABASE_URL", c.DatabaseURL)
	c.HTTPAddr = envOrDefault("BECMI_HTTP_ADDR", c.HTTPAddr)
	c.NATSURL = envOrDefault("BECMI_NATS_URL", c.NATSURL)
	c.LogFormat = envOrDefault("BECMI_LOG_FORMAT", c.LogFormat)
	c.LogLevel = envOrDefault("BECMI_LOG_LEVEL", c.LogLevel)
	c.ArchiveS3Bucket = envOrDefault("BECMI_ARCHIVE_S3_BUCKET", c.ArchiveS3Bucket)
	c.ArchiveS3Prefix = envOrDefault("BECMI_ARCHIVE_S3_PREFIX", c.ArchiveS3Prefix)
	c.ArchiveS3Region = envOrDefault("BECMI_ARCHIVE_S3_REGION", c.ArchiveS3Region)
	c.ArchiveS3Endpoint = envOrDefault("BECMI_ARCHIVE_S3_ENDPOINT", c.ArchiveS3Endpoint)

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"BECMI_POLL_MAX_TIMEOUT", &c.PollMaxTimeout},
		{"BECMI_POLL_DEFAULT_TIMEOUT", &c.PollDefaultTimeout},
		{"BECMI_POLL_TICK", &c.PollTick},
		{"BECMI_ONLINE_WINDOW", &c.OnlineWindow},
		{"BECMI_PRESENCE_SWEEP", &c.PresenceSweep},
		{"BECMI_SESSION_TTL", &c.SessionTTL},
		{"BECMI_ARCHIVE_INTERVAL", &c.ArchiveInterval},
	} {
		if err := envDuration(d.key, d.dst); err != nil {
			return nil, err
		}
	}
	if v := os.Getenv("BECMI_POLL_BATCH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("BECMI_POLL_BATCH: %w", err)
		}
		c.PollBatch = n
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("BECMI_DATABASE_URL is required")
	}
	if c.PollMaxTimeout <= 0 {
		return fmt.Errorf("poll max timeout must be positive, got %s", c.PollMaxTimeout)
	}
	if c.PollDefaultTimeout <= 0 || c.PollDefaultTimeout > c.PollMaxTimeout {
		return fmt.Errorf("poll default timeout %s must be in (0, %s]", c.PollDefaultTimeout, c.PollMaxTimeout)
	}
	if c.PollTick <= 0 {
		return fmt.Errorf("poll tick must be positive, got %s", c.PollTick)
	}
	if c.PollBatch <= 0 {
		return fmt.Errorf("poll batch must be positive, got %d", c.PollBatch)
	}
	if c.OnlineWindow <= 0 {
		return fmt.Errorf("online window must be positive, got %s", c.OnlineWindow)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// ArchiveEnabled reports whether the archive scheduler should run.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveInterval > 0 && c.ArchiveS3Bucket != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
