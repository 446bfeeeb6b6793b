// Package config loads boardsync.json, the server's configuration
// file. Every field is optional; unset fields fall back to defaults
// and a handful of environment variables override the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "boardsync.json"

// Config represents the complete boardsync.json configuration.
type Config struct {
	// Address is the listen address (default ":8080").
	Address string `json:"address,omitempty"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `json:"logLevel,omitempty"`

	// Room contains room lifecycle configuration.
	Room RoomConfig `json:"room,omitempty"`

	// Server contains WebSocket transport configuration.
	Server ServerConfig `json:"server,omitempty"`

	// Docs contains document storage configuration.
	Docs DocsConfig `json:"docs,omitempty"`

	// Metrics enables the Prometheus /metrics endpoint.
	Metrics bool `json:"metrics,omitempty"`

	// Tracing enables the OpenTelemetry HTTP middleware.
	Tracing bool `json:"tracing,omitempty"`

	// configPath stores the path the config was loaded from.
	configPath string
}

// RoomConfig contains room lifecycle settings. Durations are strings
// in Go duration syntax ("90s", "5m").
type RoomConfig struct {
	// SweepInterval is how often the idle reaper runs.
	SweepInterval string `json:"sweepInterval,omitempty"`

	// IdleThreshold is how long an empty room survives.
	IdleThreshold string `json:"idleThreshold,omitempty"`
}

// ServerConfig contains WebSocket transport settings.
type ServerConfig struct {
	// ReadTimeout is the client liveness deadline.
	ReadTimeout string `json:"readTimeout,omitempty"`

	// WriteTimeout is the per-message write deadline.
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// PingInterval is the keepalive ping period.
	PingInterval string `json:"pingInterval,omitempty"`

	// MaxMessageSize is the largest accepted inbound message in bytes.
	MaxMessageSize int64 `json:"maxMessageSize,omitempty"`

	// SendQueueSize is the per-connection outbound queue length.
	SendQueueSize int `json:"sendQueueSize,omitempty"`
}

// DocsConfig selects and configures the document storage backend.
type DocsConfig struct {
	// Backend is "memory", "redis", or "s3". Default: "memory".
	Backend string `json:"backend,omitempty"`

	// Redis settings, used when Backend is "redis".
	RedisAddr     string `json:"redisAddr,omitempty"`
	RedisPassword string `json:"redisPassword,omitempty"`
	RedisDB       int    `json:"redisDb,omitempty"`

	// S3 settings, used when Backend is "s3".
	S3Bucket string `json:"s3Bucket,omitempty"`
	S3Prefix string `json:"s3Prefix,omitempty"`
	S3Region string `json:"s3Region,omitempty"`
}

// New returns a Config with defaults applied.
func New() *Config {
	return &Config{
		Address:  ":8080",
		LogLevel: "info",
		Docs:     DocsConfig{Backend: "memory"},
	}
}

// Load reads boardsync.json from dir. A missing file is not an
// error; defaults are returned.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads the configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	cfg := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.configPath = path
	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns where the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) applyDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Docs.Backend == "" {
		c.Docs.Backend = "memory"
	}
}

// applyEnv overrides file values with environment variables, so
// deployments can configure containers without editing the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("BOARDSYNC_ADDRESS"); v != "" {
		c.Address = v
	}
	if v := os.Getenv("BOARDSYNC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("BOARDSYNC_REDIS_ADDR"); v != "" {
		c.Docs.Backend = "redis"
		c.Docs.RedisAddr = v
	}
	if v := os.Getenv("BOARDSYNC_REDIS_PASSWORD"); v != "" {
		c.Docs.RedisPassword = v
	}
	if v := os.Getenv("BOARDSYNC_S3_BUCKET"); v != "" {
		c.Docs.Backend = "s3"
		c.Docs.S3Bucket = v
	}
	if v := os.Getenv("BOARDSYNC_METRICS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Metrics = b
		}
	}
}

// Validate checks fields that cannot be fixed up silently.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}

	switch c.Docs.Backend {
	case "memory":
	case "redis":
		if c.Docs.RedisAddr == "" {
			return fmt.Errorf("config: redis backend requires redisAddr")
		}
	case "s3":
		if c.Docs.S3Bucket == "" {
			return fmt.Errorf("config: s3 backend requires s3Bucket")
		}
	default:
		return fmt.Errorf("config: unknown docs backend %q", c.Docs.Backend)
	}

	for _, d := range []string{
		c.Room.SweepInterval, c.Room.IdleThreshold,
		c.Server.ReadTimeout, c.Server.WriteTimeout, c.Server.PingInterval,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("config: bad duration %q: %w", d, err)
		}
	}
	return nil
}

// Duration parses a duration field, returning fallback when the
// field is unset. Validate has already rejected malformed values.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
