package server

import (
	"net/http"
	"time"
)

// Config holds configuration for the WebSocket server.
type Config struct {
	// Address is the listen address. Default: ":8080".
	Address string

	// ReadBufferSize is the WebSocket read buffer size in bytes.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size in bytes.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin validates the Origin header on upgrade requests.
	// Default: allow all origins.
	CheckOrigin func(r *http.Request) bool

	// MaxMessageSize is the maximum size of an incoming WebSocket
	// message. Default: 256KB.
	MaxMessageSize int64

	// ReadTimeout is the maximum time to wait for a message from the
	// client before the connection is considered dead. Default: 60s.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// PingInterval is the time between keepalive pings. Must be
	// shorter than ReadTimeout. Default: 30 seconds.
	PingInterval time.Duration

	// SendQueueSize is the per-connection outbound queue length.
	// Broadcasts to a connection with a full queue are dropped and
	// the connection is closed. Default: 64.
	SendQueueSize int

	// ShutdownTimeout is the grace period for in-flight requests on
	// shutdown. Default: 30 seconds.
	ShutdownTimeout time.Duration

	// Middlewares wrap every route. chi requires middleware to be
	// registered before any route, so they must be handed to New
	// rather than applied to Router() afterwards.
	Middlewares []func(http.Handler) http.Handler
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:         ":8080",
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
		MaxMessageSize:  256 * 1024,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		SendQueueSize:   64,
		ShutdownTimeout: 30 * time.Second,
	}
}

// withDefaults fills in defaults for any unset fields.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	defaults := DefaultConfig()
	out := *c
	if out.Address == "" {
		out.Address = defaults.Address
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = defaults.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = defaults.WriteBufferSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = defaults.CheckOrigin
	}
	if out.MaxMessageSize == 0 {
		out.MaxMessageSize = defaults.MaxMessageSize
	}
	if out.ReadTimeout == 0 {
		out.ReadTimeout = defaults.ReadTimeout
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = defaults.WriteTimeout
	}
	if out.PingInterval == 0 {
		out.PingInterval = defaults.PingInterval
	}
	if out.SendQueueSize == 0 {
		out.SendQueueSize = defaults.SendQueueSize
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = defaults.ShutdownTimeout
	}
	return &out
}
