package server

import (
	"net/http"
	"time"

	"github.com/fabrica-cultura/senhas/pkg/alert"
	"github.com/fabrica-cultura/senhas/pkg/bus"
)

// Config holds panel server settings.
type Config struct {
	// Address is the listen address. Default: "localhost:8080".
	Address string

	// Channel is the broadcast channel every context joins.
	// Default: bus.DefaultChannel.
	Channel string

	// PublicURL is the origin used for transmission links. When empty the
	// request origin is used.
	PublicURL string

	// Metrics mounts /metrics.
	Metrics bool

	// LogoMaxBytes caps logo uploads. Default: 2 MiB.
	LogoMaxBytes int64

	// Dwell is how long the transmit view highlights a counter.
	// Default: alert.DefaultDwell.
	Dwell time.Duration

	// ReadHeaderTimeout bounds reading request headers. Default: 5s.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration

	// ReadTimeout is the longest a websocket may stay silent, pongs
	// included. Default: 60s.
	ReadTimeout time.Duration

	// WriteTimeout bounds a single websocket write. Default: 10s.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between websocket pings. Default: 30s.
	HeartbeatInterval time.Duration

	// MaxMessageSize caps incoming websocket messages. Default: 64KB.
	MaxMessageSize int64

	// SendQueue is the per-connection outgoing frame buffer. A client
	// that falls this far behind is disconnected. Default: 64.
	SendQueue int

	// CheckOrigin validates websocket upgrade origins. Default: same
	// host only (gorilla's default).
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           "localhost:8080",
		Channel:           bus.DefaultChannel,
		LogoMaxBytes:      2 << 20,
		Dwell:             alert.DefaultDwell,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024,
		SendQueue:         64,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// withDefaults fills unset fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := c.Clone()
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.Channel == "" {
		out.Channel = d.Channel
	}
	if out.LogoMaxBytes <= 0 {
		out.LogoMaxBytes = d.LogoMaxBytes
	}
	if out.Dwell <= 0 {
		out.Dwell = d.Dwell
	}
	if out.ReadHeaderTimeout <= 0 {
		out.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.HeartbeatInterval <= 0 {
		out.HeartbeatInterval = d.HeartbeatInterval
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.SendQueue <= 0 {
		out.SendQueue = d.SendQueue
	}
	return out
}
