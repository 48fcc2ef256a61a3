package config

import (
	"context"
	"time"
)

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

const (
	// PushImmediate reloads a collection as soon as a change notification arrives.
	PushImmediate = "immediate"
	// PushDebounced coalesces bursts of change notifications into one reload
	// after a short quiet period.
	PushDebounced = "debounced"
)

// Config holds all configuration for eventdesk.
type Config struct {
	// Database
	DBURL          string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Run schema migrations on startup.
	MigrateAtStart bool

	// Synchronization
	// PushPolicy is "debounced" (default) or "immediate".
	PushPolicy string
	// DebounceWindow is the quiet period before a debounced reload fires.
	DebounceWindow time.Duration
	// PollInterval is the fallback reload interval used when change
	// notifications are missed or unavailable.
	PollInterval time.Duration

	// Replication (push channel)
	ReplicationEnabled bool
	ReplicationSlot    string
	Publication        string

	// Logo storage (S3)
	S3Bucket        string
	S3Prefix        string
	S3PublicBaseURL string
	S3UsePathStyle  bool

	// Server
	Port              int
	ReadHeaderTimeout time.Duration
	MaxBodySize       int64
	CORSEnabled       bool
	CORSOrigins       string

	// MetricsLabels is a comma-separated list of key=value pairs added as
	// constant labels to all Prometheus metrics. Values support ${VAR} expansion.
	MetricsLabels string

	// NotificationHistory is the number of recent notifications retained for
	// the /v1/notifications endpoint.
	NotificationHistory int

	// Graceful shutdown drain timeout (seconds)
	DrainTimeout int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DBMaxOpenConns:      25,
		DBMaxIdleConns:      5,
		MigrateAtStart:      true,
		PushPolicy:          PushDebounced,
		DebounceWindow:      400 * time.Millisecond,
		PollInterval:        5 * time.Second,
		ReplicationEnabled:  true,
		ReplicationSlot:     "eventdesk_mirror",
		Publication:         "eventdesk_changes",
		S3Prefix:            "event-logos",
		Port:                8080,
		ReadHeaderTimeout:   5 * time.Second,
		MaxBodySize:         5 * 1024 * 1024, // 5 MB, logos included
		NotificationHistory: 100,
		DrainTimeout:        30,
	}
}
