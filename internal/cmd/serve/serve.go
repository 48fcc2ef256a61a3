package serve

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/thiagomk/eventdesk/internal/config"
	"github.com/urfave/cli/v3"
)

// Command returns the serve sub-command.
func Command() *cli.Command {
	cfg := config.DefaultConfig()
	var readHeaderTimeoutSecs int = 5
	maxBodySize := int(cfg.MaxBodySize)
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the eventdesk sync service and HTTP API",
		Flags: flags(&cfg, &readHeaderTimeoutSecs, &maxBodySize),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg.ReadHeaderTimeout = time.Duration(readHeaderTimeoutSecs) * time.Second
			cfg.MaxBodySize = int64(maxBodySize)
			return run(config.WithContext(ctx, &cfg))
		},
	}
}

func flags(cfg *config.Config, readHeaderTimeoutSecs, maxBodySize *int) []cli.Flag {
	return []cli.Flag{

		// ── Server ────────────────────────────────────────────────
		&cli.IntFlag{
			Name:        "port",
			Category:    "Server:",
			Sources:     cli.EnvVars("EVENTDESK_PORT"),
			Destination: &cfg.Port,
			Value:       cfg.Port,
			Usage:       "HTTP server port",
		},
		&cli.IntFlag{
			Name:        "read-header-timeout-seconds",
			Category:    "Server:",
			Sources:     cli.EnvVars("EVENTDESK_READ_HEADER_TIMEOUT_SECONDS"),
			Destination: readHeaderTimeoutSecs,
			Value:       *readHeaderTimeoutSecs,
			Usage:       "HTTP read header timeout in seconds",
		},
		&cli.IntFlag{
			Name:        "max-body-size",
			Category:    "Server:",
			Sources:     cli.EnvVars("EVENTDESK_MAX_BODY_SIZE"),
			Destination: maxBodySize,
			Value:       *maxBodySize,
			Usage:       "Maximum HTTP request body size in bytes",
		},
		&cli.BoolFlag{
			Name:        "cors-enabled",
			Category:    "Server:",
			Sources:     cli.EnvVars("EVENTDESK_CORS_ENABLED"),
			Destination: &cfg.CORSEnabled,
			Usage:       "Enable CORS for browser dashboards",
		},
		&cli.StringFlag{
			Name:        "cors-origins",
			Category:    "Server:",
			Sources:     cli.EnvVars("EVENTDESK_CORS_ORIGINS"),
			Destination: &cfg.CORSOrigins,
			Usage:       "Comma-separated allowed CORS origins; empty allows any",
		},
		&cli.IntFlag{
			Name:        "drain-timeout-seconds",
			Category:    "Server:",
			Sources:     cli.EnvVars("EVENTDESK_DRAIN_TIMEOUT_SECONDS"),
			Destination: &cfg.DrainTimeout,
			Value:       cfg.DrainTimeout,
			Usage:       "Graceful shutdown drain timeout in seconds",
		},

		// ── Database ──────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "db-url",
			Category:    "Database:",
			Sources:     cli.EnvVars("EVENTDESK_DB_URL"),
			Destination: &cfg.DBURL,
			Usage:       "Postgres connection URL",
			Required:    true,
		},
		&cli.IntFlag{
			Name:        "db-max-open-conns",
			Category:    "Database:",
			Sources:     cli.EnvVars("EVENTDESK_DB_MAX_OPEN_CONNS"),
			Destination: &cfg.DBMaxOpenConns,
			Value:       cfg.DBMaxOpenConns,
			Usage:       "Maximum open database connections",
		},
		&cli.IntFlag{
			Name:        "db-max-idle-conns",
			Category:    "Database:",
			Sources:     cli.EnvVars("EVENTDESK_DB_MAX_IDLE_CONNS"),
			Destination: &cfg.DBMaxIdleConns,
			Value:       cfg.DBMaxIdleConns,
			Usage:       "Maximum idle database connections",
		},
		&cli.BoolFlag{
			Name:        "migrate-at-start",
			Category:    "Database:",
			Sources:     cli.EnvVars("EVENTDESK_MIGRATE_AT_START"),
			Destination: &cfg.MigrateAtStart,
			Value:       cfg.MigrateAtStart,
			Usage:       "Apply schema migrations before serving",
		},

		// ── Synchronization ───────────────────────────────────────
		&cli.StringFlag{
			Name:        "push-policy",
			Category:    "Synchronization:",
			Sources:     cli.EnvVars("EVENTDESK_PUSH_POLICY"),
			Destination: &cfg.PushPolicy,
			Value:       cfg.PushPolicy,
			Usage:       "How change notifications trigger reloads (debounced|immediate)",
		},
		&cli.DurationFlag{
			Name:        "debounce-window",
			Category:    "Synchronization:",
			Sources:     cli.EnvVars("EVENTDESK_DEBOUNCE_WINDOW"),
			Destination: &cfg.DebounceWindow,
			Value:       cfg.DebounceWindow,
			Usage:       "Quiet period before a debounced reload fires",
		},
		&cli.DurationFlag{
			Name:        "poll-interval",
			Category:    "Synchronization:",
			Sources:     cli.EnvVars("EVENTDESK_POLL_INTERVAL"),
			Destination: &cfg.PollInterval,
			Value:       cfg.PollInterval,
			Usage:       "Fallback reload interval",
		},
		&cli.BoolFlag{
			Name:        "replication",
			Category:    "Synchronization:",
			Sources:     cli.EnvVars("EVENTDESK_REPLICATION"),
			Destination: &cfg.ReplicationEnabled,
			Value:       cfg.ReplicationEnabled,
			Usage:       "Enable the logical replication push channel",
		},
		&cli.StringFlag{
			Name:        "replication-slot",
			Category:    "Synchronization:",
			Sources:     cli.EnvVars("EVENTDESK_REPLICATION_SLOT"),
			Destination: &cfg.ReplicationSlot,
			Value:       cfg.ReplicationSlot,
			Usage:       "Temporary replication slot name",
		},
		&cli.StringFlag{
			Name:        "publication",
			Category:    "Synchronization:",
			Sources:     cli.EnvVars("EVENTDESK_PUBLICATION"),
			Destination: &cfg.Publication,
			Value:       cfg.Publication,
			Usage:       "Postgres publication carrying collection changes",
		},

		// ── Logo Storage ──────────────────────────────────────────
		&cli.StringFlag{
			Name:        "logos-s3-bucket",
			Category:    "Logo Storage:",
			Sources:     cli.EnvVars("EVENTDESK_LOGOS_S3_BUCKET"),
			Destination: &cfg.S3Bucket,
			Usage:       "S3 bucket for event logos; empty disables logo uploads",
		},
		&cli.StringFlag{
			Name:        "logos-s3-prefix",
			Category:    "Logo Storage:",
			Sources:     cli.EnvVars("EVENTDESK_LOGOS_S3_PREFIX"),
			Destination: &cfg.S3Prefix,
			Value:       cfg.S3Prefix,
			Usage:       "Key prefix for logo objects",
		},
		&cli.StringFlag{
			Name:        "logos-s3-public-base-url",
			Category:    "Logo Storage:",
			Sources:     cli.EnvVars("EVENTDESK_LOGOS_S3_PUBLIC_BASE_URL"),
			Destination: &cfg.S3PublicBaseURL,
			Usage:       "Public base URL for logo objects (bucket website or CDN)",
		},
		&cli.BoolFlag{
			Name:        "logos-s3-use-path-style",
			Category:    "Logo Storage:",
			Sources:     cli.EnvVars("EVENTDESK_LOGOS_S3_USE_PATH_STYLE"),
			Destination: &cfg.S3UsePathStyle,
			Usage:       "Use path-style S3 addressing (required for LocalStack/MinIO)",
		},

		// ── Observability ─────────────────────────────────────────
		&cli.StringFlag{
			Name:        "metrics-labels",
			Category:    "Observability:",
			Sources:     cli.EnvVars("EVENTDESK_METRICS_LABELS"),
			Destination: &cfg.MetricsLabels,
			Value:       "service=eventdesk",
			Usage:       "Comma-separated key=value pairs added as constant labels to all Prometheus metrics. Supports ${VAR} expansion.",
		},
		&cli.IntFlag{
			Name:        "notification-history",
			Category:    "Observability:",
			Sources:     cli.EnvVars("EVENTDESK_NOTIFICATION_HISTORY"),
			Destination: &cfg.NotificationHistory,
			Value:       cfg.NotificationHistory,
			Usage:       "Number of recent notifications retained for /v1/notifications",
		},
	}
}

func run(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	srv, err := StartServer(ctx, cfg)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), time.Duration(cfg.DrainTimeout)*time.Second)
	defer drainCancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error("Shutdown error", "err", err)
	}
	log.Info("Server stopped")
	return nil
}

func maxBodySizeMiddleware(maxBodySize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
		c.Next()
	}
}
