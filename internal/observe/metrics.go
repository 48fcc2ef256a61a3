package observe

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// StoreLatency records remote store operation latency, labelled by operation.
	StoreLatency *prometheus.HistogramVec

	// ReconcileTotal counts reconciliation fetches by collection and outcome
	// (applied, stale, failed).
	ReconcileTotal *prometheus.CounterVec

	// ReconcileDuration records reconciliation fetch duration per collection.
	ReconcileDuration *prometheus.HistogramVec

	// RefreshDecisions counts refresh-trigger routing decisions per collection,
	// trigger (explicit, push, poll) and decision (run, debounced, merged, dropped).
	RefreshDecisions *prometheus.CounterVec

	// MirrorItems tracks the size of each collection mirror.
	MirrorItems *prometheus.GaugeVec

	// DBPoolOpenConnections tracks the number of currently open database connections.
	DBPoolOpenConnections prometheus.Gauge

	// DBPoolMaxConnections tracks the configured maximum database connections.
	DBPoolMaxConnections prometheus.Gauge
)

var validLabelKey = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParseMetricsLabels parses a comma-separated list of key=value pairs into
// Prometheus labels. Values support ${VAR} / $VAR environment variable expansion.
// Label values may not contain commas. Returns nil for an empty string.
func ParseMetricsLabels(s string) (prometheus.Labels, error) {
	s = os.Expand(s, os.Getenv)
	if s == "" {
		return nil, nil
	}
	labels := prometheus.Labels{}
	for _, pair := range strings.Split(s, ",") {
		idx := strings.IndexByte(pair, '=')
		if idx < 0 {
			return nil, fmt.Errorf("invalid label %q: expected key=value", pair)
		}
		k, v := pair[:idx], pair[idx+1:]
		if !validLabelKey.MatchString(k) {
			return nil, fmt.Errorf("invalid label key %q: must match [a-zA-Z_][a-zA-Z0-9_]*", k)
		}
		labels[k] = v
	}
	return labels, nil
}

var initMetricsOnce sync.Once

// InitMetrics registers all Prometheus metrics with the given constant labels.
// Safe to call multiple times; only the first call registers.
func InitMetrics(constLabels prometheus.Labels) {
	initMetricsOnce.Do(func() {
		initMetricsInner(constLabels)
	})
}

func initMetricsInner(constLabels prometheus.Labels) {
	reg := prometheus.WrapRegistererWith(constLabels, prometheus.DefaultRegisterer)
	f := promauto.With(reg)

	httpRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdesk_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventdesk_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	StoreLatency = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventdesk_store_latency_seconds",
			Help:    "Remote store operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ReconcileTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdesk_reconcile_total",
			Help: "Reconciliation fetches by collection and outcome",
		},
		[]string{"collection", "outcome"},
	)

	ReconcileDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventdesk_reconcile_duration_seconds",
			Help:    "Reconciliation fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)

	RefreshDecisions = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdesk_refresh_decisions_total",
			Help: "Refresh trigger routing decisions",
		},
		[]string{"collection", "trigger", "decision"},
	)

	MirrorItems = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventdesk_mirror_items",
			Help: "Number of entities in each collection mirror",
		},
		[]string{"collection"},
	)

	DBPoolOpenConnections = f.NewGauge(prometheus.GaugeOpts{
		Name: "eventdesk_db_pool_open_connections",
		Help: "Number of open database connections",
	})

	DBPoolMaxConnections = f.NewGauge(prometheus.GaugeOpts{
		Name: "eventdesk_db_pool_max_connections",
		Help: "Maximum number of database connections",
	})
}

// ObserveStore records latency for a remote store operation. No-op until
// InitMetrics has run.
func ObserveStore(op string, start time.Time) {
	if StoreLatency == nil {
		return
	}
	StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// CountReconcile records a reconciliation outcome. No-op until InitMetrics has run.
func CountReconcile(collection, outcome string, elapsed time.Duration) {
	if ReconcileTotal == nil {
		return
	}
	ReconcileTotal.WithLabelValues(collection, outcome).Inc()
	ReconcileDuration.WithLabelValues(collection).Observe(elapsed.Seconds())
}

// CountDecision records a refresh-trigger routing decision. No-op until
// InitMetrics has run.
func CountDecision(collection, trigger, decision string) {
	if RefreshDecisions == nil {
		return
	}
	RefreshDecisions.WithLabelValues(collection, trigger, decision).Inc()
}

// SetMirrorItems updates the mirror size gauge. No-op until InitMetrics has run.
func SetMirrorItems(collection string, n int) {
	if MirrorItems == nil {
		return
	}
	MirrorItems.WithLabelValues(collection).Set(float64(n))
}

// MetricsMiddleware records request count and latency for each HTTP request.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if httpRequestsTotal == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		httpRequestsTotal.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method).Observe(duration.Seconds())
	}
}
