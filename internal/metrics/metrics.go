// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricHTTPRequestsTotal        = "http_requests_total"
	MetricHTTPRequestDuration      = "http_request_duration_seconds"
	MetricRatingsSubmitted         = "ratings_submitted_total"
	MetricRatingsDeleted           = "ratings_deleted_total"
	MetricLeaderboardBuildDuration = "leaderboard_build_duration_seconds"
	MetricRateLimitBlocked         = "rate_limit_blocked_total"
	MetricRateLimitErrors          = "rate_limit_errors_total"
	MetricDBPoolAcquiredConns      = "db_pool_acquired_conns"
	MetricDBPoolIdleConns          = "db_pool_idle_conns"
	MetricDBPoolTotalConns         = "db_pool_total_conns"
)

// Metrics contains the service collectors. All operations are thread-safe.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	ratingsSubmitted    prometheus.Counter
	ratingsDeleted      prometheus.Counter
	leaderboardBuild    *prometheus.HistogramVec
	rateLimitBlocked    prometheus.Counter
	rateLimitErrors     prometheus.Counter
}

// NewMetrics creates unregistered collectors; call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
			},
			[]string{"method", "route", "status"},
		),
		ratingsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRatingsSubmitted,
			Help: "Total number of ratings recorded",
		}),
		ratingsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRatingsDeleted,
			Help: "Total number of ratings deleted",
		}),
		leaderboardBuild: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricLeaderboardBuildDuration,
				Help:    "Time spent loading the snapshot and ordering a cohort",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"cohort"},
		),
		rateLimitBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRateLimitBlocked,
			Help: "Total number of requests rejected by the rate limiter",
		}),
		rateLimitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRateLimitErrors,
			Help: "Total number of rate limiter store errors (fail-open events)",
		}),
	}
}

// Collectors returns every collector owned by m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.ratingsSubmitted,
		m.ratingsDeleted,
		m.leaderboardBuild,
		m.rateLimitBlocked,
		m.rateLimitErrors,
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// PoolStater is implemented by the store.
type PoolStater interface {
	Stats() *pgxpool.Stat
}

// RegisterPool exposes connection pool gauges read on every scrape.
func RegisterPool(reg prometheus.Registerer, pool PoolStater) error {
	gauge := func(name, help string, read func(*pgxpool.Stat) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			stat := pool.Stats()
			if stat == nil {
				return 0
			}
			return read(stat)
		})
	}
	collectors := []prometheus.Collector{
		gauge(MetricDBPoolAcquiredConns, "Connections currently checked out of the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
		gauge(MetricDBPoolIdleConns, "Idle connections in the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
		gauge(MetricDBPoolTotalConns, "Total connections in the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.httpRequestsTotal.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncRatingsSubmitted counts a recorded rating.
func (m *Metrics) IncRatingsSubmitted() {
	m.ratingsSubmitted.Inc()
}

// IncRatingsDeleted counts a deleted rating.
func (m *Metrics) IncRatingsDeleted() {
	m.ratingsDeleted.Inc()
}

// ObserveLeaderboardBuild records how long a cohort took to produce.
func (m *Metrics) ObserveLeaderboardBuild(cohort string, duration time.Duration) {
	m.leaderboardBuild.WithLabelValues(cohort).Observe(duration.Seconds())
}

// IncRateLimitBlocked counts a rejected request.
func (m *Metrics) IncRateLimitBlocked() {
	m.rateLimitBlocked.Inc()
}

// IncRateLimitErrors counts a limiter store failure.
func (m *Metrics) IncRateLimitErrors() {
	m.rateLimitErrors.Inc()
}

// Middleware records request count and latency labelled by the chi route
// pattern, which keeps label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.ObserveHTTPRequest(r.Method, route, status, time.Since(start))
	})
}
