package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	gatherer prometheus.Gatherer

	fetchTotal        *prometheus.CounterVec
	fetchDuration     prometheus.Histogram
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	leaderboardBuilds *prometheus.CounterVec
	buildDuration     prometheus.Histogram
	webhookUpdates    *prometheus.CounterVec
	httpRequestsTotal *prometheus.CounterVec
}

// New registers the bot's collectors on reg. Pass prometheus.NewRegistry()
// in tests to avoid clashing with the global registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leetcode_fetch_total",
			Help: "LeetCode calendar fetches by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "leetcode_fetch_duration_seconds",
			Help:    "Histogram of LeetCode calendar fetch durations.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activity_cache_hits_total",
			Help: "Activity cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activity_cache_misses_total",
			Help: "Activity cache misses.",
		}),
		leaderboardBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leaderboard_builds_total",
			Help: "Leaderboard builds by resulting status.",
		}, []string{"status"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "leaderboard_build_duration_seconds",
			Help:    "Histogram of leaderboard build durations.",
			Buckets: prometheus.DefBuckets,
		}),
		webhookUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_updates_total",
			Help: "Telegram updates handled by kind.",
		}, []string{"kind"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "status"}),
	}

	reg.MustRegister(
		m.fetchTotal,
		m.fetchDuration,
		m.cacheHits,
		m.cacheMisses,
		m.leaderboardBuilds,
		m.buildDuration,
		m.webhookUpdates,
		m.httpRequestsTotal,
	)
	return m
}

func (m *Metrics) FetchResult(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(d.Seconds())
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) LeaderboardBuilt(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.leaderboardBuilds.WithLabelValues(status).Inc()
	m.buildDuration.Observe(d.Seconds())
}

func (m *Metrics) UpdateHandled(kind string) {
	if m == nil {
		return
	}
	m.webhookUpdates.WithLabelValues(kind).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts requests served by next under the given route label.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		}
	})
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
