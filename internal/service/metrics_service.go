package service

import (
	"database/sql"
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ntholi/registry-web-sub009/internal/models"
)

const metricsNamespace = "registry"

// SystemMetrics is the JSON summary served next to the Prometheus endpoint.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	RegistrationsTotal       uint64    `json:"registrationsTotal"`
	ClearanceResponsesTotal  uint64    `json:"clearanceResponsesTotal"`
	NotificationsDropped     uint64    `json:"notificationsDropped"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}

// MetricsService owns a private Prometheus registry. Every method is safe on a nil receiver.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpDuration       *prometheus.HistogramVec
	registrations      *prometheus.CounterVec
	clearanceResponses *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	cacheLookups       *prometheus.HistogramVec

	requests       atomic.Uint64
	requestNanos   atomic.Uint64
	registrationsN atomic.Uint64
	responsesN     atomic.Uint64
	droppedN       atomic.Uint64
	cacheHitsN     atomic.Uint64
	cacheMissesN   atomic.Uint64
}

// NewMetricsService builds the collectors together with Go runtime and process collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{registry: prometheus.NewRegistry()}

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route template and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	m.registrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "registration_writes_total",
		Help:      "Registration request writes by action.",
	}, []string{"action"})
	m.clearanceResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "clearance_responses_total",
		Help:      "Department clearance verdicts.",
	}, []string{"department", "status"})
	m.notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "notifications_total",
		Help:      "Notification events by outcome.",
	}, []string{"outcome"})
	m.cacheLookups = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "lookup_duration_seconds",
		Help:      "Queue-count cache lookups by result.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	}, []string{"result"})

	m.registry.MustRegister(
		m.httpDuration,
		m.registrations,
		m.clearanceResponses,
		m.notifications,
		m.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// WatchDB exports connection pool statistics for db.
func (m *MetricsService) WatchDB(db *sql.DB, name string) {
	if m == nil || db == nil {
		return
	}
	m.registry.MustRegister(collectors.NewDBStatsCollector(db, name))
}

// WatchQueue exports the buffered depth of a background queue.
func (m *MetricsService) WatchQueue(name string, depth func() int) {
	if m == nil || depth == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   metricsNamespace,
		Subsystem:   "queue",
		Name:        "depth",
		Help:        "Jobs buffered in a background queue.",
		ConstLabels: prometheus.Labels{"queue": name},
	}, func() float64 { return float64(depth()) }))
}

// Handler exposes the registry in the Prometheus text format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
	m.requests.Add(1)
	m.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// ObserveRegistration counts a registration write (created, updated, completed).
func (m *MetricsService) ObserveRegistration(action string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(action).Inc()
	m.registrationsN.Add(1)
}

// ObserveClearanceResponse counts a department verdict.
func (m *MetricsService) ObserveClearanceResponse(department models.Department, status models.ClearanceStatus) {
	if m == nil {
		return
	}
	m.clearanceResponses.WithLabelValues(string(department), string(status)).Inc()
	m.responsesN.Add(1)
}

// ObserveNotification counts a notification by outcome (queued, dropped, delivered, failed).
func (m *MetricsService) ObserveNotification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
	if outcome == "dropped" {
		m.droppedN.Add(1)
	}
}

// RecordCacheOperation records a queue-count cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.cacheHitsN.Add(1)
	} else {
		m.cacheMissesN.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Observe(duration.Seconds())
}

// Snapshot returns the counters behind the summary endpoint.
func (m *MetricsService) Snapshot() SystemMetrics {
	if m == nil {
		return SystemMetrics{}
	}
	hits, misses := m.cacheHitsN.Load(), m.cacheMissesN.Load()
	requests := m.requests.Load()

	snapshot := SystemMetrics{
		RequestsTotal:           requests,
		RegistrationsTotal:      m.registrationsN.Load(),
		ClearanceResponsesTotal: m.responsesN.Load(),
		NotificationsDropped:    m.droppedN.Load(),
		CacheHits:               hits,
		CacheMisses:             misses,
		Goroutines:              runtime.NumGoroutine(),
		GeneratedAt:             time.Now().UTC(),
	}
	if total := hits + misses; total > 0 {
		snapshot.CacheHitRatio = float64(hits) / float64(total)
	}
	if requests > 0 {
		snapshot.AverageRequestDurationMs = float64(m.requestNanos.Load()) / float64(requests) / float64(time.Millisecond)
	}
	return snapshot
}
