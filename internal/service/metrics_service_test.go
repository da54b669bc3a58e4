package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntholi/registry-web-sub009/internal/models"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodPost, "/api/v1/registrations", http.StatusCreated, 20*time.Millisecond)
	metrics.ObserveRegistration("created")
	metrics.ObserveClearanceResponse(models.DepartmentFinance, models.ClearanceStatusApproved)
	metrics.RecordCacheOperation(true, time.Millisecond)
	metrics.RecordCacheOperation(false, time.Millisecond)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.RequestsTotal)
	assert.Equal(t, uint64(1), snapshot.RegistrationsTotal)
	assert.Equal(t, uint64(1), snapshot.ClearanceResponsesTotal)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 0.0001)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `registry_clearance_responses_total{department="finance",status="approved"} 1`)
	assert.Contains(t, body, `registry_http_request_duration_seconds_count{method="POST",route="/api/v1/registrations",status="201"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.ObserveRegistration("created")
	metrics.ObserveNotification("dropped")
	assert.Equal(t, SystemMetrics{}, metrics.Snapshot())
}

func TestMetricsServiceWatchQueue(t *testing.T) {
	metrics := NewMetricsService()
	depth := 3
	metrics.WatchQueue("notifications", func() int { return depth })
	metrics.ObserveNotification("dropped")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `registry_queue_depth{queue="notifications"} 3`)
	assert.Equal(t, uint64(1), metrics.Snapshot().NotificationsDropped)
}
