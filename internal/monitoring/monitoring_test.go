package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsManager_NilSafe(t *testing.T) {
	var mm *MetricsManager
	assert.NotPanics(t, func() {
		mm.RecordExtraction("general", "shop", OutcomeSuccess, time.Millisecond)
		mm.RecordExtractionError("general", "FETCH_FAILED")
		mm.RecordFetchAttempt("proxy", OutcomeError, time.Millisecond)
		mm.RecordBatch(3)
		mm.RecordBatchURL(OutcomeSuccess)
		mm.RecordStorageOp("save", nil)
		mm.UpdateGoroutineCount()
	})

	rec := httptest.NewRecorder()
	mm.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsManager_Records(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})
	mm.RecordExtraction("general", "shop", OutcomeSuccess, 10*time.Millisecond)
	mm.RecordExtraction("marketplace", "Alibaba", OutcomeError, 10*time.Millisecond)
	mm.RecordStorageOp("save", nil)
	mm.RecordStorageOp("save", errors.New("boom"))

	count, err := testutil.GatherAndCount(mm.Registry(), "dropscrapexter_extractor_storage_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rec := httptest.NewRecorder()
	mm.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dropscrapexter_extractor_")
}

func TestHealthManager_Aggregation(t *testing.T) {
	tests := []struct {
		name     string
		checks   []*HealthCheck
		expected HealthStatus
		code     int
	}{
		{
			name:     "no checks",
			expected: HealthStatusHealthy,
			code:     http.StatusOK,
		},
		{
			name: "all healthy",
			checks: []*HealthCheck{
				PingHealthCheck("storage", true, func(context.Context) error { return nil }),
			},
			expected: HealthStatusHealthy,
			code:     http.StatusOK,
		},
		{
			name: "non critical failure degrades",
			checks: []*HealthCheck{
				PingHealthCheck("storage", true, func(context.Context) error { return nil }),
				PingHealthCheck("cache", false, func(context.Context) error { return errors.New("down") }),
			},
			expected: HealthStatusDegraded,
			code:     http.StatusOK,
		},
		{
			name: "critical failure",
			checks: []*HealthCheck{
				PingHealthCheck("storage", true, func(context.Context) error { return errors.New("down") }),
			},
			expected: HealthStatusUnhealthy,
			code:     http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm := NewHealthManager("1.2.3")
			for _, c := range tt.checks {
				hm.RegisterCheck(c)
			}

			rec := httptest.NewRecorder()
			hm.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.code, rec.Code)

			var health SystemHealth
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
			assert.Equal(t, tt.expected, health.Status)
			assert.Equal(t, "1.2.3", health.Version)
			assert.Len(t, health.Checks, len(tt.checks))
		})
	}
}

func TestHealthManager_CheckTimeout(t *testing.T) {
	hm := NewHealthManager("")
	hm.RegisterCheck(&HealthCheck{
		Name:     "slow",
		Critical: true,
		Timeout:  20 * time.Millisecond,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			<-ctx.Done()
			return HealthCheckResult{Status: HealthStatusUnhealthy, Message: ctx.Err().Error()}
		},
	})

	health := hm.Check(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, health.Status)
	require.Len(t, health.Checks, 1)
	assert.Equal(t, "slow", health.Checks[0].Name)
	assert.True(t, health.Checks[0].Critical)
}

func TestGoroutineHealthCheck(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})
	hm := NewHealthManager("")
	hm.RegisterCheck(GoroutineHealthCheck(1, mm))

	health := hm.Check(context.Background())
	assert.Equal(t, HealthStatusDegraded, health.Status)

	count, err := testutil.GatherAndCount(mm.Registry(), "dropscrapexter_extractor_goroutines")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
