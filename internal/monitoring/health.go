// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck is a named probe run on every health request
type HealthCheck struct {
	Name      string
	Critical  bool
	Timeout   time.Duration
	CheckFunc func(ctx context.Context) HealthCheckResult
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Name     string                 `json:"name"`
	Status   HealthStatus           `json:"status"`
	Critical bool                   `json:"critical"`
	Message  string                 `json:"message,omitempty"`
	Duration time.Duration          `json:"duration_ns"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SystemHealth represents overall service health
type SystemHealth struct {
	Status    HealthStatus        `json:"status"`
	Timestamp time.Time           `json:"timestamp"`
	Version   string              `json:"version,omitempty"`
	Uptime    string              `json:"uptime"`
	Checks    []HealthCheckResult `json:"checks"`
}

// HealthManager runs registered checks and aggregates their status
type HealthManager struct {
	mu             sync.RWMutex
	checks         map[string]*HealthCheck
	version        string
	started        time.Time
	defaultTimeout time.Duration
}

// NewHealthManager creates a new health manager
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checks:         make(map[string]*HealthCheck),
		version:        version,
		started:        time.Now(),
		defaultTimeout: 5 * time.Second,
	}
}

// RegisterCheck adds or replaces a check by name
func (hm *HealthManager) RegisterCheck(check *HealthCheck) {
	if check.Timeout == 0 {
		check.Timeout = hm.defaultTimeout
	}
	hm.mu.Lock()
	hm.checks[check.Name] = check
	hm.mu.Unlock()
}

// Check runs every check concurrently. A failing critical check makes the
// service unhealthy; any other non-healthy result degrades it.
func (hm *HealthManager) Check(ctx context.Context) SystemHealth {
	hm.mu.RLock()
	checks := make([]*HealthCheck, 0, len(hm.checks))
	for _, c := range hm.checks {
		checks = append(checks, c)
	}
	hm.mu.RUnlock()

	results := make([]HealthCheckResult, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, c *HealthCheck) {
			defer wg.Done()
			results[i] = runCheck(ctx, c)
		}(i, c)
	}
	wg.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	overall := HealthStatusHealthy
	for _, r := range results {
		switch {
		case r.Status == HealthStatusHealthy:
		case r.Critical && r.Status == HealthStatusUnhealthy:
			overall = HealthStatusUnhealthy
		case overall == HealthStatusHealthy:
			overall = HealthStatusDegraded
		}
	}

	return SystemHealth{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Version:   hm.version,
		Uptime:    time.Since(hm.started).Round(time.Second).String(),
		Checks:    results,
	}
}

func runCheck(ctx context.Context, check *HealthCheck) HealthCheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	start := time.Now()
	var result HealthCheckResult
	if check.CheckFunc != nil {
		result = check.CheckFunc(checkCtx)
	} else {
		result = HealthCheckResult{Status: HealthStatusDegraded, Message: "no check function defined"}
	}
	result.Name = check.Name
	result.Critical = check.Critical
	result.Duration = time.Since(start)
	return result
}

// HealthHandler serves the aggregated status as JSON. Unhealthy maps to 503.
func (hm *HealthManager) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := hm.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if health.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(health)
	}
}

// PingHealthCheck reports unhealthy when ping fails. Storage backends use it.
func PingHealthCheck(name string, critical bool, ping func(ctx context.Context) error) *HealthCheck {
	return &HealthCheck{
		Name:     name,
		Critical: critical,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			if err := ping(ctx); err != nil {
				return HealthCheckResult{Status: HealthStatusUnhealthy, Message: err.Error()}
			}
			return HealthCheckResult{Status: HealthStatusHealthy}
		},
	}
}

// GoroutineHealthCheck degrades above maxGoroutines and refreshes the
// goroutine gauge of metrics, which may be nil.
func GoroutineHealthCheck(maxGoroutines int, metrics *MetricsManager) *HealthCheck {
	return &HealthCheck{
		Name: "goroutines",
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			metrics.UpdateGoroutineCount()
			count := runtime.NumGoroutine()
			metadata := map[string]interface{}{
				"goroutine_count": count,
				"max_allowed":     maxGoroutines,
			}
			if count > maxGoroutines {
				return HealthCheckResult{
					Status:   HealthStatusDegraded,
					Message:  fmt.Sprintf("High goroutine count: %d", count),
					Metadata: metadata,
				}
			}
			return HealthCheckResult{Status: HealthStatusHealthy, Metadata: metadata}
		},
	}
}
