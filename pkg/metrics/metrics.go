package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// Metrics holds performance and issuance counters for the broker.
// Thread-safe via atomics and mutex.
type Metrics struct {
	TotalRequests   int64            `json:"total_requests"`
	ActiveRequests  int64            `json:"active_requests"`
	TotalErrors     int64            `json:"total_errors"`
	TotalLatencyMs  int64            `json:"total_latency_ms"`
	MaxLatencyMs    int64            `json:"max_latency_ms"`
	IssuedBundles   int64            `json:"issued_bundles"`
	DeniedIssuances int64            `json:"denied_issuances"`
	StartTime       time.Time        `json:"start_time"`
	EndpointCounts  map[string]int64 `json:"endpoint_counts"`
	StatusCodes     map[int]int64    `json:"status_codes"`
	mu              sync.Mutex
}

var globalMetrics *Metrics
var once sync.Once

// GetMetrics returns the singleton metrics instance
func GetMetrics() *Metrics {
	once.Do(func() {
		globalMetrics = &Metrics{
			StartTime:      time.Now(),
			EndpointCounts: make(map[string]int64),
			StatusCodes:    make(map[int]int64),
		}
	})
	return globalMetrics
}

// RecordIssuance counts credential issuance outcomes.
func RecordIssuance(granted bool) {
	m := GetMetrics()
	if granted {
		atomic.AddInt64(&m.IssuedBundles, 1)
	} else {
		atomic.AddInt64(&m.DeniedIssuances, 1)
	}
}

// Middleware tracks request count, latency, active connections, and error rates
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m := GetMetrics()

			atomic.AddInt64(&m.ActiveRequests, 1)
			start := time.Now()

			err := next(c)

			latencyMs := time.Since(start).Milliseconds()
			atomic.AddInt64(&m.ActiveRequests, -1)
			atomic.AddInt64(&m.TotalRequests, 1)
			atomic.AddInt64(&m.TotalLatencyMs, latencyMs)

			// Update max latency (lock-free CAS loop)
			for {
				current := atomic.LoadInt64(&m.MaxLatencyMs)
				if latencyMs <= current {
					break
				}
				if atomic.CompareAndSwapInt64(&m.MaxLatencyMs, current, latencyMs) {
					break
				}
			}

			statusCode := c.Response().Status
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			endpoint := fmt.Sprintf("%s %s", c.Request().Method, path)

			m.mu.Lock()
			m.EndpointCounts[endpoint]++
			m.StatusCodes[statusCode]++
			if statusCode >= 400 {
				atomic.AddInt64(&m.TotalErrors, 1)
			}
			m.mu.Unlock()

			return err
		}
	}
}

// Snapshot is a point-in-time view of performance data
type Snapshot struct {
	TotalRequests   int64            `json:"total_requests"`
	ActiveRequests  int64            `json:"active_requests"`
	TotalErrors     int64            `json:"total_errors"`
	IssuedBundles   int64            `json:"issued_bundles"`
	DeniedIssuances int64            `json:"denied_issuances"`
	AvgLatencyMs    float64          `json:"avg_latency_ms"`
	MaxLatencyMs    int64            `json:"max_latency_ms"`
	UptimeSeconds   float64          `json:"uptime_seconds"`
	EndpointCounts  map[string]int64 `json:"endpoint_counts"`
	StatusCodes     map[int]int64    `json:"status_codes"`
}

// RegisterMetricsRoute adds the /metrics/requests endpoint
func RegisterMetricsRoute(e *echo.Echo) {
	e.GET("/metrics/requests", func(c echo.Context) error {
		m := GetMetrics()
		total := atomic.LoadInt64(&m.TotalRequests)
		totalLatency := atomic.LoadInt64(&m.TotalLatencyMs)
		uptime := time.Since(m.StartTime).Seconds()

		var avgLatency float64
		if total > 0 {
			avgLatency = float64(totalLatency) / float64(total)
		}

		m.mu.Lock()
		endpointCounts := make(map[string]int64, len(m.EndpointCounts))
		for k, v := range m.EndpointCounts {
			endpointCounts[k] = v
		}
		statusCodes := make(map[int]int64, len(m.StatusCodes))
		for k, v := range m.StatusCodes {
			statusCodes[k] = v
		}
		m.mu.Unlock()

		snapshot := Snapshot{
			TotalRequests:   total,
			ActiveRequests:  atomic.LoadInt64(&m.ActiveRequests),
			TotalErrors:     atomic.LoadInt64(&m.TotalErrors),
			IssuedBundles:   atomic.LoadInt64(&m.IssuedBundles),
			DeniedIssuances: atomic.LoadInt64(&m.DeniedIssuances),
			AvgLatencyMs:    avgLatency,
			MaxLatencyMs:    atomic.LoadInt64(&m.MaxLatencyMs),
			UptimeSeconds:   uptime,
			EndpointCounts:  endpointCounts,
			StatusCodes:     statusCodes,
		}

		return c.JSON(http.StatusOK, snapshot)
	})
}
