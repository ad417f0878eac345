package handler

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ytvaala/ytvaala/internal/router"
)

const readinessTimeout = 5 * time.Second

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	checks map[string]HealthChecker
	now    func() time.Time
}

// NewHealthHandler creates a new HealthHandler. checks maps a dependency
// name (for example "postgres") to its checker; nil checkers are reported
// as not configured.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks, now: time.Now}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp *time.Time        `json:"timestamp,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health is a liveness probe. No dependency checks.
//
// GET /health
func (h *HealthHandler) Health(c *router.Context) (any, error) {
	now := h.now().UTC()
	return HealthResponse{Status: "ok", Timestamp: &now}, nil
}

// Ready pings every dependency concurrently and returns 503 if any fails.
//
// GET /ready
func (h *HealthHandler) Ready(c *router.Context) (any, error) {
	ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		checks  = make(map[string]string, len(h.checks))
		healthy = true
	)

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		name := name
		checker := h.checks[name]
		if checker == nil {
			checks[name] = "not configured"
			continue
		}
		g.Go(func() error {
			result := "ok"
			err := checker.Ping(ctx)
			if err != nil {
				result = "error: " + err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			checks[name] = result
			if err != nil {
				healthy = false
			}
			return nil
		})
	}
	_ = g.Wait()

	if !healthy {
		return &router.Response{
			Status: http.StatusServiceUnavailable,
			Data:   HealthResponse{Status: "unhealthy", Checks: checks},
		}, nil
	}
	return HealthResponse{Status: "ok", Checks: checks}, nil
}
