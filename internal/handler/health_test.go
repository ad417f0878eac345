package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ytvaala/ytvaala/internal/router"
)

// mockHealthChecker is a mock implementation of HealthChecker for testing.
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Ping(ctx context.Context) error {
	return m.err
}

func newTestContext(method, path string) *router.Context {
	req := httptest.NewRequest(method, path, nil)
	return &router.Context{Request: req, Query: req.URL.Query()}
}

func TestHealthHandler_Health(t *testing.T) {
	h := NewHealthHandler(nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	result, err := h.Health(newTestContext(http.MethodGet, "/health"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response, ok := result.(HealthResponse)
	if !ok {
		t.Fatalf("expected HealthResponse, got %T", result)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", response.Status)
	}
	if response.Timestamp == nil || !response.Timestamp.Equal(fixed) {
		t.Errorf("unexpected timestamp: %v", response.Timestamp)
	}
}

func TestHealthHandler_Ready_AllHealthy(t *testing.T) {
	h := NewHealthHandler(map[string]HealthChecker{
		"postgres": &mockHealthChecker{},
		"redis":    &mockHealthChecker{},
	})

	result, err := h.Ready(newTestContext(http.MethodGet, "/ready"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response, ok := result.(HealthResponse)
	if !ok {
		t.Fatalf("expected HealthResponse, got %T", result)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", response.Status)
	}
	if response.Checks["postgres"] != "ok" {
		t.Errorf("expected postgres check 'ok', got %s", response.Checks["postgres"])
	}
	if response.Checks["redis"] != "ok" {
		t.Errorf("expected redis check 'ok', got %s", response.Checks["redis"])
	}
}

func TestHealthHandler_Ready_DatabaseUnhealthy(t *testing.T) {
	h := NewHealthHandler(map[string]HealthChecker{
		"postgres": &mockHealthChecker{err: errors.New("connection refused")},
		"redis":    &mockHealthChecker{},
	})

	result, err := h.Ready(newTestContext(http.MethodGet, "/ready"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, ok := result.(*router.Response)
	if !ok {
		t.Fatalf("expected *router.Response, got %T", result)
	}
	if resp.Status != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", resp.Status)
	}

	response := resp.Data.(HealthResponse)
	if response.Status != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got %s", response.Status)
	}
	if response.Checks["postgres"] != "error: connection refused" {
		t.Errorf("unexpected postgres check: %s", response.Checks["postgres"])
	}
	if response.Checks["redis"] != "ok" {
		t.Errorf("unexpected redis check: %s", response.Checks["redis"])
	}
}

func TestHealthHandler_Ready_NotConfigured(t *testing.T) {
	h := NewHealthHandler(map[string]HealthChecker{"redis": nil})

	result, err := h.Ready(newTestContext(http.MethodGet, "/ready"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response := result.(HealthResponse)
	if response.Checks["redis"] != "not configured" {
		t.Errorf("expected 'not configured', got %s", response.Checks["redis"])
	}
}

func TestQueryLimit(t *testing.T) {
	tests := []struct {
		path string
		want int
	}{
		{"/images", 0},
		{"/images?limit=25", 25},
		{"/images?limit=abc", 0},
		{"/images?limit=-3", 0},
	}

	for _, tt := range tests {
		if got := queryLimit(newTestContext(http.MethodGet, tt.path)); got != tt.want {
			t.Errorf("queryLimit(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}
