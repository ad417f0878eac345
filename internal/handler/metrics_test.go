package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ytvaala/ytvaala/internal/metrics"
)

func TestMetricsHandler_Exposition(t *testing.T) {
	recorder := metrics.NewInMemory()
	recorder.ObserveHTTPRequest(http.MethodPost, http.StatusOK, 10*time.Millisecond)
	recorder.AddCreditsSpent(5)
	recorder.IncOperation("image", "gemini", metrics.OutcomeCompleted)
	recorder.IncOperation("image", "gemini", metrics.OutcomeFailed)
	recorder.IncRefund(true)
	recorder.IncOperationCacheHit()

	rec := httptest.NewRecorder()
	NewMetricsHandler(recorder).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, line := range []string{
		"ytvaala_http_requests_total 1",
		"ytvaala_credits_spent_total 5",
		`ytvaala_operations_total{outcome="completed"} 1`,
		`ytvaala_operations_total{outcome="failed"} 1`,
		`ytvaala_refunds_total{status="success"} 1`,
		"ytvaala_operation_cache_hits_total 1",
	} {
		if !strings.Contains(body, line+"\n") {
			t.Errorf("missing %q in:\n%s", line, body)
		}
	}
	if strings.Index(body, `outcome="completed"`) > strings.Index(body, `outcome="failed"`) {
		t.Error("expected outcomes in sorted order")
	}
}

func TestMetricsHandler_NoSnapshotter(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMetricsHandler(nil).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
