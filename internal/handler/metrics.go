package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/ytvaala/ytvaala/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "ytvaala_http_requests_total %d\n", snap.HTTPRequests)
	writeMetric(w, "ytvaala_http_server_errors_total %d\n", snap.HTTPServerErrors)

	writeMetric(w, "ytvaala_credits_granted_total %d\n", snap.CreditsGranted)
	writeMetric(w, "ytvaala_credits_spent_total %d\n", snap.CreditsSpent)
	writeMetric(w, "ytvaala_insufficient_credits_total %d\n", snap.InsufficientCredits)

	outcomes := make([]string, 0, len(snap.Operations))
	for outcome := range snap.Operations {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		writeMetric(w, "ytvaala_operations_total{outcome=%q} %d\n", outcome, snap.Operations[outcome])
	}

	writeMetric(w, "ytvaala_generation_duration_seconds_count %d\n", snap.GenerationCount)
	writeMetric(w, "ytvaala_generation_duration_seconds_sum %.6f\n", float64(snap.GenerationTotalNs)/1e9)
	writeMetric(w, "ytvaala_generations_in_flight %d\n", snap.GenerationsInFlight)

	writeMetric(w, "ytvaala_refunds_total{status=\"success\"} %d\n", snap.RefundsSucceeded)
	writeMetric(w, "ytvaala_refunds_total{status=\"failed\"} %d\n", snap.RefundsFailed)

	writeMetric(w, "ytvaala_operation_cache_hits_total %d\n", snap.OperationCacheHits)
	writeMetric(w, "ytvaala_operation_cache_misses_total %d\n", snap.OperationCacheMisses)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
