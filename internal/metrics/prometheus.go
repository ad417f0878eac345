package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ytvaala"

// PrometheusRecorder exports metrics through a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	credits             *prometheus.CounterVec
	insufficientCredits prometheus.Counter
	operations          *prometheus.CounterVec
	generationDuration  *prometheus.HistogramVec
	refunds             *prometheus.CounterVec
	generationsInFlight prometheus.Gauge
	operationCache      *prometheus.CounterVec
}

// NewPrometheus creates a Recorder backed by a fresh registry that also
// carries the Go runtime and process collectors.
func NewPrometheus() *PrometheusRecorder {
	p := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{"method"}),
		credits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "credits_total",
			Help:      "Credits moved through the ledger.",
		}, []string{"direction"}),
		insufficientCredits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "insufficient_credits_total",
			Help:      "Debits rejected for lack of credits.",
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "operations",
			Name:      "total",
			Help:      "Metered operations by outcome.",
		}, []string{"kind", "provider", "outcome"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Latency of generation providers.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		}, []string{"provider"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "operations",
			Name:      "refunds_total",
			Help:      "Compensating refunds by result.",
		}, []string{"success"}),
		generationsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "inflight",
			Help:      "Generations currently holding a slot.",
		}),
		operationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operation_lookups_total",
			Help:      "Operation cache lookups by result.",
		}, []string{"result"}),
	}

	p.registry.MustRegister(
		p.httpRequests,
		p.httpDuration,
		p.credits,
		p.insufficientCredits,
		p.operations,
		p.generationDuration,
		p.refunds,
		p.generationsInFlight,
		p.operationCache,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	return p
}

// Handler returns an HTTP handler exposing the registered metrics.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) ObserveHTTPRequest(method string, status int, duration time.Duration) {
	method = strings.ToUpper(method)
	p.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) AddCreditsGranted(amount int64) {
	p.credits.WithLabelValues("granted").Add(float64(amount))
}

func (p *PrometheusRecorder) AddCreditsSpent(amount int64) {
	p.credits.WithLabelValues("spent").Add(float64(amount))
}

func (p *PrometheusRecorder) IncInsufficientCredits() {
	p.insufficientCredits.Inc()
}

func (p *PrometheusRecorder) IncOperation(kind, provider, outcome string) {
	p.operations.WithLabelValues(kind, provider, outcome).Inc()
}

func (p *PrometheusRecorder) ObserveGenerationDuration(provider string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	p.generationDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncRefund(success bool) {
	p.refunds.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func (p *PrometheusRecorder) AddGenerationsInFlight(delta int64) {
	p.generationsInFlight.Add(float64(delta))
}

func (p *PrometheusRecorder) IncOperationCacheHit() {
	p.operationCache.WithLabelValues("hit").Inc()
}

func (p *PrometheusRecorder) IncOperationCacheMiss() {
	p.operationCache.WithLabelValues("miss").Inc()
}
