// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Operation outcomes reported to IncOperation.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected" // insufficient credits, nothing generated
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, tests, etc.
type Recorder interface {
	// HTTP metrics
	ObserveHTTPRequest(method string, status int, duration time.Duration)

	// Ledger metrics
	AddCreditsGranted(amount int64)
	AddCreditsSpent(amount int64)
	IncInsufficientCredits()

	// Metered operation metrics
	IncOperation(kind, provider, outcome string)
	ObserveGenerationDuration(provider string, duration time.Duration)
	IncRefund(success bool)
	AddGenerationsInFlight(delta int64)

	// Operation cache metrics
	IncOperationCacheHit()
	IncOperationCacheMiss()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
