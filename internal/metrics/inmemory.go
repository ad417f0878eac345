package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	HTTPRequests         uint64
	HTTPServerErrors     uint64
	CreditsGranted       int64
	CreditsSpent         int64
	InsufficientCredits  uint64
	Operations           map[string]uint64 // keyed by outcome
	GenerationCount      uint64
	GenerationTotalNs    int64
	RefundsSucceeded     uint64
	RefundsFailed        uint64
	GenerationsInFlight  int64
	OperationCacheHits   uint64
	OperationCacheMisses uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	httpRequests         uint64
	httpServerErrors     uint64
	creditsGranted       int64
	creditsSpent         int64
	insufficientCredits  uint64
	generationCount      uint64
	generationTotalNs    int64
	refundsSucceeded     uint64
	refundsFailed        uint64
	generationsInFlight  int64
	operationCacheHits   uint64
	operationCacheMisses uint64

	mu         sync.Mutex
	operations map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{operations: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	ops := make(map[string]uint64, len(m.operations))
	for k, v := range m.operations {
		ops[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		HTTPRequests:         atomic.LoadUint64(&m.httpRequests),
		HTTPServerErrors:     atomic.LoadUint64(&m.httpServerErrors),
		CreditsGranted:       atomic.LoadInt64(&m.creditsGranted),
		CreditsSpent:         atomic.LoadInt64(&m.creditsSpent),
		InsufficientCredits:  atomic.LoadUint64(&m.insufficientCredits),
		Operations:           ops,
		GenerationCount:      atomic.LoadUint64(&m.generationCount),
		GenerationTotalNs:    atomic.LoadInt64(&m.generationTotalNs),
		RefundsSucceeded:     atomic.LoadUint64(&m.refundsSucceeded),
		RefundsFailed:        atomic.LoadUint64(&m.refundsFailed),
		GenerationsInFlight:  atomic.LoadInt64(&m.generationsInFlight),
		OperationCacheHits:   atomic.LoadUint64(&m.operationCacheHits),
		OperationCacheMisses: atomic.LoadUint64(&m.operationCacheMisses),
	}
}

// ObserveHTTPRequest counts a served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(method string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&m.httpServerErrors, 1)
	}
}

// AddCreditsGranted adds to the granted credits counter.
func (m *InMemoryRecorder) AddCreditsGranted(amount int64) {
	atomic.AddInt64(&m.creditsGranted, amount)
}

// AddCreditsSpent adds to the spent credits counter.
func (m *InMemoryRecorder) AddCreditsSpent(amount int64) {
	atomic.AddInt64(&m.creditsSpent, amount)
}

// IncInsufficientCredits increments the rejected debit counter.
func (m *InMemoryRecorder) IncInsufficientCredits() {
	atomic.AddUint64(&m.insufficientCredits, 1)
}

// IncOperation counts an operation by outcome.
func (m *InMemoryRecorder) IncOperation(kind, provider, outcome string) {
	m.mu.Lock()
	m.operations[outcome]++
	m.mu.Unlock()
}

// ObserveGenerationDuration records provider latency.
func (m *InMemoryRecorder) ObserveGenerationDuration(provider string, duration time.Duration) {
	atomic.AddUint64(&m.generationCount, 1)
	atomic.AddInt64(&m.generationTotalNs, duration.Nanoseconds())
}

// IncRefund counts a refund attempt.
func (m *InMemoryRecorder) IncRefund(success bool) {
	if success {
		atomic.AddUint64(&m.refundsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.refundsFailed, 1)
}

// AddGenerationsInFlight adjusts the in-flight gauge.
func (m *InMemoryRecorder) AddGenerationsInFlight(delta int64) {
	atomic.AddInt64(&m.generationsInFlight, delta)
}

// IncOperationCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncOperationCacheHit() {
	atomic.AddUint64(&m.operationCacheHits, 1)
}

// IncOperationCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncOperationCacheMiss() {
	atomic.AddUint64(&m.operationCacheMisses, 1)
}
