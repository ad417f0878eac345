package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) ObserveHTTPRequest(string, int, time.Duration) {}
func (n *NoopRecorder) AddCreditsGranted(int64) {}
func (n *NoopRecorder) AddCreditsSpent(int64) {}
func (n *NoopRecorder) IncInsufficientCredits() {}
func (n *NoopRecorder) IncOperation(string, string, string) {}
func (n *NoopRecorder) ObserveGenerationDuration(string, time.Duration) {}
func (n *NoopRecorder) IncRefund(bool) {}
func (n *NoopRecorder) AddGenerationsInFlight(int64) {}
func (n *NoopRecorder) IncOperationCacheHit() {}
func (n *NoopRecorder) IncOperationCacheMiss() {}
