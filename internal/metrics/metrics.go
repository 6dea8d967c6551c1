package metrics

import (
	"net/http"
	"time"
)

// Metrics interface for dependency injection
type Metrics interface {
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordResolution(source, outcome string, duration time.Duration)
	RecordLedgerAppend(outcome string)
	RecordPersist(backend, status string, duration time.Duration)
	SetDBConnectionsActive(count float64)
	RecordDBQuery(operation, status string)
	Handler() http.Handler
}

// NoOpMetrics provides a no-op implementation
type NoOpMetrics struct{}

func (m *NoOpMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
}
func (m *NoOpMetrics) RecordResolution(source, outcome string, duration time.Duration) {}
func (m *NoOpMetrics) RecordLedgerAppend(outcome string)                               {}
func (m *NoOpMetrics) RecordPersist(backend, status string, duration time.Duration)    {}
func (m *NoOpMetrics) SetDBConnectionsActive(count float64)                            {}
func (m *NoOpMetrics) RecordDBQuery(operation, status string)                          {}
func (m *NoOpMetrics) Handler() http.Handler                                           { return http.NotFoundHandler() }

// Global metrics instance
var globalMetrics Metrics = &NoOpMetrics{}

// Init installs the OpenTelemetry-backed recorder when enabled and leaves
// the no-op recorder in place otherwise.
func Init(enabled bool, serviceVersion string) error {
	if !enabled {
		globalMetrics = &NoOpMetrics{}
		return nil
	}
	m, err := NewOTel(serviceVersion)
	if err != nil {
		return err
	}
	globalMetrics = m
	return nil
}

// Set replaces the global recorder. Tests use it to observe recordings.
func Set(m Metrics) {
	if m == nil {
		m = &NoOpMetrics{}
	}
	globalMetrics = m
}

// Handler returns the metrics handler
func Handler() http.Handler {
	return globalMetrics.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	globalMetrics.RecordHTTPRequest(method, endpoint, statusCode, duration)
}

// RecordResolution records one product resolution and which source answered
func RecordResolution(source, outcome string, duration time.Duration) {
	globalMetrics.RecordResolution(source, outcome, duration)
}

// RecordLedgerAppend records a ledger append outcome (created, backfilled, duplicate)
func RecordLedgerAppend(outcome string) {
	globalMetrics.RecordLedgerAppend(outcome)
}

// RecordPersist records a ledger write-through to its backend
func RecordPersist(backend, status string, duration time.Duration) {
	globalMetrics.RecordPersist(backend, status, duration)
}

// SetDBConnectionsActive sets the number of active database connections
func SetDBConnectionsActive(count float64) {
	globalMetrics.SetDBConnectionsActive(count)
}

// RecordDBQuery records database query metrics
func RecordDBQuery(operation, status string) {
	globalMetrics.RecordDBQuery(operation, status)
}
