package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "ecoscan"

// OTelMetrics records instruments on an OpenTelemetry meter and keeps them
// in a manual reader, which the metrics endpoint collects on demand.
type OTelMetrics struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader

	httpRequests    metric.Int64Counter
	httpDuration    metric.Float64Histogram
	resolutions     metric.Int64Counter
	resolveDuration metric.Float64Histogram
	ledgerAppends   metric.Int64Counter
	persists        metric.Int64Counter
	persistDuration metric.Float64Histogram
	dbQueries       metric.Int64Counter
	dbConnections   metric.Float64Gauge
}

// NewOTel builds a meter provider with a manual reader and registers the
// EcoScan instruments on it.
func NewOTel(serviceVersion string) (*OTelMetrics, error) {
	reader := sdkmetric.NewManualReader()
	res := resource.NewSchemaless(
		attribute.String("service.name", "ecoscan"),
		attribute.String("service.version", serviceVersion),
	)
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	meter := provider.Meter(meterName, metric.WithInstrumentationVersion(serviceVersion))

	m := &OTelMetrics{provider: provider, reader: reader}
	var err error

	if m.httpRequests, err = meter.Int64Counter("ecoscan.http.requests",
		metric.WithDescription("HTTP requests served")); err != nil {
		return nil, fmt.Errorf("failed to create http request counter: %w", err)
	}
	if m.httpDuration, err = meter.Float64Histogram("ecoscan.http.duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}
	if m.resolutions, err = meter.Int64Counter("ecoscan.resolve.total",
		metric.WithDescription("Product resolutions by answering source")); err != nil {
		return nil, fmt.Errorf("failed to create resolution counter: %w", err)
	}
	if m.resolveDuration, err = meter.Float64Histogram("ecoscan.resolve.duration",
		metric.WithDescription("Product resolution latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create resolution histogram: %w", err)
	}
	if m.ledgerAppends, err = meter.Int64Counter("ecoscan.ledger.appends",
		metric.WithDescription("Ledger append outcomes")); err != nil {
		return nil, fmt.Errorf("failed to create ledger counter: %w", err)
	}
	if m.persists, err = meter.Int64Counter("ecoscan.store.persists",
		metric.WithDescription("Ledger writes to the backing store")); err != nil {
		return nil, fmt.Errorf("failed to create persist counter: %w", err)
	}
	if m.persistDuration, err = meter.Float64Histogram("ecoscan.store.persist_duration",
		metric.WithDescription("Ledger write latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create persist histogram: %w", err)
	}
	if m.dbQueries, err = meter.Int64Counter("ecoscan.db.queries",
		metric.WithDescription("Database statements executed")); err != nil {
		return nil, fmt.Errorf("failed to create db query counter: %w", err)
	}
	if m.dbConnections, err = meter.Float64Gauge("ecoscan.db.connections_active",
		metric.WithDescription("Acquired database connections")); err != nil {
		return nil, fmt.Errorf("failed to create db connection gauge: %w", err)
	}

	return m, nil
}

func (m *OTelMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("endpoint", endpoint),
		attribute.String("status", strconv.Itoa(statusCode)),
	)
	ctx := context.Background()
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *OTelMetrics) RecordResolution(source, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	)
	ctx := context.Background()
	m.resolutions.Add(ctx, 1, attrs)
	m.resolveDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *OTelMetrics) RecordLedgerAppend(outcome string) {
	m.ledgerAppends.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *OTelMetrics) RecordPersist(backend, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("status", status),
	)
	ctx := context.Background()
	m.persists.Add(ctx, 1, attrs)
	m.persistDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *OTelMetrics) SetDBConnectionsActive(count float64) {
	m.dbConnections.Record(context.Background(), count)
}

func (m *OTelMetrics) RecordDBQuery(operation, status string) {
	m.dbQueries.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

// Sample is one flattened data point from a collection.
type Sample struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      float64           `json:"value"`
	Count      uint64            `json:"count,omitempty"`
}

// Snapshot collects every instrument and flattens the data points, sorted by name.
func (m *OTelMetrics) Snapshot(ctx context.Context) ([]Sample, error) {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("failed to collect metrics: %w", err)
	}

	var samples []Sample
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					samples = append(samples, Sample{Name: md.Name, Attributes: attrMap(dp.Attributes), Value: float64(dp.Value)})
				}
			case metricdata.Gauge[float64]:
				for _, dp := range data.DataPoints {
					samples = append(samples, Sample{Name: md.Name, Attributes: attrMap(dp.Attributes), Value: dp.Value})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					samples = append(samples, Sample{Name: md.Name, Attributes: attrMap(dp.Attributes), Value: dp.Sum, Count: dp.Count})
				}
			}
		}
	}

	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples, nil
}

// Handler serves the current snapshot as JSON.
func (m *OTelMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		samples, err := m.Snapshot(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"metrics": samples})
	})
}

// Shutdown flushes and stops the meter provider.
func (m *OTelMetrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

func attrMap(set attribute.Set) map[string]string {
	if set.Len() == 0 {
		return nil
	}
	out := make(map[string]string, set.Len())
	for _, kv := range set.ToSlice() {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}
