// Package observe provides the OpenTelemetry metric instruments for takt:
// parse-tier counters, dispatch counters, and pipeline latency histograms,
// exported through a Prometheus bridge so a live set can be watched from a
// second screen.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all takt metrics.
const meterName = "github.com/fbruckner/takt"

// latencyBuckets covers the spread from local STT (sub-second) to LLM
// fallback inference (multiple seconds). In seconds.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20,
}

// Metrics holds all metric instruments. The underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// STTDuration tracks transcription latency per recorded utterance.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks generative-fallback inference latency.
	LLMDuration metric.Float64Histogram

	// Intents counts resolved intents. Attributes: intent, tier.
	Intents metric.Int64Counter

	// Dispatches counts wire updates sent to the backend. Attribute: key.
	Dispatches metric.Int64Counter

	// ThrottleRejections counts big actions refused by the 8-bar window.
	ThrottleRejections metric.Int64Counter

	// Corrections counts correction-learning rounds.
	Corrections metric.Int64Counter
}

// NewMetrics creates all instruments on the given provider. Returns an error
// if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.STTDuration, err = m.Float64Histogram("takt.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("takt.llm.duration",
		metric.WithDescription("Latency of generative intent classification."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Intents, err = m.Int64Counter("takt.intents",
		metric.WithDescription("Resolved intents by name and decision tier."),
	); err != nil {
		return nil, err
	}
	if met.Dispatches, err = m.Int64Counter("takt.dispatches",
		metric.WithDescription("Wire updates sent to the sound backend by key."),
	); err != nil {
		return nil, err
	}
	if met.ThrottleRejections, err = m.Int64Counter("takt.throttle.rejections",
		metric.WithDescription("Big actions refused by the 8-bar anti-spam window."),
	); err != nil {
		return nil, err
	}
	if met.Corrections, err = m.Int64Counter("takt.corrections",
		metric.WithDescription("Correction-learning rounds completed."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics instance, created on
// first call from the global meter provider. Tests should use [NewMetrics]
// with their own provider to avoid cross-test pollution.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordIntent increments the intent counter with the standard attributes.
func (m *Metrics) RecordIntent(ctx context.Context, name, tier string) {
	m.Intents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("intent", name),
		attribute.String("tier", tier),
	))
}

// RecordDispatch increments the dispatch counter for a wire key.
func (m *Metrics) RecordDispatch(ctx context.Context, key string) {
	m.Dispatches.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}
