package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricAnalysisDuration  = "bha.analysis.duration.seconds"
	metricSuggestionsTotal  = "bha.suggestions.total"
	metricLimiterRejections = "bha.limiter.rejections.total"

	attrComponent = "component"
	attrKind      = "kind"
)

var analysisDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// PipelineMetrics holds the OTel instruments recorded during one
// pipeline run: per-component duration, suggestion counts, and
// resource-limiter rejections.
type PipelineMetrics struct {
	componentDuration metric.Float64Histogram
	suggestionsTotal  metric.Int64Counter
	limiterRejections metric.Int64Counter
}

// NewPipelineMetrics creates the pipeline's metric instruments from mt.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	duration, err := mt.Float64Histogram(metricAnalysisDuration,
		metric.WithDescription("Duration of each pipeline component"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(analysisDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricAnalysisDuration, err)
	}

	suggestions, err := mt.Int64Counter(metricSuggestionsTotal,
		metric.WithDescription("Total suggestions emitted, by type"),
		metric.WithUnit("{suggestion}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSuggestionsTotal, err)
	}

	rejections, err := mt.Int64Counter(metricLimiterRejections,
		metric.WithDescription("Total resource-limiter rejections, by bound"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricLimiterRejections, err)
	}

	return &PipelineMetrics{
		componentDuration: duration,
		suggestionsTotal:  suggestions,
		limiterRejections: rejections,
	}, nil
}

// RecordComponent records one component's wall-clock duration.
func (m *PipelineMetrics) RecordComponent(ctx context.Context, component string, d time.Duration) {
	m.componentDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(attrComponent, component)))
}

// RecordSuggestions records a count of suggestions of a given type.
func (m *PipelineMetrics) RecordSuggestions(ctx context.Context, suggestionType string, count int64) {
	m.suggestionsTotal.Add(ctx, count, metric.WithAttributes(attribute.String(attrKind, suggestionType)))
}

// RecordLimiterRejection records one resource-limiter rejection for a named bound.
func (m *PipelineMetrics) RecordLimiterRejection(ctx context.Context, bound string) {
	m.limiterRejections.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, bound)))
}
