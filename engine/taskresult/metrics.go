package taskresult

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/spiffworkflow/backend/engine/core"
	"github.com/spiffworkflow/backend/engine/infra/monitoring/metrics"
	"github.com/spiffworkflow/backend/pkg/logger"
)

const outcomeSuccess = "success"

type queryMetrics struct {
	queries  metric.Int64Counter
	duration metric.Float64Histogram
	values   metric.Int64Histogram
}

func newQueryMetrics(ctx context.Context, meter metric.Meter) *queryMetrics {
	if meter == nil {
		return nil
	}
	log := logger.FromContext(ctx)
	queries, err := meter.Int64Counter(
		"celery_result_queries_total",
		metric.WithDescription("Celery result backend queries by backend and outcome"),
	)
	if err != nil {
		log.Error("Failed to create celery result queries counter", "error", err)
		return nil
	}
	duration, err := meter.Float64Histogram(
		"celery_result_query_duration_seconds",
		metric.WithDescription("Celery result backend query latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.QueryDurationBuckets...),
	)
	if err != nil {
		log.Error("Failed to create celery result duration histogram", "error", err)
		return nil
	}
	values, err := meter.Int64Histogram(
		"celery_result_values",
		metric.WithDescription("Number of raw values read from the result backend per query"),
		metric.WithExplicitBucketBoundaries(metrics.ResultCountBuckets...),
	)
	if err != nil {
		log.Error("Failed to create celery result values histogram", "error", err)
		return nil
	}
	return &queryMetrics{queries: queries, duration: duration, values: values}
}

func (m *queryMetrics) record(ctx context.Context, kind string, start time.Time, count int, err error) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "none"
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = "error"
		if apiErr, ok := core.AsAPIError(err); ok {
			outcome = apiErr.Code
		}
	}
	attrs := metric.WithAttributes(
		attribute.String("backend", kind),
		attribute.String("outcome", outcome),
	)
	m.queries.Add(ctx, 1, attrs)
	m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	if err == nil {
		m.values.Record(ctx, int64(count), metric.WithAttributes(attribute.String("backend", kind)))
	}
}
