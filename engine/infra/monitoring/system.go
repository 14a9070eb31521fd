package monitoring

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/spiffworkflow/backend/pkg/version"
)

// registerSystemMetrics publishes build information and process uptime.
func registerSystemMetrics(_ context.Context, meter metric.Meter) error {
	buildInfo, err := meter.Int64ObservableGauge(
		"build_info",
		metric.WithDescription("Build information (value=1)"),
	)
	if err != nil {
		return err
	}
	uptime, err := meter.Float64ObservableGauge(
		"uptime_seconds",
		metric.WithDescription("Service uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}
	info := version.Get()
	startTime := time.Now()
	attrs := metric.WithAttributes(
		attribute.String("version", info.Version),
		attribute.String("commit_hash", info.CommitHash),
		attribute.String("go_version", runtime.Version()),
	)
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(buildInfo, 1, attrs)
		o.ObserveFloat64(uptime, time.Since(startTime).Seconds())
		return nil
	}, buildInfo, uptime)
	return err
}
