package taskresult

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/spiffworkflow/backend/pkg/config"
	"github.com/spiffworkflow/backend/pkg/logger"
)

// Query selects the results to return for one request.
type Query struct {
	ProcessInstanceID  int64
	IncludeAllFailures bool
}

// Service opens the configured backend per call; no connection outlives a request.
type Service struct {
	cfg     *config.Config
	opts    []Option
	metrics *queryMetrics
}

func NewService(ctx context.Context, cfg *config.Config, meter metric.Meter, opts ...Option) *Service {
	return &Service{cfg: cfg, opts: opts, metrics: newQueryMetrics(ctx, meter)}
}

// Results reads every value from the backend and filters it for q.
func (s *Service) Results(ctx context.Context, q Query) (results []json.RawMessage, err error) {
	log := logger.FromContext(ctx)
	reqCtx := ctx
	start := time.Now()
	var kind string
	var count int
	defer func() {
		s.metrics.record(reqCtx, kind, start, count, err)
	}()
	if s.cfg.Celery.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Celery.Timeout)
		defer cancel()
	}
	backend, err := NewBackend(ctx, s.cfg, s.opts...)
	if err != nil {
		return nil, err
	}
	kind = backend.Kind()
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			log.Warn("Failed to close result backend", "backend", kind, "error", cerr)
		}
	}()
	values, err := backend.Values(ctx)
	if err != nil {
		return nil, err
	}
	count = len(values)
	results = Filter(log, values, q.ProcessInstanceID, q.IncludeAllFailures)
	log.Debug("Celery results filtered",
		"backend", kind,
		"values", count,
		"matched", len(results),
		"process_instance_id", q.ProcessInstanceID,
	)
	return results, nil
}

// Ping reports whether the configured backend is reachable. An unconfigured
// backend is not an error since the endpoint is optional.
func (s *Service) Ping(ctx context.Context) error {
	if s.cfg.Celery.ResultBackend.Value() == "" {
		return nil
	}
	backend, err := NewBackend(ctx, s.cfg, s.opts...)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()
	if err := backend.Ping(ctx); err != nil {
		return fmt.Errorf("%s backend unreachable: %w", backend.Kind(), err)
	}
	return nil
}
