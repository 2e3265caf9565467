package datasource

import (
	"context"
	"time"
)

// DefaultQueryTimeout bounds each external data-source call so a hung
// backend can never block the engine indefinitely.
const DefaultQueryTimeout = 30 * time.Second

// TimeoutSource applies a per-call deadline to every query of the
// wrapped source. A deadline hit surfaces as a KindTimeout QueryError
// from the underlying client.
type TimeoutSource struct {
	underlying DataSource
	timeout    time.Duration
}

// WithTimeout wraps src so each call carries its own deadline.
// A non-positive timeout falls back to DefaultQueryTimeout.
func WithTimeout(src DataSource, timeout time.Duration) *TimeoutSource {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &TimeoutSource{underlying: src, timeout: timeout}
}

// QueryRange implements DataSource.QueryRange with a per-call deadline.
func (s *TimeoutSource) QueryRange(ctx context.Context, metric string, start, end time.Time) ([]Point, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	points, err := s.underlying.QueryRange(ctx, metric, start, end)
	return points, normalizeDeadline(ctx, metric, err)
}

// QueryInstant implements DataSource.QueryInstant with a per-call deadline.
func (s *TimeoutSource) QueryInstant(ctx context.Context, metric string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	value, err := s.underlying.QueryInstant(ctx, metric)
	return value, normalizeDeadline(ctx, metric, err)
}

// ActiveEntities implements DataSource.ActiveEntities with a per-call deadline.
func (s *TimeoutSource) ActiveEntities(ctx context.Context, start, end time.Time) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	entities, err := s.underlying.ActiveEntities(ctx, start, end)
	return entities, normalizeDeadline(ctx, metricForEntities, err)
}

const metricForEntities = "active_entities"

// normalizeDeadline maps a raw context deadline error to a typed
// timeout, so strategies see a QueryError regardless of how the
// underlying source reported the deadline.
func normalizeDeadline(ctx context.Context, metric string, err error) error {
	if err == nil {
		return nil
	}
	if _, isTyped := err.(*QueryError); isTyped {
		return err
	}
	if ctx.Err() == context.DeadlineExceeded {
		return NewQueryError(KindTimeout, metric, err)
	}
	return NewQueryError(KindUnavailable, metric, err)
}
