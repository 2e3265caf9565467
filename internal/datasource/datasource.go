// Package datasource defines the narrow query capability the validation
// engine consumes, plus a Prometheus-compatible HTTP implementation, a
// caching wrapper, and a per-call timeout wrapper. Implementations
// wrapping other telemetry backends live with their owners; strategies
// only ever see this interface.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Point is a single (timestamp, value) sample of a metric series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// DataSource exposes the three query shapes strategies need. All calls
// honor ctx cancellation and deadlines and return a *QueryError on
// failure so callers can react to the failure kind.
type DataSource interface {
	// QueryRange returns the ordered samples of a metric between start
	// and end.
	QueryRange(ctx context.Context, metric string, start, end time.Time) ([]Point, error)

	// QueryInstant returns the current value of a metric.
	QueryInstant(ctx context.Context, metric string) (float64, error)

	// ActiveEntities returns the set of service identifiers observed
	// active in the given window.
	ActiveEntities(ctx context.Context, start, end time.Time) ([]string, error)
}

// QueryErrorKind classifies a data-source failure.
type QueryErrorKind string

const (
	// KindTimeout means the query exceeded its deadline
	KindTimeout QueryErrorKind = "timeout"
	// KindNotFound means the metric or entity set does not exist or
	// returned no data
	KindNotFound QueryErrorKind = "not_found"
	// KindMalformed means the backend rejected the query
	KindMalformed QueryErrorKind = "malformed"
	// KindUnavailable means the backend could not be reached
	KindUnavailable QueryErrorKind = "unavailable"
)

// QueryError is a typed data-source failure. Strategies convert these
// to inconclusive disproof attempts; they never propagate past the
// strategy boundary.
type QueryError struct {
	Kind   QueryErrorKind
	Metric string
	Err    error
}

// Error returns the error message
func (e *QueryError) Error() string {
	if e.Metric != "" {
		return fmt.Sprintf("query %s: %s: %v", e.Metric, e.Kind, e.Err)
	}
	return fmt.Sprintf("query: %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError constructs a typed query error.
func NewQueryError(kind QueryErrorKind, metric string, err error) *QueryError {
	return &QueryError{Kind: kind, Metric: metric, Err: err}
}

// ErrorKind extracts the failure kind from err, or "" if err is not a
// QueryError.
func ErrorKind(err error) QueryErrorKind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found/no-data failure.
func IsNotFound(err error) bool {
	return ErrorKind(err) == KindNotFound
}

// IsTimeout reports whether err is a deadline failure.
func IsTimeout(err error) bool {
	return ErrorKind(err) == KindTimeout
}
