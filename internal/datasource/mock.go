package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockSource is a scriptable DataSource for tests. Unset handlers
// return a not-found error. All calls are recorded.
type MockSource struct {
	mu sync.Mutex

	QueryRangeFn     func(ctx context.Context, metric string, start, end time.Time) ([]Point, error)
	QueryInstantFn   func(ctx context.Context, metric string) (float64, error)
	ActiveEntitiesFn func(ctx context.Context, start, end time.Time) ([]string, error)

	Calls []string
}

// QueryRange implements DataSource.QueryRange.
func (m *MockSource) QueryRange(ctx context.Context, metric string, start, end time.Time) ([]Point, error) {
	m.record("QueryRange(" + metric + ")")
	if m.QueryRangeFn == nil {
		return nil, NewQueryError(KindNotFound, metric, fmt.Errorf("no handler"))
	}
	return m.QueryRangeFn(ctx, metric, start, end)
}

// QueryInstant implements DataSource.QueryInstant.
func (m *MockSource) QueryInstant(ctx context.Context, metric string) (float64, error) {
	m.record("QueryInstant(" + metric + ")")
	if m.QueryInstantFn == nil {
		return 0, NewQueryError(KindNotFound, metric, fmt.Errorf("no handler"))
	}
	return m.QueryInstantFn(ctx, metric)
}

// ActiveEntities implements DataSource.ActiveEntities.
func (m *MockSource) ActiveEntities(ctx context.Context, start, end time.Time) ([]string, error) {
	m.record("ActiveEntities")
	if m.ActiveEntitiesFn == nil {
		return nil, NewQueryError(KindNotFound, "", fmt.Errorf("no handler"))
	}
	return m.ActiveEntitiesFn(ctx, start, end)
}

// CallCount returns the number of recorded calls.
func (m *MockSource) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockSource) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}
