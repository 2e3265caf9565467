// Package strategy implements the adversarial disproof strategies that
// try to falsify a hypothesis: temporal contradiction, scope
// verification, and metric threshold validation. The strategy set is
// closed and explicitly registered; there is no reflective discovery.
package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/probelab/crucible/internal/datasource"
	"github.com/probelab/crucible/internal/models"
)

// Budget is the read view of the investigation budget plus an explicit
// charge call. Strategies consult it before costed queries and never
// mutate any counter directly; the session owns the state.
type Budget interface {
	// Remaining returns the unspent resource units
	Remaining() int

	// Charge spends units, failing once the ceiling is reached
	Charge(units int) error
}

// Strategy is one line of attack for falsifying a hypothesis. A
// strategy never returns an error: data-source failures and missing
// metadata become inconclusive attempts so one failing dependency never
// aborts the investigation.
type Strategy interface {
	// Name returns the strategy's registered name
	Name() string

	// AttemptDisproof runs the falsification logic against the
	// hypothesis using the given data source and budget
	AttemptDisproof(ctx context.Context, h *models.Hypothesis, src datasource.DataSource, budget Budget) models.DisproofAttempt
}

// unlimited is the fallback budget when the caller supplies none.
type unlimited struct{}

func (unlimited) Remaining() int        { return 1 << 30 }
func (unlimited) Charge(units int) error { return nil }

func ensureBudget(b Budget) Budget {
	if b == nil {
		return unlimited{}
	}
	return b
}

// inconclusive builds an attempt that could not test the hypothesis.
func inconclusive(name, reasoning string, cost int) models.DisproofAttempt {
	return models.DisproofAttempt{
		StrategyName: name,
		Disproven:    false,
		Reasoning:    reasoning,
		Cost:         cost,
		Conclusive:   false,
	}
}

// conclusive builds an attempt that genuinely tested the hypothesis.
func conclusive(name string, disproven bool, reasoning string, evidence []models.Evidence, cost int) models.DisproofAttempt {
	return models.DisproofAttempt{
		StrategyName: name,
		Disproven:    disproven,
		Reasoning:    reasoning,
		Evidence:     evidence,
		Cost:         cost,
		Conclusive:   true,
	}
}

// queryFailure converts a data-source error into an inconclusive
// attempt with the failure kind in the reasoning trail.
func queryFailure(name, metric string, err error, cost int) models.DisproofAttempt {
	kind := datasource.ErrorKind(err)
	if kind == "" {
		kind = "error"
	}
	return inconclusive(name, fmt.Sprintf("query for %s failed (%s): %v", metric, kind, err), cost)
}

// mustJSON marshals a payload for evidence data, returning nil on
// failure rather than aborting the attempt.
func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

func newEvidence(source, interpretation string, payload interface{}, quality models.EvidenceQuality, polarity models.EvidencePolarity) (models.Evidence, error) {
	return models.NewEvidence(source, mustJSON(payload), interpretation, time.Now().UTC(), quality, polarity)
}

// Registry holds the explicitly registered strategy set.
type Registry struct {
	strategies map[string]Strategy
	mu         sync.RWMutex
}

// NewRegistry creates an empty strategy registry
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy under its name. Returns an error for an
// empty or duplicate name.
func (r *Registry) Register(s Strategy) error {
	if s == nil {
		return fmt.Errorf("strategy cannot be nil")
	}
	name := s.Name()
	if name == "" {
		return fmt.Errorf("strategy name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[name]; exists {
		return fmt.Errorf("strategy %q is already registered", name)
	}
	r.strategies[name] = s
	return nil
}

// Get retrieves a strategy by name.
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// List returns the registered strategy names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ordered resolves names to strategies, preserving order. Unknown
// names are an error so a misconfigured run fails loudly.
func (r *Registry) Ordered(names ...string) ([]Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		s, ok := r.strategies[name]
		if !ok {
			return nil, fmt.Errorf("strategy %q is not registered", name)
		}
		out = append(out, s)
	}
	return out, nil
}

// DefaultOrder is the default execution order: cheapest and most
// decisive first.
func DefaultOrder() []string {
	return []string{TemporalName, ScopeName, ThresholdName}
}
