package strategy

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/crucible/internal/datasource"
	"github.com/probelab/crucible/internal/models"
)

// fixedBudget is a minimal Budget for tests.
type fixedBudget struct {
	remaining int
}

func (b *fixedBudget) Remaining() int { return b.remaining }

func (b *fixedBudget) Charge(units int) error {
	if units > b.remaining {
		return fmt.Errorf("budget exhausted")
	}
	b.remaining -= units
	return nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewTemporalStrategy(DefaultTemporalConfig())))
	require.NoError(t, r.Register(NewScopeStrategy(DefaultScopeConfig())))
	require.NoError(t, r.Register(NewThresholdStrategy(DefaultThresholdConfig())))

	s, ok := r.Get(TemporalName)
	assert.True(t, ok)
	assert.Equal(t, TemporalName, s.Name())

	_, ok = r.Get("unknown")
	assert.False(t, ok)

	assert.Equal(t, []string{TemporalName, ScopeName, ThresholdName}, r.List())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewScopeStrategy(DefaultScopeConfig())))

	err := r.Register(NewScopeStrategy(DefaultScopeConfig()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryOrdered(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewTemporalStrategy(DefaultTemporalConfig())))
	require.NoError(t, r.Register(NewScopeStrategy(DefaultScopeConfig())))
	require.NoError(t, r.Register(NewThresholdStrategy(DefaultThresholdConfig())))

	ordered, err := r.Ordered(ThresholdName, TemporalName)
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, ThresholdName, ordered[0].Name())
	assert.Equal(t, TemporalName, ordered[1].Name())

	_, err = r.Ordered(TemporalName, "missing")
	require.Error(t, err)
}

func TestExhaustedBudgetYieldsInconclusive(t *testing.T) {
	h := thresholdHypothesis(t, models.ThresholdClaim{
		Metric: "http_error_rate", Operator: models.OpGreaterThan, Threshold: 0.05,
	})
	src := &datasource.MockSource{}

	strategy := NewThresholdStrategy(DefaultThresholdConfig())
	attempt := strategy.AttemptDisproof(context.Background(), h, src, &fixedBudget{remaining: 0})

	assert.False(t, attempt.Conclusive)
	assert.Contains(t, attempt.Reasoning, "budget")
	assert.Equal(t, 0, src.CallCount())
}

func TestBudgetChargedPerQuery(t *testing.T) {
	h := thresholdHypothesis(t,
		models.ThresholdClaim{Metric: "a", Operator: models.OpGreaterThan, Threshold: 1},
		models.ThresholdClaim{Metric: "b", Operator: models.OpGreaterThan, Threshold: 1},
	)
	src := instantSource(map[string]float64{"a": 10, "b": 10})
	budget := &fixedBudget{remaining: 5}

	strategy := NewThresholdStrategy(DefaultThresholdConfig())
	attempt := strategy.AttemptDisproof(context.Background(), h, src, budget)

	assert.True(t, attempt.Survived())
	assert.Equal(t, 2, attempt.Cost)
	assert.Equal(t, 3, budget.Remaining())
}
