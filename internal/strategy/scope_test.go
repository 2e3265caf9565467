package strategy

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/crucible/internal/datasource"
	"github.com/probelab/crucible/internal/models"
)

func scopeHypothesis(t *testing.T, scope models.ScopeClaim) *models.Hypothesis {
	t.Helper()
	suspected := suspectedTime
	h, err := models.NewHypothesis("agent-1", "incident affected the claimed services", 0.6,
		models.WithClaims(models.Claims{
			SuspectedTime: &suspected,
			Scope:         &scope,
		}))
	require.NoError(t, err)
	require.NoError(t, h.Activate())
	return h
}

func entitySource(entities []string) *datasource.MockSource {
	return &datasource.MockSource{
		ActiveEntitiesFn: func(ctx context.Context, start, end time.Time) ([]string, error) {
			return entities, nil
		},
	}
}

// TestScopeDisjointIdentitiesDisprove is the identity-check guard:
// observed and claimed sets with equal cardinality but disjoint members
// must disprove. A size comparison would wrongly pass this case.
func TestScopeDisjointIdentitiesDisprove(t *testing.T) {
	h := scopeHypothesis(t, models.ScopeClaim{Services: []string{"svc-a", "svc-b"}})
	src := entitySource([]string{"svc-c", "svc-d"})

	strategy := NewScopeStrategy(DefaultScopeConfig())
	attempt := strategy.AttemptDisproof(context.Background(), h, src, nil)

	assert.True(t, attempt.Disproven)
	assert.True(t, attempt.Conclusive)
	require.Len(t, attempt.Evidence, 1)
	assert.Equal(t, models.PolarityContradicting, attempt.Evidence[0].Polarity)
	assert.Contains(t, attempt.Reasoning, "svc-a")
}

func TestScopePartialAbsenceDisproves(t *testing.T) {
	h := scopeHypothesis(t, models.ScopeClaim{Services: []string{"svc-a", "svc-b", "svc-c"}})
	src := entitySource([]string{"svc-a", "svc-b", "svc-x", "svc-y"})

	strategy := NewScopeStrategy(DefaultScopeConfig())
	attempt := strategy.AttemptDisproof(context.Background(), h, src, nil)

	assert.True(t, attempt.Disproven)
	assert.Contains(t, attempt.Reasoning, "svc-c")
}

func TestScopeAllClaimedObservedSurvives(t *testing.T) {
	h := scopeHypothesis(t, models.ScopeClaim{Services: []string{"svc-a", "svc-b"}})
	// Extra observed services are fine; the claim bounds nothing above.
	src := entitySource([]string{"svc-a", "svc-b", "svc-c"})

	strategy := NewScopeStrategy(DefaultScopeConfig())
	attempt := strategy.AttemptDisproof(context.Background(), h, src, nil)

	assert.False(t, attempt.Disproven)
	assert.True(t, attempt.Conclusive)
	require.Len(t, attempt.Evidence, 1)
	assert.Equal(t, models.PolaritySupporting, attempt.Evidence[0].Polarity)
}

func TestScopeAllServicesCoverage(t *testing.T) {
	catalog := []string{"svc-a", "svc-b", "svc-c", "svc-d", "svc-e"}

	tests := []struct {
		name      string
		observed  []string
		disproven bool
	}{
		{"full coverage survives", catalog, false},
		{"low coverage disproves", []string{"svc-a", "svc-b"}, true},
		{"coverage just below tolerance disproves", []string{"svc-a", "svc-b", "svc-c", "svc-d"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := scopeHypothesis(t, models.ScopeClaim{AllServices: true})
			cfg := DefaultScopeConfig()
			cfg.ServiceCatalog = catalog
			strategy := NewScopeStrategy(cfg)

			attempt := strategy.AttemptDisproof(context.Background(), h, entitySource(tt.observed), nil)
			assert.Equal(t, tt.disproven, attempt.Disproven)
			assert.True(t, attempt.Conclusive)
		})
	}
}

func TestScopeAllServicesWithoutCatalogInconclusive(t *testing.T) {
	h := scopeHypothesis(t, models.ScopeClaim{AllServices: true})
	strategy := NewScopeStrategy(DefaultScopeConfig())

	attempt := strategy.AttemptDisproof(context.Background(), h, entitySource([]string{"svc-a"}), nil)
	assert.False(t, attempt.Disproven)
	assert.False(t, attempt.Conclusive)
}

func TestScopeMissingClaimInconclusive(t *testing.T) {
	h, err := models.NewHypothesis("agent-1", "no scope claim", 0.5)
	require.NoError(t, err)
	require.NoError(t, h.Activate())

	strategy := NewScopeStrategy(DefaultScopeConfig())
	src := &datasource.MockSource{}
	attempt := strategy.AttemptDisproof(context.Background(), h, src, nil)

	assert.False(t, attempt.Conclusive)
	assert.Equal(t, 0, src.CallCount())
}

func TestScopeQueryFailureInconclusive(t *testing.T) {
	h := scopeHypothesis(t, models.ScopeClaim{Services: []string{"svc-a"}})
	src := &datasource.MockSource{
		ActiveEntitiesFn: func(ctx context.Context, start, end time.Time) ([]string, error) {
			return nil, datasource.NewQueryError(datasource.KindUnavailable, "", fmt.Errorf("backend down"))
		},
	}

	strategy := NewScopeStrategy(DefaultScopeConfig())
	attempt := strategy.AttemptDisproof(context.Background(), h, src, nil)

	assert.False(t, attempt.Disproven)
	assert.False(t, attempt.Conclusive)
	assert.Empty(t, attempt.Evidence)
}
