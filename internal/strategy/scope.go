package strategy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/probelab/crucible/internal/datasource"
	"github.com/probelab/crucible/internal/logging"
	"github.com/probelab/crucible/internal/models"
)

// ScopeName is the registered name of the scope verification strategy.
const ScopeName = "scope_verification"

// ScopeConfig holds the tunables of the scope verification strategy.
type ScopeConfig struct {
	// Window is the half-width of the incident window around the
	// suspected time
	Window time.Duration

	// CoverageTolerance is the minimum observed coverage fraction for
	// an "all services" claim to survive
	CoverageTolerance float64

	// ServiceCatalog is the known total service set, required to
	// evaluate "all services" claims
	ServiceCatalog []string
}

// DefaultScopeConfig returns the default scope tunables.
func DefaultScopeConfig() ScopeConfig {
	return ScopeConfig{
		Window:            time.Hour,
		CoverageTolerance: 0.9,
	}
}

// ScopeStrategy falsifies a hypothesis whose claimed blast radius does
// not match the services actually observed affected. Claimed services
// are checked by identity: comparing set sizes would accept a disjoint
// observed set of equal cardinality, which proves nothing.
type ScopeStrategy struct {
	cfg    ScopeConfig
	logger *logging.Logger
}

// NewScopeStrategy creates the scope verification strategy.
func NewScopeStrategy(cfg ScopeConfig) *ScopeStrategy {
	def := DefaultScopeConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.CoverageTolerance <= 0 || cfg.CoverageTolerance > 1 {
		cfg.CoverageTolerance = def.CoverageTolerance
	}
	return &ScopeStrategy{
		cfg:    cfg,
		logger: logging.GetLogger("strategy.scope"),
	}
}

// Name implements Strategy.Name.
func (s *ScopeStrategy) Name() string {
	return ScopeName
}

// AttemptDisproof implements Strategy.AttemptDisproof.
func (s *ScopeStrategy) AttemptDisproof(ctx context.Context, h *models.Hypothesis, src datasource.DataSource, budget Budget) models.DisproofAttempt {
	claims := h.Claims()
	if claims.Scope == nil {
		return inconclusive(ScopeName, "hypothesis metadata has no scope claim", 0)
	}
	if claims.SuspectedTime == nil {
		return inconclusive(ScopeName, "hypothesis metadata has no suspected time to define the incident window", 0)
	}

	budget = ensureBudget(budget)
	if budget.Remaining() < 1 {
		return inconclusive(ScopeName, "investigation budget exhausted before query", 0)
	}
	if err := budget.Charge(1); err != nil {
		return inconclusive(ScopeName, fmt.Sprintf("budget charge refused: %v", err), 0)
	}

	suspected := claims.SuspectedTime.UTC()
	observed, err := src.ActiveEntities(ctx, suspected.Add(-s.cfg.Window), suspected.Add(s.cfg.Window))
	if err != nil {
		s.logger.WarnWithFields("entity query failed, attempt inconclusive",
			logging.Field("hypothesis_id", h.ID()),
			logging.Field("error", err.Error()),
		)
		return queryFailure(ScopeName, "active entities", err, 1)
	}

	observedSet := make(map[string]struct{}, len(observed))
	for _, name := range observed {
		observedSet[name] = struct{}{}
	}

	if claims.Scope.AllServices {
		return s.verifyAllServices(observedSet, 1)
	}
	return s.verifyExplicitList(claims.Scope.Services, observedSet, 1)
}

// verifyExplicitList requires every claimed service to appear by
// identity in the observed set.
func (s *ScopeStrategy) verifyExplicitList(claimed []string, observed map[string]struct{}, cost int) models.DisproofAttempt {
	var missing []string
	for _, name := range claimed {
		if _, ok := observed[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)

	payload := struct {
		Claimed  []string `json:"claimed"`
		Observed []string `json:"observed"`
		Missing  []string `json:"missing,omitempty"`
	}{claimed, setToSlice(observed), missing}

	if len(missing) > 0 {
		ev, evErr := newEvidence("topology",
			fmt.Sprintf("claimed services %v were not observed affected in the incident window", missing),
			payload, models.QualityDirect, models.PolarityContradicting)
		if evErr != nil {
			return inconclusive(ScopeName, fmt.Sprintf("evidence construction failed: %v", evErr), cost)
		}
		return conclusive(ScopeName, true,
			fmt.Sprintf("scope claim falsified: %d of %d claimed services absent from observed set: %v",
				len(missing), len(claimed), missing),
			[]models.Evidence{ev}, cost)
	}

	ev, evErr := newEvidence("topology",
		fmt.Sprintf("all %d claimed services observed affected in the incident window", len(claimed)),
		payload, models.QualityCorroborated, models.PolaritySupporting)
	if evErr != nil {
		return inconclusive(ScopeName, fmt.Sprintf("evidence construction failed: %v", evErr), cost)
	}
	return conclusive(ScopeName, false,
		fmt.Sprintf("every claimed service present by identity in the observed set (%d checked)", len(claimed)),
		[]models.Evidence{ev}, cost)
}

// verifyAllServices checks observed coverage of the known catalog
// against the tolerance.
func (s *ScopeStrategy) verifyAllServices(observed map[string]struct{}, cost int) models.DisproofAttempt {
	if len(s.cfg.ServiceCatalog) == 0 {
		return inconclusive(ScopeName, "service catalog not configured; cannot evaluate an all-services claim", cost)
	}

	covered := 0
	for _, name := range s.cfg.ServiceCatalog {
		if _, ok := observed[name]; ok {
			covered++
		}
	}
	coverage := float64(covered) / float64(len(s.cfg.ServiceCatalog))

	payload := struct {
		Catalog  int     `json:"catalog_size"`
		Covered  int     `json:"covered"`
		Coverage float64 `json:"coverage"`
	}{len(s.cfg.ServiceCatalog), covered, coverage}

	if coverage < s.cfg.CoverageTolerance {
		ev, evErr := newEvidence("topology",
			fmt.Sprintf("only %.0f%% of known services observed affected; an all-services incident would show at least %.0f%%",
				coverage*100, s.cfg.CoverageTolerance*100),
			payload, models.QualityDirect, models.PolarityContradicting)
		if evErr != nil {
			return inconclusive(ScopeName, fmt.Sprintf("evidence construction failed: %v", evErr), cost)
		}
		return conclusive(ScopeName, true,
			fmt.Sprintf("all-services claim falsified: coverage %.2f below tolerance %.2f", coverage, s.cfg.CoverageTolerance),
			[]models.Evidence{ev}, cost)
	}

	ev, evErr := newEvidence("topology",
		fmt.Sprintf("%.0f%% of known services observed affected, consistent with an all-services incident", coverage*100),
		payload, models.QualityCorroborated, models.PolaritySupporting)
	if evErr != nil {
		return inconclusive(ScopeName, fmt.Sprintf("evidence construction failed: %v", evErr), cost)
	}
	return conclusive(ScopeName, false,
		fmt.Sprintf("coverage %.2f meets tolerance %.2f", coverage, s.cfg.CoverageTolerance),
		[]models.Evidence{ev}, cost)
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
