package strategy

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/probelab/crucible/internal/datasource"
	"github.com/probelab/crucible/internal/logging"
	"github.com/probelab/crucible/internal/models"
)

// ThresholdName is the registered name of the metric threshold
// validation strategy.
const ThresholdName = "metric_threshold"

// ThresholdConfig holds the tunables of the threshold strategy.
type ThresholdConfig struct {
	// Tolerance is the relative band within which a comparison still
	// counts as satisfied
	Tolerance float64
}

// DefaultThresholdConfig returns the default threshold tunables.
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{Tolerance: 0.05}
}

// ThresholdStrategy checks every metric threshold claim of a
// hypothesis against live values. A claim naming a metric that returns
// no data is untestable and therefore disproving: an agent must not
// survive validation by referencing a metric that does not exist.
type ThresholdStrategy struct {
	cfg    ThresholdConfig
	logger *logging.Logger
}

// NewThresholdStrategy creates the metric threshold strategy.
func NewThresholdStrategy(cfg ThresholdConfig) *ThresholdStrategy {
	if cfg.Tolerance <= 0 || cfg.Tolerance >= 1 {
		cfg.Tolerance = DefaultThresholdConfig().Tolerance
	}
	return &ThresholdStrategy{
		cfg:    cfg,
		logger: logging.GetLogger("strategy.threshold"),
	}
}

// Name implements Strategy.Name.
func (s *ThresholdStrategy) Name() string {
	return ThresholdName
}

// AttemptDisproof implements Strategy.AttemptDisproof.
func (s *ThresholdStrategy) AttemptDisproof(ctx context.Context, h *models.Hypothesis, src datasource.DataSource, budget Budget) models.DisproofAttempt {
	claims := h.Claims()
	if len(claims.Thresholds) == 0 {
		return inconclusive(ThresholdName, "hypothesis metadata has no metric threshold claims", 0)
	}

	budget = ensureBudget(budget)

	var supporting []models.Evidence
	var held []string
	cost := 0

	for _, claim := range claims.Thresholds {
		if budget.Remaining() < 1 {
			return inconclusive(ThresholdName,
				fmt.Sprintf("investigation budget exhausted after %d of %d claims", cost, len(claims.Thresholds)), cost)
		}
		if err := budget.Charge(1); err != nil {
			return inconclusive(ThresholdName, fmt.Sprintf("budget charge refused: %v", err), cost)
		}
		cost++

		value, err := src.QueryInstant(ctx, claim.Metric)
		if err != nil {
			// A missing metric is not a query failure to shrug off:
			// the claim cannot be tested, which fails validation.
			if datasource.IsNotFound(err) {
				ev, evErr := newEvidence("metrics",
					fmt.Sprintf("metric %s referenced by the hypothesis returned no data", claim.Metric),
					claim, models.QualityDirect, models.PolarityContradicting)
				if evErr != nil {
					return inconclusive(ThresholdName, fmt.Sprintf("evidence construction failed: %v", evErr), cost)
				}
				return conclusive(ThresholdName, true,
					fmt.Sprintf("claim on %s is untestable (metric does not exist or has no data); untestable claims fail validation", claim.Metric),
					[]models.Evidence{ev}, cost)
			}

			s.logger.WarnWithFields("instant query failed, attempt inconclusive",
				logging.Field("hypothesis_id", h.ID()),
				logging.Field("metric", claim.Metric),
				logging.Field("error", err.Error()),
			)
			return queryFailure(ThresholdName, claim.Metric, err, cost)
		}

		if !s.holds(claim, value) {
			ev, evErr := newEvidence("metrics",
				fmt.Sprintf("%s is %v, violating the claim %s %s %v", claim.Metric, value, claim.Metric, claim.Operator, claim.Threshold),
				struct {
					models.ThresholdClaim
					Observed float64 `json:"observed"`
				}{claim, value},
				models.QualityDirect, models.PolarityContradicting)
			if evErr != nil {
				return inconclusive(ThresholdName, fmt.Sprintf("evidence construction failed: %v", evErr), cost)
			}
			return conclusive(ThresholdName, true,
				fmt.Sprintf("claim %s %s %v failed: observed %v (tolerance %.0f%%)",
					claim.Metric, claim.Operator, claim.Threshold, value, s.cfg.Tolerance*100),
				[]models.Evidence{ev}, cost)
		}

		ev, evErr := newEvidence("metrics",
			fmt.Sprintf("%s is %v, satisfying %s %v", claim.Metric, value, claim.Operator, claim.Threshold),
			struct {
				models.ThresholdClaim
				Observed float64 `json:"observed"`
			}{claim, value},
			models.QualityCorroborated, models.PolaritySupporting)
		if evErr != nil {
			return inconclusive(ThresholdName, fmt.Sprintf("evidence construction failed: %v", evErr), cost)
		}
		supporting = append(supporting, ev)
		held = append(held, fmt.Sprintf("%s %s %v", claim.Metric, claim.Operator, claim.Threshold))
	}

	return conclusive(ThresholdName, false,
		fmt.Sprintf("all %d metric claims hold: %s", len(held), strings.Join(held, "; ")),
		supporting, cost)
}

// holds evaluates the comparison with the relative tolerance band.
func (s *ThresholdStrategy) holds(claim models.ThresholdClaim, value float64) bool {
	band := math.Abs(claim.Threshold) * s.cfg.Tolerance
	switch claim.Operator {
	case models.OpGreaterThan:
		return value > claim.Threshold-band
	case models.OpGreaterOrEqual:
		return value >= claim.Threshold-band
	case models.OpLessThan:
		return value < claim.Threshold+band
	case models.OpLessOrEqual:
		return value <= claim.Threshold+band
	case models.OpEqual:
		return math.Abs(value-claim.Threshold) <= band
	default:
		return false
	}
}
