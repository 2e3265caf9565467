package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/probelab/crucible/internal/datasource"
	"github.com/probelab/crucible/internal/logging"
	"github.com/probelab/crucible/internal/models"
)

// TemporalName is the registered name of the temporal contradiction
// strategy.
const TemporalName = "temporal_contradiction"

// TemporalConfig holds the tunables of the temporal contradiction
// strategy.
type TemporalConfig struct {
	// Buffer is the grace period before the suspected time within
	// which an anomaly onset does not contradict the hypothesis
	Buffer time.Duration

	// Window is the half-width of the query window around the
	// suspected time
	Window time.Duration

	// MinSustain is the minimum duration a threshold crossing must
	// hold to count as the incident onset rather than a transient spike
	MinSustain time.Duration

	// MaxGap is the largest sample interval tolerated around the
	// suspected time before the data is considered gapped
	MaxGap time.Duration
}

// DefaultTemporalConfig returns the default temporal tunables.
func DefaultTemporalConfig() TemporalConfig {
	return TemporalConfig{
		Buffer:     5 * time.Minute,
		Window:     time.Hour,
		MinSustain: 2 * time.Minute,
		MaxGap:     5 * time.Minute,
	}
}

// TemporalStrategy falsifies a hypothesis whose claimed cause postdates
// the observed incident onset: an effect cannot precede its cause by
// more than the configured buffer.
type TemporalStrategy struct {
	cfg    TemporalConfig
	logger *logging.Logger
}

// NewTemporalStrategy creates the temporal contradiction strategy.
func NewTemporalStrategy(cfg TemporalConfig) *TemporalStrategy {
	def := DefaultTemporalConfig()
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MinSustain <= 0 {
		cfg.MinSustain = def.MinSustain
	}
	if cfg.MaxGap <= 0 {
		cfg.MaxGap = def.MaxGap
	}
	return &TemporalStrategy{
		cfg:    cfg,
		logger: logging.GetLogger("strategy.temporal"),
	}
}

// Name implements Strategy.Name.
func (s *TemporalStrategy) Name() string {
	return TemporalName
}

// AttemptDisproof implements Strategy.AttemptDisproof.
func (s *TemporalStrategy) AttemptDisproof(ctx context.Context, h *models.Hypothesis, src datasource.DataSource, budget Budget) models.DisproofAttempt {
	claims := h.Claims()
	if claims.SuspectedTime == nil {
		return inconclusive(TemporalName, "hypothesis metadata has no suspected causal time", 0)
	}
	if claims.IncidentMetric == "" {
		return inconclusive(TemporalName, "hypothesis metadata names no incident metric", 0)
	}
	// Without a positive onset threshold every healthy sample would
	// count as a crossing and the window start would masquerade as the
	// incident onset.
	if claims.OnsetThreshold <= 0 {
		return inconclusive(TemporalName, "hypothesis metadata has no onset threshold for the incident metric", 0)
	}

	budget = ensureBudget(budget)
	if budget.Remaining() < 1 {
		return inconclusive(TemporalName, "investigation budget exhausted before query", 0)
	}
	if err := budget.Charge(1); err != nil {
		return inconclusive(TemporalName, fmt.Sprintf("budget charge refused: %v", err), 0)
	}

	suspected := claims.SuspectedTime.UTC()
	start := suspected.Add(-s.cfg.Window)
	end := suspected.Add(s.cfg.Window)

	points, err := src.QueryRange(ctx, claims.IncidentMetric, start, end)
	if err != nil {
		s.logger.WarnWithFields("range query failed, attempt inconclusive",
			logging.Field("hypothesis_id", h.ID()),
			logging.Field("metric", claims.IncidentMetric),
			logging.Field("error", err.Error()),
		)
		return queryFailure(TemporalName, claims.IncidentMetric, err, 1)
	}

	// A gap overlapping the suspected time means the onset could hide
	// inside it; refuse to guess.
	if gapped(points, suspected, s.cfg.MaxGap) {
		return inconclusive(TemporalName,
			fmt.Sprintf("data gap overlapping suspected time %s; onset cannot be placed", suspected.Format(time.RFC3339)), 1)
	}

	episodes := findEpisodes(points, claims.OnsetThreshold, s.cfg.MinSustain)
	if len(episodes) == 0 {
		return inconclusive(TemporalName,
			fmt.Sprintf("no sustained crossing of %s above %v in window; temporal ordering untestable",
				claims.IncidentMetric, claims.OnsetThreshold), 1)
	}

	// Multiple crossings are disambiguated by proximity to the
	// suspected time, not first occurrence: a transient spike hours
	// earlier must not be mistaken for the incident onset.
	onset := nearestEpisode(episodes, suspected).start

	earliestAllowed := suspected.Add(-s.cfg.Buffer)
	payload := struct {
		Metric          string    `json:"metric"`
		Onset           time.Time `json:"onset"`
		SuspectedTime   time.Time `json:"suspected_time"`
		Buffer          string    `json:"buffer"`
		EarliestAllowed time.Time `json:"earliest_allowed"`
	}{claims.IncidentMetric, onset, suspected, s.cfg.Buffer.String(), earliestAllowed}

	if onset.Before(earliestAllowed) {
		lead := suspected.Sub(onset)
		ev, evErr := newEvidence("metrics",
			fmt.Sprintf("sustained anomaly onset of %s at %s, %s before the suspected cause",
				claims.IncidentMetric, onset.Format(time.RFC3339), lead),
			payload, models.QualityDirect, models.PolarityContradicting)
		if evErr != nil {
			return inconclusive(TemporalName, fmt.Sprintf("evidence construction failed: %v", evErr), 1)
		}
		return conclusive(TemporalName, true,
			fmt.Sprintf("issue predates suspected cause: onset %s is %s before %s (buffer %s)",
				onset.Format(time.RFC3339), lead, suspected.Format(time.RFC3339), s.cfg.Buffer),
			[]models.Evidence{ev}, 1)
	}

	ev, evErr := newEvidence("metrics",
		fmt.Sprintf("sustained anomaly onset of %s at %s is consistent with the suspected cause",
			claims.IncidentMetric, onset.Format(time.RFC3339)),
		payload, models.QualityCorroborated, models.PolaritySupporting)
	if evErr != nil {
		return inconclusive(TemporalName, fmt.Sprintf("evidence construction failed: %v", evErr), 1)
	}
	return conclusive(TemporalName, false,
		fmt.Sprintf("anomaly onset %s does not precede suspected cause %s beyond the %s buffer",
			onset.Format(time.RFC3339), suspected.Format(time.RFC3339), s.cfg.Buffer),
		[]models.Evidence{ev}, 1)
}

// episode is a contiguous run of samples at or above the onset
// threshold.
type episode struct {
	start time.Time
	end   time.Time
}

func (e episode) duration() time.Duration {
	return e.end.Sub(e.start)
}

// findEpisodes scans the series for threshold crossings and keeps runs
// sustained for at least minSustain.
func findEpisodes(points []datasource.Point, threshold float64, minSustain time.Duration) []episode {
	var episodes []episode
	var current *episode

	for _, p := range points {
		if p.Value >= threshold {
			if current == nil {
				current = &episode{start: p.Timestamp, end: p.Timestamp}
			} else {
				current.end = p.Timestamp
			}
			continue
		}
		if current != nil {
			if current.duration() >= minSustain {
				episodes = append(episodes, *current)
			}
			current = nil
		}
	}
	if current != nil && current.duration() >= minSustain {
		episodes = append(episodes, *current)
	}
	return episodes
}

// nearestEpisode picks the episode whose onset is closest to the
// suspected time.
func nearestEpisode(episodes []episode, suspected time.Time) episode {
	best := episodes[0]
	bestDist := absDuration(best.start.Sub(suspected))
	for _, e := range episodes[1:] {
		if d := absDuration(e.start.Sub(suspected)); d < bestDist {
			best = e
			bestDist = d
		}
	}
	return best
}

// gapped reports whether the samples leave a hole larger than maxGap
// overlapping the suspected time, or do not cover it at all.
func gapped(points []datasource.Point, suspected time.Time, maxGap time.Duration) bool {
	if len(points) == 0 {
		return true
	}
	if points[0].Timestamp.After(suspected) || points[len(points)-1].Timestamp.Before(suspected) {
		return true
	}
	for i := 1; i < len(points); i++ {
		prev, next := points[i-1].Timestamp, points[i].Timestamp
		if next.Sub(prev) > maxGap && !suspected.Before(prev) && !suspected.After(next) {
			return true
		}
	}
	return false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
