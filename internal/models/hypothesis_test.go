package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHypothesis(t *testing.T, opts ...HypothesisOption) *Hypothesis {
	t.Helper()
	h, err := NewHypothesis("agent-1", "deploy of checkout-v2 caused elevated error rate", 0.5, opts...)
	require.NoError(t, err)
	return h
}

func TestNewHypothesisValidation(t *testing.T) {
	tests := []struct {
		name       string
		agentID    string
		statement  string
		confidence float64
		wantErr    bool
	}{
		{"valid", "agent-1", "statement", 0.5, false},
		{"empty agent", "", "statement", 0.5, true},
		{"whitespace agent", "   ", "statement", 0.5, true},
		{"empty statement", "agent-1", "", 0.5, true},
		{"confidence below zero", "agent-1", "statement", -0.1, true},
		{"confidence above one", "agent-1", "statement", 1.1, true},
		{"confidence boundary zero", "agent-1", "statement", 0, false},
		{"confidence boundary one", "agent-1", "statement", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHypothesis(tt.agentID, tt.statement, tt.confidence)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusProposed, h.Status())
			assert.Equal(t, tt.confidence, h.CurrentConfidence())
			assert.NotEmpty(t, h.ID())
		})
	}
}

func TestAddEvidenceByPolarity(t *testing.T) {
	h := newTestHypothesis(t)
	require.NoError(t, h.Activate())

	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityDirect, PolaritySupporting)))
	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityWeak, PolarityContradicting)))

	assert.Len(t, h.SupportingEvidence(), 1)
	assert.Len(t, h.ContradictingEvidence(), 1)
	assert.GreaterOrEqual(t, h.CurrentConfidence(), 0.0)
	assert.LessOrEqual(t, h.CurrentConfidence(), 1.0)
}

func TestAddEvidenceRecalculates(t *testing.T) {
	h := newTestHypothesis(t)
	require.NoError(t, h.Activate())
	before := h.CurrentConfidence()

	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityDirect, PolaritySupporting)))
	assert.Greater(t, h.CurrentConfidence(), before)
}

func TestAddDisproofAttemptDisprovenIsTerminal(t *testing.T) {
	h := newTestHypothesis(t)
	require.NoError(t, h.Activate())

	err := h.AddDisproofAttempt(DisproofAttempt{
		StrategyName: "temporal_contradiction",
		Disproven:    true,
		Reasoning:    "issue predates suspected cause",
		Conclusive:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusDisproven, h.Status())
	assert.LessOrEqual(t, h.CurrentConfidence(), DefaultCalibration().DisprovenCeiling)
}

func TestAddDisproofAttemptSurvivedMovesToValidating(t *testing.T) {
	h := newTestHypothesis(t)
	require.NoError(t, h.Activate())

	require.NoError(t, h.AddDisproofAttempt(survivedAttempt("scope_verification")))
	assert.Equal(t, StatusValidating, h.Status())
}

func TestInconclusiveAttemptLeavesStatusUnchanged(t *testing.T) {
	h := newTestHypothesis(t)
	require.NoError(t, h.Activate())

	require.NoError(t, h.AddDisproofAttempt(DisproofAttempt{
		StrategyName: "metric_threshold",
		Disproven:    false,
		Reasoning:    "query timed out",
		Conclusive:   false,
	}))

	// An untestable hypothesis must be distinguishable from one that
	// survived testing.
	assert.Equal(t, StatusActive, h.Status())
}

// TestAttemptEvidencePolarityNotRederived guards against the upstream
// bug where surviving a disproof attempt was silently reinterpreted as
// supporting evidence. Contradicting evidence attached to a survived
// attempt must land in the contradicting list.
func TestAttemptEvidencePolarityNotRederived(t *testing.T) {
	h := newTestHypothesis(t)
	require.NoError(t, h.Activate())

	attempt := survivedAttempt("scope_verification")
	attempt.Evidence = []Evidence{
		mustEvidence(t, QualityIndirect, PolarityContradicting),
	}
	require.NoError(t, h.AddDisproofAttempt(attempt))

	assert.Empty(t, h.SupportingEvidence())
	assert.Len(t, h.ContradictingEvidence(), 1)
}

func TestTerminalStateBlocksMutation(t *testing.T) {
	h := newTestHypothesis(t)
	require.NoError(t, h.Activate())
	require.NoError(t, h.AddDisproofAttempt(DisproofAttempt{
		StrategyName: "temporal_contradiction",
		Disproven:    true,
		Reasoning:    "issue predates suspected cause",
		Conclusive:   true,
	}))
	require.Equal(t, StatusDisproven, h.Status())

	confidence := h.CurrentConfidence()
	supporting := len(h.SupportingEvidence())
	attempts := len(h.DisproofAttempts())

	evErr := h.AddEvidence(mustEvidence(t, QualityDirect, PolaritySupporting))
	atErr := h.AddDisproofAttempt(survivedAttempt("scope_verification"))
	actErr := h.Activate()

	assert.True(t, IsStateError(evErr))
	assert.True(t, IsStateError(atErr))
	assert.True(t, IsStateError(actErr))

	// State must be byte-for-byte unchanged after rejected mutations.
	assert.Equal(t, confidence, h.CurrentConfidence())
	assert.Equal(t, StatusDisproven, h.Status())
	assert.Len(t, h.SupportingEvidence(), supporting)
	assert.Len(t, h.DisproofAttempts(), attempts)
}

func TestRejectionFloorTransition(t *testing.T) {
	// Low prior plus direct contradicting evidence collapses confidence
	// below the floor and rejects without an explicit disproof.
	h, err := NewHypothesis("agent-1", "unlikely explanation", 0.1)
	require.NoError(t, err)
	require.NoError(t, h.Activate())

	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityDirect, PolarityContradicting)))

	assert.Equal(t, StatusRejected, h.Status())
	assert.Less(t, h.CurrentConfidence(), DefaultCalibration().RejectionFloor)

	// Rejected is terminal.
	assert.True(t, IsStateError(h.AddEvidence(mustEvidence(t, QualityDirect, PolaritySupporting))))
}

func TestActivateIdempotent(t *testing.T) {
	h := newTestHypothesis(t)
	require.NoError(t, h.Activate())
	require.NoError(t, h.Activate())
	assert.Equal(t, StatusActive, h.Status())
}

func TestSnapshotRoundTrip(t *testing.T) {
	suspected := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newTestHypothesis(t, WithClaims(Claims{
		SuspectedTime:  &suspected,
		IncidentMetric: "http_error_rate",
		OnsetThreshold: 0.05,
		Scope:          &ScopeClaim{Services: []string{"checkout", "payments"}},
		Thresholds: []ThresholdClaim{
			{Metric: "cpu_usage", Operator: OpGreaterThan, Threshold: 0.9},
		},
	}), WithAffectedSystems("checkout"))
	require.NoError(t, h.Activate())
	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityCorroborated, PolaritySupporting)))
	require.NoError(t, h.AddDisproofAttempt(survivedAttempt("scope_verification")))

	snap := h.Snapshot()
	payload, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(payload, &decoded))

	restored, err := RestoreHypothesis(decoded)
	require.NoError(t, err)

	// Recalculating over reconstructed state is deterministic.
	assert.InDelta(t, h.CurrentConfidence(), restored.CurrentConfidence(), 1e-9)
	assert.Equal(t, h.Status(), restored.Status())
	assert.Equal(t, h.ID(), restored.ID())
	assert.Len(t, restored.SupportingEvidence(), 1)
	assert.Len(t, restored.DisproofAttempts(), 1)
}

func TestSnapshotIsDefensiveCopy(t *testing.T) {
	h := newTestHypothesis(t, WithAffectedSystems("checkout"))
	snap := h.Snapshot()
	snap.AffectedSystems[0] = "mutated"

	assert.Equal(t, []string{"checkout"}, h.AffectedSystems())
}

func TestClaimsValidation(t *testing.T) {
	_, err := NewHypothesis("agent-1", "statement", 0.5, WithClaims(Claims{
		Scope: &ScopeClaim{},
	}))
	assert.Error(t, err)

	_, err = NewHypothesis("agent-1", "statement", 0.5, WithClaims(Claims{
		Thresholds: []ThresholdClaim{{Metric: "cpu", Operator: "!=", Threshold: 1}},
	}))
	assert.Error(t, err)
}
