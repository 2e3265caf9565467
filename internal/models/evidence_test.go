package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvidenceValidation(t *testing.T) {
	validTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		source   string
		ts       time.Time
		quality  EvidenceQuality
		polarity EvidencePolarity
		wantErr  bool
	}{
		{"valid", "metrics", validTime, QualityDirect, PolaritySupporting, false},
		{"empty source", "", validTime, QualityDirect, PolaritySupporting, true},
		{"zero timestamp", "metrics", time.Time{}, QualityDirect, PolaritySupporting, true},
		{"unknown quality", "metrics", validTime, "HEARSAY", PolaritySupporting, true},
		{"unknown polarity", "metrics", validTime, QualityDirect, "NEUTRAL", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := NewEvidence(tt.source, nil, "interpretation", tt.ts, tt.quality, tt.polarity)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, ev.ID)
			assert.Equal(t, time.UTC, ev.Timestamp.Location())
		})
	}
}

func TestNewEvidenceNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	local := time.Date(2026, 3, 1, 14, 0, 0, 0, loc)

	ev, err := NewEvidence("metrics", nil, "spike observed", local, QualityDirect, PolaritySupporting)
	require.NoError(t, err)

	assert.Equal(t, time.UTC, ev.Timestamp.Location())
	assert.True(t, ev.Timestamp.Equal(local))
}

func TestQualityWeightsOrdered(t *testing.T) {
	// The quality levels form a strict order of scoring weight.
	ordered := []EvidenceQuality{QualityDirect, QualityCorroborated, QualityIndirect, QualityCircumstantial, QualityWeak}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i-1].Weight(), ordered[i].Weight(),
			"%s should outweigh %s", ordered[i-1], ordered[i])
	}
	for _, q := range ordered {
		assert.Greater(t, q.Weight(), 0.0)
		assert.LessOrEqual(t, q.Weight(), 1.0)
	}
}

func TestDisproofAttemptValidate(t *testing.T) {
	valid := survivedAttempt("scope_verification")
	assert.NoError(t, valid.Validate())

	assert.Error(t, DisproofAttempt{Reasoning: "missing name"}.Validate())
	assert.Error(t, DisproofAttempt{StrategyName: "x", Cost: -1}.Validate())

	withBadEvidence := survivedAttempt("scope_verification")
	withBadEvidence.Evidence = []Evidence{{Source: "metrics"}}
	assert.Error(t, withBadEvidence.Validate())
}

func TestDisproofAttemptSurvived(t *testing.T) {
	assert.True(t, survivedAttempt("x").Survived())
	assert.False(t, DisproofAttempt{StrategyName: "x", Disproven: true, Conclusive: true}.Survived())
	// Inconclusive attempts did not test anything, so they did not "survive".
	assert.False(t, DisproofAttempt{StrategyName: "x", Disproven: false, Conclusive: false}.Survived())
}
