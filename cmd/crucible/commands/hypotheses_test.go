package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/crucible/internal/models"
)

func writeHypothesesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hypotheses.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadHypotheses(t *testing.T) {
	path := writeHypothesesFile(t, `
hypotheses:
  - agent_id: oncall
    statement: the 12:00 deploy caused the checkout error spike
    initial_confidence: 0.6
    affected_systems: [checkout]
    claims:
      suspected_time: "2026-03-01T12:00:00Z"
      incident_metric: http_error_rate
      onset_threshold: 0.05
      scope:
        services: [checkout, payments]
      thresholds:
        - metric: http_error_rate
          operator: ">"
          threshold: 0.05
  - agent_id: oncall
    statement: database connection pool exhaustion
    initial_confidence: 0.4
`)

	hyps, err := loadHypotheses(path, models.DefaultCalibration())
	require.NoError(t, err)
	require.Len(t, hyps, 2)

	h := hyps[0]
	assert.Equal(t, models.StatusProposed, h.Status())
	assert.Equal(t, "oncall", h.AgentID())

	claims := h.Claims()
	require.NotNil(t, claims.SuspectedTime)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), *claims.SuspectedTime)
	require.NotNil(t, claims.Scope)
	assert.Equal(t, []string{"checkout", "payments"}, claims.Scope.Services)
	require.Len(t, claims.Thresholds, 1)
	assert.Equal(t, models.OpGreaterThan, claims.Thresholds[0].Operator)

	assert.Nil(t, hyps[1].Claims().SuspectedTime)
}

func TestLoadHypothesesErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"empty file", "hypotheses: []\n", "no hypotheses"},
		{
			"bad timestamp",
			"hypotheses:\n  - agent_id: a\n    statement: s\n    initial_confidence: 0.5\n    claims:\n      suspected_time: yesterday\n",
			"invalid suspected_time",
		},
		{
			"confidence out of range",
			"hypotheses:\n  - agent_id: a\n    statement: s\n    initial_confidence: 1.5\n",
			"out of range",
		},
		{
			"unknown operator",
			"hypotheses:\n  - agent_id: a\n    statement: s\n    initial_confidence: 0.5\n    claims:\n      thresholds:\n        - metric: m\n          operator: \"~\"\n          threshold: 1\n",
			"operator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadHypotheses(writeHypothesesFile(t, tt.content), models.DefaultCalibration())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseLogLevelFlags(t *testing.T) {
	level, pkgs, err := parseLogLevelFlags([]string{"debug"})
	require.NoError(t, err)
	assert.Equal(t, "debug", level)
	assert.Empty(t, pkgs)

	level, pkgs, err = parseLogLevelFlags([]string{"default=warn", "strategy.temporal=debug"})
	require.NoError(t, err)
	assert.Equal(t, "warn", level)
	assert.Equal(t, map[string]string{"strategy.temporal": "debug"}, pkgs)

	_, _, err = parseLogLevelFlags([]string{"loud"})
	require.Error(t, err)
}
