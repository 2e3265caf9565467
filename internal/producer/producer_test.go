package producer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/crucible/internal/models"
)

func TestParseProposals(t *testing.T) {
	raw := []byte(`[
		{
			"statement": "deploy at 12:00 caused the error spike",
			"initial_confidence": 0.6,
			"suspected_time": "2026-03-01T12:00:00Z",
			"incident_metric": "http_error_rate",
			"onset_threshold": 0.05,
			"affected_systems": ["checkout"],
			"scope": {"services": ["checkout", "payments"]},
			"thresholds": [{"metric": "http_error_rate", "operator": ">", "threshold": 0.05}]
		},
		{
			"statement": "database connection pool exhaustion",
			"initial_confidence": 0.4
		}
	]`)

	hyps, err := parseProposals("anthropic:test-model", raw)
	require.NoError(t, err)
	require.Len(t, hyps, 2)

	h := hyps[0]
	assert.Equal(t, models.StatusProposed, h.Status())
	assert.Equal(t, "anthropic:test-model", h.AgentID())
	assert.InDelta(t, 0.6, h.InitialConfidence(), 0.0001)

	claims := h.Claims()
	require.NotNil(t, claims.SuspectedTime)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), *claims.SuspectedTime)
	assert.Equal(t, "http_error_rate", claims.IncidentMetric)
	require.NotNil(t, claims.Scope)
	assert.Equal(t, []string{"checkout", "payments"}, claims.Scope.Services)
	require.Len(t, claims.Thresholds, 1)
	assert.Equal(t, models.OpGreaterThan, claims.Thresholds[0].Operator)

	assert.Nil(t, hyps[1].Claims().SuspectedTime)
}

func TestParseProposalsSkipsMalformed(t *testing.T) {
	raw := []byte(`[
		{"statement": "", "initial_confidence": 0.5},
		{"statement": "valid hypothesis", "initial_confidence": 1.5},
		{"statement": "valid hypothesis", "initial_confidence": 0.5}
	]`)

	hyps, err := parseProposals("agent-1", raw)
	require.NoError(t, err)
	require.Len(t, hyps, 1)
	assert.Equal(t, "valid hypothesis", hyps[0].Statement())
}

func TestParseProposalsAllMalformed(t *testing.T) {
	_, err := parseProposals("agent-1", []byte(`[{"statement": "", "initial_confidence": 0.5}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable proposals")
}

func TestParseProposalsInvalidJSON(t *testing.T) {
	_, err := parseProposals("agent-1", []byte(`not json`))
	require.Error(t, err)
}

func TestParseProposalsEmptyArray(t *testing.T) {
	_, err := parseProposals("agent-1", []byte(`[]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no proposals")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare array", `[{"a":1}]`, `[{"a":1}]`},
		{"prose around array", "Here are the hypotheses:\n[{\"a\":1}]\nLet me know.", `[{"a":1}]`},
		{"no array", "nothing here", "nothing here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestIncidentValidate(t *testing.T) {
	assert.Error(t, Incident{}.Validate())
	assert.NoError(t, Incident{Description: "checkout errors spiked"}.Validate())
}
