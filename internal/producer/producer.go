// Package producer turns an incident description into candidate
// hypotheses. Producers only propose: every hypothesis leaves here in
// the PROPOSED state with a stated initial confidence, and earns or
// loses the rest under validation.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/probelab/crucible/internal/models"
)

// Incident describes what the operator observed.
type Incident struct {
	// Description is the free-form incident summary
	Description string `json:"description"`

	// ObservedAt is when the incident was noticed
	ObservedAt time.Time `json:"observed_at"`

	// Symptoms are observed facts (alerts, error messages, metric
	// names) the producer may cite
	Symptoms []string `json:"symptoms,omitempty"`

	// Services are the services known to be involved
	Services []string `json:"services,omitempty"`
}

// Validate checks the incident is usable.
func (i Incident) Validate() error {
	if i.Description == "" {
		return models.NewValidationError("incident description cannot be empty")
	}
	return nil
}

// Provider proposes hypotheses for an incident.
type Provider interface {
	// Propose returns candidate hypotheses in the PROPOSED state
	Propose(ctx context.Context, incident Incident) ([]*models.Hypothesis, error)

	// Name returns the provider name for logging and display
	Name() string
}

// proposal is the wire schema a model-backed provider must emit.
type proposal struct {
	Statement         string    `json:"statement"`
	InitialConfidence float64   `json:"initial_confidence"`
	SuspectedTime     time.Time `json:"suspected_time,omitempty"`
	IncidentMetric    string    `json:"incident_metric,omitempty"`
	OnsetThreshold    float64   `json:"onset_threshold,omitempty"`
	AffectedSystems   []string  `json:"affected_systems,omitempty"`

	Scope *struct {
		AllServices bool     `json:"all_services,omitempty"`
		Services    []string `json:"services,omitempty"`
	} `json:"scope,omitempty"`

	Thresholds []struct {
		Metric    string  `json:"metric"`
		Operator  string  `json:"operator"`
		Threshold float64 `json:"threshold"`
	} `json:"thresholds,omitempty"`
}

// parseProposals decodes a provider's JSON output into hypotheses.
// Individual malformed proposals are skipped; an empty result after
// skipping is an error.
func parseProposals(agentID string, raw []byte) ([]*models.Hypothesis, error) {
	var proposals []proposal
	if err := json.Unmarshal(raw, &proposals); err != nil {
		return nil, fmt.Errorf("failed to parse proposals: %w", err)
	}

	var out []*models.Hypothesis
	var lastErr error
	for _, p := range proposals {
		h, err := buildHypothesis(agentID, p)
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, h)
	}

	if len(out) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("no usable proposals: %w", lastErr)
		}
		return nil, fmt.Errorf("provider returned no proposals")
	}
	return out, nil
}

func buildHypothesis(agentID string, p proposal) (*models.Hypothesis, error) {
	claims := models.Claims{
		IncidentMetric: p.IncidentMetric,
		OnsetThreshold: p.OnsetThreshold,
	}
	if !p.SuspectedTime.IsZero() {
		t := p.SuspectedTime.UTC()
		claims.SuspectedTime = &t
	}
	if p.Scope != nil {
		claims.Scope = &models.ScopeClaim{
			AllServices: p.Scope.AllServices,
			Services:    p.Scope.Services,
		}
	}
	for _, tc := range p.Thresholds {
		claims.Thresholds = append(claims.Thresholds, models.ThresholdClaim{
			Metric:    tc.Metric,
			Operator:  models.ComparisonOp(tc.Operator),
			Threshold: tc.Threshold,
		})
	}

	opts := []models.HypothesisOption{models.WithClaims(claims)}
	if len(p.AffectedSystems) > 0 {
		opts = append(opts, models.WithAffectedSystems(p.AffectedSystems...))
	}

	return models.NewHypothesis(agentID, p.Statement, p.InitialConfidence, opts...)
}
