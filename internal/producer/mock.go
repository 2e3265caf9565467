package producer

import (
	"context"

	"github.com/probelab/crucible/internal/models"
)

// MockProvider is a scriptable Provider for tests.
type MockProvider struct {
	ProposeFn func(ctx context.Context, incident Incident) ([]*models.Hypothesis, error)
	Incidents []Incident
}

// Propose implements Provider.Propose.
func (m *MockProvider) Propose(ctx context.Context, incident Incident) ([]*models.Hypothesis, error) {
	m.Incidents = append(m.Incidents, incident)
	if m.ProposeFn == nil {
		return nil, nil
	}
	return m.ProposeFn(ctx, incident)
}

// Name implements Provider.Name.
func (m *MockProvider) Name() string {
	return "mock"
}
