package models

// Snapshot is a point-in-time, JSON-serializable view of a hypothesis.
// The engine hands snapshots to downstream reporting verbatim; restoring
// a snapshot and recalculating yields the same confidence, since the
// calculator is a pure function of the snapshot's contents.
type Snapshot struct {
	ID                    string            `json:"id"`
	AgentID               string            `json:"agent_id"`
	Statement             string            `json:"statement"`
	InitialConfidence     float64           `json:"initial_confidence"`
	CurrentConfidence     float64           `json:"current_confidence"`
	AffectedSystems       []string          `json:"affected_systems,omitempty"`
	Claims                Claims            `json:"claims"`
	SupportingEvidence    []Evidence        `json:"supporting_evidence,omitempty"`
	ContradictingEvidence []Evidence        `json:"contradicting_evidence,omitempty"`
	DisproofAttempts      []DisproofAttempt `json:"disproof_attempts,omitempty"`
	Status                HypothesisStatus  `json:"status"`
	Calibration           Calibration       `json:"calibration"`
}

// Snapshot returns a defensive copy of the full hypothesis state.
func (h *Hypothesis) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	return Snapshot{
		ID:                    h.id,
		AgentID:               h.agentID,
		Statement:             h.statement,
		InitialConfidence:     h.initialConfidence,
		CurrentConfidence:     h.currentConfidence,
		AffectedSystems:       append([]string(nil), h.affectedSystems...),
		Claims:                h.claims.copy(),
		SupportingEvidence:    append([]Evidence(nil), h.supporting...),
		ContradictingEvidence: append([]Evidence(nil), h.contradicting...),
		DisproofAttempts:      append([]DisproofAttempt(nil), h.attempts...),
		Status:                h.status,
		Calibration:           h.cal,
	}
}

// RestoreHypothesis reconstructs a hypothesis from a snapshot, e.g. a
// deserialized audit record. The stored current confidence is discarded
// and recomputed from the snapshot's evidence and attempts.
func RestoreHypothesis(snap Snapshot) (*Hypothesis, error) {
	if snap.ID == "" {
		return nil, NewValidationError("snapshot ID must not be empty")
	}

	h, err := NewHypothesis(snap.AgentID, snap.Statement, snap.InitialConfidence,
		WithID(snap.ID),
		WithClaims(snap.Claims),
		WithAffectedSystems(snap.AffectedSystems...),
		WithCalibration(snap.Calibration),
	)
	if err != nil {
		return nil, err
	}

	for i, ev := range snap.SupportingEvidence {
		if err := ev.Validate(); err != nil {
			return nil, NewValidationError("supporting evidence[%d]: %s", i, err.Error())
		}
	}
	for i, ev := range snap.ContradictingEvidence {
		if err := ev.Validate(); err != nil {
			return nil, NewValidationError("contradicting evidence[%d]: %s", i, err.Error())
		}
	}
	for i, attempt := range snap.DisproofAttempts {
		if err := attempt.Validate(); err != nil {
			return nil, NewValidationError("disproof attempt[%d]: %s", i, err.Error())
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.supporting = append([]Evidence(nil), snap.SupportingEvidence...)
	h.contradicting = append([]Evidence(nil), snap.ContradictingEvidence...)
	h.attempts = append([]DisproofAttempt(nil), snap.DisproofAttempts...)
	h.status = snap.Status
	h.recalculate()
	return h, nil
}
