package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EvidenceQuality classifies how directly a piece of evidence bears on
// the hypothesis it belongs to. Qualities are ordered: DIRECT carries
// the most weight, WEAK the least.
type EvidenceQuality string

const (
	// QualityDirect is a first-hand observation of the claimed effect
	QualityDirect EvidenceQuality = "DIRECT"
	// QualityCorroborated is an observation confirmed by a second source
	QualityCorroborated EvidenceQuality = "CORROBORATED"
	// QualityIndirect is an observation of a downstream consequence
	QualityIndirect EvidenceQuality = "INDIRECT"
	// QualityCircumstantial is consistent with the claim but explainable otherwise
	QualityCircumstantial EvidenceQuality = "CIRCUMSTANTIAL"
	// QualityWeak is a marginal signal
	QualityWeak EvidenceQuality = "WEAK"
)

// defaultQualityWeights maps each quality level to its scoring weight.
// All weights are in (0,1]. Tunable through Calibration.
var defaultQualityWeights = map[EvidenceQuality]float64{
	QualityDirect:         1.0,
	QualityCorroborated:   0.8,
	QualityIndirect:       0.6,
	QualityCircumstantial: 0.4,
	QualityWeak:           0.1,
}

// Valid reports whether q is a known quality level.
func (q EvidenceQuality) Valid() bool {
	_, ok := defaultQualityWeights[q]
	return ok
}

// Weight returns the default scoring weight for the quality level.
func (q EvidenceQuality) Weight() float64 {
	return defaultQualityWeights[q]
}

// EvidencePolarity records whether evidence supports or contradicts the
// owning hypothesis.
type EvidencePolarity string

const (
	// PolaritySupporting evidence moves confidence upward
	PolaritySupporting EvidencePolarity = "SUPPORTING"
	// PolarityContradicting evidence moves confidence downward
	PolarityContradicting EvidencePolarity = "CONTRADICTING"
)

// Valid reports whether p is a known polarity.
func (p EvidencePolarity) Valid() bool {
	return p == PolaritySupporting || p == PolarityContradicting
}

// Evidence is a single observed fact. Immutable once created; treat
// values as read-only after NewEvidence returns.
type Evidence struct {
	// ID is a unique identifier for the evidence item
	ID string `json:"id"`

	// Source names the data feed that produced the observation
	Source string `json:"source"`

	// Data is the opaque structured payload backing the interpretation
	Data json.RawMessage `json:"data,omitempty"`

	// Interpretation is the human-readable claim about what the data shows
	Interpretation string `json:"interpretation"`

	// Timestamp is when the underlying fact was observed. Must be set;
	// construction fails on a zero timestamp. Stored in UTC.
	Timestamp time.Time `json:"timestamp"`

	// Quality is the quality level of the observation
	Quality EvidenceQuality `json:"quality"`

	// Polarity records whether the evidence supports or contradicts
	// the owning hypothesis
	Polarity EvidencePolarity `json:"polarity"`
}

// NewEvidence constructs a validated Evidence record.
// Returns a ValidationError if the timestamp is unset or quality or
// polarity are unknown.
func NewEvidence(source string, data json.RawMessage, interpretation string, ts time.Time, quality EvidenceQuality, polarity EvidencePolarity) (Evidence, error) {
	if source == "" {
		return Evidence{}, NewValidationError("evidence source must not be empty")
	}
	if ts.IsZero() {
		return Evidence{}, NewValidationError("evidence timestamp must be set")
	}
	if !quality.Valid() {
		return Evidence{}, NewValidationError("unknown evidence quality %q", quality)
	}
	if !polarity.Valid() {
		return Evidence{}, NewValidationError("unknown evidence polarity %q", polarity)
	}

	return Evidence{
		ID:             uuid.NewString(),
		Source:         source,
		Data:           data,
		Interpretation: interpretation,
		Timestamp:      ts.UTC(),
		Quality:        quality,
		Polarity:       polarity,
	}, nil
}

// Validate checks a deserialized Evidence record against the same
// invariants NewEvidence enforces.
func (e Evidence) Validate() error {
	if e.Source == "" {
		return NewValidationError("evidence source must not be empty")
	}
	if e.Timestamp.IsZero() {
		return NewValidationError("evidence timestamp must be set")
	}
	if !e.Quality.Valid() {
		return NewValidationError("unknown evidence quality %q", e.Quality)
	}
	if !e.Polarity.Valid() {
		return NewValidationError("unknown evidence polarity %q", e.Polarity)
	}
	return nil
}
