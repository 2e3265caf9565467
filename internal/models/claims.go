package models

import "time"

// ComparisonOp is the operator of a metric threshold claim.
type ComparisonOp string

const (
	OpGreaterThan    ComparisonOp = ">"
	OpGreaterOrEqual ComparisonOp = ">="
	OpLessThan       ComparisonOp = "<"
	OpLessOrEqual    ComparisonOp = "<="
	OpEqual          ComparisonOp = "=="
)

// Valid reports whether op is a known comparison operator.
func (op ComparisonOp) Valid() bool {
	switch op {
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual, OpEqual:
		return true
	}
	return false
}

// ThresholdClaim asserts that a metric currently satisfies a comparison.
type ThresholdClaim struct {
	Metric    string       `json:"metric" yaml:"metric"`
	Operator  ComparisonOp `json:"operator" yaml:"operator"`
	Threshold float64      `json:"threshold" yaml:"threshold"`
}

// Validate checks the claim fields.
func (c ThresholdClaim) Validate() error {
	if c.Metric == "" {
		return NewValidationError("threshold claim metric must not be empty")
	}
	if !c.Operator.Valid() {
		return NewValidationError("unknown comparison operator %q", c.Operator)
	}
	return nil
}

// ScopeClaim asserts which services an incident affected: either an
// explicit list of service identifiers, or all known services.
type ScopeClaim struct {
	// AllServices claims the incident affected every known service
	AllServices bool `json:"all_services" yaml:"all_services"`

	// Services is the explicit list of claimed service identifiers.
	// Ignored when AllServices is set.
	Services []string `json:"services,omitempty" yaml:"services"`
}

// Validate checks the claim fields.
func (c ScopeClaim) Validate() error {
	if !c.AllServices && len(c.Services) == 0 {
		return NewValidationError("scope claim must list services or claim all services")
	}
	return nil
}

// Claims carries the strategy-specific assertions of a hypothesis.
// A strategy that finds its required claim missing returns an
// inconclusive attempt rather than failing the engine.
type Claims struct {
	// SuspectedTime is the claimed causal time of the incident
	SuspectedTime *time.Time `json:"suspected_time,omitempty" yaml:"suspected_time"`

	// IncidentMetric names the metric whose anomalous behavior marks
	// the incident onset
	IncidentMetric string `json:"incident_metric,omitempty" yaml:"incident_metric"`

	// OnsetThreshold is the value above which IncidentMetric is
	// considered anomalous. Must be positive for the temporal claim to
	// be testable; zero means no threshold was claimed.
	OnsetThreshold float64 `json:"onset_threshold,omitempty" yaml:"onset_threshold"`

	// Scope is the claimed blast radius
	Scope *ScopeClaim `json:"scope,omitempty" yaml:"scope"`

	// Thresholds are zero or more metric threshold claims
	Thresholds []ThresholdClaim `json:"thresholds,omitempty" yaml:"thresholds"`
}

// Validate checks every populated claim.
func (c Claims) Validate() error {
	if c.Scope != nil {
		if err := c.Scope.Validate(); err != nil {
			return err
		}
	}
	for i, tc := range c.Thresholds {
		if err := tc.Validate(); err != nil {
			return NewValidationError("threshold claim[%d]: %s", i, err.Error())
		}
	}
	return nil
}
