package models

// DisproofAttempt is the recorded outcome of running one falsification
// strategy against a hypothesis. Immutable once created.
type DisproofAttempt struct {
	// StrategyName identifies the strategy that produced the attempt
	StrategyName string `json:"strategy_name"`

	// Disproven is true when the strategy conclusively falsified the hypothesis
	Disproven bool `json:"disproven"`

	// Reasoning explains the outcome, including why an attempt was
	// inconclusive (missing metadata, query failure, data gap)
	Reasoning string `json:"reasoning"`

	// Evidence produced during the attempt. Empty for inconclusive or
	// failed attempts. Each item carries its own polarity; survival of
	// the attempt is never reinterpreted as supporting evidence.
	Evidence []Evidence `json:"evidence,omitempty"`

	// Cost is the resource units spent (query count)
	Cost int `json:"cost"`

	// Conclusive distinguishes a real test outcome from an attempt that
	// could not test the hypothesis at all. Downstream reports must not
	// present an inconclusive attempt as "survived testing".
	Conclusive bool `json:"conclusive"`
}

// Survived reports whether the attempt actually tested the hypothesis
// and failed to disprove it.
func (a DisproofAttempt) Survived() bool {
	return a.Conclusive && !a.Disproven
}

// Validate checks a deserialized attempt.
func (a DisproofAttempt) Validate() error {
	if a.StrategyName == "" {
		return NewValidationError("disproof attempt strategy name must not be empty")
	}
	if a.Cost < 0 {
		return NewValidationError("disproof attempt cost must be non-negative")
	}
	for i, ev := range a.Evidence {
		if err := ev.Validate(); err != nil {
			return NewValidationError("attempt evidence[%d]: %s", i, err.Error())
		}
	}
	return nil
}
