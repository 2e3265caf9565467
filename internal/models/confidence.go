package models

// Calibration holds the tunable constants of the confidence calculation.
// The defaults are a starting calibration; exact values are configuration,
// the binding contract is the monotonicity of the calculation.
type Calibration struct {
	// InitialWeight is the blend weight of the initial confidence
	InitialWeight float64 `json:"initial_weight" yaml:"initial_weight"`

	// EvidenceWeight is the blend weight of the evidence score
	EvidenceWeight float64 `json:"evidence_weight" yaml:"evidence_weight"`

	// BonusPerSurvival is the confidence credit per survived disproof attempt
	BonusPerSurvival float64 `json:"bonus_per_survival" yaml:"bonus_per_survival"`

	// MaxSurvivalBonus caps the total survival bonus
	MaxSurvivalBonus float64 `json:"max_survival_bonus" yaml:"max_survival_bonus"`

	// DisprovenCeiling is the maximum confidence a disproven hypothesis
	// may report when the calculator is invoked for audit purposes
	DisprovenCeiling float64 `json:"disproven_ceiling" yaml:"disproven_ceiling"`

	// RejectionFloor is the confidence below which a hypothesis is
	// rejected without an explicit disproof
	RejectionFloor float64 `json:"rejection_floor" yaml:"rejection_floor"`

	// QualityWeights overrides the per-quality evidence weights.
	// Nil falls back to the package defaults.
	QualityWeights map[EvidenceQuality]float64 `json:"quality_weights,omitempty" yaml:"quality_weights"`
}

// DefaultCalibration returns the default scoring constants.
func DefaultCalibration() Calibration {
	return Calibration{
		InitialWeight:    0.3,
		EvidenceWeight:   0.7,
		BonusPerSurvival: 0.05,
		MaxSurvivalBonus: 0.3,
		DisprovenCeiling: 0.3,
		RejectionFloor:   0.1,
	}
}

// Validate checks that the calibration constants are usable.
func (c Calibration) Validate() error {
	if c.InitialWeight < 0 || c.EvidenceWeight < 0 {
		return NewValidationError("calibration weights must be non-negative")
	}
	if c.BonusPerSurvival < 0 || c.MaxSurvivalBonus < 0 {
		return NewValidationError("survival bonus constants must be non-negative")
	}
	if c.DisprovenCeiling < 0 || c.DisprovenCeiling > 1 {
		return NewValidationError("disproven ceiling must be in [0,1]")
	}
	if c.RejectionFloor < 0 || c.RejectionFloor > 1 {
		return NewValidationError("rejection floor must be in [0,1]")
	}
	for q, w := range c.QualityWeights {
		if !q.Valid() {
			return NewValidationError("unknown quality level %q in calibration", q)
		}
		if w <= 0 || w > 1 {
			return NewValidationError("quality weight for %s must be in (0,1]", q)
		}
	}
	return nil
}

func (c Calibration) qualityWeight(q EvidenceQuality) float64 {
	if c.QualityWeights != nil {
		if w, ok := c.QualityWeights[q]; ok {
			return w
		}
	}
	return q.Weight()
}

// Recalculate computes the confidence of a hypothesis from its initial
// confidence, accumulated evidence, and disproof history. It is a pure
// function: given the same inputs it always produces the same result,
// so recomputing over a deserialized hypothesis is idempotent.
//
// The hypothesis mutation methods are the only callers that may feed the
// result back into hypothesis state; no other component recomputes or
// assigns confidence.
func Recalculate(cal Calibration, initial float64, supporting, contradicting []Evidence, attempts []DisproofAttempt) float64 {
	// Quality-weighted evidence score, normalized by item count and
	// clamped to [-1,1] against pathological inputs.
	raw := 0.0
	for _, ev := range supporting {
		raw += cal.qualityWeight(ev.Quality)
	}
	for _, ev := range contradicting {
		raw -= cal.qualityWeight(ev.Quality)
	}
	count := len(supporting) + len(contradicting)
	if count == 0 {
		count = 1
	}
	evidenceScore := clamp(raw/float64(count), -1, 1)

	// Capped survival bonus. A survived attempt is one that did not
	// disprove the hypothesis.
	survived := 0
	disproven := false
	for _, attempt := range attempts {
		if attempt.Disproven {
			disproven = true
		} else {
			survived++
		}
	}
	bonus := float64(survived) * cal.BonusPerSurvival
	if bonus > cal.MaxSurvivalBonus {
		bonus = cal.MaxSurvivalBonus
	}

	confidence := clamp(cal.InitialWeight*initial+cal.EvidenceWeight*evidenceScore+bonus, 0, 1)

	// A disproven hypothesis cannot retain high confidence no matter
	// what later evidence says.
	if disproven && confidence > cal.DisprovenCeiling {
		confidence = cal.DisprovenCeiling
	}
	return confidence
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
