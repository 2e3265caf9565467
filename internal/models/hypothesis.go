package models

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// HypothesisStatus is the state of a hypothesis in its validation
// lifecycle.
type HypothesisStatus string

const (
	// StatusProposed is the initial state set by the hypothesis producer
	StatusProposed HypothesisStatus = "PROPOSED"
	// StatusActive means validation has begun
	StatusActive HypothesisStatus = "ACTIVE"
	// StatusValidating means the hypothesis survived at least one
	// conclusive disproof attempt and remains eligible for more testing
	StatusValidating HypothesisStatus = "VALIDATING"
	// StatusDisproven is terminal: a strategy falsified the hypothesis
	StatusDisproven HypothesisStatus = "DISPROVEN"
	// StatusRejected is terminal: confidence collapsed below the
	// rejection floor without an explicit disproof
	StatusRejected HypothesisStatus = "REJECTED"
)

// Terminal reports whether the status permits no further mutation.
func (s HypothesisStatus) Terminal() bool {
	return s == StatusDisproven || s == StatusRejected
}

// Hypothesis is a candidate causal explanation for an incident. All
// mutable state is guarded by a mutex; AddEvidence and
// AddDisproofAttempt are the only operations that change the current
// confidence. There is deliberately no confidence setter: callers can
// influence the score only by submitting evidence or attempts.
type Hypothesis struct {
	mu sync.Mutex

	id                string
	agentID           string
	statement         string
	initialConfidence float64
	currentConfidence float64
	affectedSystems   []string
	claims            Claims
	supporting        []Evidence
	contradicting     []Evidence
	attempts          []DisproofAttempt
	status            HypothesisStatus
	cal               Calibration
}

// HypothesisOption customizes hypothesis construction.
type HypothesisOption func(*Hypothesis)

// WithClaims attaches strategy-specific claims.
func WithClaims(claims Claims) HypothesisOption {
	return func(h *Hypothesis) { h.claims = claims }
}

// WithAffectedSystems records the systems the hypothesis implicates.
func WithAffectedSystems(systems ...string) HypothesisOption {
	return func(h *Hypothesis) { h.affectedSystems = append([]string(nil), systems...) }
}

// WithCalibration overrides the default confidence calibration.
func WithCalibration(cal Calibration) HypothesisOption {
	return func(h *Hypothesis) { h.cal = cal }
}

// WithID sets an explicit hypothesis ID instead of a generated UUID.
func WithID(id string) HypothesisOption {
	return func(h *Hypothesis) { h.id = id }
}

// NewHypothesis constructs a hypothesis in the PROPOSED state with
// current confidence equal to the initial confidence.
//
// agentID attributes the hypothesis to its producer for audit and must
// be non-empty. initialConfidence must be in [0,1].
func NewHypothesis(agentID, statement string, initialConfidence float64, opts ...HypothesisOption) (*Hypothesis, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, NewValidationError("agent ID must not be empty")
	}
	if statement == "" {
		return nil, NewValidationError("hypothesis statement must not be empty")
	}
	if initialConfidence < 0 || initialConfidence > 1 {
		return nil, NewValidationError("initial confidence %v out of range [0,1]", initialConfidence)
	}

	h := &Hypothesis{
		id:                uuid.NewString(),
		agentID:           agentID,
		statement:         statement,
		initialConfidence: initialConfidence,
		currentConfidence: initialConfidence,
		status:            StatusProposed,
		cal:               DefaultCalibration(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.claims.Validate(); err != nil {
		return nil, err
	}
	if err := h.cal.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// ID returns the hypothesis identifier.
func (h *Hypothesis) ID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.id
}

// AgentID returns the producing agent's identifier.
func (h *Hypothesis) AgentID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.agentID
}

// Statement returns the causal statement under test.
func (h *Hypothesis) Statement() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statement
}

// Status returns the current lifecycle state.
func (h *Hypothesis) Status() HypothesisStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// InitialConfidence returns the producer-assigned prior.
func (h *Hypothesis) InitialConfidence() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initialConfidence
}

// CurrentConfidence returns the derived confidence. Read-only: it
// changes only through AddEvidence and AddDisproofAttempt.
func (h *Hypothesis) CurrentConfidence() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentConfidence
}

// Claims returns a copy of the strategy-specific claims.
func (h *Hypothesis) Claims() Claims {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.claims.copy()
}

// AffectedSystems returns a copy of the implicated system identifiers.
func (h *Hypothesis) AffectedSystems() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.affectedSystems...)
}

// SupportingEvidence returns a copy of the supporting evidence list.
func (h *Hypothesis) SupportingEvidence() []Evidence {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Evidence(nil), h.supporting...)
}

// ContradictingEvidence returns a copy of the contradicting evidence list.
func (h *Hypothesis) ContradictingEvidence() []Evidence {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Evidence(nil), h.contradicting...)
}

// DisproofAttempts returns a copy of the attempt history.
func (h *Hypothesis) DisproofAttempts() []DisproofAttempt {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]DisproofAttempt(nil), h.attempts...)
}

// Activate transitions PROPOSED to ACTIVE when testing begins.
// Activating an already-active or validating hypothesis is a no-op;
// activating a terminal one is a StateError.
func (h *Hypothesis) Activate() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status.Terminal() {
		return &StateError{HypothesisID: h.id, Status: h.status, Operation: "activate"}
	}
	if h.status == StatusProposed {
		h.status = StatusActive
	}
	return nil
}

// AddEvidence appends evidence to the list matching its polarity and
// recalculates confidence. Fails closed with a StateError if the
// hypothesis is terminal; the guard lives here, not with callers,
// because concurrent short-circuit paths make check-then-act racy.
func (h *Hypothesis) AddEvidence(ev Evidence) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status.Terminal() {
		return &StateError{HypothesisID: h.id, Status: h.status, Operation: "add evidence"}
	}

	h.appendByPolarity(ev)
	h.recalculate()
	return nil
}

// AddDisproofAttempt records a strategy outcome as a single atomic
// state transition. Evidence carried by the attempt is filed by each
// item's own polarity; a survived attempt is never reinterpreted as
// supporting evidence. A disproven attempt forces DISPROVEN regardless
// of the computed confidence. Fails closed with a StateError if the
// hypothesis is already terminal.
func (h *Hypothesis) AddDisproofAttempt(attempt DisproofAttempt) error {
	if err := attempt.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status.Terminal() {
		return &StateError{HypothesisID: h.id, Status: h.status, Operation: "add disproof attempt"}
	}

	h.attempts = append(h.attempts, attempt)
	for _, ev := range attempt.Evidence {
		h.appendByPolarity(ev)
	}

	h.recalculate()

	if attempt.Disproven {
		h.status = StatusDisproven
	} else if attempt.Survived() && !h.status.Terminal() {
		h.status = StatusValidating
	}
	return nil
}

func (h *Hypothesis) appendByPolarity(ev Evidence) {
	if ev.Polarity == PolarityContradicting {
		h.contradicting = append(h.contradicting, ev)
	} else {
		h.supporting = append(h.supporting, ev)
	}
}

// recalculate refreshes currentConfidence and applies the automatic
// rejection transition. Callers must hold h.mu.
func (h *Hypothesis) recalculate() {
	h.currentConfidence = Recalculate(h.cal, h.initialConfidence, h.supporting, h.contradicting, h.attempts)
	if h.currentConfidence < h.cal.RejectionFloor && !h.status.Terminal() {
		h.status = StatusRejected
	}
}

func (c Claims) copy() Claims {
	out := c
	if c.SuspectedTime != nil {
		t := *c.SuspectedTime
		out.SuspectedTime = &t
	}
	if c.Scope != nil {
		scope := ScopeClaim{
			AllServices: c.Scope.AllServices,
			Services:    append([]string(nil), c.Scope.Services...),
		}
		out.Scope = &scope
	}
	out.Thresholds = append([]ThresholdClaim(nil), c.Thresholds...)
	return out
}
