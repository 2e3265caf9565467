// Package engine orchestrates validation runs: it activates a
// hypothesis, executes the configured disproof strategies in order,
// files every attempt back into the hypothesis, and accounts the
// outcome. The engine never computes confidence itself; the hypothesis
// is the single authority for its own score.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/probelab/crucible/internal/datasource"
	"github.com/probelab/crucible/internal/logging"
	"github.com/probelab/crucible/internal/models"
	"github.com/probelab/crucible/internal/strategy"
)

// Config holds the engine tunables.
type Config struct {
	// Budget is the query-unit ceiling used when the caller supplies
	// no session of its own; zero or negative means unlimited
	Budget int

	// Parallelism bounds concurrent hypothesis validations in
	// ValidateAll
	Parallelism int
}

// DefaultConfig returns the default engine tunables.
func DefaultConfig() Config {
	return Config{
		Budget:      50,
		Parallelism: 4,
	}
}

// Result summarizes one validation run. Attempts appear in execution
// order; strategies skipped by a short circuit are not represented.
type Result struct {
	HypothesisID string                   `json:"hypothesis_id"`
	Statement    string                   `json:"statement"`
	Status       models.HypothesisStatus  `json:"status"`
	Confidence   float64                  `json:"confidence"`
	Attempts     []models.DisproofAttempt `json:"attempts"`

	// Conclusive counts attempts that genuinely tested the hypothesis;
	// Inconclusive counts those that could not.
	Conclusive   int `json:"conclusive"`
	Inconclusive int `json:"inconclusive"`

	// ShortCircuited is set when a disproof ended the run before all
	// strategies executed.
	ShortCircuited bool `json:"short_circuited"`

	// BudgetSpent is the number of query units this run charged
	// against the investigation session.
	BudgetSpent int           `json:"budget_spent"`
	Duration    time.Duration `json:"duration"`
}

// Survived reports whether the hypothesis came through the run
// untouched by any disproof.
func (r Result) Survived() bool {
	return r.Status != models.StatusDisproven && r.Status != models.StatusRejected && r.Conclusive > 0
}

// Engine runs disproof strategies against hypotheses.
type Engine struct {
	strategies []strategy.Strategy
	source     datasource.DataSource
	cfg        Config
	metrics    *Metrics
	tracer     trace.Tracer
	logger     *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches Prometheus metrics to the engine.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer attaches an OpenTelemetry tracer to the engine.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// New creates a validation engine over the given strategies and data
// source.
func New(strategies []strategy.Strategy, source datasource.DataSource, cfg Config, opts ...Option) (*Engine, error) {
	if len(strategies) == 0 {
		return nil, fmt.Errorf("engine requires at least one strategy")
	}
	if source == nil {
		return nil, fmt.Errorf("engine requires a data source")
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultConfig().Parallelism
	}

	e := &Engine{
		strategies: strategies,
		source:     source,
		cfg:        cfg,
		logger:     logging.GetLogger("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Validate runs every configured strategy against the hypothesis in
// order. A PROPOSED hypothesis is activated first. Each attempt is
// filed into the hypothesis, which recalculates its own confidence; a
// disproof short-circuits the remaining strategies. Context
// cancellation is honored between attempts.
//
// The session is the investigation-level budget counter, owned by the
// caller and shared across every hypothesis of one investigation. A
// nil session gets a fresh per-run counter with the configured ceiling.
func (e *Engine) Validate(ctx context.Context, h *models.Hypothesis, session *Session) (Result, error) {
	start := time.Now()

	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "engine.Validate")
		defer span.End()
		span.SetAttributes(
			attribute.String("hypothesis.id", h.ID()),
			attribute.String("hypothesis.agent_id", h.AgentID()),
		)
	}

	if h.Status() == models.StatusProposed {
		if err := h.Activate(); err != nil {
			return Result{}, fmt.Errorf("failed to activate hypothesis %s: %w", h.ID(), err)
		}
	}
	if h.Status().Terminal() {
		return Result{}, &models.StateError{
			HypothesisID: h.ID(),
			Status:       h.Status(),
			Operation:    "validate",
		}
	}

	if session == nil {
		session = NewSession(e.cfg.Budget)
	}
	result := Result{
		HypothesisID: h.ID(),
		Statement:    h.Statement(),
	}

	e.logger.InfoWithFields("starting validation run",
		logging.Field("hypothesis_id", h.ID()),
		logging.Field("strategies", len(e.strategies)),
		logging.Field("budget", e.cfg.Budget),
	)

	for i, strat := range e.strategies {
		if err := ctx.Err(); err != nil {
			e.finish(&result, h, start, span)
			return result, fmt.Errorf("validation cancelled after %d of %d strategies: %w", i, len(e.strategies), err)
		}

		attempt := e.runStrategy(ctx, strat, h, session)

		// The hypothesis's own audit trail is authoritative: an
		// attempt enters the report only once it is filed, so a
		// terminal race cannot leave the report holding an attempt
		// the hypothesis never recorded.
		if err := h.AddDisproofAttempt(attempt); err != nil {
			e.logger.WarnWithFields("attempt not filed",
				logging.Field("hypothesis_id", h.ID()),
				logging.Field("strategy", strat.Name()),
				logging.Field("error", err.Error()),
			)
			break
		}

		result.Attempts = append(result.Attempts, attempt)
		if attempt.Conclusive {
			result.Conclusive++
		} else {
			result.Inconclusive++
		}
		if e.metrics != nil {
			e.metrics.AttemptsTotal.WithLabelValues(strat.Name(), attemptOutcome(attempt.Disproven, attempt.Conclusive)).Inc()
		}

		if h.Status().Terminal() {
			result.ShortCircuited = i < len(e.strategies)-1
			e.logger.InfoWithFields("hypothesis reached terminal status, stopping run",
				logging.Field("hypothesis_id", h.ID()),
				logging.Field("status", string(h.Status())),
				logging.Field("strategy", strat.Name()),
			)
			break
		}
	}

	e.finish(&result, h, start, span)
	return result, nil
}

// runStrategy executes one strategy with its own span.
func (e *Engine) runStrategy(ctx context.Context, strat strategy.Strategy, h *models.Hypothesis, session *Session) models.DisproofAttempt {
	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "engine.Attempt",
			trace.WithAttributes(attribute.String("strategy", strat.Name())))
		defer span.End()
	}

	attempt := strat.AttemptDisproof(ctx, h, e.source, session)

	if span != nil {
		span.SetAttributes(
			attribute.Bool("attempt.disproven", attempt.Disproven),
			attribute.Bool("attempt.conclusive", attempt.Conclusive),
			attribute.Int("attempt.cost", attempt.Cost),
		)
	}
	return attempt
}

func (e *Engine) finish(result *Result, h *models.Hypothesis, start time.Time, span trace.Span) {
	result.Status = h.Status()
	result.Confidence = h.CurrentConfidence()
	// The session counter is shared across the investigation; this
	// run's own charge is the sum of its attempt costs.
	for _, attempt := range result.Attempts {
		result.BudgetSpent += attempt.Cost
	}
	result.Duration = time.Since(start)

	if e.metrics != nil {
		e.metrics.ValidationsTotal.WithLabelValues(string(result.Status)).Inc()
		e.metrics.QueryUnitsTotal.Add(float64(result.BudgetSpent))
		e.metrics.RunDuration.Observe(result.Duration.Seconds())
	}
	if span != nil {
		span.SetAttributes(
			attribute.String("hypothesis.status", string(result.Status)),
			attribute.Float64("hypothesis.confidence", result.Confidence),
			attribute.Int("run.budget_spent", result.BudgetSpent),
		)
	}

	e.logger.InfoWithFields("validation run finished",
		logging.Field("hypothesis_id", result.HypothesisID),
		logging.Field("status", string(result.Status)),
		logging.Field("confidence", result.Confidence),
		logging.Field("conclusive", result.Conclusive),
		logging.Field("inconclusive", result.Inconclusive),
		logging.Field("budget_spent", result.BudgetSpent),
	)
}

// ValidateAll validates a batch of hypotheses with bounded
// parallelism. Results are returned in input order. A failed run
// cancels the remaining ones.
//
// All runs charge the same session, so the ceiling bounds the whole
// investigation, not each hypothesis. A nil session gets a fresh
// counter with the configured ceiling, still shared across the batch.
func (e *Engine) ValidateAll(ctx context.Context, hypotheses []*models.Hypothesis, session *Session) ([]Result, error) {
	if session == nil {
		session = NewSession(e.cfg.Budget)
	}
	results := make([]Result, len(hypotheses))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)

	for i, h := range hypotheses {
		g.Go(func() error {
			res, err := e.Validate(ctx, h, session)
			if err != nil {
				return fmt.Errorf("hypothesis %s: %w", h.ID(), err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
