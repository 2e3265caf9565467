package producer

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/probelab/crucible/internal/logging"
	"github.com/probelab/crucible/internal/models"
)

const systemPrompt = `You are an SRE assistant generating falsifiable root-cause hypotheses for a production incident.

Respond with ONLY a JSON array. Each element:
{
  "statement": "specific, falsifiable causal claim",
  "initial_confidence": 0.0-1.0,
  "suspected_time": "RFC3339 timestamp of the suspected cause",
  "incident_metric": "metric name whose anomaly defines the incident",
  "onset_threshold": number,
  "affected_systems": ["service", ...],
  "scope": {"all_services": false, "services": ["service", ...]},
  "thresholds": [{"metric": "name", "operator": ">", "threshold": number}]
}

Every claim must be checkable against metrics. Make statements specific enough to be disproven. Omit fields you cannot ground in the incident description.`

// AnthropicConfig configures the Anthropic-backed producer.
type AnthropicConfig struct {
	// Model is the model identifier
	Model string

	// MaxTokens bounds the response size
	MaxTokens int

	// MaxProposals caps the number of hypotheses requested
	MaxProposals int
}

// DefaultAnthropicConfig returns sensible defaults.
func DefaultAnthropicConfig() AnthropicConfig {
	return AnthropicConfig{
		Model:        "claude-sonnet-4-5-20250929",
		MaxTokens:    4096,
		MaxProposals: 5,
	}
}

// AnthropicProducer proposes hypotheses using the Anthropic API.
type AnthropicProducer struct {
	client anthropic.Client
	config AnthropicConfig
	logger *logging.Logger
}

// NewAnthropicProducer creates a producer. The API key is read from
// the ANTHROPIC_API_KEY environment variable by default.
func NewAnthropicProducer(cfg AnthropicConfig) *AnthropicProducer {
	def := DefaultAnthropicConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.MaxProposals == 0 {
		cfg.MaxProposals = def.MaxProposals
	}

	return &AnthropicProducer{
		client: anthropic.NewClient(),
		config: cfg,
		logger: logging.GetLogger("producer.anthropic"),
	}
}

// NewAnthropicProducerWithKey creates a producer with an explicit API
// key.
func NewAnthropicProducerWithKey(apiKey string, cfg AnthropicConfig) *AnthropicProducer {
	p := NewAnthropicProducer(cfg)
	p.client = anthropic.NewClient(option.WithAPIKey(apiKey))
	return p
}

// Name implements Provider.Name.
func (p *AnthropicProducer) Name() string {
	return "anthropic"
}

// Propose implements Provider.Propose.
func (p *AnthropicProducer) Propose(ctx context.Context, incident Incident) ([]*models.Hypothesis, error) {
	if err := incident.Validate(); err != nil {
		return nil, err
	}

	prompt := p.buildPrompt(incident)

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(p.config.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	hypotheses, err := parseProposals("anthropic:"+p.config.Model, []byte(extractJSON(text.String())))
	if err != nil {
		return nil, err
	}

	p.logger.InfoWithFields("proposed hypotheses",
		logging.Field("count", len(hypotheses)),
		logging.Field("model", p.config.Model),
	)
	return hypotheses, nil
}

func (p *AnthropicProducer) buildPrompt(incident Incident) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Incident observed at %s:\n%s\n", incident.ObservedAt.UTC().Format("2006-01-02T15:04:05Z"), incident.Description)
	if len(incident.Symptoms) > 0 {
		b.WriteString("\nSymptoms:\n")
		for _, s := range incident.Symptoms {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	if len(incident.Services) > 0 {
		fmt.Fprintf(&b, "\nServices involved: %s\n", strings.Join(incident.Services, ", "))
	}
	fmt.Fprintf(&b, "\nPropose up to %d hypotheses.", p.config.MaxProposals)
	return b.String()
}

// extractJSON strips any prose around the outermost JSON array.
func extractJSON(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
