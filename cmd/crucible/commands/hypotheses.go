package commands

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/probelab/crucible/internal/models"
)

// hypothesisSpec is the YAML schema of one hypothesis in the input
// file. Timestamps are RFC3339 strings.
type hypothesisSpec struct {
	AgentID           string   `yaml:"agent_id"`
	Statement         string   `yaml:"statement"`
	InitialConfidence float64  `yaml:"initial_confidence"`
	AffectedSystems   []string `yaml:"affected_systems"`

	Claims struct {
		SuspectedTime  string  `yaml:"suspected_time"`
		IncidentMetric string  `yaml:"incident_metric"`
		OnsetThreshold float64 `yaml:"onset_threshold"`

		Scope *struct {
			AllServices bool     `yaml:"all_services"`
			Services    []string `yaml:"services"`
		} `yaml:"scope"`

		Thresholds []struct {
			Metric    string  `yaml:"metric"`
			Operator  string  `yaml:"operator"`
			Threshold float64 `yaml:"threshold"`
		} `yaml:"thresholds"`
	} `yaml:"claims"`
}

// loadHypotheses reads the hypotheses input file and constructs
// hypotheses with the given calibration.
func loadHypotheses(path string, cal models.Calibration) ([]*models.Hypothesis, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load hypotheses from %q: %w", path, err)
	}

	var specs []hypothesisSpec
	if err := k.UnmarshalWithConf("hypotheses", &specs, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to parse hypotheses from %q: %w", path, err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no hypotheses found in %q", path)
	}

	out := make([]*models.Hypothesis, 0, len(specs))
	for i, spec := range specs {
		h, err := buildHypothesis(spec, cal)
		if err != nil {
			return nil, fmt.Errorf("hypothesis[%d]: %w", i, err)
		}
		out = append(out, h)
	}
	return out, nil
}

func buildHypothesis(spec hypothesisSpec, cal models.Calibration) (*models.Hypothesis, error) {
	claims := models.Claims{
		IncidentMetric: spec.Claims.IncidentMetric,
		OnsetThreshold: spec.Claims.OnsetThreshold,
	}

	if spec.Claims.SuspectedTime != "" {
		t, err := time.Parse(time.RFC3339, spec.Claims.SuspectedTime)
		if err != nil {
			return nil, fmt.Errorf("invalid suspected_time %q: %w", spec.Claims.SuspectedTime, err)
		}
		t = t.UTC()
		claims.SuspectedTime = &t
	}
	if spec.Claims.Scope != nil {
		claims.Scope = &models.ScopeClaim{
			AllServices: spec.Claims.Scope.AllServices,
			Services:    spec.Claims.Scope.Services,
		}
	}
	for _, tc := range spec.Claims.Thresholds {
		claims.Thresholds = append(claims.Thresholds, models.ThresholdClaim{
			Metric:    tc.Metric,
			Operator:  models.ComparisonOp(tc.Operator),
			Threshold: tc.Threshold,
		})
	}

	opts := []models.HypothesisOption{
		models.WithClaims(claims),
		models.WithCalibration(cal),
	}
	if len(spec.AffectedSystems) > 0 {
		opts = append(opts, models.WithAffectedSystems(spec.AffectedSystems...))
	}

	return models.NewHypothesis(spec.AgentID, spec.Statement, spec.InitialConfidence, opts...)
}
