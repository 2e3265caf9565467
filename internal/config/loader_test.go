package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/crucible/internal/strategy"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crucible.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
version: "1"
log_level: debug
datasource:
  prometheus_url: http://prometheus:9090
  query_timeout_seconds: 10
  cache_ttl_seconds: 30
  entity_label: service
engine:
  budget: 20
  parallelism: 2
  strategies:
    - metric_threshold
    - temporal_contradiction
calibration:
  initial_weight: 0.3
  evidence_weight: 0.7
  bonus_per_survival: 0.05
  max_survival_bonus: 0.3
  disproven_ceiling: 0.3
  rejection_floor: 0.1
strategies:
  temporal:
    buffer_seconds: 600
  scope:
    coverage_tolerance: 0.8
    service_catalog: [api, worker, db]
  threshold:
    tolerance: 0.1
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http://prometheus:9090", cfg.DataSource.PrometheusURL)
	assert.Equal(t, 20, cfg.Engine.Budget)
	assert.Equal(t, []string{strategy.ThresholdName, strategy.TemporalName}, cfg.StrategyOrder())
	assert.InDelta(t, 0.05, cfg.Calibration.BonusPerSurvival, 0.0001)

	temporal := cfg.TemporalStrategyConfig()
	assert.Equal(t, 10*time.Minute, temporal.Buffer)
	// Unset fields keep strategy defaults.
	assert.Equal(t, time.Hour, temporal.Window)

	scope := cfg.ScopeStrategyConfig()
	assert.InDelta(t, 0.8, scope.CoverageTolerance, 0.0001)
	assert.Equal(t, []string{"api", "worker", "db"}, scope.ServiceCatalog)

	assert.InDelta(t, 0.1, cfg.ThresholdStrategyConfig().Tolerance, 0.0001)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
version: "1"
datasource:
  prometheus_url: http://prometheus:9090
`))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30, cfg.DataSource.QueryTimeoutSeconds)
	assert.Equal(t, 50, cfg.Engine.Budget)
	assert.Equal(t, strategy.DefaultOrder(), cfg.StrategyOrder())
	assert.InDelta(t, 0.3, cfg.Calibration.InitialWeight, 0.0001)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "version: [unclosed"))
	require.Error(t, err)
}

func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "unsupported version",
			content: "version: \"2\"\ndatasource:\n  prometheus_url: http://p:9090\n",
			wantMsg: "unsupported config version",
		},
		{
			name:    "missing prometheus url",
			content: "version: \"1\"\n",
			wantMsg: "prometheus_url is required",
		},
		{
			name: "unknown strategy",
			content: `
version: "1"
datasource:
  prometheus_url: http://p:9090
engine:
  strategies: [voodoo]
`,
			wantMsg: "unknown strategy",
		},
		{
			name: "tracing without endpoint",
			content: `
version: "1"
datasource:
  prometheus_url: http://p:9090
tracing:
  enabled: true
`,
			wantMsg: "tracing.endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
