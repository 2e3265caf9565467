package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/probelab/crucible/internal/config"
	"github.com/probelab/crucible/internal/datasource"
	"github.com/probelab/crucible/internal/engine"
	"github.com/probelab/crucible/internal/lifecycle"
	"github.com/probelab/crucible/internal/logging"
	"github.com/probelab/crucible/internal/strategy"
	"github.com/probelab/crucible/internal/tracing"
)

var (
	validateConfigPath     string
	validateHypothesesPath string
	validateOutputPath     string
	validateWatch          bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run disproof strategies against a set of hypotheses",
	Long: `Loads hypotheses from a YAML file and subjects each one to the
configured disproof strategies against live telemetry. Prints a JSON
report with the final status, confidence, and attempt trail of every
hypothesis.`,
	Run: func(cmd *cobra.Command, args []string) {
		HandleError(runValidate(), "validation failed")
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigPath, "config", "c", "crucible.yaml", "Path to the crucible config file")
	validateCmd.Flags().StringVarP(&validateHypothesesPath, "hypotheses", "f", "", "Path to the hypotheses YAML file (required)")
	validateCmd.Flags().StringVarP(&validateOutputPath, "output", "o", "-", "Report destination ('-' for stdout)")
	validateCmd.Flags().BoolVarP(&validateWatch, "watch", "w", false, "Stay running and re-validate when the config file changes")
	_ = validateCmd.MarkFlagRequired("hypotheses")
}

func runValidate() error {
	if err := setupLog(logLevelFlags); err != nil {
		return err
	}
	logger := logging.GetLogger("cli")

	cfg, err := config.Load(validateConfigPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	engineMetrics := engine.NewMetrics(registry, "crucible")

	tracingProvider, err := tracing.NewProvider(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		TLSCAPath:   cfg.Tracing.TLSCAPath,
		TLSInsecure: cfg.Tracing.TLSInsecure,
	})
	if err != nil {
		return err
	}

	manager := lifecycle.NewManager()
	if err := manager.Register(tracingProvider); err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		if err := manager.Register(newMetricsServer(registry, cfg.Metrics.Port)); err != nil {
			return err
		}
	}

	tracer := tracingProvider.Tracer("crucible/engine")
	runOnce := func(ctx context.Context, cfg *config.Config) error {
		return runValidation(ctx, cfg, engineMetrics, tracer, logger)
	}

	if validateWatch {
		// Tracing and metrics settings stay fixed for the process
		// lifetime; the watcher re-runs validation with the reloaded
		// engine, strategy, and data-source settings.
		var runMu sync.Mutex
		watcher, err := config.NewWatcher(config.WatcherConfig{FilePath: validateConfigPath},
			func(reloaded *config.Config) error {
				runMu.Lock()
				defer runMu.Unlock()
				if err := runOnce(ctx, reloaded); err != nil {
					logger.Error("validation run failed: %v", err)
					return err
				}
				return nil
			})
		if err != nil {
			return err
		}
		if err := manager.Register(watcher); err != nil {
			return err
		}
	}

	if err := manager.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = manager.Stop(stopCtx)
	}()

	if validateWatch {
		// Initial run happened during watcher startup; block until
		// interrupted.
		<-ctx.Done()
		return nil
	}
	return runOnce(ctx, cfg)
}

// runValidation executes one full validation pass: build the query
// chain and strategies from cfg, load the hypotheses file, run the
// engine, and write the report.
func runValidation(ctx context.Context, cfg *config.Config, metrics *engine.Metrics, tracer trace.Tracer, logger *logging.Logger) error {
	source, err := buildDataSource(cfg)
	if err != nil {
		return err
	}

	strategies, err := buildStrategies(cfg)
	if err != nil {
		return err
	}

	eng, err := engine.New(strategies, source,
		engine.Config{Budget: cfg.Engine.Budget, Parallelism: cfg.Engine.Parallelism},
		engine.WithMetrics(metrics),
		engine.WithTracer(tracer),
	)
	if err != nil {
		return err
	}

	hypotheses, err := loadHypotheses(validateHypothesesPath, cfg.Calibration)
	if err != nil {
		return err
	}

	logger.Info("validating %d hypotheses with %d strategies", len(hypotheses), len(strategies))

	session := engine.NewSession(cfg.Engine.Budget)
	results, err := eng.ValidateAll(ctx, hypotheses, session)
	if err != nil {
		return err
	}
	logger.Info("investigation spent %d query units", session.Spent())

	return writeReport(validateOutputPath, results)
}

// buildDataSource assembles the query chain: Prometheus client, per
// call timeouts, then an LRU cache in front.
func buildDataSource(cfg *config.Config) (datasource.DataSource, error) {
	client, err := datasource.NewPromClient(datasource.PromClientConfig{
		BaseURL:        cfg.DataSource.PrometheusURL,
		Token:          cfg.DataSource.Token,
		Step:           time.Duration(cfg.DataSource.StepSeconds) * time.Second,
		EntityLabel:    cfg.DataSource.EntityLabel,
		EntitySelector: cfg.DataSource.EntitySelector,
	}, logging.GetLogger("datasource.prom"))
	if err != nil {
		return nil, err
	}

	var source datasource.DataSource = client
	if cfg.DataSource.QueryTimeoutSeconds > 0 {
		source = datasource.WithTimeout(source, time.Duration(cfg.DataSource.QueryTimeoutSeconds)*time.Second)
	}
	if cfg.DataSource.CacheTTLSeconds > 0 {
		cached, err := datasource.NewCachedSource(source, datasource.CacheConfig{
			MaxEntries: cfg.DataSource.CacheSize,
			TTL:        time.Duration(cfg.DataSource.CacheTTLSeconds) * time.Second,
		}, logging.GetLogger("datasource.cache"))
		if err != nil {
			return nil, err
		}
		source = cached
	}
	return source, nil
}

// buildStrategies registers all strategies and resolves the configured
// execution order.
func buildStrategies(cfg *config.Config) ([]strategy.Strategy, error) {
	registry := strategy.NewRegistry()
	if err := registry.Register(strategy.NewTemporalStrategy(cfg.TemporalStrategyConfig())); err != nil {
		return nil, err
	}
	if err := registry.Register(strategy.NewScopeStrategy(cfg.ScopeStrategyConfig())); err != nil {
		return nil, err
	}
	if err := registry.Register(strategy.NewThresholdStrategy(cfg.ThresholdStrategyConfig())); err != nil {
		return nil, err
	}
	return registry.Ordered(cfg.StrategyOrder()...)
}

func writeReport(path string, results []engine.Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')

	if path == "-" || path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
