package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/probelab/crucible/internal/logging"
)

// metricsServer exposes the Prometheus registry over HTTP and
// implements lifecycle.Component.
type metricsServer struct {
	server *http.Server
	logger *logging.Logger
}

func newMetricsServer(registry *prometheus.Registry, port int) *metricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &metricsServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logging.GetLogger("metrics"),
	}
}

func (m *metricsServer) Start(ctx context.Context) error {
	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("metrics server failed: %v", err)
		}
	}()
	m.logger.Info("metrics endpoint listening on %s/metrics", m.server.Addr)
	return nil
}

func (m *metricsServer) Stop(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}

func (m *metricsServer) Name() string {
	return "Metrics Server"
}
