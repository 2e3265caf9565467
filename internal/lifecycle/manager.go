package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/probelab/crucible/internal/logging"
)

// Manager starts components in registration order and stops them in
// reverse, with a per-component shutdown timeout. Crucible's component
// graph is a short chain, so registration order is the dependency
// order.
type Manager struct {
	components      []Component
	started         []Component
	shutdownTimeout time.Duration
	mu              sync.Mutex
	logger          *logging.Logger
}

// NewManager creates a lifecycle manager with a 30-second shutdown
// timeout per component.
func NewManager() *Manager {
	return &Manager{
		shutdownTimeout: 30 * time.Second,
		logger:          logging.GetLogger("lifecycle"),
	}
}

// SetShutdownTimeout overrides the per-component shutdown timeout.
func (m *Manager) SetShutdownTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownTimeout = d
}

// Register adds a component. Components start in registration order,
// so dependencies must be registered before their dependents.
func (m *Manager) Register(component Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if component == nil {
		return fmt.Errorf("cannot register nil component")
	}
	if component.Name() == "" {
		return fmt.Errorf("component must have a non-empty name")
	}
	for _, c := range m.components {
		if c == component {
			return fmt.Errorf("component %s is already registered", component.Name())
		}
	}

	m.components = append(m.components, component)
	m.logger.Debug("registered component %s", component.Name())
	return nil
}

// Start starts all registered components in order. If one fails, the
// already-started components are stopped in reverse order and the
// error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = nil
	for _, component := range m.components {
		m.logger.Info("starting %s", component.Name())
		startTime := time.Now()

		if err := component.Start(ctx); err != nil {
			m.logger.Error("failed to start %s: %v", component.Name(), err)
			m.rollback()
			return fmt.Errorf("initialization failed for %s: %w", component.Name(), err)
		}

		m.started = append(m.started, component)
		m.logger.Info("%s started (took %dms)", component.Name(), time.Since(startTime).Milliseconds())
	}

	m.logger.Info("all components started")
	return nil
}

// rollback stops components started during a failed Start, in reverse
// order. Caller holds the lock.
func (m *Manager) rollback() {
	for i := len(m.started) - 1; i >= 0; i-- {
		component := m.started[i]
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := component.Stop(ctx); err != nil {
			m.logger.Warn("error stopping %s during rollback: %v", component.Name(), err)
		}
		cancel()
	}
	m.started = nil
}

// Stop stops all started components in reverse order. Each component
// gets its own deadline; stop errors are logged but do not abort the
// shutdown of the remaining components.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("stopping all components")

	for i := len(m.started) - 1; i >= 0; i-- {
		component := m.started[i]
		m.logger.Info("stopping %s", component.Name())

		componentCtx, cancel := context.WithTimeout(ctx, m.shutdownTimeout)
		if err := component.Stop(componentCtx); err != nil {
			m.logger.Warn("error stopping %s: %v", component.Name(), err)
		}
		cancel()
	}

	m.started = nil
	m.logger.Info("all components stopped")
	return nil
}
