// Package lifecycle orchestrates startup and shutdown of long-running
// components (config watcher, metrics server, tracing provider) in
// registration order.
package lifecycle

import "context"

// Component is the lifecycle interface all managed components
// implement.
type Component interface {
	// Start initializes and starts the component. Must be idempotent.
	Start(ctx context.Context) error

	// Stop gracefully stops the component within the context deadline.
	// A stop error must not prevent other components from stopping.
	Stop(ctx context.Context) error

	// Name returns the human-readable component name used in logs.
	Name() string
}
