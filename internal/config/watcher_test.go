package config

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reloadRecorder collects configs delivered by the watcher.
type reloadRecorder struct {
	mu      sync.Mutex
	configs []*Config
	notify  chan struct{}
}

func newReloadRecorder() *reloadRecorder {
	return &reloadRecorder{notify: make(chan struct{}, 16)}
}

func (r *reloadRecorder) callback(cfg *Config) error {
	r.mu.Lock()
	r.configs = append(r.configs, cfg)
	r.mu.Unlock()
	r.notify <- struct{}{}
	return nil
}

func (r *reloadRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.configs)
}

func (r *reloadRecorder) last() *Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.configs) == 0 {
		return nil
	}
	return r.configs[len(r.configs)-1]
}

func (r *reloadRecorder) waitForReload(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherValidation(t *testing.T) {
	_, err := NewWatcher(WatcherConfig{}, func(*Config) error { return nil })
	require.Error(t, err)

	_, err = NewWatcher(WatcherConfig{FilePath: "/tmp/x.yaml"}, nil)
	require.Error(t, err)
}

func TestWatcherInitialLoadFailure(t *testing.T) {
	w, err := NewWatcher(WatcherConfig{FilePath: "/nonexistent/crucible.yaml"}, func(*Config) error { return nil })
	require.NoError(t, err)

	err = w.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial config")
}

func TestWatcherDeliversInitialAndReloadedConfig(t *testing.T) {
	path := writeConfig(t, validConfig)
	recorder := newReloadRecorder()

	w, err := NewWatcher(WatcherConfig{FilePath: path, DebounceMillis: 50}, recorder.callback)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	recorder.waitForReload(t, time.Second)
	require.Equal(t, 1, recorder.count())
	assert.Equal(t, 20, recorder.last().Engine.Budget)

	updated := strings.Replace(validConfig, "budget: 20", "budget: 99", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	recorder.waitForReload(t, 5*time.Second)
	assert.Equal(t, 99, recorder.last().Engine.Budget)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, w.Stop(stopCtx))
}

func TestWatcherKeepsPreviousConfigOnInvalidReload(t *testing.T) {
	path := writeConfig(t, validConfig)
	recorder := newReloadRecorder()

	w, err := NewWatcher(WatcherConfig{FilePath: path, DebounceMillis: 50}, recorder.callback)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	recorder.waitForReload(t, time.Second)

	require.NoError(t, os.WriteFile(path, []byte("version: [broken"), 0o644))

	// The broken file must not produce a callback.
	select {
	case <-recorder.notify:
		t.Fatal("unexpected reload with invalid config")
	case <-time.After(500 * time.Millisecond):
	}
	assert.Equal(t, 1, recorder.count())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, w.Stop(stopCtx))
}
