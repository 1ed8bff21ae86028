package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/sessiongate/internal/observability"
)

const validWatchedYAML = `
sessions:
  type: memory
systems:
  billing: {}
`

const reloadedWatchedYAML = `
sessions:
  type: memory
systems:
  billing: {}
  crm: {}
`

const invalidWatchedYAML = `
sessions:
  type: cassandra
`

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

type configRecorder struct {
	mu      sync.Mutex
	configs []*Config
	errs    []error
}

func (r *configRecorder) onConfig(cfg *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
}

func (r *configRecorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *configRecorder) last() *Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.configs) == 0 {
		return nil
	}
	return r.configs[len(r.configs)-1]
}

func (r *configRecorder) errCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func newTestWatcher(t *testing.T, content string) (*Watcher, *configRecorder, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sessiongate.yaml")
	writeConfigFile(t, path, content)

	rec := &configRecorder{}
	w, err := NewWatcher(path, rec.onConfig,
		WithDebounceDelay(10*time.Millisecond),
		WithLogger(observability.NopLogger()),
		WithErrorCallback(rec.onError),
	)
	require.NoError(t, err)
	return w, rec, path
}

func TestWatcher_StartLoadsInitialConfig(t *testing.T) {
	t.Parallel()

	w, _, _ := newTestWatcher(t, validWatchedYAML)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	cfg := w.LastConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, []string{"billing"}, cfg.SystemNames())

	assert.NoError(t, w.Start(context.Background()), "second start is a no-op")
}

func TestWatcher_StartRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	w, _, _ := newTestWatcher(t, invalidWatchedYAML)
	err := w.Start(context.Background())
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.NoError(t, w.Stop(), "stop without start is a no-op")
}

func TestWatcher_ReloadOnWrite(t *testing.T) {
	t.Parallel()

	w, rec, path := newTestWatcher(t, validWatchedYAML)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	writeConfigFile(t, path, reloadedWatchedYAML)

	require.Eventually(t, func() bool {
		cfg := rec.last()
		return cfg != nil && len(cfg.SystemNames()) == 2
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, []string{"billing", "crm"}, w.LastConfig().SystemNames())
}

func TestWatcher_InvalidReloadKeepsLastConfig(t *testing.T) {
	t.Parallel()

	w, rec, path := newTestWatcher(t, validWatchedYAML)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	writeConfigFile(t, path, invalidWatchedYAML)

	require.Eventually(t, func() bool {
		return rec.errCount() > 0
	}, 5*time.Second, 20*time.Millisecond)

	assert.Nil(t, rec.last())
	assert.Equal(t, []string{"billing"}, w.LastConfig().SystemNames())
}

func TestWatcher_ForceReload(t *testing.T) {
	t.Parallel()

	w, rec, path := newTestWatcher(t, validWatchedYAML)
	writeConfigFile(t, path, reloadedWatchedYAML)

	require.NoError(t, w.ForceReload())
	require.NotNil(t, rec.last())
	assert.Equal(t, []string{"billing", "crm"}, rec.last().SystemNames())

	writeConfigFile(t, path, invalidWatchedYAML)
	assert.Error(t, w.ForceReload())
}

func TestWatcher_StopOnContextCancel(t *testing.T) {
	t.Parallel()

	w, _, _ := newTestWatcher(t, validWatchedYAML)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	cancel()
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
