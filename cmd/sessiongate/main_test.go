package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/sessiongate/internal/config"
	"github.com/vyrodovalexey/sessiongate/internal/observability"
	"github.com/vyrodovalexey/sessiongate/internal/session"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		want cliFlags
	}{
		{
			name: "defaults",
			want: cliFlags{
				configPath: "configs/sessiongate.yaml",
				logLevel:   "info",
				logFormat:  "json",
			},
		},
		{
			name: "environment",
			env: map[string]string{
				"SESSIONGATE_CONFIG_PATH": "/etc/sg.yaml",
				"SESSIONGATE_LOG_LEVEL":   "debug",
			},
			want: cliFlags{
				configPath: "/etc/sg.yaml",
				logLevel:   "debug",
				logFormat:  "json",
			},
		},
		{
			name: "flags win over environment",
			args: []string{"-config", "a.yaml", "-log-format", "console", "-version"},
			env:  map[string]string{"SESSIONGATE_CONFIG_PATH": "/etc/sg.yaml"},
			want: cliFlags{
				configPath:  "a.yaml",
				logLevel:    "info",
				logFormat:   "console",
				showVersion: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			assert.Equal(t, tt.want, parseFlags(fs, tt.args))
		})
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("SESSIONGATE_TEST_VALUE", "set")

	assert.Equal(t, "set", getEnvOrDefault("SESSIONGATE_TEST_VALUE", "default"))
	assert.Equal(t, "default", getEnvOrDefault("SESSIONGATE_TEST_UNSET", "default"))
}

func newTestApplication(t *testing.T) *application {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Systems = map[string]config.SystemConfig{"billing": {}, "crm": {}}

	app, err := newApplication(context.Background(), cfg, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { app.shutdown(nil, observability.NopLogger()) })
	return app
}

func TestApplication_Whoami(t *testing.T) {
	app := newTestApplication(t)
	handler := app.routes(observability.NopLogger())

	stored := session.NewStoredSession(session.Principal{ID: "alice", Roles: []string{"payer"}}, time.Hour)
	require.NoError(t, app.repository.SaveSession(context.Background(), "billing", stored))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.RemoteAddr = "9.9.9.9:1234"
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.AddCookie(&http.Cookie{Name: "billing.sid", Value: stored.ID})
	req.SetBasicAuth("bob", "pw")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp whoamiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "1.2.3.4", resp.ClientIP)
	assert.False(t, resp.Secure)
	assert.Equal(t, "BASIC", resp.Scheme)
	require.Len(t, resp.Subjects, 3)
	assert.Equal(t, "", resp.Subjects[0].System)
	assert.False(t, resp.Subjects[0].Authenticated)
	assert.Equal(t, subjectView{
		System:        "billing",
		Authenticated: true,
		Principal:     "alice",
		Roles:         []string{"payer"},
		Session:       stored.ID,
	}, resp.Subjects[1])
	assert.Equal(t, "crm", resp.Subjects[2].System)
}

func TestApplication_Probes(t *testing.T) {
	app := newTestApplication(t)
	handler := app.routes(observability.NopLogger())

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), `"status":"healthy"`, path)
	}
}

func TestApplication_RedisReadiness(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.DefaultConfig()
	cfg.Sessions.Type = config.StoreTypeRedis
	cfg.Sessions.Redis = &config.RedisStoreConfig{URL: "redis://" + mr.Addr()}
	cfg.Sessions.ApplyDefaults()

	app, err := newApplication(context.Background(), cfg, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { app.shutdown(nil, observability.NopLogger()) })

	handler := app.routes(observability.NopLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "session-store")

	mr.Close()

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestApplication_Metrics(t *testing.T) {
	app := newTestApplication(t)
	handler := app.routes(observability.NopLogger())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/whoami", nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sessiongate_boundary_subjects_installed_total")
	assert.Contains(t, rec.Body.String(), "sessiongate_sessions_operations_total")
}

func TestNewApplication_UnknownStore(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sessions.Type = "etcd"

	_, err := newApplication(context.Background(), cfg, observability.NopLogger())
	assert.ErrorIs(t, err, session.ErrUnknownStoreType)
}

func TestStartConfigWatcher_UpdatesSystems(t *testing.T) {
	app := newTestApplication(t)

	path := filepath.Join(t.TempDir(), "sessiongate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("systems:\n  billing: {}\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := startConfigWatcher(ctx, app, path, observability.NopLogger())
	require.NotNil(t, watcher)
	defer func() { _ = watcher.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("systems:\n  orders: {}\n  crm: {}\n"), 0o600))

	require.Eventually(t, func() bool {
		got := app.boundary.Systems()
		return len(got) == 2 && got[0] == "crm" && got[1] == "orders"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStartConfigWatcher_MissingFile(t *testing.T) {
	app := newTestApplication(t)

	watcher := startConfigWatcher(context.Background(), app,
		filepath.Join(t.TempDir(), "missing.yaml"), observability.NopLogger())
	assert.Nil(t, watcher)
}

func TestApplication_StartStopsScavenger(t *testing.T) {
	app := newTestApplication(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.start(ctx, observability.NopLogger())
	_, ok := app.repository.(session.Scavenger)
	assert.True(t, ok)
}
