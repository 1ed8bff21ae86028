package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("down")

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errDown }

func TestChecker_Readiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		register   func(c *Checker)
		wantStatus Status
		wantCode   int
	}{
		{
			name:       "no checks",
			register:   func(*Checker) {},
			wantStatus: StatusHealthy,
			wantCode:   http.StatusOK,
		},
		{
			name: "all healthy",
			register: func(c *Checker) {
				c.RegisterCheck("store", ok, true)
			},
			wantStatus: StatusHealthy,
			wantCode:   http.StatusOK,
		},
		{
			name: "non-critical failure degrades",
			register: func(c *Checker) {
				c.RegisterCheck("store", ok, true)
				c.RegisterCheck("tracing", fail, false)
			},
			wantStatus: StatusDegraded,
			wantCode:   http.StatusOK,
		},
		{
			name: "critical failure",
			register: func(c *Checker) {
				c.RegisterCheck("store", fail, true)
				c.RegisterCheck("tracing", fail, false)
			},
			wantStatus: StatusUnhealthy,
			wantCode:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewChecker("test")
			tt.register(c)

			rec := httptest.NewRecorder()
			c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, ContentTypeJSON, rec.Header().Get(HeaderContentType))

			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
		})
	}
}

func TestChecker_CheckMessage(t *testing.T) {
	t.Parallel()

	c := NewChecker("test")
	c.RegisterCheck("store", fail, true)

	resp := c.Readiness(context.Background())
	assert.Equal(t, Check{Status: StatusUnhealthy, Message: "down"}, resp.Checks["store"])

	c.UnregisterCheck("store")
	resp = c.Readiness(context.Background())
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Empty(t, resp.Checks)
}

func TestChecker_CheckTimeout(t *testing.T) {
	t.Parallel()

	c := NewChecker("test")
	c.timeout = 10 * time.Millisecond
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, true)

	resp := c.Readiness(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Contains(t, resp.Checks["slow"].Message, "deadline exceeded")
}

func TestChecker_Health(t *testing.T) {
	t.Parallel()

	c := NewChecker("1.2.3")
	c.RegisterCheck("store", fail, true)

	rec := httptest.NewRecorder()
	c.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code, "liveness ignores dependencies")

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestHealthMetrics(t *testing.T) {
	t.Parallel()

	m := GetHealthMetrics()
	assert.Same(t, m, GetHealthMetrics())
	m.Init()

	registry := prometheus.NewRegistry()
	m.MustRegister(registry)

	c := NewChecker("test")
	c.RegisterCheck("metrics-probe", fail, false)
	c.Readiness(context.Background())

	assert.Equal(t, 0.0, testutil.ToFloat64(m.checkStatus.WithLabelValues("metrics-probe")))
}
