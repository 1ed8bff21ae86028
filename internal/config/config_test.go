package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	assert.Equal(t, DefaultAddress, cfg.Server.Address)
	assert.Equal(t, DefaultReadTimeout, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, DefaultServiceName, cfg.Tracing.ServiceName)
	assert.Equal(t, StoreTypeMemory, cfg.Sessions.Type)
	assert.Equal(t, DefaultKeyPrefix, cfg.Sessions.KeyPrefix)
	assert.Equal(t, 60*time.Second, cfg.Sessions.ScavengeInterval.Duration())
	assert.Nil(t, cfg.Sessions.Redis)
	assert.NotNil(t, cfg.Systems)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestSessionStoreConfig_ApplyDefaults_RedisBreaker(t *testing.T) {
	t.Parallel()

	s := SessionStoreConfig{Type: StoreTypeRedis, Redis: &RedisStoreConfig{URL: "redis://localhost:6379"}}
	s.ApplyDefaults()

	require.NotNil(t, s.Redis.Breaker)
	assert.Equal(t, DefaultBreakerThreshold, s.Redis.Breaker.Threshold)
	assert.Equal(t, DefaultBreakerTimeout, s.Redis.Breaker.Timeout.Duration())
}

func TestSystemConfig_Names(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		system     string
		cfg        SystemConfig
		wantCookie string
		wantHeader string
	}{
		{
			name:       "default namespace",
			system:     "",
			wantCookie: "sid",
			wantHeader: "X-Session-ID",
		},
		{
			name:       "named system",
			system:     "billing",
			wantCookie: "billing.sid",
			wantHeader: "X-billing-Session-ID",
		},
		{
			name:       "explicit names",
			system:     "crm",
			cfg:        SystemConfig{CookieName: "crm_session", HeaderName: "X-CRM"},
			wantCookie: "crm_session",
			wantHeader: "X-CRM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantCookie, tt.cfg.Cookie(tt.system))
			assert.Equal(t, tt.wantHeader, tt.cfg.Header(tt.system))
		})
	}
}

func TestConfig_SystemNames(t *testing.T) {
	t.Parallel()

	cfg := &Config{Systems: map[string]SystemConfig{
		"crm":     {},
		"":        {},
		"billing": {},
	}}

	assert.Equal(t, []string{"billing", "crm"}, cfg.SystemNames())
	assert.Empty(t, (&Config{}).SystemNames())
}

func TestDuration_YAML(t *testing.T) {
	t.Parallel()

	var out struct {
		D Duration `yaml:"d"`
		E Duration `yaml:"e"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("d: 1m30s\ne: \"\"\n"), &out))
	assert.Equal(t, 90*time.Second, out.D.Duration())
	assert.Zero(t, out.E)

	data, err := yaml.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "d: 1m30s")

	assert.Error(t, yaml.Unmarshal([]byte("d: soon\n"), &out))
}

func TestDuration_JSON(t *testing.T) {
	t.Parallel()

	var out struct {
		D Duration `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"250ms"}`), &out))
	assert.Equal(t, 250*time.Millisecond, out.D.Duration())

	require.NoError(t, json.Unmarshal([]byte(`{"d":null}`), &out))
	assert.Zero(t, out.D)

	data, err := json.Marshal(struct {
		D Duration `json:"d"`
	}{D: Duration(2 * time.Second)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2s"}`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`{"d":12}`), &out))
}
