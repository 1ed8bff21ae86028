// Package config provides configuration types and loading for the session gateway.
package config

import (
	"sort"
	"time"
)

// Session store backend types.
const (
	StoreTypeMemory = "memory"
	StoreTypeRedis  = "redis"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultAddress           = ":8080"
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultScavengeInterval  = 60 * time.Second
	DefaultKeyPrefix         = "api:sessions:"
	DefaultServiceName       = "sessiongate"
	DefaultSessionCookie     = "sid"
	DefaultSessionHeader     = "X-Session-ID"
	DefaultBreakerThreshold  = 5
	DefaultBreakerTimeout    = 30 * time.Second
	DefaultRedisPingTimeout  = 5 * time.Second
	defaultSessionCookieTail = ".sid"
)

// Config is the root configuration of the session gateway.
type Config struct {
	Server   ServerConfig       `yaml:"server" json:"server"`
	Logging  LoggingConfig      `yaml:"logging" json:"logging"`
	Tracing  TracingConfig      `yaml:"tracing" json:"tracing"`
	Sessions SessionStoreConfig `yaml:"sessions" json:"sessions"`

	// Systems maps a system name to the way its session reference is
	// carried on requests. The empty name configures the default namespace.
	Systems map[string]SystemConfig `yaml:"systems,omitempty" json:"systems,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string   `yaml:"address" json:"address"`
	ReadTimeout     Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout    Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
}

// SessionStoreConfig selects and configures the session repository backend.
type SessionStoreConfig struct {
	// Type is the backend type: "memory" or "redis".
	Type string `yaml:"type" json:"type"`

	// KeyPrefix is prepended to every namespaced session key.
	KeyPrefix string `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`

	// ScavengeInterval is the period of the in-process expiry scan.
	ScavengeInterval Duration `yaml:"scavengeInterval,omitempty" json:"scavengeInterval,omitempty"`

	// Redis contains Redis-specific configuration.
	Redis *RedisStoreConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// RedisStoreConfig contains Redis-specific session store configuration.
type RedisStoreConfig struct {
	// URL is the Redis connection URL for standalone mode.
	// Format: redis://[user:password@]host:port[/db]
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	// Sentinel enables failover mode and takes precedence over URL.
	Sentinel *RedisSentinelConfig `yaml:"sentinel,omitempty" json:"sentinel,omitempty"`

	PoolSize       int      `yaml:"poolSize,omitempty" json:"poolSize,omitempty"`
	ConnectTimeout Duration `yaml:"connectTimeout,omitempty" json:"connectTimeout,omitempty"`
	ReadTimeout    Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout   Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`

	// ScanCount is the COUNT hint passed to SCAN when listing a namespace.
	ScanCount int64 `yaml:"scanCount,omitempty" json:"scanCount,omitempty"`

	// Breaker configures the circuit breaker guarding the Redis client.
	Breaker *BreakerConfig `yaml:"breaker,omitempty" json:"breaker,omitempty"`
}

// RedisSentinelConfig contains Redis Sentinel configuration.
type RedisSentinelConfig struct {
	MasterName       string   `yaml:"masterName" json:"masterName"`
	SentinelAddrs    []string `yaml:"sentinelAddrs" json:"sentinelAddrs"`
	SentinelPassword string   `yaml:"sentinelPassword,omitempty" json:"sentinelPassword,omitempty"`
	Password         string   `yaml:"password,omitempty" json:"password,omitempty"`
	DB               int      `yaml:"db,omitempty" json:"db,omitempty"`
}

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int `yaml:"threshold" json:"threshold"`

	// Timeout is how long the breaker stays open before probing again.
	Timeout Duration `yaml:"timeout" json:"timeout"`
}

// SystemConfig describes where a system's session id is found on a request.
type SystemConfig struct {
	CookieName string `yaml:"cookieName,omitempty" json:"cookieName,omitempty"`
	HeaderName string `yaml:"headerName,omitempty" json:"headerName,omitempty"`
}

// Cookie returns the session cookie name for the named system.
func (s SystemConfig) Cookie(system string) string {
	if s.CookieName != "" {
		return s.CookieName
	}
	if system == "" {
		return DefaultSessionCookie
	}
	return system + defaultSessionCookieTail
}

// Header returns the session header name for the named system.
func (s SystemConfig) Header(system string) string {
	if s.HeaderName != "" {
		return s.HeaderName
	}
	if system == "" {
		return DefaultSessionHeader
	}
	return "X-" + system + "-Session-ID"
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(DefaultReadTimeout)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(DefaultWriteTimeout)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = DefaultServiceName
	}

	c.Sessions.ApplyDefaults()

	if c.Systems == nil {
		c.Systems = make(map[string]SystemConfig)
	}
}

// ApplyDefaults fills zero-valued session store fields with defaults.
func (s *SessionStoreConfig) ApplyDefaults() {
	if s.Type == "" {
		s.Type = StoreTypeMemory
	}
	if s.KeyPrefix == "" {
		s.KeyPrefix = DefaultKeyPrefix
	}
	if s.ScavengeInterval == 0 {
		s.ScavengeInterval = Duration(DefaultScavengeInterval)
	}
	if s.Redis != nil && s.Redis.Breaker == nil {
		s.Redis.Breaker = &BreakerConfig{
			Threshold: DefaultBreakerThreshold,
			Timeout:   Duration(DefaultBreakerTimeout),
		}
	}
}

// SystemNames returns the configured non-default system names in sorted order.
func (c *Config) SystemNames() []string {
	names := make([]string, 0, len(c.Systems))
	for name := range c.Systems {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
