package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidConfig is matched by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// systemSeparator delimits the system name inside namespaced session keys,
// so it may not appear in a system name.
const systemSeparator = ":"

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Is reports whether target is ErrInvalidConfig.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e[i].Error())
	}
	return sb.String()
}

// Is reports whether target is ErrInvalidConfig.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Validator validates session gateway configuration.
type Validator struct {
	errors ValidationErrors
}

// ValidateConfig validates a configuration.
func ValidateConfig(cfg *Config) error {
	v := &Validator{}
	return v.Validate(cfg)
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&cfg.Server)
	v.validateTracing(&cfg.Tracing)
	v.validateSessions(&cfg.Sessions)
	v.validateSystems(cfg.Systems)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateServer(server *ServerConfig) {
	if server.Address == "" {
		v.addError("server.address", "address is required")
	}
	if server.ReadTimeout < 0 {
		v.addError("server.readTimeout", "must not be negative")
	}
	if server.WriteTimeout < 0 {
		v.addError("server.writeTimeout", "must not be negative")
	}
}

func (v *Validator) validateTracing(tracing *TracingConfig) {
	if tracing.SamplingRate < 0 || tracing.SamplingRate > 1 {
		v.addError("tracing.samplingRate", "must be between 0 and 1")
	}
}

func (v *Validator) validateSessions(sessions *SessionStoreConfig) {
	if sessions.ScavengeInterval < 0 {
		v.addError("sessions.scavengeInterval", "must not be negative")
	}
	if strings.ContainsAny(sessions.KeyPrefix, "*?[]\\") {
		v.addError("sessions.keyPrefix", "must not contain glob metacharacters")
	}

	switch sessions.Type {
	case StoreTypeMemory:
	case StoreTypeRedis:
		v.validateRedis(sessions.Redis)
	default:
		v.addError("sessions.type", fmt.Sprintf("unsupported session store type %q", sessions.Type))
	}
}

func (v *Validator) validateRedis(redis *RedisStoreConfig) {
	if redis == nil {
		v.addError("sessions.redis", "redis configuration is required for redis store")
		return
	}

	if redis.Sentinel != nil && redis.Sentinel.MasterName != "" {
		if len(redis.Sentinel.SentinelAddrs) == 0 {
			v.addError("sessions.redis.sentinel.sentinelAddrs", "at least one sentinel address is required")
		}
	} else if redis.URL == "" {
		v.addError("sessions.redis.url", "url is required when sentinel is not configured")
	} else if u, err := url.Parse(redis.URL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
		v.addError("sessions.redis.url", "url must use the redis:// or rediss:// scheme")
	}

	if redis.PoolSize < 0 {
		v.addError("sessions.redis.poolSize", "must not be negative")
	}
	if redis.ScanCount < 0 {
		v.addError("sessions.redis.scanCount", "must not be negative")
	}
	if redis.Breaker != nil {
		if redis.Breaker.Threshold <= 0 {
			v.addError("sessions.redis.breaker.threshold", "must be positive")
		}
		if redis.Breaker.Timeout <= 0 {
			v.addError("sessions.redis.breaker.timeout", "must be positive")
		}
	}
}

func (v *Validator) validateSystems(systems map[string]SystemConfig) {
	for name, system := range systems {
		path := fmt.Sprintf("systems[%q]", name)
		if strings.Contains(name, systemSeparator) {
			v.addError(path, "system name must not contain "+systemSeparator)
		}
		if strings.TrimSpace(name) != name {
			v.addError(path, "system name must not have surrounding whitespace")
		}
		if strings.ContainsAny(system.CookieName, " ;,=") {
			v.addError(path+".cookieName", "cookie name contains invalid characters")
		}
	}
}
