// Package config provides configuration types and loading for the session gateway.
//
// Configuration is read from YAML with ${VAR} and ${VAR:-default}
// environment substitution, defaulted with ApplyDefaults and checked with
// ValidateConfig. Every validation failure matches ErrInvalidConfig.
//
// A Watcher reloads the file on change and hands each valid configuration
// to a callback; the gateway uses it to swap the set of configured systems
// without a restart.
//
// Example:
//
//	sessions:
//	  type: redis
//	  scavengeInterval: 60s
//	  redis:
//	    url: ${REDIS_URL:-redis://localhost:6379/0}
//	systems:
//	  "": {}
//	  billing:
//	    cookieName: billing.sid
package config
