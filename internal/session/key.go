package session

import (
	"strings"

	"github.com/vyrodovalexey/sessiongate/internal/config"
)

// separator joins the system name and the session id inside a key. Neither
// part may contain it, which keeps keys of distinct (system, id) pairs apart.
const separator = ":"

// Key returns the namespaced storage key of a session under the default
// prefix: "api:sessions:<id>" for the default namespace and
// "api:sessions:<system>:<id>" otherwise.
func Key(system, id string) string {
	return newKeyspace("").key(system, id)
}

// ValidateSystem reports whether name can be used as a system name.
func ValidateSystem(name string) error {
	if strings.Contains(name, separator) {
		return invalidSession("system name must not contain " + separator)
	}
	return nil
}

func validateID(id string) error {
	if id == "" {
		return invalidSession("session id is empty")
	}
	if strings.Contains(id, separator) {
		return invalidSession("session id must not contain " + separator)
	}
	return nil
}

type keyspace struct {
	prefix string
}

func newKeyspace(prefix string) keyspace {
	if prefix == "" {
		prefix = config.DefaultKeyPrefix
	}
	return keyspace{prefix: prefix}
}

func (k keyspace) key(system, id string) string {
	if system == "" {
		return k.prefix + id
	}
	return k.prefix + system + separator + id
}

// pattern returns the SCAN match pattern covering the namespace of system.
// The default namespace pattern is broader than the namespace; callers
// filter its results with sessionID.
func (k keyspace) pattern(system string) string {
	if system == "" {
		return k.prefix + "*"
	}
	return k.prefix + escapeGlob(system) + separator + "*"
}

// sessionID returns the session id encoded in key and reports whether key
// belongs to the namespace of system. The prefix is cut off verbatim and
// need not end with the separator.
func (k keyspace) sessionID(system, key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, k.prefix)
	if !ok {
		return "", false
	}
	id := rest
	if system != "" {
		if id, ok = strings.CutPrefix(rest, system+separator); !ok {
			return "", false
		}
	}
	if id == "" || strings.Contains(id, separator) {
		return "", false
	}
	return id, true
}

func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
