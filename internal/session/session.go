package session

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Principal is the identity a session was established for. Repositories
// store it verbatim and never interpret it.
type Principal struct {
	ID         string            `json:"id"`
	Roles      []string          `json:"roles,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// StoredSession is the persisted record of an authenticated session.
// A saved session is never mutated in place; callers get copies and
// replace the whole record by saving again.
type StoredSession struct {
	ID        string    `json:"id"`
	Principal Principal `json:"principal"`

	// TTLSeconds is the lifetime granted by each save. Zero means no expiry.
	TTLSeconds int `json:"ttlSeconds"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// NewStoredSession returns a session with a random id for principal.
func NewStoredSession(principal Principal, ttl time.Duration) *StoredSession {
	return &StoredSession{
		ID:         uuid.NewString(),
		Principal:  principal,
		TTLSeconds: int(ttl / time.Second),
	}
}

// TTL returns the session lifetime as a duration.
func (s *StoredSession) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}

// IsExpired reports whether the session has expired at now.
func (s *StoredSession) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Clone returns a deep copy.
func (s *StoredSession) Clone() *StoredSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Principal.Roles = slices.Clone(s.Principal.Roles)
	c.Principal.Attributes = maps.Clone(s.Principal.Attributes)
	return &c
}

// stamp returns a copy of s with its lifetime restarted at now.
func (s *StoredSession) stamp(now time.Time) *StoredSession {
	c := s.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.ExpiresAt = time.Time{}
	if c.TTLSeconds > 0 {
		c.ExpiresAt = now.Add(c.TTL())
	}
	return c
}

func (s *StoredSession) validate() error {
	if s == nil {
		return invalidSession("session is nil")
	}
	if err := validateID(s.ID); err != nil {
		return err
	}
	if s.TTLSeconds < 0 {
		return invalidSession("ttl must not be negative")
	}
	return nil
}
