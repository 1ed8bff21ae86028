package subject

import (
	"slices"

	"github.com/vyrodovalexey/sessiongate/internal/session"
	"github.com/vyrodovalexey/sessiongate/internal/token"
)

// Subject is the caller as seen by one system. Subjects are built per
// request and never persisted.
type Subject struct {
	system    string
	principal *session.Principal
	roles     map[string]struct{}
	token     token.AuthenticationToken
	session   *session.StoredSession
}

// Option configures a Subject.
type Option func(*Subject)

// WithSession attaches an established session. The session's principal and
// roles become the subject's.
func WithSession(s *session.StoredSession) Option {
	return func(sub *Subject) {
		if s == nil {
			return
		}
		sub.session = s
		p := s.Principal
		p.Roles = slices.Clone(p.Roles)
		sub.principal = &p
		for _, r := range p.Roles {
			sub.roles[r] = struct{}{}
		}
	}
}

// WithToken attaches a token presented by the request.
func WithToken(t token.AuthenticationToken) Option {
	return func(sub *Subject) {
		sub.token = t
	}
}

// WithRoles adds roles to the subject.
func WithRoles(roles ...string) Option {
	return func(sub *Subject) {
		for _, r := range roles {
			sub.roles[r] = struct{}{}
		}
	}
}

// New creates a subject for system.
func New(system string, opts ...Option) *Subject {
	s := &Subject{
		system: system,
		roles:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// System returns the system the subject belongs to.
func (s *Subject) System() string {
	return s.system
}

// Principal returns the authenticated principal, if any.
func (s *Subject) Principal() (session.Principal, bool) {
	if s.principal == nil {
		return session.Principal{}, false
	}
	return *s.principal, true
}

// IsAuthenticated reports whether the subject has a principal.
func (s *Subject) IsAuthenticated() bool {
	return s.principal != nil
}

// HasRole reports whether the subject holds role.
func (s *Subject) HasRole(role string) bool {
	_, ok := s.roles[role]
	return ok
}

// Roles returns the subject's roles in sorted order.
func (s *Subject) Roles() []string {
	roles := make([]string, 0, len(s.roles))
	for r := range s.roles {
		roles = append(roles, r)
	}
	slices.Sort(roles)
	return roles
}

// AuthenticationToken returns the token presented for this subject, or nil.
func (s *Subject) AuthenticationToken() token.AuthenticationToken {
	return s.token
}

// Session returns the session the subject was restored from, or nil.
func (s *Subject) Session() *session.StoredSession {
	return s.session
}
