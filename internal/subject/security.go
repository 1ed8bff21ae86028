package subject

import (
	"context"

	"github.com/vyrodovalexey/sessiongate/internal/session"
)

// SecurityContext answers authorization questions about the current request.
// All methods are pure reads.
type SecurityContext struct {
	subjects Accessor
	secure   func() bool
}

// NewSecurityContext creates a security context over subjects. secure
// reports whether the transport is confidential and may be nil.
func NewSecurityContext(subjects Accessor, secure func() bool) *SecurityContext {
	return &SecurityContext{subjects: subjects, secure: secure}
}

func (c *SecurityContext) current() (*Subject, bool) {
	if c == nil || c.subjects == nil {
		return nil, false
	}
	return c.subjects.CurrentSubject()
}

// UserPrincipal returns the principal of the current subject.
func (c *SecurityContext) UserPrincipal() (session.Principal, bool) {
	s, ok := c.current()
	if !ok {
		return session.Principal{}, false
	}
	return s.Principal()
}

// IsUserInRole reports whether the current subject holds role.
func (c *SecurityContext) IsUserInRole(role string) bool {
	s, ok := c.current()
	return ok && s.HasRole(role)
}

// AuthenticationScheme returns the scheme of the current subject's token.
func (c *SecurityContext) AuthenticationScheme() (string, bool) {
	s, ok := c.current()
	if !ok || s.AuthenticationToken() == nil {
		return "", false
	}
	return s.AuthenticationToken().Scheme().String(), true
}

// IsSecure reports whether the request arrived over a secure transport.
func (c *SecurityContext) IsSecure() bool {
	return c != nil && c.secure != nil && c.secure()
}

// securityContextKey is the context key for the security context.
type securityContextKey struct{}

// ContextWithSecurityContext returns a copy of ctx carrying sc.
func ContextWithSecurityContext(ctx context.Context, sc *SecurityContext) context.Context {
	return context.WithValue(ctx, securityContextKey{}, sc)
}

// SecurityContextFromContext returns the security context carried by ctx.
func SecurityContextFromContext(ctx context.Context) (*SecurityContext, bool) {
	sc, ok := ctx.Value(securityContextKey{}).(*SecurityContext)
	return sc, ok && sc != nil
}
