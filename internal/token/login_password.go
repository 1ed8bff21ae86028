package token

import (
	"fmt"
	"sync"

	"go.uber.org/zap/zapcore"
)

// LoginPasswordToken carries a login and a password.
type LoginPasswordToken struct {
	system string
	scheme Scheme
	login  string

	mu       sync.Mutex
	password []byte
	consumed bool
}

var _ AuthenticationToken = (*LoginPasswordToken)(nil)

// NewLoginPasswordToken creates a form token for the default system.
func NewLoginPasswordToken(login, password []byte) *LoginPasswordToken {
	return NewLoginPasswordTokenWithScheme("", SchemeForm, login, password)
}

// NewSystemLoginPasswordToken creates a form token for system.
func NewSystemLoginPasswordToken(system string, login, password []byte) *LoginPasswordToken {
	return NewLoginPasswordTokenWithScheme(system, SchemeForm, login, password)
}

// NewLoginPasswordTokenWithScheme creates a token for system collected with scheme.
// The token takes ownership of password.
func NewLoginPasswordTokenWithScheme(system string, scheme Scheme, login, password []byte) *LoginPasswordToken {
	if password == nil {
		password = []byte{}
	}
	return &LoginPasswordToken{
		system:   system,
		scheme:   scheme,
		login:    string(login),
		password: password,
	}
}

// Token returns the login.
func (t *LoginPasswordToken) Token() string {
	return t.login
}

// ReadCredentials returns the password once and forgets it.
func (t *LoginPasswordToken) ReadCredentials() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.consumed {
		return nil, fmt.Errorf("login %q: %w", t.login, ErrCredentialsConsumed)
	}
	password := t.password
	t.password = nil
	t.consumed = true
	return password, nil
}

// CredentialsPending reports whether ReadCredentials has not been called yet.
func (t *LoginPasswordToken) CredentialsPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.consumed
}

// Scheme returns the collection scheme.
func (t *LoginPasswordToken) Scheme() Scheme {
	return t.scheme
}

// System returns the target system.
func (t *LoginPasswordToken) System() string {
	return t.system
}

// SessionAllowed always returns true.
func (t *LoginPasswordToken) SessionAllowed() bool {
	return true
}

// AuthenticationRequired always returns true.
func (t *LoginPasswordToken) AuthenticationRequired() bool {
	return true
}

// String implements fmt.Stringer without the password.
func (t *LoginPasswordToken) String() string {
	return fmt.Sprintf("LoginPasswordToken{system=%q, scheme=%s, login=%q, credentialsPending=%t}",
		t.system, t.scheme, t.login, t.CredentialsPending())
}

// MarshalLogObject implements zapcore.ObjectMarshaler without the password.
func (t *LoginPasswordToken) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("system", t.system)
	enc.AddString("scheme", t.scheme.String())
	enc.AddString("login", t.login)
	enc.AddBool("credentialsPending", t.CredentialsPending())
	return nil
}
