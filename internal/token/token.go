package token

import "errors"

// ErrCredentialsConsumed is returned when the credentials of a token have
// already been read.
var ErrCredentialsConsumed = errors.New("credentials already consumed")

// AuthenticationToken is a credential presented by a request.
type AuthenticationToken interface {
	// Token returns the public principal token, such as a login name.
	Token() string

	// ReadCredentials returns the secret. Only the first call succeeds and
	// the returned slice belongs to the caller.
	ReadCredentials() ([]byte, error)

	// Scheme returns the mechanism the token was collected with.
	Scheme() Scheme

	// System returns the system the token authenticates against.
	// The empty string is the default system.
	System() string

	// SessionAllowed reports whether a successful authentication may
	// establish a session.
	SessionAllowed() bool

	// AuthenticationRequired reports whether the token must be
	// authenticated before the request proceeds.
	AuthenticationRequired() bool
}
