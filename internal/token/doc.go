// Package token provides authentication tokens carried by a request while
// it is being authenticated.
//
// A token exposes a public principal token (for example a login name) and a
// secret credential. The credential can be read exactly once: the first
// ReadCredentials call hands the secret to the caller and the token forgets
// it, every later call fails with ErrCredentialsConsumed.
//
// Tokens never render their secret. String and the zap object marshaller
// only report whether the credential is still pending.
package token
