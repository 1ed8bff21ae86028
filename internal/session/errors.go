package session

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by repositories. Absence of a session is not an
// error: FindSession returns (nil, nil).
var (
	// ErrBackendUnavailable wraps every failure to reach the backing store.
	ErrBackendUnavailable = errors.New("session backend unavailable")

	// ErrInvalidSession is returned for malformed sessions, ids and system names.
	ErrInvalidSession = errors.New("invalid session")

	// ErrUnknownStoreType is returned by New for an unsupported backend type.
	ErrUnknownStoreType = errors.New("unknown session store type")
)

func invalidSession(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidSession, msg)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, op, err)
}
