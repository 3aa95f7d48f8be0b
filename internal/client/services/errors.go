package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNoIdentity is returned when an operation requires an
	// authenticated user and none is set.
	ErrNoIdentity = errors.New("no authenticated identity")

	// ErrNotSetUp is returned by Unlock before encryption was set up.
	ErrNotSetUp = errors.New("encryption is not set up")

	// ErrAlreadySetUp is returned by Setup when a salt already exists.
	ErrAlreadySetUp = errors.New("encryption is already set up")

	// ErrNotUnlocked guards encrypt/decrypt operations on a locked session.
	ErrNotUnlocked = errors.New("session is locked")

	// ErrSaltNotFound means the remote store has no salt for the user.
	ErrSaltNotFound = errors.New("salt not found")

	// ErrCannotVerify is the new-device bootstrap gap: there is no local
	// blob and no remote ciphertext to verify a candidate key against.
	// The user must create an analysis on an already-unlocked device first.
	ErrCannotVerify = errors.New("cannot verify passphrase: no encrypted data exists yet")
)

// InvalidPassphraseError reports a failed verification together with the
// number of attempts left before lockout, computed at the point of failure.
type InvalidPassphraseError struct {
	AttemptsRemaining int
}

func (e *InvalidPassphraseError) Error() string {
	return fmt.Sprintf("invalid passphrase (%d attempts remaining)", e.AttemptsRemaining)
}

// LockedOutError rejects an unlock attempt while the lockout window is
// active. RemainingSeconds is computed when the error is raised.
type LockedOutError struct {
	RemainingSeconds int
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("too many failed attempts, locked out for %ds", e.RemainingSeconds)
}

// MissingFieldError is a contract violation: a record handed to the codec
// lacks a required sensitive field. Not retriable.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// SetupError wraps any failure during Setup. Setup has no partial success;
// re-attempting is safe because the salt save is an upsert.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string { return fmt.Sprintf("setup failed: %v", e.Err) }
func (e *SetupError) Unwrap() error { return e.Err }
