package models

import "time"

// User is an account row. PasswordHash is a bcrypt hash of the login
// password; Salt is the client-generated key-derivation salt and is nil
// until the user sets up encryption. The server never stores anything
// derived from the encryption passphrase.
type User struct {
	ID             string
	UserName       string
	PasswordHash   []byte
	Salt           []byte
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
}
