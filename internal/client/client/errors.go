package client

import "errors"

var (
	// ErrUnavailable is the transient transport error: timeout, connection
	// failure, or a 5xx from the remote store. Callers either retry or
	// degrade to cached local data.
	ErrUnavailable = errors.New("remote store unavailable")

	// ErrUnauthorized covers rejected credentials and expired sessions.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound maps 404 responses.
	ErrNotFound = errors.New("not found")
)
