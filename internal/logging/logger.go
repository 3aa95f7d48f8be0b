// Package logging defines the structured-logging interface shared by the
// CLI and the server. Keeping it an interface keeps log/slog out of the
// service signatures and lets tests discard output.
//
// One project-wide rule applies to every call site: passphrases, derived
// keys, salts, and decrypted record fields never appear in a log record,
// at any level.
package logging

import "context"

// Logger is a context-aware, structured logger. The variadic args are
// key–value pairs:
//
//	log.Info(ctx, "starting server", "addr", addr)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value
	// pairs, typically a "module" tag.
	With(args ...any) Logger
}
