// Package cli provides the interactive PhishVault command-line client.
//
// It wires configuration, the local SQLite stores, the HTTP API client, and
// an interactive REPL around the encryption session. Typical flow: register
// or log in, set up or unlock encryption with a passphrase, then capture
// analyses and browse the encrypted history.
//
// Key features:
//   - Register / Login / Logout against the backend
//   - Setup / Unlock / Lock of the encryption session
//   - Analyze: classify content and store the encrypted record
//   - List / Show encrypted history
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
