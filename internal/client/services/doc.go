// Package services implements the client-side encryption layer: the
// passphrase-protected session state machine, salt resolution, local key
// verification, unlock rate limiting, and field-level encryption of
// analysis records. The remote store only ever receives ciphertext.
package services
