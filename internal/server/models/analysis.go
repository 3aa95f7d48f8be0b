package models

import "time"

// EncryptedAnalysis is the stored form of a client analysis record. The
// sensitive fields arrive as independent (ciphertext, nonce) pairs and are
// opaque to the server; clear columns exist for indexing and sorting only.
// Context is optional and may be nil.
type EncryptedAnalysis struct {
	ID        string
	UserID    string
	InputKind string
	CreatedAt time.Time
	UpdatedAt time.Time

	UserEmailData     []byte
	UserEmailNonce    []byte
	InputContentData  []byte
	InputContentNonce []byte
	ContextData       []byte
	ContextNonce      []byte
	MLResultData      []byte
	MLResultNonce     []byte
}
