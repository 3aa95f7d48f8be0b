// Package models defines the analysis record in its clear and
// field-encrypted forms.
package models

import "time"

// InputKind classifies what kind of content was analyzed.
type InputKind string

const (
	InputKindEmail InputKind = "email"
	InputKindURL   InputKind = "url"
	InputKindText  InputKind = "text"
)

// MLResult is the classification verdict for an analysis.
type MLResult struct {
	IsPhishing          bool    `json:"is_phishing"`
	PhishingProbability float64 `json:"phishing_probability"`
	ModelVersion        string  `json:"model_version,omitempty"`
}

// Analysis is a single phishing-analysis record in clear form. It exists
// only in memory on an unlocked client; at rest and on the wire the
// sensitive fields are encrypted (see EncryptedAnalysis).
type Analysis struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	InputKind InputKind `json:"input_kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Sensitive fields, individually encrypted at rest.
	UserEmail    string    `json:"user_email"`
	InputContent string    `json:"input_content"`
	Context      string    `json:"context,omitempty"`
	MLResult     *MLResult `json:"ml_result"`
}

// EncryptedField is one independently encrypted record field: an AES-GCM
// (nonce, ciphertext) pair. JSON encoding base64s both byte slices.
type EncryptedField struct {
	Nonce []byte `json:"nonce"`
	Data  []byte `json:"data"`
}

// EncryptedAnalysis is the stored/transmitted form of Analysis. Clear fields
// stay readable so the remote store can index and sort; sensitive fields are
// opaque to it. Context is optional and may be nil.
type EncryptedAnalysis struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	InputKind InputKind `json:"input_kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserEmail    *EncryptedField `json:"user_email"`
	InputContent *EncryptedField `json:"input_content"`
	Context      *EncryptedField `json:"context,omitempty"`
	MLResult     *EncryptedField `json:"ml_result"`
}

// VerificationPayload is the small constant payload encrypted into the local
// key-verification blob. A successful decryption plus a uid match proves a
// candidate master key without any network call.
type VerificationPayload struct {
	TS  int64  `json:"ts"`
	UID string `json:"uid"`
}
