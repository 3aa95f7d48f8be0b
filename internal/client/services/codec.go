package services

import (
	"fmt"

	"phishvault/internal/client/models"
	"phishvault/internal/cryptox"
)

// EncryptAnalysis maps a clear analysis record to its field-encrypted form.
// Exactly the sensitive fields (user email, input content, free-form
// context, classification result) are encrypted, each as an independent
// (nonce, ciphertext) pair; clear fields pass through untouched so the
// remote store can index and sort on them. UserEmail, InputContent, and
// MLResult are required; Context is optional.
func EncryptAnalysis(a *models.Analysis, key []byte) (*models.EncryptedAnalysis, error) {
	switch {
	case a.UserEmail == "":
		return nil, &MissingFieldError{Field: "user_email"}
	case a.InputContent == "":
		return nil, &MissingFieldError{Field: "input_content"}
	case a.MLResult == nil:
		return nil, &MissingFieldError{Field: "ml_result"}
	}

	email, err := encryptField([]byte(a.UserEmail), key, "user_email")
	if err != nil {
		return nil, err
	}
	content, err := encryptField([]byte(a.InputContent), key, "input_content")
	if err != nil {
		return nil, err
	}
	var contextField *models.EncryptedField
	if a.Context != "" {
		contextField, err = encryptField([]byte(a.Context), key, "context")
		if err != nil {
			return nil, err
		}
	}
	resultData, resultNonce, err := cryptox.EncryptJSON(a.MLResult, key)
	if err != nil {
		return nil, fmt.Errorf("encrypting ml_result: %w", err)
	}

	return &models.EncryptedAnalysis{
		ID:           a.ID,
		UserID:       a.UserID,
		InputKind:    a.InputKind,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
		UserEmail:    email,
		InputContent: content,
		Context:      contextField,
		MLResult:     &models.EncryptedField{Nonce: resultNonce, Data: resultData},
	}, nil
}

// DecryptAnalysis is the inverse of EncryptAnalysis. An authentication
// failure on any field surfaces as cryptox.ErrDecryptionFailed; listing
// callers substitute a placeholder for such records instead of aborting,
// since one foreign or corrupted record must not hide the rest.
func DecryptAnalysis(ea *models.EncryptedAnalysis, key []byte) (*models.Analysis, error) {
	email, err := decryptField(ea.UserEmail, key, "user_email")
	if err != nil {
		return nil, err
	}
	content, err := decryptField(ea.InputContent, key, "input_content")
	if err != nil {
		return nil, err
	}

	var contextValue []byte
	if ea.Context != nil {
		contextValue, err = decryptField(ea.Context, key, "context")
		if err != nil {
			return nil, err
		}
	}

	if ea.MLResult == nil {
		return nil, &MissingFieldError{Field: "ml_result"}
	}
	var result models.MLResult
	if err := cryptox.DecryptJSON(ea.MLResult.Data, ea.MLResult.Nonce, key, &result); err != nil {
		return nil, fmt.Errorf("decrypting ml_result: %w", err)
	}

	return &models.Analysis{
		ID:           ea.ID,
		UserID:       ea.UserID,
		InputKind:    ea.InputKind,
		CreatedAt:    ea.CreatedAt,
		UpdatedAt:    ea.UpdatedAt,
		UserEmail:    string(email),
		InputContent: string(content),
		Context:      string(contextValue),
		MLResult:     &result,
	}, nil
}

func encryptField(plaintext, key []byte, name string) (*models.EncryptedField, error) {
	data, nonce, err := cryptox.Encrypt(plaintext, key)
	if err != nil {
		return nil, fmt.Errorf("encrypting %s: %w", name, err)
	}
	return &models.EncryptedField{Nonce: nonce, Data: data}, nil
}

func decryptField(f *models.EncryptedField, key []byte, name string) ([]byte, error) {
	if f == nil {
		return nil, &MissingFieldError{Field: name}
	}
	plaintext, err := cryptox.Decrypt(f.Data, f.Nonce, key)
	if err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", name, err)
	}
	return plaintext, nil
}
