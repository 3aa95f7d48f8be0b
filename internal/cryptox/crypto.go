// Package cryptox implements the cryptographic primitives for PhishVault:
// passphrase-based key derivation and authenticated encryption of record
// payloads. The server never sees a passphrase or a derived key; everything
// here runs on the client.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2Iterations is the fixed iteration count for master key
	// derivation. 600k iterations of PBKDF2-HMAC-SHA256 matches current
	// OWASP password storage guidance. Changing it invalidates every
	// existing ciphertext, so treat it as part of the data format.
	PBKDF2Iterations = 600_000

	// KeyLength is the master key length in bytes (AES-256).
	KeyLength = 32

	// SaltLength is the per-user salt length in bytes.
	SaltLength = 16

	// NonceLength is the AES-GCM nonce length in bytes.
	NonceLength = 12
)

var (
	// ErrDecryptionFailed indicates the GCM authentication tag did not
	// verify: wrong key or corrupted ciphertext. Wrong-passphrase
	// detection is built on this error.
	ErrDecryptionFailed = errors.New("cryptox: decryption failed")

	// ErrInvalidKeyLength indicates the key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("cryptox: key must be 32 bytes")

	// ErrInvalidNonceLength indicates the nonce is not 12 bytes.
	ErrInvalidNonceLength = errors.New("cryptox: nonce must be 12 bytes")
)

// DeriveMasterKey derives a 256-bit master key from a passphrase and salt
// using PBKDF2-HMAC-SHA256 with PBKDF2Iterations iterations. The function is
// deterministic: identical inputs always produce the identical key. It is
// deliberately slow; callers should treat it as a long-running operation.
func DeriveMasterKey(passphrase, salt []byte) []byte {
	return pbkdf2.Key(passphrase, salt, PBKDF2Iterations, KeyLength, sha256.New)
}

// GenerateSalt returns a fresh random 16-byte salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("salt generation failed: %w", err)
	}
	return salt, nil
}

// Encrypt encrypts plaintext with AES-256-GCM under key. A fresh random
// 12-byte nonce is generated per call and returned alongside the ciphertext;
// the authentication tag is appended to the ciphertext by GCM.
func Encrypt(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("nonce generation failed: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts an (ciphertext, nonce) pair produced by Encrypt. It
// returns ErrDecryptionFailed when the authentication tag does not verify,
// regardless of where in the payload the mismatch occurred.
func Decrypt(ciphertext, nonce, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceLength {
		return nil, ErrInvalidNonceLength
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncryptJSON serializes v to JSON and encrypts it with Encrypt.
func EncryptJSON(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return Encrypt(plaintext, key)
}

// DecryptJSON decrypts an (ciphertext, nonce) pair and unmarshals the
// resulting JSON into v.
func DecryptJSON(ciphertext, nonce, key []byte, v any) error {
	plaintext, err := Decrypt(ciphertext, nonce, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}

// Wipe zeroes key material in place. KeepAlive stops the compiler from
// eliding the writes as dead stores. Safe on nil.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
