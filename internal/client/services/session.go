package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"phishvault/internal/client/client"
	"phishvault/internal/client/models"
	"phishvault/internal/client/repositories/keyvault"
	"phishvault/internal/cryptox"
	"phishvault/internal/logging"
)

// SessionState is the encryption session's lifecycle state.
type SessionState string

const (
	// StateUninitialized: no identity has been set yet.
	StateUninitialized SessionState = "uninitialized"
	// StateChecking: identity changed, setup status not resolved yet.
	StateChecking SessionState = "checking"
	// StateNotSetup: the account has no salt; Setup is required.
	StateNotSetup SessionState = "not_setup"
	// StateSetupLocked: a salt exists but no key is in memory.
	StateSetupLocked SessionState = "locked"
	// StateUnlocked: a verified master key is held in memory.
	StateUnlocked SessionState = "unlocked"
)

// SessionStatus is the UI-facing snapshot of the state machine.
type SessionStatus struct {
	State      SessionState
	IsSetup    bool
	IsUnlocked bool
}

// Session orchestrates setup, unlock, lock, and the encrypt/decrypt
// operations exposed to the rest of the application. It exclusively owns the
// in-memory master key: the key is never serialized, never crosses a
// persistence or network boundary, and is wiped on lock, logout, and
// identity change.
type Session struct {
	client      client.Client
	salts       *SaltStore
	vault       keyvault.Repository
	limiter     *RateLimiter
	broadcaster *Broadcaster
	logger      logging.Logger

	// opMu serializes Setup/Unlock/Lock/SetIdentity so a second unlock
	// cannot start while a derivation is in flight for the same user.
	opMu sync.Mutex

	mu        sync.Mutex
	state     SessionState
	userID    string
	masterKey []byte

	now func() time.Time
}

func NewSession(c client.Client, salts *SaltStore, vault keyvault.Repository, limiter *RateLimiter, b *Broadcaster, l logging.Logger) *Session {
	return &Session{
		client:      c,
		salts:       salts,
		vault:       vault,
		limiter:     limiter,
		broadcaster: b,
		logger:      l.With("module", "session"),
		state:       StateUninitialized,
		now:         time.Now,
	}
}

// SetIdentity switches the session to the given authenticated user. The
// previous user's key is wiped before anything else happens, and the previous
// user's verification blob is cleared best-effort so nothing derived from
// their passphrase outlives the login. The session passes through Checking
// while the setup status is resolved from the remote store, falling back to
// the local vault when the remote store is unreachable and a verification
// blob exists.
func (s *Session) SetIdentity(ctx context.Context, userID string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	cryptox.Wipe(s.masterKey)
	s.masterKey = nil
	prev := s.userID
	s.userID = userID
	s.state = StateChecking
	s.mu.Unlock()

	if prev != "" && prev != userID {
		s.salts.Invalidate(prev)
		// Never block a logout or identity switch on local cleanup.
		if err := s.vault.Clear(ctx, prev); err != nil {
			s.logger.Warn(ctx, "clearing verification blob failed", "error", err.Error())
		}
	}
	if userID == "" {
		s.setState(StateUninitialized)
		return nil
	}

	status, err := s.client.GetEncryptionStatus(ctx)
	if err != nil {
		has, verr := s.vault.Has(ctx, userID)
		if verr == nil && has {
			// Degraded: remote unreachable but local material exists.
			s.setState(StateSetupLocked)
			return nil
		}
		return fmt.Errorf("resolving encryption status: %w", err)
	}

	if status.HasSalt {
		s.setState(StateSetupLocked)
	} else {
		s.setState(StateNotSetup)
	}
	return nil
}

// Setup initializes encryption for an account that has none: it generates a
// salt, derives the master key, stores the local verification blob, upserts
// the salt to the remote store, and transitions to Unlocked. Any failure
// yields a SetupError and no partial success; re-attempting is safe because
// the salt save is an upsert.
func (s *Session) Setup(ctx context.Context, passphrase []byte) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	userID, state := s.snapshot()
	switch state {
	case StateUninitialized, StateChecking:
		return ErrNoIdentity
	case StateSetupLocked, StateUnlocked:
		return ErrAlreadySetUp
	}

	salt, err := cryptox.GenerateSalt()
	if err != nil {
		return &SetupError{Err: err}
	}

	key := cryptox.DeriveMasterKey(passphrase, salt)

	blob, err := s.buildVerificationBlob(userID, key)
	if err != nil {
		cryptox.Wipe(key)
		return &SetupError{Err: err}
	}
	if err := s.vault.Put(ctx, userID, blob); err != nil {
		cryptox.Wipe(key)
		return &SetupError{Err: err}
	}
	if err := s.salts.SaveSalt(ctx, userID, salt); err != nil {
		cryptox.Wipe(key)
		return &SetupError{Err: err}
	}

	s.mu.Lock()
	s.masterKey = key
	s.state = StateUnlocked
	s.mu.Unlock()

	s.logger.Info(ctx, "encryption set up", "user_id", userID)
	return nil
}

// Unlock verifies the passphrase and transitions to Unlocked. The rate
// limiter is consulted before key derivation so a locked-out user never pays
// the derivation cost, and attempt accounting is applied exactly once per
// attempt. Verification uses the local blob when present; on a new device it
// falls back to decrypting one existing encrypted record fetched from the
// remote store, persisting a fresh local blob on success.
func (s *Session) Unlock(ctx context.Context, passphrase []byte) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	userID, state := s.snapshot()
	switch state {
	case StateUnlocked:
		return nil
	case StateUninitialized, StateChecking:
		return ErrNoIdentity
	case StateNotSetup:
		return ErrNotSetUp
	}

	if err := s.limiter.CheckAllowed(ctx, userID); err != nil {
		return err
	}

	salt, err := s.salts.GetSalt(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSaltNotFound) {
			s.setState(StateNotSetup)
			return ErrNotSetUp
		}
		return err
	}

	key := cryptox.DeriveMasterKey(passphrase, salt)

	ok, err := s.verifyCandidate(ctx, userID, key)
	if err != nil {
		// Transport failure or nothing to verify against: the attempt is
		// not accounted, since no passphrase was proven wrong.
		cryptox.Wipe(key)
		return err
	}
	if !ok {
		cryptox.Wipe(key)
		st, lerr := s.limiter.RecordFailure(ctx, userID)
		if lerr != nil {
			s.logger.Error(ctx, "recording failed attempt", "error", lerr)
		}
		if st.LockedOut(s.now()) {
			return &LockedOutError{RemainingSeconds: s.limiter.LockoutRemaining(st)}
		}
		return &InvalidPassphraseError{AttemptsRemaining: s.limiter.AttemptsRemaining(st)}
	}

	s.mu.Lock()
	s.masterKey = key
	s.state = StateUnlocked
	s.mu.Unlock()

	if err := s.limiter.RecordSuccess(ctx, userID); err != nil {
		s.logger.Warn(ctx, "resetting attempt counter", "error", err)
	}
	return nil
}

// Lock wipes the in-memory key and clears the local verification blob,
// returning to SetupLocked. The salt is never cleared: it is needed to
// re-derive the key and to distinguish "never set up" from "locked".
// Clearing the vault is best-effort and never blocks the lock.
func (s *Session) Lock(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	userID, state := s.snapshot()
	if state != StateUnlocked {
		return ErrNotUnlocked
	}

	s.mu.Lock()
	cryptox.Wipe(s.masterKey)
	s.masterKey = nil
	s.state = StateSetupLocked
	s.mu.Unlock()

	if err := s.vault.Clear(ctx, userID); err != nil {
		s.logger.Warn(ctx, "clearing key vault", "error", err)
	}
	return nil
}

// Status reports the UI-facing view of the state machine.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStatus{
		State:      s.state,
		IsSetup:    s.state == StateSetupLocked || s.state == StateUnlocked,
		IsUnlocked: s.state == StateUnlocked,
	}
}

// EncryptData encrypts a record's sensitive fields under the session key.
// Only valid while Unlocked.
func (s *Session) EncryptData(a *models.Analysis) (*models.EncryptedAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUnlocked {
		return nil, ErrNotUnlocked
	}
	return EncryptAnalysis(a, s.masterKey)
}

// DecryptData decrypts a record's sensitive fields under the session key.
// Only valid while Unlocked.
func (s *Session) DecryptData(ea *models.EncryptedAnalysis) (*models.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUnlocked {
		return nil, ErrNotUnlocked
	}
	return DecryptAnalysis(ea, s.masterKey)
}

// Watch re-reads rate-limit state whenever another session sharing the same
// backing store broadcasts a change for this session's user, so a lockout
// triggered elsewhere is observed without polling. It blocks until ctx is
// done.
func (s *Session) Watch(ctx context.Context) {
	ch, cancel := s.broadcaster.Subscribe()
	defer cancel()

	for {
		select {
		case userID, open := <-ch:
			if !open {
				return
			}
			current, _ := s.snapshot()
			if userID != current {
				continue
			}
			st, err := s.limiter.State(ctx, userID)
			if err != nil {
				s.logger.Warn(ctx, "re-reading rate limit state", "error", err)
				continue
			}
			if st.LockedOut(s.now()) {
				s.logger.Warn(ctx, "lockout observed from another session",
					"remaining_s", s.limiter.LockoutRemaining(st))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) snapshot() (string, SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.state
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// buildVerificationBlob encrypts the small constant payload {ts, uid} under
// key. Successful decryption plus a uid match later proves a candidate key
// without a network round trip.
func (s *Session) buildVerificationBlob(userID string, key []byte) ([]byte, error) {
	payload := models.VerificationPayload{TS: s.now().Unix(), UID: userID}
	data, nonce, err := cryptox.EncryptJSON(payload, key)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.EncryptedField{Nonce: nonce, Data: data})
}

// verifyCandidate reports whether key is the user's master key.
// (false, nil) means the passphrase is wrong; a non-nil error means
// verification could not be performed at all.
func (s *Session) verifyCandidate(ctx context.Context, userID string, key []byte) (bool, error) {
	blob, err := s.vault.Get(ctx, userID)
	if err != nil {
		return false, err
	}

	if blob != nil {
		var field models.EncryptedField
		if err := json.Unmarshal(blob, &field); err != nil {
			// Corrupt blob: fall back to remote verification below.
			s.logger.Warn(ctx, "corrupt verification blob, falling back to remote verification")
		} else {
			var payload models.VerificationPayload
			err := cryptox.DecryptJSON(field.Data, field.Nonce, key, &payload)
			if err != nil {
				if errors.Is(err, cryptox.ErrDecryptionFailed) {
					return false, nil
				}
				return false, err
			}
			// A decryptable blob for another uid is treated the same as a
			// tag failure.
			return payload.UID == userID, nil
		}
	}

	// First unlock on this device: verify against one existing encrypted
	// record from the remote store.
	items, err := s.client.ListAnalyses(ctx, 1)
	if err != nil {
		return false, fmt.Errorf("fetching record for verification: %w", err)
	}
	if len(items) == 0 {
		return false, ErrCannotVerify
	}

	if _, err := DecryptAnalysis(items[0], key); err != nil {
		if errors.Is(err, cryptox.ErrDecryptionFailed) {
			return false, nil
		}
		return false, fmt.Errorf("verifying against existing record: %w", err)
	}

	// Proven: persist a local blob so future unlocks take the fast path.
	newBlob, err := s.buildVerificationBlob(userID, key)
	if err == nil {
		err = s.vault.Put(ctx, userID, newBlob)
	}
	if err != nil {
		s.logger.Warn(ctx, "storing verification blob after remote verification", "error", err)
	}
	return true, nil
}
