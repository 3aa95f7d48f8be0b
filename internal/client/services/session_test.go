package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"phishvault/internal/client/client"
	"phishvault/internal/client/models"
	"phishvault/internal/client/repositories/keyvault"
	"phishvault/internal/client/repositories/localstate"
	"phishvault/internal/cryptox"
)

type sessionEnv struct {
	fc          *fakeClient
	vault       *keyvault.SQLiteRepository
	limiter     *RateLimiter
	broadcaster *Broadcaster
	session     *Session

	current *time.Time
}

func newSessionEnv(t *testing.T, dbName string) *sessionEnv {
	t.Helper()
	db := setupDB(t, dbName)

	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	env := &sessionEnv{
		fc:          &fakeClient{UserIDRet: "u1"},
		vault:       keyvault.NewSQLiteRepository(db),
		broadcaster: NewBroadcaster(),
		current:     &current,
	}
	nowFn := func() time.Time { return *env.current }

	env.limiter = NewRateLimiter(localstate.NewSQLiteRepository(db), env.fc, env.broadcaster, testLogger())
	env.limiter.now = nowFn
	env.session = env.newSession(nowFn)

	t.Cleanup(env.limiter.Wait)
	return env
}

// newSession builds another session over the same stores, simulating a second
// app instance (or a restart) on the same device.
func (e *sessionEnv) newSession(nowFn func() time.Time) *Session {
	salts := NewSaltStore(e.fc)
	salts.now = nowFn
	s := NewSession(e.fc, salts, e.vault, e.limiter, e.broadcaster, testLogger())
	s.now = nowFn
	return s
}

func (e *sessionEnv) setUp(t *testing.T, ctx context.Context, passphrase string) {
	t.Helper()
	e.fc.StatusRet = &client.EncryptionStatus{HasSalt: false}
	require.NoError(t, e.session.SetIdentity(ctx, "u1"))
	require.NoError(t, e.session.Setup(ctx, []byte(passphrase)))

	// Later SetIdentity calls see the account as set up.
	e.fc.StatusRet = &client.EncryptionStatus{HasSalt: true, Salt: e.fc.SavedSalt}
}

func TestSession_SetupFlow(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, "sess_setup")
	env.fc.StatusRet = &client.EncryptionStatus{HasSalt: false}

	require.Equal(t, StateUninitialized, env.session.Status().State)

	require.NoError(t, env.session.SetIdentity(ctx, "u1"))
	require.Equal(t, StateNotSetup, env.session.Status().State)
	require.False(t, env.session.Status().IsSetup)

	require.NoError(t, env.session.Setup(ctx, []byte("Tr0ub4dor&3xtra!")))

	status := env.session.Status()
	require.Equal(t, StateUnlocked, status.State)
	require.True(t, status.IsSetup)
	require.True(t, status.IsUnlocked)

	// Salt uploaded, verification blob stored.
	require.Len(t, env.fc.SavedSalt, cryptox.SaltLength)
	has, err := env.vault.Has(ctx, "u1")
	require.NoError(t, err)
	require.True(t, has)

	// The unlocked session encrypts and decrypts.
	ea, err := env.session.EncryptData(sampleAnalysis())
	require.NoError(t, err)
	got, err := env.session.DecryptData(ea)
	require.NoError(t, err)
	require.Equal(t, "a@b.com", got.UserEmail)

	require.ErrorIs(t, env.session.Setup(ctx, []byte("again")), ErrAlreadySetUp)
}

func TestSession_UnlockWithLocalBlob(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, "sess_unlock")
	env.setUp(t, ctx, "Tr0ub4dor&3xtra!")

	// A restarted instance: same vault, no key in memory.
	restarted := env.newSession(env.limiter.now)
	require.NoError(t, restarted.SetIdentity(ctx, "u1"))
	require.Equal(t, StateSetupLocked, restarted.Status().State)
	require.True(t, restarted.Status().IsSetup)

	err := restarted.Unlock(ctx, []byte("wrongpass"))
	var ipe *InvalidPassphraseError
	require.ErrorAs(t, err, &ipe)
	require.Equal(t, MaxUnlockAttempts-1, ipe.AttemptsRemaining)
	require.Equal(t, StateSetupLocked, restarted.Status().State)

	require.NoError(t, restarted.Unlock(ctx, []byte("Tr0ub4dor&3xtra!")))
	require.Equal(t, StateUnlocked, restarted.Status().State)

	// Local verification needs no remote record fetch.
	require.Equal(t, 0, env.fc.ListCalls)

	// A verified unlock resets the attempt counter.
	st, err := env.limiter.State(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 0, st.FailedAttempts)
}

func TestSession_LockoutAfterMaxFailures(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, "sess_lockout")
	env.setUp(t, ctx, "correct horse")

	locked := env.newSession(env.limiter.now)
	require.NoError(t, locked.SetIdentity(ctx, "u1"))

	for i := 1; i < MaxUnlockAttempts; i++ {
		err := locked.Unlock(ctx, []byte("wrongpass"))
		var ipe *InvalidPassphraseError
		require.ErrorAs(t, err, &ipe)
		require.Equal(t, MaxUnlockAttempts-i, ipe.AttemptsRemaining)
	}

	// The final failure starts the lockout window.
	err := locked.Unlock(ctx, []byte("wrongpass"))
	var loe *LockedOutError
	require.ErrorAs(t, err, &loe)
	require.Equal(t, int(LockoutDuration.Seconds()), loe.RemainingSeconds)

	// Even the correct passphrase is rejected while locked out.
	err = locked.Unlock(ctx, []byte("correct horse"))
	require.ErrorAs(t, err, &loe)
	require.Equal(t, StateSetupLocked, locked.Status().State)

	// After the window passes, the correct passphrase works again.
	*env.current = env.current.Add(LockoutDuration)
	require.NoError(t, locked.Unlock(ctx, []byte("correct horse")))
	require.Equal(t, StateUnlocked, locked.Status().State)
}

func TestSession_LockWipesKeyAndBlob(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, "sess_lock")
	env.setUp(t, ctx, "Tr0ub4dor&3xtra!")

	require.NoError(t, env.session.Lock(ctx))
	require.Equal(t, StateSetupLocked, env.session.Status().State)

	_, err := env.session.EncryptData(sampleAnalysis())
	require.ErrorIs(t, err, ErrNotUnlocked)

	has, err := env.vault.Has(ctx, "u1")
	require.NoError(t, err)
	require.False(t, has)

	require.ErrorIs(t, env.session.Lock(ctx), ErrNotUnlocked)
}

func TestSession_NewDeviceNoRecords(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, "sess_nodata")

	salt, err := cryptox.GenerateSalt()
	require.NoError(t, err)
	env.fc.StatusRet = &client.EncryptionStatus{HasSalt: true, Salt: salt}

	require.NoError(t, env.session.SetIdentity(ctx, "u1"))
	require.Equal(t, StateSetupLocked, env.session.Status().State)

	err = env.session.Unlock(ctx, []byte("whatever"))
	require.ErrorIs(t, err, ErrCannotVerify)

	// An unverifiable attempt is not a failed attempt.
	st, err := env.limiter.State(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 0, st.FailedAttempts)
}

func TestSession_NewDeviceVerifiesAgainstRecord(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, "sess_newdevice")

	salt, err := cryptox.GenerateSalt()
	require.NoError(t, err)
	key := cryptox.DeriveMasterKey([]byte("Tr0ub4dor&3xtra!"), salt)
	ea, err := EncryptAnalysis(sampleAnalysis(), key)
	require.NoError(t, err)

	env.fc.StatusRet = &client.EncryptionStatus{HasSalt: true, Salt: salt}
	env.fc.ListRet = []*models.EncryptedAnalysis{ea}

	require.NoError(t, env.session.SetIdentity(ctx, "u1"))

	err = env.session.Unlock(ctx, []byte("wrongpass"))
	var ipe *InvalidPassphraseError
	require.ErrorAs(t, err, &ipe)

	require.NoError(t, env.session.Unlock(ctx, []byte("Tr0ub4dor&3xtra!")))
	require.Equal(t, StateUnlocked, env.session.Status().State)
	require.Equal(t, 1, env.fc.LastLimit)

	// A fresh verification blob was persisted for the fast path.
	has, err := env.vault.Has(ctx, "u1")
	require.NoError(t, err)
	require.True(t, has)
}

func TestSession_SetIdentityOfflineFallsBackToVault(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, "sess_offline")
	env.setUp(t, ctx, "Tr0ub4dor&3xtra!")

	env.fc.StatusErr = client.ErrUnavailable

	// Local material exists: degrade to locked instead of failing.
	offline := env.newSession(env.limiter.now)
	require.NoError(t, offline.SetIdentity(ctx, "u1"))
	require.Equal(t, StateSetupLocked, offline.Status().State)

	// No local material for this user: the error surfaces.
	other := env.newSession(env.limiter.now)
	err := other.SetIdentity(ctx, "u2")
	require.ErrorIs(t, err, client.ErrUnavailable)
	require.Equal(t, StateChecking, other.Status().State)
}

func TestSession_OperationsRequireIdentity(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, "sess_noident")

	require.ErrorIs(t, env.session.Setup(ctx, []byte("p")), ErrNoIdentity)
	require.ErrorIs(t, env.session.Unlock(ctx, []byte("p")), ErrNoIdentity)
	require.ErrorIs(t, env.session.Lock(ctx), ErrNotUnlocked)

	_, err := env.session.EncryptData(sampleAnalysis())
	require.ErrorIs(t, err, ErrNotUnlocked)
}

func TestSession_IdentityChangeWipesKey(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, "sess_logout")
	env.setUp(t, ctx, "Tr0ub4dor&3xtra!")
	require.Equal(t, StateUnlocked, env.session.Status().State)

	// Logout.
	require.NoError(t, env.session.SetIdentity(ctx, ""))
	require.Equal(t, StateUninitialized, env.session.Status().State)

	_, err := env.session.EncryptData(sampleAnalysis())
	require.ErrorIs(t, err, ErrNotUnlocked)
}

func TestSession_LogoutClearsVerificationBlob(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, "sess_logout_blob")
	env.setUp(t, ctx, "Tr0ub4dor&3xtra!")

	has, err := env.vault.Has(ctx, "u1")
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, env.session.SetIdentity(ctx, ""))

	// Nothing derived from the passphrase survives the logout.
	has, err = env.vault.Has(ctx, "u1")
	require.NoError(t, err)
	require.False(t, has)
}

func TestSession_IdentitySwitchClearsPreviousBlob(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, "sess_switch_blob")
	env.setUp(t, ctx, "Tr0ub4dor&3xtra!")

	env.fc.UserIDRet = "u2"
	env.fc.StatusRet = &client.EncryptionStatus{}
	require.NoError(t, env.session.SetIdentity(ctx, "u2"))

	has, err := env.vault.Has(ctx, "u1")
	require.NoError(t, err)
	require.False(t, has)
}
