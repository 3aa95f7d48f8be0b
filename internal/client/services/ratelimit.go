package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"phishvault/internal/client/client"
	"phishvault/internal/client/repositories/localstate"
	"phishvault/internal/logging"
)

const (
	// MaxUnlockAttempts failed unlocks in a row trigger a lockout.
	MaxUnlockAttempts = 5

	// LockoutDuration is the fixed lockout window.
	LockoutDuration = 5 * time.Minute

	// lockoutKeyPrefix namespaces the per-user state blob in local storage.
	lockoutKeyPrefix = "lockout_"
)

// RateLimitState is the persisted per-user attempt counter. FailedAttempts
// only resets on a verified successful unlock or lockout expiry.
type RateLimitState struct {
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
}

// LockedOut reports whether the lockout window is still active at now.
func (st RateLimitState) LockedOut(now time.Time) bool {
	return st.LockedUntil != nil && now.Before(*st.LockedUntil)
}

// RateLimiter tracks failed unlock attempts per user id. Local storage is
// authoritative for the current device; the remote store receives a
// best-effort mirror so other devices eventually observe the lockout. Every
// state change is published on the broadcaster so other open sessions
// re-read without polling.
type RateLimiter struct {
	repo        localstate.Repository
	client      client.Client
	broadcaster *Broadcaster
	logger      logging.Logger

	wg  sync.WaitGroup
	now func() time.Time
}

func NewRateLimiter(repo localstate.Repository, c client.Client, b *Broadcaster, l logging.Logger) *RateLimiter {
	return &RateLimiter{
		repo:        repo,
		client:      c,
		broadcaster: b,
		logger:      l.With("module", "ratelimit"),
		now:         time.Now,
	}
}

// State returns the user's current rate-limit state. A lockout whose window
// has passed is lazily reset to clear and persisted as such.
func (r *RateLimiter) State(ctx context.Context, userID string) (RateLimitState, error) {
	var st RateLimitState

	raw, err := r.repo.Get(ctx, lockoutKeyPrefix+userID)
	if err != nil {
		return st, err
	}
	if raw == nil {
		return st, nil
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return RateLimitState{}, fmt.Errorf("corrupt rate limit state for %s: %w", userID, err)
	}

	if st.LockedUntil != nil && !r.now().Before(*st.LockedUntil) {
		st = RateLimitState{}
		if err := r.persist(ctx, userID, st); err != nil {
			return st, err
		}
		r.broadcaster.Publish(userID)
	}
	return st, nil
}

// CheckAllowed must be called before every unlock attempt, ahead of key
// derivation: a locked-out user must not pay the derivation cost. It does
// not consume an attempt.
func (r *RateLimiter) CheckAllowed(ctx context.Context, userID string) error {
	st, err := r.State(ctx, userID)
	if err != nil {
		return err
	}
	if st.LockedOut(r.now()) {
		return &LockedOutError{RemainingSeconds: r.LockoutRemaining(st)}
	}
	return nil
}

// RecordFailure increments the attempt counter and, at MaxUnlockAttempts,
// starts the lockout window. The new state is persisted locally, mirrored to
// the remote store asynchronously, and broadcast.
func (r *RateLimiter) RecordFailure(ctx context.Context, userID string) (RateLimitState, error) {
	st, err := r.State(ctx, userID)
	if err != nil {
		return st, err
	}

	st.FailedAttempts++
	if st.FailedAttempts >= MaxUnlockAttempts {
		until := r.now().Add(LockoutDuration)
		st.LockedUntil = &until
	}

	if err := r.persist(ctx, userID, st); err != nil {
		return st, err
	}
	r.mirror(ctx, userID, st)
	r.broadcaster.Publish(userID)
	return st, nil
}

// RecordSuccess resets the user to the clear state, persists, mirrors,
// and broadcasts.
func (r *RateLimiter) RecordSuccess(ctx context.Context, userID string) error {
	st := RateLimitState{}
	if err := r.persist(ctx, userID, st); err != nil {
		return err
	}
	r.mirror(ctx, userID, st)
	r.broadcaster.Publish(userID)
	return nil
}

// AttemptsRemaining computes how many attempts are left before lockout.
func (r *RateLimiter) AttemptsRemaining(st RateLimitState) int {
	remaining := MaxUnlockAttempts - st.FailedAttempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Wait blocks until in-flight remote mirroring has finished. Used on
// shutdown and in tests.
func (r *RateLimiter) Wait() { r.wg.Wait() }

// LockoutRemaining returns the whole seconds left in the lockout window,
// 0 when the user is not locked out.
func (r *RateLimiter) LockoutRemaining(st RateLimitState) int {
	if st.LockedUntil == nil {
		return 0
	}
	remaining := int(st.LockedUntil.Sub(r.now()).Round(time.Second).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (r *RateLimiter) persist(ctx context.Context, userID string, st RateLimitState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return r.repo.Set(ctx, lockoutKeyPrefix+userID, raw)
}

// mirror pushes the state to the remote store without blocking the caller.
// Failures are logged and otherwise ignored: local state stays authoritative
// for this device and cross-device lockout is eventually consistent.
func (r *RateLimiter) mirror(ctx context.Context, userID string, st RateLimitState) {
	mirrorCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), client.DefaultRequestTimeout)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		var err error
		if st.LockedUntil != nil {
			err = r.client.LockUser(mirrorCtx, *st.LockedUntil, st.FailedAttempts)
		} else {
			err = r.client.SaveAttempts(mirrorCtx, st.FailedAttempts)
		}
		if err != nil {
			r.logger.Warn(mirrorCtx, "lockout mirror failed", "error", err)
		}
	}()
}
