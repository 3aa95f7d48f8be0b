package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"phishvault/internal/common"
	"phishvault/internal/server/models"
)

func TestStatus_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	// salt present, records present
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{getOut: &models.User{ID: "u1", Salt: []byte("SALT")}},
		a: &fakeAnalysesRepo{hasAnyOut: true},
	}
	s := NewEncryptionService(db, rm)
	st, err := s.Status(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if !st.HasSalt || !st.HasAnalyses || !bytes.Equal(st.Salt, []byte("SALT")) {
		t.Fatalf("unexpected status: %+v", st)
	}

	// fresh account: no salt, no records
	rmFresh := &fakeRepoManager{
		u: &fakeUsersRepo{getOut: &models.User{ID: "u1"}},
		a: &fakeAnalysesRepo{},
	}
	st, err = NewEncryptionService(db, rmFresh).Status(context.Background(), "u1")
	if err != nil || st.HasSalt || st.HasAnalyses || st.Salt != nil {
		t.Fatalf("fresh status: %+v err=%v", st, err)
	}

	// unknown user
	rmNF := &fakeRepoManager{u: &fakeUsersRepo{getErr: common.ErrorNotFound}}
	if _, err := NewEncryptionService(db, rmNF).Status(context.Background(), "ghost"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}

	// repo failure
	rmErr := &fakeRepoManager{
		u: &fakeUsersRepo{getOut: &models.User{ID: "u1"}},
		a: &fakeAnalysesRepo{hasAnyErr: errBoom{}},
	}
	if _, err := NewEncryptionService(db, rmErr).Status(context.Background(), "u1"); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
}

func TestSaveSalt(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	u := &fakeUsersRepo{}
	s := NewEncryptionService(db, &fakeRepoManager{u: u})

	if err := s.SaveSalt(context.Background(), "u1", []byte("SALT")); err != nil {
		t.Fatalf("SaveSalt error: %v", err)
	}
	if u.setSaltCalls != 1 || !bytes.Equal(u.savedSalt, []byte("SALT")) {
		t.Fatalf("salt not stored: calls=%d salt=%q", u.setSaltCalls, u.savedSalt)
	}

	if err := s.SaveSalt(context.Background(), "u1", nil); err == nil {
		t.Fatal("expected error for empty salt")
	}

	uErr := &fakeUsersRepo{setSaltErr: errBoom{}}
	sErr := NewEncryptionService(db, &fakeRepoManager{u: uErr})
	if err := sErr.SaveSalt(context.Background(), "u1", []byte("S")); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
}

func TestSaveAttempts(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	u := &fakeUsersRepo{}
	s := NewEncryptionService(db, &fakeRepoManager{u: u})

	if err := s.SaveAttempts(context.Background(), "u1", 3); err != nil {
		t.Fatalf("SaveAttempts error: %v", err)
	}
	if u.lockoutAttempts != 3 || u.lockoutUntil != nil {
		t.Fatalf("unexpected mirror: attempts=%d until=%v", u.lockoutAttempts, u.lockoutUntil)
	}
}

func TestLockUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	u := &fakeUsersRepo{}
	s := NewEncryptionService(db, &fakeRepoManager{u: u})

	until := time.Now().Add(5 * time.Minute).UTC()
	if err := s.LockUser(context.Background(), "u1", until, 5); err != nil {
		t.Fatalf("LockUser error: %v", err)
	}
	if u.lockoutAttempts != 5 || u.lockoutUntil == nil || !u.lockoutUntil.Equal(until) {
		t.Fatalf("unexpected mirror: attempts=%d until=%v", u.lockoutAttempts, u.lockoutUntil)
	}
}
