package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"phishvault/internal/client/client"
)

// SaltCacheTTL bounds staleness of the cached salt while avoiding a remote
// call on every unlock attempt or render.
const SaltCacheTTL = 5 * time.Minute

type cachedSalt struct {
	salt      []byte
	fetchedAt time.Time
}

// SaltStore resolves the per-user salt from the remote store and caches it
// locally for a short TTL. The salt is immutable once issued.
type SaltStore struct {
	client client.Client

	mu    sync.Mutex
	cache map[string]cachedSalt

	now func() time.Time
}

func NewSaltStore(c client.Client) *SaltStore {
	return &SaltStore{
		client: c,
		cache:  make(map[string]cachedSalt),
		now:    time.Now,
	}
}

// GetSalt returns the user's salt, from cache when fresh, otherwise from
// GET /encryption/status. Returns ErrSaltNotFound when the account has no
// salt yet, and a wrapped client.ErrUnavailable on transport failure. Since
// the salt is immutable once issued, a stale cache entry is still valid and
// is served when the remote store is unreachable.
func (s *SaltStore) GetSalt(ctx context.Context, userID string) ([]byte, error) {
	s.mu.Lock()
	entry, ok := s.cache[userID]
	s.mu.Unlock()
	if ok && s.now().Sub(entry.fetchedAt) < SaltCacheTTL {
		return entry.salt, nil
	}

	status, err := s.client.GetEncryptionStatus(ctx)
	if err != nil {
		if ok && errors.Is(err, client.ErrUnavailable) {
			return entry.salt, nil
		}
		return nil, fmt.Errorf("fetching encryption status: %w", err)
	}
	if !status.HasSalt || len(status.Salt) == 0 {
		return nil, ErrSaltNotFound
	}

	s.put(userID, status.Salt)
	return status.Salt, nil
}

// SaveSalt upserts the salt to the remote store and refreshes the cache.
// The remote endpoint is idempotent; retrying after a transport failure is
// always safe.
func (s *SaltStore) SaveSalt(ctx context.Context, userID string, salt []byte) error {
	if err := s.client.SaveSalt(ctx, salt); err != nil {
		return fmt.Errorf("saving salt: %w", err)
	}
	s.put(userID, salt)
	return nil
}

// Invalidate drops the cached salt for the user, e.g. on identity change.
func (s *SaltStore) Invalidate(userID string) {
	s.mu.Lock()
	delete(s.cache, userID)
	s.mu.Unlock()
}

func (s *SaltStore) put(userID string, salt []byte) {
	s.mu.Lock()
	s.cache[userID] = cachedSalt{salt: salt, fetchedAt: s.now()}
	s.mu.Unlock()
}
