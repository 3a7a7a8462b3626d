// Package memory holds process-local store implementations used for local
// development and as test doubles. They are not shared across instances.
package memory

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
)

type TokenStore struct {
	mu      sync.Mutex
	records map[string]*domain.MagicLinkRecord
	now     func() time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{records: make(map[string]*domain.MagicLinkRecord), now: time.Now}
}

func (s *TokenStore) Put(_ context.Context, hash []byte, ownerIdentity string, expiresAt time.Time) error {
	key := hex.EncodeToString(hash)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; ok {
		return domain.ErrDuplicateToken
	}
	s.records[key] = &domain.MagicLinkRecord{
		TokenHash:     append([]byte(nil), hash...),
		OwnerIdentity: ownerIdentity,
		ExpiresAt:     expiresAt,
		CreatedAt:     s.now(),
	}
	return nil
}

// The whole check-and-mark runs under one lock acquisition.
func (s *TokenStore) GetAndMarkUsedIfValid(_ context.Context, hash []byte, now time.Time) (*domain.MagicLinkRecord, error) {
	key := hex.EncodeToString(hash)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	if rec.Used {
		return nil, domain.ErrTokenAlreadyUsed
	}
	if rec.Expired(now) {
		delete(s.records, key)
		return nil, domain.ErrTokenExpired
	}

	usedAt := now
	rec.Used = true
	rec.UsedAt = &usedAt

	out := *rec
	return &out, nil
}

func (s *TokenStore) Delete(_ context.Context, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, hex.EncodeToString(hash))
	return nil
}

func (s *TokenStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, rec := range s.records {
		if rec.ExpiresAt.Before(before) {
			delete(s.records, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
