package memory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/ErlanBelekov/magic-auth/internal/infrastructure/memory"
)

var ctx = context.Background()

func TestTokenStore_ConcurrentClaim_ExactlyOneWins(t *testing.T) {
	s := memory.NewTokenStore()
	now := time.Now()
	hash := domain.HashToken("raw")
	if err := s.Put(ctx, hash, "alice", now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	const n = 50
	var wins, used atomic.Int32
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.GetAndMarkUsedIfValid(ctx, hash, now)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrTokenAlreadyUsed):
				used.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 || used.Load() != n-1 {
		t.Fatalf("wins = %d, already used = %d; want 1 and %d", wins.Load(), used.Load(), n-1)
	}
}

func TestTokenStore_ExpiredIsDeleted(t *testing.T) {
	s := memory.NewTokenStore()
	now := time.Now()
	hash := domain.HashToken("raw")
	_ = s.Put(ctx, hash, "alice", now.Add(-time.Second))

	if _, err := s.GetAndMarkUsedIfValid(ctx, hash, now); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatal("expired record not removed")
	}
	if _, err := s.GetAndMarkUsedIfValid(ctx, hash, now); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("second lookup: want ErrTokenNotFound, got %v", err)
	}
}

func TestTokenStore_UsedTakesPrecedenceOverExpiry(t *testing.T) {
	s := memory.NewTokenStore()
	now := time.Now()
	hash := domain.HashToken("raw")
	_ = s.Put(ctx, hash, "alice", now.Add(time.Minute))

	if _, err := s.GetAndMarkUsedIfValid(ctx, hash, now); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetAndMarkUsedIfValid(ctx, hash, now.Add(time.Hour)); !errors.Is(err, domain.ErrTokenAlreadyUsed) {
		t.Fatalf("want ErrTokenAlreadyUsed, got %v", err)
	}
}

func TestTokenStore_DuplicatePut(t *testing.T) {
	s := memory.NewTokenStore()
	hash := domain.HashToken("raw")
	_ = s.Put(ctx, hash, "alice", time.Now().Add(time.Minute))
	if err := s.Put(ctx, hash, "alice", time.Now().Add(time.Minute)); !errors.Is(err, domain.ErrDuplicateToken) {
		t.Fatalf("want ErrDuplicateToken, got %v", err)
	}
}

func TestTokenStore_DeleteExpired(t *testing.T) {
	s := memory.NewTokenStore()
	now := time.Now()
	_ = s.Put(ctx, domain.HashToken("old"), "a", now.Add(-time.Hour))
	_ = s.Put(ctx, domain.HashToken("new"), "b", now.Add(time.Hour))

	n, err := s.DeleteExpired(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpired = %d, %v; want 1, nil", n, err)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
}

func TestRateLimitStore_ConcurrentIncrementsNotLost(t *testing.T) {
	s := memory.NewRateLimitStore()
	window := time.Now().Truncate(time.Hour)

	const n = 100
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Increment(ctx, "alice", window, time.Hour); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := s.Count("alice", window); got != n {
		t.Fatalf("count = %d, want %d", got, n)
	}
}

func TestRateLimitStore_DeleteBefore(t *testing.T) {
	s := memory.NewRateLimitStore()
	now := time.Now().Truncate(time.Hour)
	_, _ = s.Increment(ctx, "alice", now.Add(-48*time.Hour), time.Hour)
	_, _ = s.Increment(ctx, "alice", now, time.Hour)

	n, err := s.DeleteBefore(ctx, now.Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("DeleteBefore = %d, %v; want 1, nil", n, err)
	}
	if s.Count("alice", now) != 1 {
		t.Fatal("current window was pruned")
	}
}

func TestUserRepository_FindOrCreate_ConcurrentSingleRecord(t *testing.T) {
	r := memory.NewUserRepository()

	const n = 20
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := r.FindOrCreate(ctx, "newcomer", "newcomer")
			if err != nil {
				t.Errorf("find or create: %v", err)
				return
			}
			ids[i] = u.ID
		}()
	}
	wg.Wait()

	if r.Count() != 1 {
		t.Fatalf("users = %d, want 1", r.Count())
	}
	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("different ids returned: %q vs %q", id, ids[0])
		}
	}
}
