package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/ErlanBelekov/magic-auth/internal/infrastructure/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// These tests need a disposable database:
//
//	TEST_DATABASE_URL=postgres://localhost:5432/magic_auth_test go test ./internal/infrastructure/postgres
func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, url, postgres.PoolOptions{MaxConns: 30})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func TestTokenStore_ConcurrentClaim_ExactlyOneWins(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	s := postgres.NewTokenStore(pool)

	now := time.Now()
	hash := domain.HashToken(uuid.NewString())
	if err := s.Put(ctx, hash, "alice", now.Add(time.Minute)); err != nil {
		t.Fatalf("put: %v", err)
	}

	const n = 20
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
		t.Fatalf("wins = %d, already used = %d", wins.Load(), used.Load())
	}
}

func TestTokenStore_ExpiredIsDeleted(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	s := postgres.NewTokenStore(pool)

	now := time.Now()
	hash := domain.HashToken(uuid.NewString())
	_ = s.Put(ctx, hash, "alice", now.Add(-5*time.Minute))

	if _, err := s.GetAndMarkUsedIfValid(ctx, hash, now); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
	if _, err := s.GetAndMarkUsedIfValid(ctx, hash, now); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("want ErrTokenNotFound after delete, got %v", err)
	}
}

func TestTokenStore_DuplicatePut(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	s := postgres.NewTokenStore(pool)

	hash := domain.HashToken(uuid.NewString())
	_ = s.Put(ctx, hash, "alice", time.Now().Add(time.Minute))
	if err := s.Put(ctx, hash, "alice", time.Now().Add(time.Minute)); !errors.Is(err, domain.ErrDuplicateToken) {
		t.Fatalf("want ErrDuplicateToken, got %v", err)
	}
}

func TestRateLimitStore_ConcurrentUpsert(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	s := postgres.NewRateLimitStore(pool)

	identity := "rl-" + uuid.NewString()
	window := time.Now().UTC().Truncate(time.Hour)

	const n = 25
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Increment(ctx, identity, window, time.Hour); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Increment(ctx, identity, window, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if got != n+1 {
		t.Fatalf("count = %d, want %d", got, n+1)
	}
}

func TestUserRepository_FindOrCreate_Idempotent(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	r := postgres.NewUserRepository(pool)

	identity := "user-" + uuid.NewString()[:8]

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := r.FindOrCreate(ctx, identity, identity)
			if err != nil {
				t.Errorf("find or create: %v", err)
				return
			}
			ids[i] = u.ID
		}()
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("duplicate users created: %q vs %q", id, ids[0])
		}
	}

	byID, err := r.FindByID(ctx, ids[0])
	if err != nil || byID.Identity != identity {
		t.Fatalf("FindByID = %+v, %v", byID, err)
	}
	if _, err := r.FindByID(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound for malformed id, got %v", err)
	}
}
