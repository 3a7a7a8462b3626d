package memory

import (
	"context"
	"sync"
	"time"
)

type windowKey struct {
	identity    string
	windowStart int64
}

// RateLimitStore keeps fixed-window counters in a map guarded by a mutex.
type RateLimitStore struct {
	mu      sync.Mutex
	windows map[windowKey]int64
}

func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{windows: make(map[windowKey]int64)}
}

func (s *RateLimitStore) Increment(_ context.Context, identity string, windowStart time.Time, _ time.Duration) (int64, error) {
	k := windowKey{identity: identity, windowStart: windowStart.UnixNano()}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.windows[k]++
	return s.windows[k], nil
}

func (s *RateLimitStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	c := cutoff.UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k := range s.windows {
		if k.windowStart < c {
			delete(s.windows, k)
			n++
		}
	}
	return n, nil
}

// Count returns the current counter for (identity, windowStart).
func (s *RateLimitStore) Count(identity string, windowStart time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windows[windowKey{identity: identity, windowStart: windowStart.UnixNano()}]
}
