package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key        string
	n          Notification
	recordedAt time.Time
}

// MemoryStore keeps the history in process memory. It is used for tests and
// for ephemeral deployments where dedup state may be lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	hasher      *Hasher
	window      time.Duration
	historySize int
	now         func() time.Time

	seen    map[string]time.Time
	entries []memoryEntry
}

type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the clock used for recorded-at times.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates a store. A zero window means a key is remembered
// forever; historySize bounds the list returned by List (0 = unbounded),
// it never affects dedup.
func NewMemoryStore(hasher *Hasher, window time.Duration, historySize int, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		hasher:      hasher,
		window:      window,
		historySize: historySize,
		now:         time.Now,
		seen:        make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) InsertIfNew(ctx context.Context, n Notification) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := s.hasher.Key(n)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if recordedAt, ok := s.seen[key]; ok {
		if s.window <= 0 || now.Sub(recordedAt) < s.window {
			return false, nil
		}
	}

	s.seen[key] = now
	s.entries = append(s.entries, memoryEntry{key: key, n: n, recordedAt: now})
	if s.historySize > 0 && len(s.entries) > s.historySize {
		s.entries = append([]memoryEntry(nil), s.entries[len(s.entries)-s.historySize:]...)
	}
	return true, nil
}

// List returns up to limit notifications, newest first.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]Notification, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i].n)
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// PruneBefore forgets every notification recorded before cutoff, including
// its dedup key.
func (s *MemoryStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned int64
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.recordedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept

	for key, recordedAt := range s.seen {
		if recordedAt.Before(cutoff) {
			delete(s.seen, key)
		}
	}
	return pruned, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
