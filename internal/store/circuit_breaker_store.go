package store

import (
	"context"
	"time"

	"vehiclepush/internal/config"
	"vehiclepush/pkg/circuitbreaker"
)

// CircuitBreakerStore trips after repeated backend failures so that a dead
// Redis or SQLite file fails messages fast instead of piling up on timeouts.
type CircuitBreakerStore struct {
	store Store
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerStore(s Store, name string, cfg config.CircuitBreakerConfig) *CircuitBreakerStore {
	if !cfg.Enabled {
		return &CircuitBreakerStore{store: s}
	}
	return &CircuitBreakerStore{
		store: s,
		cb:    circuitbreaker.NewWrapper(circuitbreaker.FromSettings(name, cfg)),
	}
}

func (s *CircuitBreakerStore) InsertIfNew(ctx context.Context, n Notification) (bool, error) {
	if s.cb == nil {
		return s.store.InsertIfNew(ctx, n)
	}
	return circuitbreaker.Execute(ctx, s.cb, func() (bool, error) {
		return s.store.InsertIfNew(ctx, n)
	})
}

func (s *CircuitBreakerStore) List(ctx context.Context, limit int) ([]Notification, error) {
	if s.cb == nil {
		return s.store.List(ctx, limit)
	}
	return circuitbreaker.Execute(ctx, s.cb, func() ([]Notification, error) {
		return s.store.List(ctx, limit)
	})
}

func (s *CircuitBreakerStore) Count(ctx context.Context) (int, error) {
	if s.cb == nil {
		return s.store.Count(ctx)
	}
	return circuitbreaker.Execute(ctx, s.cb, func() (int, error) {
		return s.store.Count(ctx)
	})
}

func (s *CircuitBreakerStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	p, ok := s.store.(Pruner)
	if !ok {
		return 0, nil
	}
	return p.PruneBefore(ctx, cutoff)
}

func (s *CircuitBreakerStore) State() string {
	if s.cb == nil {
		return "disabled"
	}
	return s.cb.State().String()
}

func (s *CircuitBreakerStore) IsOpen() bool {
	if s.cb == nil {
		return false
	}
	return s.cb.IsOpen()
}

func (s *CircuitBreakerStore) Close() error {
	return s.store.Close()
}
