package store

import (
	"context"
	"sync"
	"time"

	"vehiclepush/pkg/metrics"
)

// Guarded serializes every InsertIfNew behind a single mutex so that the
// check and the insert of one call never interleave with another call, even
// for backends whose own operation is not atomic. Reads bypass the guard.
type Guarded struct {
	Store
	mu sync.Mutex
}

func NewGuarded(s Store) *Guarded {
	return &Guarded{Store: s}
}

func (g *Guarded) InsertIfNew(ctx context.Context, n Notification) (isNew bool, err error) {
	start := time.Now()
	defer func() {
		status := "duplicate"
		switch {
		case err != nil:
			status = "error"
		case isNew:
			status = "new"
		}
		metrics.ObserveDedupInsert(time.Since(start), status)
	}()

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.Store.InsertIfNew(ctx, n)
}

// PruneBefore forwards to the wrapped store when it supports retention.
func (g *Guarded) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	p, ok := g.Store.(Pruner)
	if !ok {
		return 0, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return p.PruneBefore(ctx, cutoff)
}
