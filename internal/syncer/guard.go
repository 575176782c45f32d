package syncer

import (
	"context"
	"drive-mirror/internal/database"
	"errors"
	"sync"
)

var ErrScopeBusy = errors.New("a sync for this scope is already running")

// Guard grants at most one holder per scope key.
type Guard interface {
	TryAcquire(ctx context.Context, scope string) (release func(), ok bool, err error)
}

// AdvisoryGuard holds a postgres session advisory lock per scope, which also
// serializes runs across server and CLI processes.
type AdvisoryGuard struct {
	store *database.Store
}

func NewAdvisoryGuard(store *database.Store) *AdvisoryGuard {
	return &AdvisoryGuard{store: store}
}

func (g *AdvisoryGuard) TryAcquire(ctx context.Context, scope string) (func(), bool, error) {
	return g.store.TryAdvisoryLock(ctx, scope)
}

// MemGuard is an in-process Guard.
type MemGuard struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemGuard() *MemGuard {
	return &MemGuard{held: map[string]bool{}}
}

func (g *MemGuard) TryAcquire(ctx context.Context, scope string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[scope] {
		return nil, false, nil
	}
	g.held[scope] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, scope)
			g.mu.Unlock()
		})
	}, true, nil
}
