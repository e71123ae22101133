package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/core"
)

// Registry hands out one signed-in Store per user. Idle stores expire after
// ttl and the least recently used are evicted past size.
type Registry struct {
	backend backend.Backend
	opts    Options
	stores  *cache.LRUCache[*Store]
}

func NewRegistry(b backend.Backend, opts Options, size int, ttl time.Duration) *Registry {
	return &Registry{
		backend: b,
		opts:    opts,
		stores:  cache.NewLRUCache[*Store](size, ttl),
	}
}

// For returns the user's store, creating it on first use.
func (r *Registry) For(userID uuid.UUID) *Store {
	return r.stores.GetOrSet(userID.String(), func() *Store {
		s := New(r.backend, r.opts)
		s.SignIn(userID)
		return s
	})
}

// Forget drops the cached store so the next call starts from an empty snapshot.
func (r *Registry) Forget(userID uuid.UUID) {
	r.stores.Delete(userID.String())
}

// CleanExpired lets a cache.Manager sweep idle stores.
func (r *Registry) CleanExpired() int {
	return r.stores.CleanExpired()
}

// TransferDPS runs a DPS transfer through userID's store so the snapshot
// refreshes and the change is published.
func (r *Registry) TransferDPS(ctx context.Context, userID uuid.UUID, in core.DPSTransferInput) (core.DPSTransfer, error) {
	return r.For(userID).TransferDPS(ctx, in)
}
