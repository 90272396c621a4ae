// Package promocache provides a small TTL read cache in front of the
// promotion repository for the code-resolution hot path.
package promocache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/retailpos/promo-engine/internal/domain/promotion"
)

// entry is one cached code resolution.
type entry struct {
	promo     *promotion.Promotion
	code      *promotion.DiscountCode
	notFound  bool
	expiresAt time.Time
}

// Repository wraps a promotion.Repository with a TTL map keyed by
// store and upper-cased code. Entries are short-lived: validation is a
// dry-run and the redemption path re-checks quotas atomically, so a slightly
// stale usage counter here can delay a rejection but never oversell.
type Repository struct {
	inner promotion.Repository
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

var _ promotion.Repository = (*Repository)(nil)

// New creates a caching Repository with the given TTL. A zero or negative
// TTL disables caching entirely.
func New(inner promotion.Repository, ttl time.Duration) *Repository {
	return &Repository{
		inner:   inner,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// FindByCode serves the lookup from cache when a fresh entry exists,
// including cached not-found results, and falls through to the inner
// repository otherwise. Infrastructure errors are never cached.
func (r *Repository) FindByCode(ctx context.Context, storeID, code string) (*promotion.Promotion, *promotion.DiscountCode, error) {
	if r.ttl <= 0 {
		return r.inner.FindByCode(ctx, storeID, code)
	}

	key := storeID + "\x00" + strings.ToUpper(code)
	now := r.now()

	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()

	if ok && now.Before(e.expiresAt) {
		if e.notFound {
			return nil, nil, promotion.ErrCodeNotFound
		}
		promoCopy := *e.promo
		codeCopy := *e.code
		return &promoCopy, &codeCopy, nil
	}

	promo, dc, err := r.inner.FindByCode(ctx, storeID, code)
	switch {
	case err == nil:
		r.store(key, entry{promo: promo, code: dc, expiresAt: now.Add(r.ttl)})
	case errors.Is(err, promotion.ErrCodeNotFound):
		r.store(key, entry{notFound: true, expiresAt: now.Add(r.ttl)})
	}
	return promo, dc, err
}

func (r *Repository) store(key string, e entry) {
	r.mu.Lock()
	r.entries[key] = e
	r.mu.Unlock()
}

// Invalidate drops any cached resolution for the given store and code. The
// admin surface calls it after code or promotion mutations.
func (r *Repository) Invalidate(storeID, code string) {
	key := storeID + "\x00" + strings.ToUpper(code)
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
}
