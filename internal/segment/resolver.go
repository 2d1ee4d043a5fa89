// Package segment computes dynamic recipient audiences from behavioral
// event logs against stored filter definitions.
package segment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/campaign-engine/internal/domain"
	"github.com/ignite/campaign-engine/internal/events"
	"github.com/ignite/campaign-engine/internal/pkg/logger"
)

// DefinitionSource loads a shop's stored segment definitions.
// Implementations must degrade to an empty list on corrupt storage; a
// broken segments file must never block delivery.
type DefinitionSource interface {
	ListSegments(ctx context.Context, shop string) ([]domain.Segment, error)
}

// DefaultCacheTTL bounds the age of a cached audience when the event log
// itself has not changed.
const DefaultCacheTTL = 60 * time.Second

type cacheEntry struct {
	emails    []string
	expiresAt time.Time
	sourceMod time.Time
}

// Resolver resolves segment membership with a TTL + event-log-mtime cache.
// The cache is owned by the resolver instance and guarded for concurrent
// callers; entries are keyed shop:segmentID.
type Resolver struct {
	defs   DefinitionSource
	events events.Reader
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry

	log *logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTTL overrides the cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithNow injects the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a resolver over the given definition source and
// event log.
func NewResolver(defs DefinitionSource, ev events.Reader, opts ...Option) *Resolver {
	r := &Resolver{
		defs:   defs,
		events: ev,
		ttl:    DefaultCacheTTL,
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
		log:    logger.WithComponent("SegmentResolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the deduplicated email addresses belonging to the named
// segment, in first-seen event-log order. An unknown segment resolves to
// an empty list; that is not an error. Cached results are reused until the
// TTL elapses or the shop's event log changes, whichever comes first.
func (r *Resolver) Resolve(ctx context.Context, shop, segmentID string) ([]string, error) {
	key := shop + ":" + segmentID

	mod, err := r.events.ModTime(shop)
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", segmentID, err)
	}

	now := r.now()
	r.mu.Lock()
	if entry, ok := r.cache[key]; ok && now.Before(entry.expiresAt) && entry.sourceMod.Equal(mod) {
		emails := entry.emails
		r.mu.Unlock()
		return emails, nil
	}
	r.mu.Unlock()

	seg, err := r.lookupDefinition(ctx, shop, segmentID)
	if err != nil {
		return nil, err
	}
	if seg == nil {
		r.mu.Lock()
		delete(r.cache, key)
		r.mu.Unlock()
		return []string{}, nil
	}

	evts, err := r.events.ListEvents(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", segmentID, err)
	}

	seen := make(map[string]struct{})
	emails := []string{}
	for _, e := range evts {
		if !seg.Matches(e) {
			continue
		}
		addr, ok := e.Email()
		if !ok {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		emails = append(emails, addr)
	}

	r.mu.Lock()
	r.cache[key] = cacheEntry{
		emails:    emails,
		expiresAt: now.Add(r.ttl),
		sourceMod: mod,
	}
	r.mu.Unlock()

	r.log.Debug("segment resolved", "shop", shop, "segment", segmentID, "size", len(emails))
	return emails, nil
}

// lookupDefinition finds the matching stored definition. Definition-store
// failures degrade to "not found" so a corrupt segments file yields an
// empty audience instead of blocking delivery.
func (r *Resolver) lookupDefinition(ctx context.Context, shop, segmentID string) (*domain.Segment, error) {
	defs, err := r.defs.ListSegments(ctx, shop)
	if err != nil {
		r.log.Warn("segment definitions unreadable", "shop", shop, "error", err.Error())
		return nil, nil
	}
	for i := range defs {
		if defs[i].ID == segmentID {
			return &defs[i], nil
		}
	}
	return nil, nil
}
