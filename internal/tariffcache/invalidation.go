package tariffcache

import (
	"context"
	"time"

	"correction_pricing/internal/logging"
)

// Invalidation origins reported to metrics.
const (
	OriginLocal  = "local"
	OriginAdmin  = "admin"
	OriginRemote = "remote"
	OriginFile   = "file"
)

// Invalidator is the entry point for "the catalog may have changed" signals.
// None of its failures are fatal: they are logged and returned, and the cache
// keeps serving its last-known-good catalog.
type Invalidator struct {
	cache       *Cache
	broadcaster Broadcaster
	staleTime   time.Duration
	metrics     Recorder
}

// NewInvalidator wraps cache. broadcaster may be nil for a single instance.
func NewInvalidator(cache *Cache, broadcaster Broadcaster) *Invalidator {
	return &Invalidator{
		cache:       cache,
		broadcaster: broadcaster,
		staleTime:   cache.staleTime,
		metrics:     cache.metrics,
	}
}

// InvalidatePublic marks the catalog outdated and refetches it. Concurrent
// calls during one fetch produce a single follow-up fetch.
func (i *Invalidator) InvalidatePublic(ctx context.Context) error {
	return i.invalidate(ctx, OriginLocal)
}

// RefetchNow refetches without invalidating first.
func (i *Invalidator) RefetchNow(ctx context.Context) error {
	if _, err := i.cache.ForceRefresh(ctx); err != nil {
		logging.Warningf("Tariff refetch failed: %v", err)
		return err
	}
	return nil
}

// Prefetch warms the cache. A fresh cache is left alone.
func (i *Invalidator) Prefetch(ctx context.Context) error {
	if _, err := i.cache.Read(ctx, i.staleTime); err != nil {
		logging.Warningf("Tariff prefetch failed: %v", err)
		return err
	}
	return nil
}

// OnCatalogWritten is called after an admin write commits. Peers are told
// first so their refetch overlaps ours.
func (i *Invalidator) OnCatalogWritten(ctx context.Context, reason string) error {
	if i.broadcaster != nil {
		if err := i.broadcaster.Publish(ctx, reason); err != nil {
			logging.Warningf("Failed to broadcast tariff invalidation (%s): %v", reason, err)
		}
	}
	return i.invalidate(ctx, OriginAdmin)
}

// HandleRemote applies an invalidation published by another instance.
func (i *Invalidator) HandleRemote(ctx context.Context, event InvalidationEvent) {
	logging.Debugf("Tariff invalidation from %s: %s", event.Origin, event.Reason)
	_ = i.invalidate(ctx, OriginRemote)
}

// InvalidateFrom is InvalidatePublic with an explicit origin label.
func (i *Invalidator) InvalidateFrom(ctx context.Context, origin string) error {
	return i.invalidate(ctx, origin)
}

func (i *Invalidator) invalidate(ctx context.Context, origin string) error {
	i.metrics.RecordInvalidation(ctx, origin)
	i.cache.Invalidate()

	if _, err := i.cache.ForceRefresh(ctx); err != nil {
		logging.Warningf("Tariff refetch after %s invalidation failed: %v", origin, err)
		return err
	}
	return nil
}
