package tariffcache

import (
	"context"
	"sync"
	"time"

	"correction_pricing/internal/pricing"
)

// State is what a pricing surface renders.
type State struct {
	PageCount int
	Breakdown pricing.Breakdown
	Rules     []pricing.Rule
	IsLoading bool
	Err       error
	IsStale   bool
	Version   uint64
}

// Subscription keeps a breakdown current for one consumer. It re-derives
// rules whenever the cache commits or is invalidated, and re-prices when the
// page count changes. Until the first catalog arrives, and whenever the
// catalog cannot be loaded, it prices with pricing.DefaultRules.
type Subscription struct {
	cache     *Cache
	staleTime time.Duration

	mu      sync.Mutex
	state   State
	updates chan State

	cancel context.CancelFunc
	done   chan struct{}
}

// Subscribe starts a subscription. It is closed by Close or when ctx ends.
func (c *Cache) Subscribe(ctx context.Context, pageCount int, staleTime time.Duration) *Subscription {
	if staleTime <= 0 {
		staleTime = c.staleTime
	}

	rules := pricing.DefaultRules()
	s := &Subscription{
		cache:     c,
		staleTime: staleTime,
		state: State{
			PageCount: pageCount,
			Breakdown: pricing.ComputeBreakdown(pageCount, rules),
			Rules:     rules,
			IsLoading: true,
			IsStale:   true,
		},
		updates: make(chan State, 1),
		done:    make(chan struct{}),
	}

	ctx, s.cancel = context.WithCancel(ctx)
	watch, unwatch := c.Watch()
	go s.loop(ctx, watch, unwatch)

	return s
}

// State returns the latest state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Updates delivers states as they change. Only the latest undelivered state is kept.
func (s *Subscription) Updates() <-chan State {
	return s.updates
}

// SetPageCount re-prices with the current rules. It never fetches.
func (s *Subscription) SetPageCount(pageCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.PageCount = pageCount
	st.Breakdown = pricing.ComputeBreakdown(pageCount, st.Rules)
	s.publishLocked(st)
}

// Close stops the subscription and waits for its goroutine to exit.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

func (s *Subscription) loop(ctx context.Context, watch <-chan struct{}, unwatch func()) {
	defer close(s.done)
	defer unwatch()

	s.sync(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-watch:
			s.sync(ctx)
		}
	}
}

func (s *Subscription) sync(ctx context.Context) {
	snap, err := s.cache.ReadVersioned(ctx, s.staleTime)
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.IsLoading = false
	st.Err = err
	if err != nil {
		// Last-known-good when there is one, otherwise keep what we have.
		if last := s.cache.Snapshot(); last.Loaded {
			st.Rules = pricing.ExtractRules(last.Data)
			st.Version = last.Version
		}
		st.IsStale = true
	} else {
		st.Rules = pricing.ExtractRules(snap.Data)
		st.Version = snap.Version
		st.IsStale = !snap.Valid
	}
	st.Breakdown = pricing.ComputeBreakdown(st.PageCount, st.Rules)
	s.publishLocked(st)
}

// publishLocked stores st and replaces any undelivered update. Must hold s.mu.
func (s *Subscription) publishLocked(st State) {
	s.state = st

	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- st:
	default:
	}
}
