// Package tariffcache holds the shared tariff catalog for every pricing surface.
//
// One Cache serves all readers of a process. A read returns cached data while
// it is fresh; otherwise it starts a fetch or joins the one already running,
// so concurrent readers never issue more than one request. Invalidation bumps
// a generation counter: a fetch that started before an invalidation still
// answers its own waiters but never satisfies a later read and is never
// committed. Its follow-up is queued and starts as soon as it finishes, so at
// most one fetch executes at any time and at most one more is waiting.
package tariffcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"correction_pricing/internal/metrics"
	"correction_pricing/internal/models"
)

// ErrFetchFailed wraps every error returned by the catalog fetcher.
var ErrFetchFailed = errors.New("tariff catalog fetch failed")

// Fetcher loads the public tariff catalog.
type Fetcher interface {
	FetchCatalog(ctx context.Context) ([]models.TariffRecord, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]models.TariffRecord, error)

func (f FetcherFunc) FetchCatalog(ctx context.Context) ([]models.TariffRecord, error) {
	return f(ctx)
}

// Recorder receives cache activity. metrics.Metrics satisfies it.
type Recorder interface {
	RecordFetch(ctx context.Context, outcome string, elapsed time.Duration)
	RecordFetchJoined(ctx context.Context)
	RecordInvalidation(ctx context.Context, origin string)
}

// Config holds cache settings.
type Config struct {
	// StaleTime is the default staleness window used by Prefetch and subscriptions.
	StaleTime time.Duration

	// FetchTimeout bounds a single fetch. Zero means no timeout.
	FetchTimeout time.Duration

	Metrics Recorder

	// Now overrides the clock in tests.
	Now func() time.Time
}

// DefaultConfig returns default cache settings.
func DefaultConfig() Config {
	return Config{
		StaleTime:    5 * time.Minute,
		FetchTimeout: 10 * time.Second,
	}
}

// call is one fetch, shared by every reader that joined it.
type call struct {
	gen  uint64
	done chan struct{}
	data []models.TariffRecord
	err  error

	// Set when the result was committed; zero for a superseded fetch.
	version   uint64
	fetchedAt time.Time
}

// Snapshot is a point-in-time copy of the cache state.
type Snapshot struct {
	Data      []models.TariffRecord
	Loaded    bool
	Valid     bool
	FetchedAt time.Time
	Version   uint64
}

// Cache is the shared tariff catalog store.
type Cache struct {
	fetcher      Fetcher
	staleTime    time.Duration
	fetchTimeout time.Duration
	metrics      Recorder
	now          func() time.Time

	mu         sync.Mutex
	data       []models.TariffRecord // nil until the first successful fetch
	fetchedAt  time.Time
	valid      bool
	generation uint64
	version    uint64
	inflight   *call
	queued     *call

	watchMu  sync.Mutex
	watchers map[int]chan struct{}
	nextID   int
}

// New creates an empty cache around fetcher.
func New(fetcher Fetcher, cfg Config) *Cache {
	if cfg.StaleTime <= 0 {
		cfg.StaleTime = DefaultConfig().StaleTime
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopMetrics()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Cache{
		fetcher:      fetcher,
		staleTime:    cfg.StaleTime,
		fetchTimeout: cfg.FetchTimeout,
		metrics:      cfg.Metrics,
		now:          cfg.Now,
		watchers:     make(map[int]chan struct{}),
	}
}

// StaleTime returns the default staleness window.
func (c *Cache) StaleTime() time.Duration {
	return c.staleTime
}

// Read returns the catalog, fetching it when the cached copy is missing,
// invalidated or older than staleTime. An empty catalog is returned as an
// empty, non-nil slice.
func (c *Cache) Read(ctx context.Context, staleTime time.Duration) ([]models.TariffRecord, error) {
	snap, err := c.ReadVersioned(ctx, staleTime)
	if err != nil {
		return nil, err
	}
	return snap.Data, nil
}

// ReadVersioned is Read returning the catalog together with the version it
// was committed under. Data from a fetch superseded by an invalidation was
// never committed: it comes back with Valid false and Version zero.
func (c *Cache) ReadVersioned(ctx context.Context, staleTime time.Duration) (Snapshot, error) {
	c.mu.Lock()
	if c.freshLocked(staleTime) {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}
	cl, joined := c.acquireLocked()
	c.mu.Unlock()

	if joined {
		c.metrics.RecordFetchJoined(ctx)
	}
	return c.wait(ctx, cl)
}

// ForceRefresh fetches regardless of staleness, joining a fetch of the current
// generation if one is already running.
func (c *Cache) ForceRefresh(ctx context.Context) ([]models.TariffRecord, error) {
	c.mu.Lock()
	cl, joined := c.acquireLocked()
	c.mu.Unlock()

	if joined {
		c.metrics.RecordFetchJoined(ctx)
	}
	snap, err := c.wait(ctx, cl)
	if err != nil {
		return nil, err
	}
	return snap.Data, nil
}

// IsStale reports whether a Read with staleTime would fetch.
func (c *Cache) IsStale(staleTime time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.freshLocked(staleTime)
}

// Invalidate marks the cached catalog outdated. Data is kept as last-known-good
// until a fetch of the new generation succeeds. Watchers are notified.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.generation++
	c.valid = false
	if c.queued != nil {
		// Not started yet, so it will observe everything written so far.
		c.queued.gen = c.generation
	}
	c.mu.Unlock()

	c.notify()
}

// Snapshot returns the cached data without fetching.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Cache) snapshotLocked() Snapshot {
	return Snapshot{
		Data:      models.CloneTariffs(c.data),
		Loaded:    c.data != nil,
		Valid:     c.valid,
		FetchedAt: c.fetchedAt,
		Version:   c.version,
	}
}

// Version increments every time a fetched catalog is committed.
func (c *Cache) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Watch returns a channel signalled after every commit and invalidation.
// Signals coalesce; the returned func stops the watch.
func (c *Cache) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	c.watchMu.Lock()
	id := c.nextID
	c.nextID++
	c.watchers[id] = ch
	c.watchMu.Unlock()

	return ch, func() {
		c.watchMu.Lock()
		delete(c.watchers, id)
		c.watchMu.Unlock()
	}
}

func (c *Cache) notify() {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()

	for _, ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (c *Cache) freshLocked(staleTime time.Duration) bool {
	return c.data != nil && c.valid && c.now().Sub(c.fetchedAt) < staleTime
}

// acquireLocked returns the call the caller should wait on and whether it
// joined an existing one. Must hold c.mu.
func (c *Cache) acquireLocked() (*call, bool) {
	if c.queued != nil {
		return c.queued, true
	}
	if c.inflight != nil && c.inflight.gen == c.generation {
		return c.inflight, true
	}

	cl := &call{gen: c.generation, done: make(chan struct{})}
	if c.inflight != nil {
		// The running fetch predates an invalidation; follow up once it is done.
		c.queued = cl
		return cl, false
	}

	c.inflight = cl
	go c.run(cl)
	return cl, false
}

func (c *Cache) run(cl *call) {
	ctx := context.Background()
	cancel := context.CancelFunc(func() {})
	if c.fetchTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
	}

	start := c.now()
	data, err := c.fetcher.FetchCatalog(ctx)
	cancel()
	elapsed := c.now().Sub(start)

	var outcome string
	committed := false

	c.mu.Lock()
	switch {
	case err != nil:
		cl.err = fmt.Errorf("%w: %w", ErrFetchFailed, err)
		outcome = metrics.OutcomeFailure
	case cl.gen != c.generation:
		cl.data = normalize(data)
		outcome = metrics.OutcomeSuperseded
	default:
		cl.data = normalize(data)
		c.data = cl.data
		c.fetchedAt = c.now()
		c.valid = true
		c.version++
		cl.version = c.version
		cl.fetchedAt = c.fetchedAt
		committed = true
		outcome = metrics.OutcomeSuccess
	}

	c.inflight = nil
	if next := c.queued; next != nil {
		c.queued = nil
		c.inflight = next
		go c.run(next)
	}
	close(cl.done)
	c.mu.Unlock()

	c.metrics.RecordFetch(context.Background(), outcome, elapsed)
	if committed {
		c.notify()
	}
}

func (c *Cache) wait(ctx context.Context, cl *call) (Snapshot, error) {
	select {
	case <-cl.done:
		if cl.err != nil {
			return Snapshot{}, cl.err
		}
		return Snapshot{
			Data:      models.CloneTariffs(cl.data),
			Loaded:    true,
			Valid:     cl.version != 0,
			FetchedAt: cl.fetchedAt,
			Version:   cl.version,
		}, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// normalize keeps "fetched but empty" distinct from "never fetched".
func normalize(data []models.TariffRecord) []models.TariffRecord {
	if data == nil {
		return []models.TariffRecord{}
	}
	return models.CloneTariffs(data)
}
