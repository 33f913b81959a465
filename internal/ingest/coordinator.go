package ingest

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/perivale/drift/internal/content"
	"github.com/perivale/drift/internal/logging"
	"github.com/perivale/drift/internal/store"
)

// fetchTimeout is the timeout for each individual fetch.
const fetchTimeout = 30 * time.Second

// maxConcurrentFetches limits parallel fetch operations.
const maxConcurrentFetches = 5

// maxBackoff caps the per-source error backoff.
const maxBackoff = 30 * time.Minute

// fetcher interface for dependency injection (testing).
type fetcher interface {
	Fetch(ctx context.Context, src Source) ([]content.Item, error)
}

// sourceState tracks per-source fetch history for error backoff.
type sourceState struct {
	lastFetched  time.Time
	consecErrors int
}

// shouldFetch applies quadratic error backoff on top of the interval.
func (s *sourceState) shouldFetch(interval time.Duration) bool {
	if s.lastFetched.IsZero() {
		return true
	}
	if s.consecErrors > 0 {
		backoff := time.Duration(s.consecErrors*s.consecErrors) * time.Minute
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		interval += backoff
	}
	return time.Since(s.lastFetched) >= interval
}

// Coordinator manages background feed ingestion for the content server.
// Uses context cancellation as the ONLY stop mechanism.
type Coordinator struct {
	store    *store.Store
	fetcher  fetcher
	sources  []Source // immutable after construction
	interval time.Duration
	limiter  *rate.Limiter
	states   map[string]*sourceState
	wg       sync.WaitGroup
}

// NewCoordinator creates a Coordinator with the real fetcher.
func NewCoordinator(s *store.Store, f *Fetcher, sources []Source, interval time.Duration) *Coordinator {
	return NewCoordinatorWithFetcher(s, f, sources, interval)
}

// NewCoordinatorWithFetcher allows injecting a custom fetcher (for testing).
func NewCoordinatorWithFetcher(s *store.Store, f fetcher, sources []Source, interval time.Duration) *Coordinator {
	sourcesCopy := make([]Source, len(sources))
	copy(sourcesCopy, sources)

	states := make(map[string]*sourceState, len(sourcesCopy))
	for _, src := range sourcesCopy {
		states[src.Name] = &sourceState{}
	}

	return &Coordinator{
		store:    s,
		fetcher:  f,
		sources:  sourcesCopy,
		interval: interval,
		// Upstream feeds are other people's servers; one request per
		// second across the whole cycle is plenty for ingestion.
		limiter: rate.NewLimiter(rate.Limit(1), maxConcurrentFetches),
		states:  states,
	}
}

// Start begins background ingestion. Call with a cancellable context.
// Performs an initial cycle immediately, then one per interval.
func (c *Coordinator) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.fetchDue(ctx)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.fetchDue(ctx)
			}
		}
	}()
}

// Wait blocks until the background goroutine exits. Call after canceling
// the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// fetchDue fetches every source that is due, in parallel, rate-limited.
func (c *Coordinator) fetchDue(ctx context.Context) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)

	for _, src := range c.sources {
		state := c.states[src.Name]
		if !state.shouldFetch(c.interval) {
			continue
		}
		g.Go(func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil
			}
			c.fetchSource(ctx, src, state)
			return nil // never fail the group - errors tracked per-source
		})
	}

	_ = g.Wait()
}

// fetchSource fetches a single source with timeout and saves the result.
func (c *Coordinator) fetchSource(ctx context.Context, src Source, state *sourceState) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	items, err := c.fetcher.Fetch(fetchCtx, src)
	state.lastFetched = time.Now()
	if err != nil {
		state.consecErrors++
		logging.Warn("ingest fetch failed", "source", src.Name, "consecErrors", state.consecErrors, "err", err)
		return
	}
	state.consecErrors = 0

	newItems, err := c.store.SaveItems(items)
	if err != nil {
		logging.Error("ingest save failed", "source", src.Name, "err", err)
		return
	}
	if newItems > 0 {
		logging.Info("ingested items", "source", src.Name, "new", newItems, "total", len(items))
	}
}
