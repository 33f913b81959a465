package session

import (
	"sort"

	"github.com/perivale/drift/internal/content"
	"github.com/perivale/drift/internal/logging"
)

// Element is the renderer's handle for one rendered item, tagged with the
// content identity so the core can re-locate it for visibility tracking
// and removal.
type Element struct {
	ID   string
	Slug string
}

// Renderer is the rendering collaborator. It owns markup and layout;
// the session only hands it items and removal/error signals.
type Renderer interface {
	RenderItem(item content.Item) Element
	RemoveItems(ids []string)
	ShowError(err error)
	Clear()
}

// Watcher is the visibility scheduler surface the controller drives.
type Watcher interface {
	WatchItem(contentID string)
	UnwatchItem(contentID string)
	Reset()
	Destroy()
}

// Engagement is the engagement tracker surface the controller drives.
type Engagement interface {
	Register(contentID string)
	Deregister(contentID string)
	StopViewTimer(contentID string)
	DetachHoverTracker(contentID string)
	FlushAllOnUnload()
	Reset()
	Destroy()
}

// LoadRequest is a pending page fetch. The host event loop takes it,
// performs the round trip, and feeds the outcome back to ApplyResult.
// Epoch lets the controller discard results that resolve after a reset
// or teardown.
type LoadRequest struct {
	Epoch   uint64
	Request content.PageRequest
}

// Controller is the feed session root. Single-threaded: every method is
// called from the host event loop, so the Loading phase acts as a
// cooperative re-entrancy guard rather than a lock.
type Controller struct {
	state      State
	categories []string
	renderer   Renderer
	watcher    Watcher
	tracker    Engagement

	rendered  []string // content IDs in append order
	pending   *LoadRequest
	epoch     uint64
	destroyed bool
}

// New creates a Controller. The watcher is attached separately because
// the visibility scheduler needs the controller at construction.
func New(pageSize int, renderer Renderer, tracker Engagement) *Controller {
	return &Controller{
		state:    newState(pageSize),
		renderer: renderer,
		tracker:  tracker,
	}
}

// AttachWatcher binds the visibility scheduler.
func (c *Controller) AttachWatcher(w Watcher) {
	c.watcher = w
}

// LoadMore transitions Idle (or Failed, for retry) to Loading and stages
// a fetch for the next page. No-op while a load is in flight or when the
// feed is exhausted; a second trigger is dropped, not queued.
func (c *Controller) LoadMore() {
	if c.destroyed || c.state.Phase == PhaseLoading || !c.state.HasMore {
		return
	}

	exclude := make([]string, 0, len(c.state.ViewedIDs))
	for id := range c.state.ViewedIDs {
		exclude = append(exclude, id)
	}
	sort.Strings(exclude)

	c.state.Phase = PhaseLoading
	c.pending = &LoadRequest{
		Epoch: c.epoch,
		Request: content.PageRequest{
			Page:       c.state.Page,
			PageSize:   c.state.PageSize,
			Cursor:     c.state.Cursor,
			Categories: append([]string(nil), c.categories...),
			ExcludeIDs: exclude,
		},
	}
}

// TakePending returns the staged fetch, if any, and clears it. The host
// turns it into an actual network call.
func (c *Controller) TakePending() *LoadRequest {
	req := c.pending
	c.pending = nil
	return req
}

// ApplyResult applies the outcome of a fetch. Results from a stale epoch
// (the session was reset or destroyed while the request was in flight)
// are discarded without touching state. On failure the state is exactly
// as it was before LoadMore, so calling LoadMore again is a safe retry.
func (c *Controller) ApplyResult(req *LoadRequest, res *content.PageResult, err error) {
	if req == nil || req.Epoch != c.epoch || c.destroyed {
		logging.Debug("discarding stale page result")
		return
	}

	if err != nil {
		c.state.Phase = PhaseFailed
		logging.Warn("page load failed", "page", c.state.Page, "err", err)
		c.renderer.ShowError(err)
		return
	}

	if len(res.Items) == 0 {
		c.state.HasMore = false
		c.state.Phase = PhaseExhausted
		return
	}

	for _, item := range res.Items {
		if _, seen := c.state.ViewedIDs[item.ID]; seen {
			continue
		}
		// Membership is recorded before rendering so a sentinel
		// re-trigger immediately after this load excludes the item.
		c.state.ViewedIDs[item.ID] = struct{}{}
		el := c.renderer.RenderItem(item)
		c.rendered = append(c.rendered, el.ID)
		if c.watcher != nil {
			c.watcher.WatchItem(el.ID)
		}
		c.tracker.Register(el.ID)
	}

	c.state.Page++
	c.state.Cursor = res.NextCursor
	c.state.HasMore = res.HasMore
	if c.state.HasMore {
		c.state.Phase = PhaseIdle
	} else {
		c.state.Phase = PhaseExhausted
	}
}

// Refresh is the pull-to-top operation: trim every rendered item beyond
// keepCount (oldest-appended removed first beyond the kept prefix),
// making the removed IDs eligible to reappear, then rewind pagination.
// keepCount == 0 clears the viewed set entirely and loads immediately.
// Idempotent when there is nothing to remove.
func (c *Controller) Refresh(keepCount int) {
	if c.destroyed {
		return
	}
	if keepCount < 0 {
		keepCount = 0
	}

	if len(c.rendered) > keepCount {
		removed := append([]string(nil), c.rendered[keepCount:]...)
		c.rendered = c.rendered[:keepCount]
		for _, id := range removed {
			c.tracker.StopViewTimer(id)
			c.tracker.DetachHoverTracker(id)
			c.tracker.Deregister(id)
			delete(c.state.ViewedIDs, id)
			if c.watcher != nil {
				c.watcher.UnwatchItem(id)
			}
		}
		c.renderer.RemoveItems(removed)
	}

	// An in-flight load applying on top of rewound pagination would
	// corrupt the session, so refresh moves to a new epoch.
	c.epoch++
	c.pending = nil
	c.state.HasMore = true
	c.state.Page = 1
	c.state.Cursor = ""
	c.state.Phase = PhaseIdle

	if keepCount == 0 {
		c.state.ViewedIDs = make(map[string]struct{})
		c.LoadMore()
	}
}

// SetCategoryFilter replaces the category filter and restarts the
// session from a clean slate.
func (c *Controller) SetCategoryFilter(categories []string) {
	c.categories = append([]string(nil), categories...)
	c.Reset()
}

// Categories returns the active category filter.
func (c *Controller) Categories() []string {
	return append([]string(nil), c.categories...)
}

// Reset tears down all per-item engagement state, clears the rendering
// surface, restores the initial session state, and loads the first page.
func (c *Controller) Reset() {
	if c.destroyed {
		return
	}
	c.epoch++
	c.pending = nil

	c.tracker.FlushAllOnUnload()
	c.tracker.Reset()
	if c.watcher != nil {
		c.watcher.Reset()
	}
	c.renderer.Clear()
	c.rendered = nil
	c.state = newState(c.state.PageSize)
	c.LoadMore()
}

// Destroy tears down the tracker and scheduler. Safe to call multiple
// times; an in-flight load resolving afterwards is discarded by the
// epoch check in ApplyResult.
func (c *Controller) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.epoch++
	c.pending = nil
	c.tracker.Destroy()
	if c.watcher != nil {
		c.watcher.Destroy()
	}
}

// IsLoading reports whether a load is in flight.
func (c *Controller) IsLoading() bool { return c.state.Phase == PhaseLoading }

// LoadFailed reports whether the last load failed. While true, the
// sentinel must not re-trigger loads; LoadMore remains the explicit
// retry path.
func (c *Controller) LoadFailed() bool { return c.state.Phase == PhaseFailed }

// HasMore reports whether the server may have further pages.
func (c *Controller) HasMore() bool { return c.state.HasMore }

// Phase returns the current session phase.
func (c *Controller) Phase() Phase { return c.state.Phase }

// Page returns the next page number to request.
func (c *Controller) Page() int { return c.state.Page }

// Cursor returns the current continuation token.
func (c *Controller) Cursor() string { return c.state.Cursor }

// ViewedCount returns how many content IDs are in the exclusion set.
func (c *Controller) ViewedCount() int { return len(c.state.ViewedIDs) }

// RenderedIDs returns the rendered content IDs in append order.
func (c *Controller) RenderedIDs() []string {
	return append([]string(nil), c.rendered...)
}
