// Package engage tracks per-item engagement: how long an item stayed
// visible and how the user's attention hovered over it while it was.
package engage

import (
	"time"

	"github.com/perivale/drift/internal/logging"
	"github.com/perivale/drift/internal/scroll"
)

// DefaultSignificanceSeconds is the minimum accumulated view time before
// a duration report is worth emitting.
const DefaultSignificanceSeconds = 2

// Reporter persists engagement durations. Fire-and-forget: errors are
// logged and swallowed, never allowed to affect feed state.
type Reporter interface {
	ReportDuration(contentID string, seconds int) error
}

// HoverTracker is the opaque per-item interest tracker. Constructed
// externally; the tracker only drives its three operations.
type HoverTracker interface {
	UpdateVelocity(v float64)
	ForceReport()
	Destroy()
}

// record is the per-item engagement state.
type record struct {
	viewStartedAt time.Time
	viewing       bool
	accumulated   int // whole seconds, monotonically non-decreasing
	reported      bool
	hover         HoverTracker
}

// Tracker owns view-duration timers and hover trackers for every known
// item. Single-threaded: driven from the session's event loop.
type Tracker struct {
	records     map[string]*record
	reporter    Reporter
	broadcaster *scroll.Broadcaster
	newHover    func(contentID string) HoverTracker
	threshold   int
	now         func() time.Time
}

// NewTracker creates a Tracker. reporter and newHover may be nil, which
// disables duration reporting and hover tracking respectively.
func NewTracker(reporter Reporter, broadcaster *scroll.Broadcaster, newHover func(contentID string) HoverTracker) *Tracker {
	return &Tracker{
		records:     make(map[string]*record),
		reporter:    reporter,
		broadcaster: broadcaster,
		newHover:    newHover,
		threshold:   DefaultSignificanceSeconds,
		now:         time.Now,
	}
}

// SetSignificanceThreshold overrides the minimum seconds before a
// duration report is emitted.
func (t *Tracker) SetSignificanceThreshold(seconds int) {
	t.threshold = seconds
}

// SetClock overrides the time source. Test hook.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// Register creates the engagement record for an item. Called when the
// session hands a rendered item over; timers stay closed until the item
// actually becomes visible.
func (t *Tracker) Register(contentID string) {
	t.ensure(contentID)
}

// Deregister drops all engagement state for an item. The caller is
// expected to have stopped the timer first (refresh-trim does); any still
// open timer is discarded without reporting.
func (t *Tracker) Deregister(contentID string) {
	r, ok := t.records[contentID]
	if !ok {
		return
	}
	t.detach(r)
	delete(t.records, contentID)
}

// StartViewTimer opens the view timer for an item. Idempotent: a second
// start without an intervening stop is a no-op.
func (t *Tracker) StartViewTimer(contentID string) {
	r := t.ensure(contentID)
	if r.viewing {
		return
	}
	r.viewing = true
	r.viewStartedAt = t.now()
}

// StopViewTimer closes the view timer, folding floor-seconds of elapsed
// time into the accumulated total. No-op when no timer is open. Crossing
// the significance threshold emits exactly one duration report.
func (t *Tracker) StopViewTimer(contentID string) {
	r, ok := t.records[contentID]
	if !ok || !r.viewing {
		return
	}
	elapsed := int(t.now().Sub(r.viewStartedAt).Seconds())
	if elapsed > 0 {
		r.accumulated += elapsed
	}
	r.viewing = false

	if r.reported || r.accumulated < t.threshold || t.reporter == nil {
		return
	}
	r.reported = true
	if err := t.reporter.ReportDuration(contentID, r.accumulated); err != nil {
		logging.Warn("duration report failed", "contentID", contentID, "err", err)
	}
}

// AccumulatedSeconds returns the closed view time for an item.
func (t *Tracker) AccumulatedSeconds(contentID string) int {
	if r, ok := t.records[contentID]; ok {
		return r.accumulated
	}
	return 0
}

// AttachHoverTracker lazily creates and registers the hover tracker for
// an item. No-op when one already exists or no factory was provided.
func (t *Tracker) AttachHoverTracker(contentID string) {
	r := t.ensure(contentID)
	if r.hover != nil || t.newHover == nil {
		return
	}
	r.hover = t.newHover(contentID)
	if t.broadcaster != nil {
		t.broadcaster.Register(r.hover)
	}
}

// DetachHoverTracker unregisters and destroys the item's hover tracker.
// Safe to call when none exists.
func (t *Tracker) DetachHoverTracker(contentID string) {
	if r, ok := t.records[contentID]; ok {
		t.detach(r)
	}
}

// ForceReport flushes the item's hover tracker so partial interest is not
// dropped when the item leaves the viewport.
func (t *Tracker) ForceReport(contentID string) {
	if r, ok := t.records[contentID]; ok && r.hover != nil {
		r.hover.ForceReport()
	}
}

// ItemVisible is the visibility transition hook: the item entered the
// viewport.
func (t *Tracker) ItemVisible(contentID string) {
	t.StartViewTimer(contentID)
	t.AttachHoverTracker(contentID)
}

// ItemHidden is the visibility transition hook: the item left the
// viewport.
func (t *Tracker) ItemHidden(contentID string) {
	t.StopViewTimer(contentID)
	t.ForceReport(contentID)
}

// FlushAllOnUnload stops every open view timer, as if each item left the
// viewport. Wire this to the program's shutdown path so the final partial
// durations are not lost.
func (t *Tracker) FlushAllOnUnload() {
	for id, r := range t.records {
		if r.viewing {
			t.StopViewTimer(id)
		}
		if r.hover != nil {
			r.hover.ForceReport()
		}
	}
}

// Reset drops all per-item state without reporting. Used on category
// change and session reset.
func (t *Tracker) Reset() {
	for _, r := range t.records {
		t.detach(r)
	}
	t.records = make(map[string]*record)
}

// Destroy flushes open timers and tears everything down. Safe to call
// multiple times.
func (t *Tracker) Destroy() {
	t.FlushAllOnUnload()
	t.Reset()
}

func (t *Tracker) ensure(contentID string) *record {
	r, ok := t.records[contentID]
	if !ok {
		r = &record{}
		t.records[contentID] = r
	}
	return r
}

func (t *Tracker) detach(r *record) {
	if r.hover == nil {
		return
	}
	if t.broadcaster != nil {
		t.broadcaster.Unregister(r.hover)
	}
	r.hover.Destroy()
	r.hover = nil
}
