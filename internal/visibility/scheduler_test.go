package visibility

import (
	"testing"
	"time"
)

// mockSession records load and refresh triggers.
type mockSession struct {
	loadMores []int // count of calls, value unused
	refreshes []int
	loading   bool
	hasMore   bool
	failed    bool
}

func (m *mockSession) LoadMore()             { m.loadMores = append(m.loadMores, 0) }
func (m *mockSession) Refresh(keepCount int) { m.refreshes = append(m.refreshes, keepCount) }
func (m *mockSession) IsLoading() bool       { return m.loading }
func (m *mockSession) HasMore() bool         { return m.hasMore }
func (m *mockSession) LoadFailed() bool      { return m.failed }

// mockListener records visibility transitions in order.
type mockListener struct {
	events []string
}

func (m *mockListener) ItemVisible(contentID string) {
	m.events = append(m.events, "visible:"+contentID)
}

func (m *mockListener) ItemHidden(contentID string) {
	m.events = append(m.events, "hidden:"+contentID)
}

func newTestScheduler() (*Scheduler, *mockSession, *mockListener) {
	session := &mockSession{hasMore: true}
	listener := &mockListener{}
	return NewScheduler(session, listener), session, listener
}

func TestItemEnterLeaveTransitions(t *testing.T) {
	s, _, listener := newTestScheduler()

	s.WatchItem("a")
	s.SetItemBounds("a", 30, 3)

	// Viewport rows [0,24): item below the fold
	s.Observe(0, 24)
	if len(listener.events) != 0 {
		t.Fatalf("off-screen item produced events: %v", listener.events)
	}

	// Scrolled down: item enters
	s.Observe(10, 24)
	if len(listener.events) != 1 || listener.events[0] != "visible:a" {
		t.Fatalf("expected visible:a, got %v", listener.events)
	}

	// Still on screen: no duplicate transition
	s.Observe(12, 24)
	if len(listener.events) != 1 {
		t.Fatalf("unchanged visibility must not re-fire: %v", listener.events)
	}

	// Scrolled past: item leaves above
	s.Observe(40, 24)
	if len(listener.events) != 2 || listener.events[1] != "hidden:a" {
		t.Fatalf("expected hidden:a, got %v", listener.events)
	}
}

func TestPartialOverlapCountsAsVisible(t *testing.T) {
	s, _, _ := newTestScheduler()

	s.WatchItem("a")
	s.SetItemBounds("a", 22, 3) // rows 22-24, viewport shows rows 0-23

	s.Observe(0, 24)
	if s.VisibleCount() != 1 {
		t.Error("item clipped by the viewport edge still counts as visible")
	}

	// One row of overlap at the top edge
	s.SetItemBounds("a", 0, 3)
	s.Observe(2, 24)
	if s.VisibleCount() != 1 {
		t.Error("item peeking above the viewport top still counts as visible")
	}
}

func TestItemWithoutBoundsIgnored(t *testing.T) {
	s, _, listener := newTestScheduler()

	s.WatchItem("a") // bounds never set
	s.Observe(0, 24)
	if len(listener.events) != 0 {
		t.Errorf("item with unknown bounds must not transition: %v", listener.events)
	}
}

func TestUnwatchWhileVisibleEmitsHidden(t *testing.T) {
	s, _, listener := newTestScheduler()

	s.WatchItem("a")
	s.SetItemBounds("a", 5, 3)
	s.Observe(0, 24)

	s.UnwatchItem("a")
	if got := listener.events[len(listener.events)-1]; got != "hidden:a" {
		t.Errorf("removal while visible counts as leaving view, got %s", got)
	}

	s.UnwatchItem("a") // already gone, no-op
	s.UnwatchItem("never-watched")
}

func TestSentinelLookaheadTriggersLoad(t *testing.T) {
	s, session, _ := newTestScheduler()

	s.WatchSentinel(12)
	s.SetSentinelTop(40)

	// Sentinel 16 rows below the bottom edge: outside lookahead
	s.Observe(0, 24)
	if len(session.loadMores) != 0 {
		t.Fatal("sentinel outside lookahead must not trigger")
	}

	// Bottom edge at row 28, sentinel at 40, lookahead 12: 40 < 28+12 is
	// false, still outside
	s.Observe(4, 24)
	if len(session.loadMores) != 0 {
		t.Fatal("sentinel exactly at the lookahead boundary must not trigger")
	}

	// One more row: inside
	s.Observe(5, 24)
	if len(session.loadMores) != 1 {
		t.Fatalf("expected load trigger, got %d", len(session.loadMores))
	}
}

func TestSentinelDedupedBySessionGuards(t *testing.T) {
	s, session, _ := newTestScheduler()

	s.WatchSentinel(12)
	s.SetSentinelTop(10)

	s.Observe(0, 24)
	if len(session.loadMores) != 1 {
		t.Fatalf("expected first trigger, got %d", len(session.loadMores))
	}

	// The session reports loading: repeated frames with the sentinel still
	// in range must not re-trigger
	session.loading = true
	s.Observe(0, 24)
	s.Observe(1, 24)
	if len(session.loadMores) != 1 {
		t.Errorf("loading session must suppress triggers, got %d", len(session.loadMores))
	}

	// Load finishes with the feed exhausted
	session.loading = false
	session.hasMore = false
	s.Observe(0, 24)
	if len(session.loadMores) != 1 {
		t.Errorf("exhausted session must suppress triggers, got %d", len(session.loadMores))
	}
}

func TestSentinelSuppressedAfterFailedLoad(t *testing.T) {
	s, session, _ := newTestScheduler()

	s.WatchSentinel(12)
	s.SetSentinelTop(10)

	s.Observe(0, 24)
	if len(session.loadMores) != 1 {
		t.Fatalf("expected first trigger, got %d", len(session.loadMores))
	}

	// The load fails. Every subsequent frame still sees the sentinel in
	// range; none of them may turn into an automatic retry.
	session.loading = false
	session.failed = true
	for i := 0; i < 5; i++ {
		s.Observe(0, 24)
	}
	if len(session.loadMores) != 1 {
		t.Errorf("failed session must suppress sentinel triggers, got %d", len(session.loadMores))
	}

	// Manual retry clears the failure; the sentinel may fire again
	session.failed = false
	s.Observe(0, 24)
	if len(session.loadMores) != 2 {
		t.Errorf("cleared failure must re-arm the sentinel, got %d", len(session.loadMores))
	}
}

func TestRefreshGestureAccumulatesUpwardNearTop(t *testing.T) {
	s, session, _ := newTestScheduler()

	s.TrackRefreshGesture(6, 18, 15)
	s.setGestureLimiter(nil) // deterministic sampling

	// Establish baseline inside the near-top band
	s.Observe(6, 24)
	// Consecutive upward pulls: 6→0 is 6 rows, then overscroll continues
	// the upward travel
	s.Observe(0, 24)  // +6
	s.Observe(-6, 24) // +6, total 12
	if len(session.refreshes) != 0 {
		t.Fatal("gesture below goal must not refresh")
	}
	s.Observe(-12, 24) // +6, total 18 >= goal
	if len(session.refreshes) != 1 || session.refreshes[0] != 15 {
		t.Fatalf("expected Refresh(15), got %v", session.refreshes)
	}
}

func TestRefreshGestureResetOnDownward(t *testing.T) {
	s, session, _ := newTestScheduler()

	s.TrackRefreshGesture(6, 10, 15)
	s.setGestureLimiter(nil)

	s.Observe(6, 24)
	s.Observe(0, 24) // +6
	s.Observe(2, 24) // downward: accumulator zeroed
	s.Observe(0, 24)  // +2
	s.Observe(-4, 24) // +4, total 6 < 10
	if len(session.refreshes) != 0 {
		t.Errorf("downward movement must zero the accumulator, got %v", session.refreshes)
	}
}

func TestRefreshGestureIgnoredOutsideBand(t *testing.T) {
	s, session, _ := newTestScheduler()

	s.TrackRefreshGesture(6, 10, 15)
	s.setGestureLimiter(nil)

	// Upward scrolling deep in the feed is just scrolling
	s.Observe(50, 24)
	s.Observe(40, 24)
	s.Observe(30, 24)
	if len(session.refreshes) != 0 {
		t.Errorf("upward movement outside the near-top band must not refresh, got %v", session.refreshes)
	}
}

func TestRefreshGestureThrottledAtSampleRate(t *testing.T) {
	s, session, _ := newTestScheduler()

	// Real limiter: 20 Hz, burst 1. Frames arriving faster than the
	// sampling cap are dropped, not accumulated.
	s.TrackRefreshGesture(100, 5, 0)

	s.Observe(10, 24) // first token: baseline
	s.Observe(4, 24)  // same window: dropped
	s.Observe(3, 24)  // same window: dropped
	if len(session.refreshes) != 0 {
		t.Fatalf("throttled frames must not advance the gesture, got %v", session.refreshes)
	}

	// After a full token interval the next sample goes through and the
	// delta is measured from the last *sampled* offset.
	time.Sleep(100 * time.Millisecond)
	s.Observe(2, 24) // delta 10-2 = 8 >= goal
	if len(session.refreshes) != 1 {
		t.Errorf("expected refresh after the throttle window, got %v", session.refreshes)
	}
}

func TestResetDropsItemsAndGestureProgress(t *testing.T) {
	s, session, listener := newTestScheduler()

	s.WatchItem("a")
	s.SetItemBounds("a", 0, 3)
	s.Observe(0, 24)
	s.TrackRefreshGesture(6, 10, 15)
	s.setGestureLimiter(nil)
	s.Observe(6, 24)
	s.Observe(0, 24) // partial gesture progress

	before := len(listener.events)
	s.Reset()
	if len(listener.events) != before {
		t.Error("reset must not emit transitions")
	}
	if s.VisibleCount() != 0 {
		t.Error("reset must drop item registrations")
	}

	// Gesture config survives but progress restarted
	s.Observe(2, 24)  // new baseline
	s.Observe(-6, 24) // +8 < 10
	if len(session.refreshes) != 0 {
		t.Errorf("gesture progress must restart after reset, got %v", session.refreshes)
	}
}

func TestDestroyedSchedulerInert(t *testing.T) {
	s, session, listener := newTestScheduler()

	s.WatchSentinel(12)
	s.SetSentinelTop(0)
	s.Destroy()
	s.Destroy()

	s.WatchItem("a")
	s.Observe(0, 24)
	if len(session.loadMores) != 0 || len(listener.events) != 0 {
		t.Error("destroyed scheduler must observe nothing")
	}
}
