// Package visibility derives item enter/leave transitions, sentinel load
// triggers, and the pull-to-refresh gesture from viewport geometry.
//
// The detection primitive is intentionally dumb: the host feeds Observe
// one (offset, height) sample per frame plus the row bounds of everything
// it rendered, and the scheduler diffs the visible set. Nothing here
// polls on its own.
package visibility

import (
	"golang.org/x/time/rate"
)

// DefaultLookahead is how many rows below the viewport the sentinel may
// sit and still trigger a load, so fetching starts before the user hits
// the physical end of the feed.
const DefaultLookahead = 12

// gestureSampleRate caps refresh-gesture sampling at ~20 Hz.
const gestureSampleRate = 20

// Session is the feed session surface the scheduler drives. The query
// methods are read-only: IsLoading dedupes repeated triggers while a
// load is in flight, and LoadFailed holds the level-triggered sentinel
// off after a failure so retry stays an explicit user action.
type Session interface {
	LoadMore()
	Refresh(keepCount int)
	IsLoading() bool
	HasMore() bool
	LoadFailed() bool
}

// Listener receives per-item visibility transitions.
type Listener interface {
	ItemVisible(contentID string)
	ItemHidden(contentID string)
}

type region struct {
	top     int
	height  int
	known   bool
	visible bool
}

// Scheduler tracks watched items and a trailing sentinel against the
// scroll viewport. Single-threaded: driven from the host event loop.
type Scheduler struct {
	session  Session
	listener Listener

	items map[string]*region

	sentinelOn  bool
	sentinelTop int
	sentinelSet bool
	lookahead   int

	gestureOn      bool
	nearTopBand    int
	gestureGoal    int
	refreshKeep    int
	gestureLimiter *rate.Limiter
	lastOffset     int
	haveLast       bool
	accumulated    int

	destroyed bool
}

// NewScheduler creates a Scheduler bound to a session and a transition
// listener.
func NewScheduler(session Session, listener Listener) *Scheduler {
	return &Scheduler{
		session:  session,
		listener: listener,
		items:    make(map[string]*region),
	}
}

// WatchSentinel enables sentinel tracking with the given lookahead in
// rows. Non-positive lookahead uses DefaultLookahead.
func (s *Scheduler) WatchSentinel(lookahead int) {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	s.sentinelOn = true
	s.lookahead = lookahead
}

// SetSentinelTop updates the sentinel's row position after a layout pass.
func (s *Scheduler) SetSentinelTop(top int) {
	s.sentinelTop = top
	s.sentinelSet = true
}

// WatchItem registers an item for visibility transitions. Its bounds
// arrive separately via SetItemBounds once layout is known.
func (s *Scheduler) WatchItem(contentID string) {
	if s.destroyed {
		return
	}
	if _, ok := s.items[contentID]; !ok {
		s.items[contentID] = &region{}
	}
}

// SetItemBounds records an item's row extent. Unknown items are ignored.
func (s *Scheduler) SetItemBounds(contentID string, top, height int) {
	if r, ok := s.items[contentID]; ok {
		r.top = top
		r.height = height
		r.known = true
	}
}

// UnwatchItem stops tracking an item. An item removed while visible
// counts as leaving view.
func (s *Scheduler) UnwatchItem(contentID string) {
	r, ok := s.items[contentID]
	if !ok {
		return
	}
	if r.visible && s.listener != nil {
		s.listener.ItemHidden(contentID)
	}
	delete(s.items, contentID)
}

// TrackRefreshGesture enables the pull-to-top refresh gesture. While the
// offset stays within nearTopBand rows of the top, consecutive upward
// movement accumulates; any downward movement zeroes the accumulator;
// crossing goal rows triggers session.Refresh(keepCount).
func (s *Scheduler) TrackRefreshGesture(nearTopBand, goal, keepCount int) {
	s.gestureOn = true
	s.nearTopBand = nearTopBand
	s.gestureGoal = goal
	s.refreshKeep = keepCount
	s.gestureLimiter = rate.NewLimiter(rate.Limit(gestureSampleRate), 1)
}

// setGestureLimiter overrides the gesture throttle. Test hook; nil
// disables throttling entirely.
func (s *Scheduler) setGestureLimiter(l *rate.Limiter) {
	s.gestureLimiter = l
}

// Observe processes one viewport sample: emits visibility transitions,
// checks the sentinel, and advances the refresh gesture.
func (s *Scheduler) Observe(offset, height int) {
	if s.destroyed {
		return
	}

	for id, r := range s.items {
		if !r.known {
			continue
		}
		vis := r.top < offset+height && r.top+r.height > offset
		if vis == r.visible {
			continue
		}
		r.visible = vis
		if s.listener == nil {
			continue
		}
		if vis {
			s.listener.ItemVisible(id)
		} else {
			s.listener.ItemHidden(id)
		}
	}

	if s.sentinelOn && s.sentinelSet && s.sentinelTop < offset+height+s.lookahead {
		if s.session != nil && s.session.HasMore() && !s.session.IsLoading() && !s.session.LoadFailed() {
			s.session.LoadMore()
		}
	}

	if s.gestureOn {
		if s.gestureLimiter == nil || s.gestureLimiter.Allow() {
			s.observeGesture(offset)
		}
	}
}

// observeGesture advances the scroll-direction accumulator. Correctness
// only needs direction reversals to be observable, not any particular
// sampling cadence.
func (s *Scheduler) observeGesture(offset int) {
	if !s.haveLast {
		s.lastOffset = offset
		s.haveLast = true
		return
	}
	delta := s.lastOffset - offset // positive when scrolling upward
	s.lastOffset = offset

	switch {
	case delta < 0:
		s.accumulated = 0
	case delta > 0 && offset <= s.nearTopBand:
		s.accumulated += delta
		if s.accumulated >= s.gestureGoal {
			s.accumulated = 0
			if s.session != nil {
				s.session.Refresh(s.refreshKeep)
			}
		}
	}
}

// VisibleCount returns how many watched items are currently visible.
func (s *Scheduler) VisibleCount() int {
	n := 0
	for _, r := range s.items {
		if r.visible {
			n++
		}
	}
	return n
}

// Reset drops all item registrations and gesture progress without
// emitting transitions. Sentinel and gesture configuration survive.
func (s *Scheduler) Reset() {
	s.items = make(map[string]*region)
	s.sentinelSet = false
	s.accumulated = 0
	s.haveLast = false
}

// Destroy disconnects everything. Safe to call multiple times; the
// scheduler owns no timers, so there is nothing left ticking.
func (s *Scheduler) Destroy() {
	s.Reset()
	s.destroyed = true
}
