// Package scroll computes scroll velocity from offset samples and fans it
// out to per-item subscribers.
package scroll

import "time"

// DefaultSampleInterval is the minimum spacing between computed samples.
// Raw samples arriving faster than this are coalesced; only the latest
// offset in a window contributes to the next computed velocity.
const DefaultSampleInterval = 100 * time.Millisecond

// Subscriber receives every computed velocity sample while registered.
// Delivery order across subscribers is unspecified.
type Subscriber interface {
	UpdateVelocity(v float64)
}

// Sample is one computed velocity reading. Superseded on every compute
// tick, never persisted.
type Sample struct {
	Timestamp time.Time
	Offset    float64
	Velocity  float64 // rows per millisecond, >= 0, finite
}

// Broadcaster turns raw scroll-offset samples into throttled velocity
// updates. Single-threaded: callers feed it from one event loop.
type Broadcaster struct {
	interval    time.Duration
	now         func() time.Time
	subscribers map[Subscriber]struct{}

	hasBase  bool
	baseTime time.Time
	baseOff  float64
	last     Sample
}

// NewBroadcaster creates a Broadcaster with the given throttle interval.
// A non-positive interval falls back to DefaultSampleInterval.
func NewBroadcaster(interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Broadcaster{
		interval:    interval,
		now:         time.Now,
		subscribers: make(map[Subscriber]struct{}),
	}
}

// SetClock overrides the time source. Test hook.
func (b *Broadcaster) SetClock(now func() time.Time) {
	b.now = now
}

// Register adds a subscriber. Idempotent: registering twice delivers once.
func (b *Broadcaster) Register(s Subscriber) {
	b.subscribers[s] = struct{}{}
}

// Unregister removes a subscriber. No-op when absent.
func (b *Broadcaster) Unregister(s Subscriber) {
	delete(b.subscribers, s)
}

// SubscriberCount returns the current number of subscribers.
func (b *Broadcaster) SubscriberCount() int {
	return len(b.subscribers)
}

// Sample records a raw scroll offset. At most one velocity is computed per
// throttle interval; velocity is always derived from the pair (previous
// computed sample, latest raw sample), never an average of the window.
func (b *Broadcaster) Sample(offset float64) {
	now := b.now()

	if !b.hasBase {
		b.hasBase = true
		b.baseTime = now
		b.baseOff = offset
		return
	}

	elapsed := now.Sub(b.baseTime)
	if elapsed < b.interval {
		return
	}

	velocity := 0.0
	if ms := float64(elapsed.Milliseconds()); ms > 0 {
		delta := offset - b.baseOff
		if delta < 0 {
			delta = -delta
		}
		velocity = delta / ms
	}

	b.baseTime = now
	b.baseOff = offset
	b.last = Sample{Timestamp: now, Offset: offset, Velocity: velocity}

	for s := range b.subscribers {
		s.UpdateVelocity(velocity)
	}
}

// Last returns the most recent computed sample.
func (b *Broadcaster) Last() Sample {
	return b.last
}
