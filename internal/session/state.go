// Package session owns the feed pagination state machine and orchestrates
// the content source, visibility scheduler, and engagement tracker.
package session

// Phase is the session's loading state. Exhausted is terminal until a
// refresh or reset returns the session to Idle; Failed permits retry.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseExhausted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseExhausted:
		return "exhausted"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the session's pagination state. Exclusively owned and mutated
// by the Controller; everyone else gets read-only queries.
type State struct {
	Page     int    // monotonic counter, starts at 1
	PageSize int
	Cursor   string // opaque continuation token, "" means first page
	HasMore  bool
	Phase    Phase
	// ViewedIDs holds every content ID already rendered this session,
	// used purely as the exclusion list for subsequent requests.
	ViewedIDs map[string]struct{}
}

func newState(pageSize int) State {
	return State{
		Page:      1,
		PageSize:  pageSize,
		HasMore:   true,
		Phase:     PhaseIdle,
		ViewedIDs: make(map[string]struct{}),
	}
}
