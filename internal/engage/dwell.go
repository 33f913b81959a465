package engage

import "github.com/perivale/drift/internal/logging"

// InterestReporter receives flushed hover-interest scores.
type InterestReporter interface {
	ReportInterest(contentID string, score float64) error
}

// DwellTracker is the built-in HoverTracker. It accumulates interest from
// velocity samples: slow scrolling over a visible item reads as attention,
// fast scrolling contributes almost nothing. The exact heuristic is
// deliberately private; callers only see the three HoverTracker ops.
type DwellTracker struct {
	contentID string
	reporter  InterestReporter
	interest  float64
	destroyed bool
}

// NewDwellTracker creates a DwellTracker for one item.
func NewDwellTracker(contentID string, reporter InterestReporter) *DwellTracker {
	return &DwellTracker{contentID: contentID, reporter: reporter}
}

// UpdateVelocity folds one velocity sample into the interest score.
func (d *DwellTracker) UpdateVelocity(v float64) {
	if d.destroyed {
		return
	}
	// Each sample is worth at most 1 point of interest, shrinking as the
	// user scrolls faster. v is rows/ms, so 0.05 is already a brisk flick.
	d.interest += 1.0 / (1.0 + v*40.0)
}

// ForceReport flushes the accumulated interest and resets it.
func (d *DwellTracker) ForceReport() {
	if d.destroyed || d.interest == 0 {
		return
	}
	score := d.interest
	d.interest = 0
	if d.reporter == nil {
		return
	}
	if err := d.reporter.ReportInterest(d.contentID, score); err != nil {
		logging.Warn("interest report failed", "contentID", d.contentID, "err", err)
	}
}

// Destroy marks the tracker dead. Further updates are ignored.
func (d *DwellTracker) Destroy() {
	d.destroyed = true
	d.interest = 0
}
