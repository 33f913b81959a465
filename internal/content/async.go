package content

import (
	"sync"

	"github.com/perivale/drift/internal/logging"
)

// defaultReportBuffer bounds how many reports may wait for dispatch.
const defaultReportBuffer = 64

// reportJob is one queued engagement report.
type reportJob struct {
	contentID string
	seconds   int
	interest  float64
	kind      string
}

// AsyncReporter posts engagement reports from a background goroutine so
// callers never block on the network. Reports are advisory: a full queue
// drops them and delivery failures are logged and forgotten.
type AsyncReporter struct {
	client *ReportClient
	queue  chan reportJob
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewAsyncReporter wraps client with a buffered dispatch goroutine.
// Non-positive buffer falls back to defaultReportBuffer.
func NewAsyncReporter(client *ReportClient, buffer int) *AsyncReporter {
	if buffer <= 0 {
		buffer = defaultReportBuffer
	}
	a := &AsyncReporter{
		client: client,
		queue:  make(chan reportJob, buffer),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncReporter) run() {
	defer close(a.done)
	for job := range a.queue {
		var err error
		switch job.kind {
		case "duration":
			err = a.client.ReportDuration(job.contentID, job.seconds)
		case "interest":
			err = a.client.ReportInterest(job.contentID, job.interest)
		}
		if err != nil {
			logging.Warn("engagement report failed", "kind", job.kind, "contentID", job.contentID, "err", err)
		}
	}
}

// ReportDuration queues a duration report. Never blocks.
func (a *AsyncReporter) ReportDuration(contentID string, seconds int) error {
	a.enqueue(reportJob{contentID: contentID, seconds: seconds, kind: "duration"})
	return nil
}

// ReportInterest queues an interest report. Never blocks.
func (a *AsyncReporter) ReportInterest(contentID string, score float64) error {
	a.enqueue(reportJob{contentID: contentID, interest: score, kind: "interest"})
	return nil
}

func (a *AsyncReporter) enqueue(job reportJob) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- job:
	default:
		logging.Debug("engagement report dropped, queue full", "kind", job.kind, "contentID", job.contentID)
	}
}

// Close drains queued reports and stops the dispatch goroutine. Safe to
// call repeatedly; reports arriving after Close are discarded.
func (a *AsyncReporter) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()
	<-a.done
}
