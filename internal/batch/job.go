package batch

import (
	"sync"
	"time"

	"github.com/verdantlabs/contentforge/internal/content"
	"github.com/verdantlabs/contentforge/internal/orchestrate"
)

// Status is the externally observable lifecycle of a batch job.
type Status string

const (
	StatusQueued          Status = "queued"
	StatusRunning         Status = "running"
	StatusCompleted       Status = "completed"
	StatusPartiallyFailed Status = "partially_failed"
	StatusCancelled       Status = "cancelled"
)

// Job is a batch of requests tracked as one unit. Only the Coordinator
// mutates it; everything external reads Snapshots.
type Job struct {
	id             string
	requests       []*content.Request
	maxConcurrency int
	createdAt      time.Time

	mu          sync.Mutex
	status      Status
	results     map[int]*orchestrate.Result
	completedAt time.Time
	cancelled   bool
	cancelCh    chan struct{}
	done        chan struct{}
}

// Snapshot is an immutable view of a job for polling callers. Results are
// keyed by original request index, so input order is always recoverable
// regardless of completion order.
type Snapshot struct {
	ID             string                      `json:"id"`
	Status         Status                      `json:"status"`
	MaxConcurrency int                         `json:"max_concurrency"`
	RequestCount   int                         `json:"request_count"`
	Results        map[int]*orchestrate.Result `json:"results"`
	CreatedAt      time.Time                   `json:"created_at"`
	CompletedAt    *time.Time                  `json:"completed_at,omitempty"`
}

// attach records a terminal result for one request index. The orchestrator
// run behind it has fully resolved by the time this is called; partial
// attempts are never visible here.
func (j *Job) attach(idx int, res *orchestrate.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results[idx] = res
}

// requestCancel flags the job so no further items are dispatched. In-flight
// items finish naturally.
func (j *Job) requestCancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancelled {
		return
	}
	j.cancelled = true
	close(j.cancelCh)
}

// finish computes the terminal status from the collected results.
func (j *Job) finish() {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch {
	case j.cancelled && len(j.results) < len(j.requests):
		j.status = StatusCancelled
	case allAccepted(j.results, len(j.requests)):
		j.status = StatusCompleted
	default:
		j.status = StatusPartiallyFailed
	}
	j.completedAt = time.Now()
	close(j.done)
}

func allAccepted(results map[int]*orchestrate.Result, want int) bool {
	if len(results) != want {
		return false
	}
	for _, r := range results {
		if !r.Accepted {
			return false
		}
	}
	return true
}

// snapshot builds an immutable copy under the job lock. Result values are
// shared: they are immutable once attached.
func (j *Job) snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	results := make(map[int]*orchestrate.Result, len(j.results))
	for k, v := range j.results {
		results[k] = v
	}

	snap := Snapshot{
		ID:             j.id,
		Status:         j.status,
		MaxConcurrency: j.maxConcurrency,
		RequestCount:   len(j.requests),
		Results:        results,
		CreatedAt:      j.createdAt,
	}
	if !j.completedAt.IsZero() {
		t := j.completedAt
		snap.CompletedAt = &t
	}
	return snap
}

// Wait blocks until the job reaches a terminal status.
func (j *Job) Wait() {
	<-j.done
}
