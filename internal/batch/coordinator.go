package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/verdantlabs/contentforge/internal/content"
	"github.com/verdantlabs/contentforge/internal/orchestrate"
)

// DefaultConcurrency bounds a batch when the caller doesn't specify one.
const DefaultConcurrency = 3

// Store persists finished jobs. The coordinator works without one.
type Store interface {
	SaveJob(snap Snapshot) error
}

// Coordinator executes batches of requests through a bounded worker pool,
// each item driven independently through the orchestrator. One item's
// failure never aborts the batch.
type Coordinator struct {
	orch  *orchestrate.Orchestrator
	store Store

	mu   sync.Mutex
	jobs map[string]*Job
}

// NewCoordinator creates a batch coordinator. store may be nil.
func NewCoordinator(orch *orchestrate.Orchestrator, store Store) *Coordinator {
	return &Coordinator{
		orch:  orch,
		store: store,
		jobs:  make(map[string]*Job),
	}
}

// Submit validates the requests, registers a job, and starts it in the
// background. The returned snapshot carries the job ID for polling.
func (c *Coordinator) Submit(reqs []*content.Request, maxConcurrency int) (Snapshot, error) {
	job, err := c.newJob(reqs, maxConcurrency)
	if err != nil {
		return Snapshot{}, err
	}

	go c.run(job)
	return job.snapshot(), nil
}

// Run executes a batch synchronously and returns the terminal snapshot.
func (c *Coordinator) Run(ctx context.Context, reqs []*content.Request, maxConcurrency int) (Snapshot, error) {
	job, err := c.newJob(reqs, maxConcurrency)
	if err != nil {
		return Snapshot{}, err
	}

	// Caller cancellation maps onto the job's cooperative cancel.
	stop := context.AfterFunc(ctx, job.requestCancel)
	defer stop()

	c.run(job)
	return job.snapshot(), nil
}

// Snapshot returns the current view of a job.
func (c *Coordinator) Snapshot(id string) (Snapshot, bool) {
	c.mu.Lock()
	job, ok := c.jobs[id]
	c.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return job.snapshot(), true
}

// Cancel requests cooperative cancellation of a job: no new items are
// dispatched, in-flight items finish naturally, finished results are kept.
func (c *Coordinator) Cancel(id string) error {
	c.mu.Lock()
	job, ok := c.jobs[id]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("no such job: %s", id)
	}
	logrus.Infof("batch %s: cancellation requested", id)
	job.requestCancel()
	return nil
}

func (c *Coordinator) newJob(reqs []*content.Request, maxConcurrency int) (*Job, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("batch has no requests")
	}
	for i, req := range reqs {
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
	}
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultConcurrency
	}
	if maxConcurrency > len(reqs) {
		maxConcurrency = len(reqs)
	}

	job := &Job{
		id:             uuid.NewString(),
		requests:       reqs,
		maxConcurrency: maxConcurrency,
		createdAt:      time.Now(),
		status:         StatusQueued,
		results:        make(map[int]*orchestrate.Result, len(reqs)),
		cancelCh:       make(chan struct{}),
		done:           make(chan struct{}),
	}

	c.mu.Lock()
	c.jobs[job.id] = job
	c.mu.Unlock()
	return job, nil
}

// run drives the worker pool to completion. Workers pull request indices
// from a channel; the dispatcher stops feeding it on cancellation.
func (c *Coordinator) run(job *Job) {
	job.mu.Lock()
	job.status = StatusRunning
	job.mu.Unlock()
	logrus.Infof("batch %s: %d request(s), concurrency %d", job.id, len(job.requests), job.maxConcurrency)

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < job.maxConcurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indices {
				c.runItem(job, idx)
			}
		}()
	}

dispatch:
	for i := range job.requests {
		select {
		case <-job.cancelCh:
			break dispatch
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()

	job.finish()
	snap := job.snapshot()
	logrus.Infof("batch %s finished: %s (%d/%d results)", job.id, snap.Status, len(snap.Results), snap.RequestCount)

	if c.store != nil {
		if err := c.store.SaveJob(snap); err != nil {
			logrus.Errorf("batch %s: persisting job: %v", job.id, err)
		}
	}
}

// runItem drives one request to a terminal result. The item gets its own
// context: batch cancellation stops dispatch but never interrupts a running
// provider call.
func (c *Coordinator) runItem(job *Job, idx int) {
	res, err := c.orch.Generate(context.Background(), job.requests[idx])
	if err != nil {
		// Requests were validated at submit time, so this is unexpected;
		// record it rather than losing the slot.
		res = &orchestrate.Result{
			FailureKind: orchestrate.FailureNoProviders,
			LastError:   err.Error(),
		}
	}
	job.attach(idx, res)
}
