package queue

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/adntgv/gptree/pkg/logger"
)

var (
	runningGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gptree_queue_running_jobs",
		Help: "Generation jobs currently executing.",
	})
	queuedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gptree_queue_waiting_jobs",
		Help: "Generation jobs waiting for a slot.",
	})
	completedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gptree_queue_jobs_completed_total",
		Help: "Generation jobs that finished (success or failure).",
	})
)

// Work is one unit of asynchronous generation work. A unit records its own
// success or failure into durable state and notifications; the queue is
// agnostic to business outcome.
type Work func(ctx context.Context)

type job struct {
	id   string
	work Work
}

// Queue runs at most maxConcurrent units at a time and holds the rest FIFO
// by enqueue order. There is no priority, no cancellation and no per-job
// retry; a retry is a new Enqueue with a new job id. Bookkeeping is
// in-memory only and lives for the process.
type Queue struct {
	mu      sync.Mutex
	max     int
	pending []job
	queued  map[string]struct{}
	running map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a queue admitting up to maxConcurrent concurrent units.
func New(maxConcurrent int) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		max:     maxConcurrent,
		queued:  map[string]struct{}{},
		running: map[string]struct{}{},
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Enqueue registers work under jobID and returns immediately. If jobID is
// already waiting its work is replaced in place; if it is currently
// executing the call is dropped, so a job id refers to at most one
// instance at a time. Re-running finished work takes a fresh id.
func (q *Queue) Enqueue(jobID string, work Work) {
	q.mu.Lock()
	if _, ok := q.queued[jobID]; ok {
		for i := range q.pending {
			if q.pending[i].id == jobID {
				q.pending[i].work = work
				break
			}
		}
		q.mu.Unlock()
		return
	}
	if _, ok := q.running[jobID]; ok {
		logger.Warn("enqueue_dropped_running_job", "job", jobID)
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, job{id: jobID, work: work})
	q.queued[jobID] = struct{}{}
	queuedGauge.Set(float64(len(q.pending)))
	q.mu.Unlock()
	q.admit()
}

// admit starts FIFO-waiting jobs while capacity allows.
func (q *Queue) admit() {
	for {
		q.mu.Lock()
		if q.ctx.Err() != nil || len(q.running) >= q.max || len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending = q.pending[1:]
		delete(q.queued, next.id)
		q.running[next.id] = struct{}{}
		queuedGauge.Set(float64(len(q.pending)))
		runningGauge.Set(float64(len(q.running)))
		q.wg.Add(1)
		q.mu.Unlock()

		go q.run(next)
	}
}

func (q *Queue) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job_panicked", "job", j.id, "panic", r)
		}
		q.mu.Lock()
		delete(q.running, j.id)
		runningGauge.Set(float64(len(q.running)))
		q.mu.Unlock()
		completedTotal.Inc()
		q.wg.Done()
		q.admit()
	}()
	logger.Debug("job_started", "job", j.id)
	j.work(q.ctx)
	logger.Debug("job_finished", "job", j.id)
}

// IsQueued reports whether jobID is waiting for a slot.
func (q *Queue) IsQueued(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.queued[jobID]
	return ok
}

// IsRunning reports whether jobID is currently executing.
func (q *Queue) IsRunning(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.running[jobID]
	return ok
}

// RunningCount returns the number of executing jobs.
func (q *Queue) RunningCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.running)
}

// QueuedCount returns the number of waiting jobs.
func (q *Queue) QueuedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stop cancels the context passed to running units, stops admitting waiting
// jobs and blocks until running units return. Units run to completion;
// whether they observe the cancellation is up to their own I/O.
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()
}
