// Package queue implements the single-lane delivery queue: tasks run one at
// a time, in enqueue order, with a minimum spacing between starts.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/logger"
	"github.com/teranos/jobpulse/sym"
)

// DefaultInterval is the spacing used when none is configured.
const DefaultInterval = time.Second

// Task is one unit of outbound work.
type Task struct {
	Name string // "publish", "close"
	Key  string // listing the task belongs to, for logs
	Run  func(ctx context.Context) error
}

// FailureFunc observes tasks that returned an error or panicked.
type FailureFunc func(task Task, err error)

// Stats counts tasks since the queue was created.
type Stats struct {
	Enqueued  int
	Succeeded int
	Failed    int
}

// Queue is a FIFO of Tasks drained by Run.
type Queue struct {
	mu      sync.Mutex
	pending []Task
	stats   Stats

	runMu     sync.Mutex
	pacer     *Pacer
	logger    *zap.SugaredLogger
	onFailure FailureFunc
}

// Option configures a Queue.
type Option func(*Queue)

// WithFailureFunc registers an observer for failed tasks.
func WithFailureFunc(fn FailureFunc) Option {
	return func(q *Queue) { q.onFailure = fn }
}

// WithPacer replaces the queue's pacer, typically to share it with tasks
// that make several sink calls.
func WithPacer(p *Pacer) Option {
	return func(q *Queue) { q.pacer = p }
}

// New creates a Queue whose task starts are at least interval apart.
func New(interval time.Duration, log *zap.SugaredLogger, opts ...Option) *Queue {
	q := &Queue{
		pacer:  NewPacer(interval),
		logger: logger.OrNop(log).Named("queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Pacer returns the pacer gating task starts.
func (q *Queue) Pacer() *Pacer {
	return q.pacer
}

// Enqueue appends a task. Safe to call while Run is draining.
func (q *Queue) Enqueue(task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, task)
	q.stats.Enqueued++
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stats returns a copy of the counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

func (q *Queue) pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Task{}, false
	}
	task := q.pending[0]
	q.pending[0] = Task{}
	q.pending = q.pending[1:]
	return task, true
}

// Run executes pending tasks until the queue is empty or ctx is done.
//
// Concurrent callers are serialized, so at most one task is ever in flight.
// A failing task is logged and reported; the queue moves on and does not
// retry it. Tasks still pending when ctx is done stay queued.
func (q *Queue) Run(ctx context.Context) error {
	q.runMu.Lock()
	defer q.runMu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if q.Len() == 0 {
			return nil
		}
		if err := q.pacer.Wait(ctx); err != nil {
			return err
		}

		task, ok := q.pop()
		if !ok {
			return nil
		}
		q.execute(ctx, task)
	}
}

func (q *Queue) execute(ctx context.Context, task Task) {
	start := time.Now()
	err := runTask(ctx, task)
	duration := time.Since(start).Milliseconds()

	q.mu.Lock()
	if err != nil {
		q.stats.Failed++
	} else {
		q.stats.Succeeded++
	}
	pending := len(q.pending)
	q.mu.Unlock()

	if err != nil {
		q.logger.Errorw("Task failed",
			logger.FieldSymbol, sym.Pulse,
			logger.FieldTask, task.Name,
			logger.FieldSlug, task.Key,
			logger.FieldError, err,
			logger.FieldDetail, errors.FlattenDetails(err),
			logger.FieldDurationMS, duration,
			logger.FieldPending, pending)
		if q.onFailure != nil {
			q.onFailure(task, err)
		}
		return
	}

	q.logger.Debugw("Task finished",
		logger.FieldTask, task.Name,
		logger.FieldSlug, task.Key,
		logger.FieldDurationMS, duration,
		logger.FieldPending, pending)
}

// runTask converts a panic into an error so one bad task cannot stop the lane.
func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("task %s panicked: %s", task.Name, fmt.Sprint(r))
		}
	}()
	if task.Run == nil {
		return errors.Newf("task %s has no body", task.Name)
	}
	return task.Run(ctx)
}
