// Package watch runs comparison cycles: for every configured category and
// repository it acquires the current listings, diffs them against the last
// snapshot and queues the resulting notifications.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/jobpulse/alert"
	"github.com/teranos/jobpulse/diff"
	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/listing"
	"github.com/teranos/jobpulse/logger"
	"github.com/teranos/jobpulse/queue"
	"github.com/teranos/jobpulse/sink"
	"github.com/teranos/jobpulse/source"
	"github.com/teranos/jobpulse/store"
	"github.com/teranos/jobpulse/sym"
)

// ErrCycleInProgress is returned by RunCycle while another cycle is running.
var ErrCycleInProgress = errors.New("cycle already in progress")

// Acquirer produces the current snapshot of a repository. found is false
// when the repository has no listings file.
type Acquirer interface {
	Acquire(ctx context.Context, repo source.Repository) (snap listing.Snapshot, found bool, err error)
}

// Category is a group of repositories announced through one sink.
type Category struct {
	Name         string
	Repositories []source.Repository
	Sink         sink.Sink
	Renderer     sink.Renderer
}

// Config holds the Watcher dependencies.
type Config struct {
	Acquirer   Acquirer
	Engine     *diff.Engine
	Alerts     store.AlertStore
	Queue      *queue.Queue
	Categories []Category

	// MaxPostAge suppresses announcements for listings posted longer ago.
	// Zero announces everything.
	MaxPostAge  time.Duration
	CallTimeout time.Duration
	Now         func() time.Time
	Logger      *zap.SugaredLogger
}

type boundCategory struct {
	Category
	lifecycle *alert.Lifecycle
}

// Watcher runs comparison cycles. Only one cycle runs at a time.
type Watcher struct {
	acquirer    Acquirer
	engine      *diff.Engine
	alerts      store.AlertStore
	queue       *queue.Queue
	maxPostAge  time.Duration
	callTimeout time.Duration
	now         func() time.Time
	logger      *zap.SugaredLogger

	running sync.Mutex

	mu         sync.Mutex
	categories []boundCategory
}

// New creates a Watcher.
func New(cfg Config) *Watcher {
	w := &Watcher{
		acquirer:    cfg.Acquirer,
		engine:      cfg.Engine,
		alerts:      cfg.Alerts,
		queue:       cfg.Queue,
		maxPostAge:  cfg.MaxPostAge,
		callTimeout: cfg.CallTimeout,
		now:         cfg.Now,
		logger:      logger.OrNop(cfg.Logger).Named("watch"),
	}
	if w.queue == nil {
		w.queue = queue.New(queue.DefaultInterval, w.logger)
	}
	if w.now == nil {
		w.now = time.Now
	}
	w.SetCategories(cfg.Categories)
	return w
}

// SetCategories replaces the configured categories. A running cycle keeps
// the categories it started with.
func (w *Watcher) SetCategories(categories []Category) {
	bound := make([]boundCategory, 0, len(categories))
	for _, c := range categories {
		bound = append(bound, boundCategory{
			Category: c,
			lifecycle: alert.New(alert.Config{
				Store:       w.alerts,
				Sink:        c.Sink,
				Renderer:    c.Renderer,
				Pacer:       w.queue.Pacer(),
				CallTimeout: w.callTimeout,
				Logger:      w.logger,
				Now:         w.now,
			}),
		})
	}

	w.mu.Lock()
	w.categories = bound
	w.mu.Unlock()
}

func (w *Watcher) currentCategories() []boundCategory {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.categories
}

// RunCycle compares every repository once and delivers the resulting
// notifications. Per-source failures are logged and reported; the returned
// error is ErrCycleInProgress or the context's error.
func (w *Watcher) RunCycle(ctx context.Context) (Report, error) {
	if !w.running.TryLock() {
		return Report{}, ErrCycleInProgress
	}
	defer w.running.Unlock()

	report := Report{CycleID: uuid.NewString(), Started: w.now()}
	ctx = logger.WithCycleID(ctx, report.CycleID)
	log := logger.FromContext(ctx, w.logger)
	before := w.queue.Stats()

	log.Infow("Cycle started", logger.FieldSymbol, sym.Pulse)

	for _, cat := range w.currentCategories() {
		catCtx := logger.WithCategory(ctx, cat.Name)
		for _, repo := range cat.Repositories {
			if err := ctx.Err(); err != nil {
				return w.finish(log, report, before), err
			}
			report.Sources = append(report.Sources, w.processSource(catCtx, cat, repo))
		}
	}

	return w.finish(log, report, before), ctx.Err()
}

func (w *Watcher) finish(log *zap.SugaredLogger, report Report, before queue.Stats) Report {
	after := w.queue.Stats()
	report.Delivered = after.Succeeded - before.Succeeded
	report.Failed = after.Failed - before.Failed
	report.Duration = w.now().Sub(report.Started)

	log.Infow("Cycle finished",
		logger.FieldSymbol, sym.Pulse,
		logger.FieldOpened, report.Opened(),
		logger.FieldClosed, report.Closed(),
		"delivered", report.Delivered,
		"failed", report.Failed,
		logger.FieldDurationMS, report.Duration.Milliseconds())
	return report
}

func (w *Watcher) processSource(ctx context.Context, cat boundCategory, repo source.Repository) SourceReport {
	ctx = logger.WithSource(ctx, repo.Slug)
	log := logger.FromContext(ctx, w.logger)
	sr := SourceReport{Category: cat.Name, Source: repo.Slug}

	current, found, err := w.acquirer.Acquire(ctx, repo)
	if err != nil {
		log.Errorw("Skipping source, acquisition failed",
			logger.FieldSymbol, sym.Source,
			logger.FieldError, err.Error())
		sr.Skipped, sr.Reason = true, "acquire: "+err.Error()
		return sr
	}
	if !found {
		log.Warnw("Skipping source, no listings file", logger.FieldSymbol, sym.Source)
		sr.Skipped, sr.Reason = true, "no listings file"
		return sr
	}

	result, err := w.engine.Detect(ctx, repo.Slug, current)
	if err != nil {
		// Delivering without a saved snapshot would announce the same
		// changes again next cycle.
		log.Errorw("Skipping delivery, snapshot not saved",
			logger.FieldSymbol, sym.DB,
			logger.FieldError, err.Error(),
			logger.FieldOpened, len(result.Opened),
			logger.FieldClosed, len(result.Closed))
		sr.Skipped, sr.Reason = true, "save snapshot: "+err.Error()
		return sr
	}

	sr.Listings = len(current)
	sr.Opened = len(result.Opened)
	sr.Closed = len(result.Closed)

	now := w.now()
	for _, l := range result.Opened {
		if l.OlderThan(w.maxPostAge, now) {
			sr.Stale++
			continue
		}
		w.queue.Enqueue(cat.lifecycle.PublishTask(repo.Slug, l))
	}
	for _, l := range result.Closed {
		w.queue.Enqueue(cat.lifecycle.CloseTask(repo.Slug, l))
	}

	log.Infow("Compared listings",
		logger.FieldSymbol, sym.Pulse,
		logger.FieldCount, sr.Listings,
		logger.FieldOpened, sr.Opened,
		logger.FieldClosed, sr.Closed,
		"stale", sr.Stale)

	if err := w.queue.Run(ctx); err != nil {
		log.Warnw("Delivery interrupted",
			logger.FieldPending, w.queue.Len(),
			logger.FieldError, err.Error())
	}
	return sr
}
