// Package alert ties a listing's notifications to its alert history: publish
// sends a notification and records it, close edits every recorded
// notification into its closed form and forgets the listing.
package alert

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/listing"
	"github.com/teranos/jobpulse/logger"
	"github.com/teranos/jobpulse/queue"
	"github.com/teranos/jobpulse/sink"
	"github.com/teranos/jobpulse/store"
	"github.com/teranos/jobpulse/sym"
)

// Task names.
const (
	TaskPublish = "publish"
	TaskClose   = "close"
)

// DefaultCallTimeout bounds a single sink call when none is configured.
const DefaultCallTimeout = 30 * time.Second

// Config holds the Lifecycle dependencies.
type Config struct {
	Store    store.AlertStore
	Sink     sink.Sink
	Renderer sink.Renderer
	// Pacer spaces consecutive edits of one close task. Share the delivery
	// queue's pacer so edits and task starts draw from the same budget.
	Pacer       *queue.Pacer
	CallTimeout time.Duration
	Logger      *zap.SugaredLogger
	Now         func() time.Time
}

// Lifecycle builds publish and close tasks for one sink.
type Lifecycle struct {
	store       store.AlertStore
	sink        sink.Sink
	renderer    sink.Renderer
	pacer       *queue.Pacer
	callTimeout time.Duration
	logger      *zap.SugaredLogger
	now         func() time.Time
}

// New creates a Lifecycle.
func New(cfg Config) *Lifecycle {
	l := &Lifecycle{
		store:       cfg.Store,
		sink:        cfg.Sink,
		renderer:    cfg.Renderer,
		pacer:       cfg.Pacer,
		callTimeout: cfg.CallTimeout,
		logger:      logger.OrNop(cfg.Logger).Named("alert"),
		now:         cfg.Now,
	}
	if l.pacer == nil {
		l.pacer = queue.NewPacer(queue.DefaultInterval)
	}
	if l.callTimeout == 0 {
		l.callTimeout = DefaultCallTimeout
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// PublishTask returns a queue task announcing l.
func (lc *Lifecycle) PublishTask(source string, l listing.Listing) queue.Task {
	slug := listing.SlugFor(source, l)
	return queue.Task{
		Name: TaskPublish,
		Key:  string(slug),
		Run: func(ctx context.Context) error {
			return lc.Publish(ctx, source, l)
		},
	}
}

// CloseTask returns a queue task marking every notification of l as closed.
func (lc *Lifecycle) CloseTask(source string, l listing.Listing) queue.Task {
	slug := listing.SlugFor(source, l)
	return queue.Task{
		Name: TaskClose,
		Key:  string(slug),
		Run: func(ctx context.Context) error {
			return lc.Close(ctx, source, l)
		},
	}
}

// Publish sends the opened notification for l and appends it to the
// listing's history. Nothing is recorded when the sink call fails.
func (lc *Lifecycle) Publish(ctx context.Context, source string, l listing.Listing) error {
	slug := listing.SlugFor(source, l)

	payload, err := lc.renderer.RenderOpened(source, l)
	if err != nil {
		return errors.Wrapf(err, "render %s", slug)
	}

	var handle string
	err = lc.call(ctx, func(ctx context.Context) error {
		var err error
		handle, err = lc.sink.Create(ctx, payload)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "publish %s", slug)
	}

	rec := store.AlertRecord{Handle: handle, Payload: payload, CreatedAt: lc.now().UTC()}
	if err := lc.store.Append(ctx, slug, rec); err != nil {
		// The message exists but will never be closed.
		err = errors.WithDetailf(err, "handle: %s", handle)
		return errors.Wrapf(err, "record notification for %s", slug)
	}

	lc.logger.Infow("Published listing",
		logger.FieldSymbol, sym.Opened,
		logger.FieldSlug, slug,
		logger.FieldCompany, l.CompanyName,
		logger.FieldHandle, handle)
	return nil
}

// Close edits every recorded notification of l into its closed rendering,
// waiting on the pacer between edits, then clears the history. A listing
// with no history is left alone.
func (lc *Lifecycle) Close(ctx context.Context, source string, l listing.Listing) error {
	slug := listing.SlugFor(source, l)

	history, err := lc.store.History(ctx, slug)
	if err != nil {
		return errors.Wrapf(err, "load history for %s", slug)
	}
	if len(history) == 0 {
		lc.logger.Debugw("No notifications to close", logger.FieldSlug, slug)
		return nil
	}

	failed := 0
	for i, rec := range history {
		if i > 0 {
			if err := lc.pacer.Wait(ctx); err != nil {
				return errors.Wrapf(err, "close %s", slug)
			}
		}
		if err := lc.closeOne(ctx, rec); err != nil {
			failed++
			lc.logger.Errorw("Failed to close notification",
				logger.FieldSymbol, sym.Closed,
				logger.FieldSlug, slug,
				logger.FieldHandle, rec.Handle,
				logger.FieldError, err.Error(),
				logger.FieldDetail, errors.FlattenDetails(err))
		}
	}

	if err := lc.store.Clear(ctx, slug); err != nil {
		return errors.Wrapf(err, "clear history for %s", slug)
	}

	lc.logger.Infow("Closed listing",
		logger.FieldSymbol, sym.Closed,
		logger.FieldSlug, slug,
		logger.FieldCount, len(history)-failed)

	if failed > 0 {
		return errors.Newf("close %s: %d of %d edits failed", slug, failed, len(history))
	}
	return nil
}

func (lc *Lifecycle) closeOne(ctx context.Context, rec store.AlertRecord) error {
	payload, err := lc.renderer.RenderClosed(sink.Payload(rec.Payload))
	if err != nil {
		return errors.Wrap(err, "render closed notification")
	}
	return lc.call(ctx, func(ctx context.Context) error {
		return lc.sink.Edit(ctx, rec.Handle, payload)
	})
}

// call runs fn under the per-call timeout.
func (lc *Lifecycle) call(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, lc.callTimeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return errors.Mark(errors.Wrapf(err, "sink call exceeded %s", lc.callTimeout), errors.ErrTimeout)
	}
	return err
}
