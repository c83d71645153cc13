package diff

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/listing"
	"github.com/teranos/jobpulse/logger"
	"github.com/teranos/jobpulse/store"
)

// Engine runs Compare against the persisted snapshot of a source and then
// stores the current snapshot in its place.
type Engine struct {
	snapshots store.SnapshotStore
	logger    *zap.SugaredLogger
}

// NewEngine creates an Engine over snapshots.
func NewEngine(snapshots store.SnapshotStore, log *zap.SugaredLogger) *Engine {
	return &Engine{
		snapshots: snapshots,
		logger:    logger.OrNop(log).Named("diff"),
	}
}

// Detect compares current with the stored snapshot of source and overwrites
// the stored snapshot with current.
//
// An unreadable or corrupt stored snapshot is treated as absent. The result
// is always returned; a non-nil error means the save failed and the caller
// should not deliver it, since the next cycle will detect the same
// transitions again.
func (e *Engine) Detect(ctx context.Context, source string, current listing.Snapshot) (Result, error) {
	log := logger.FromContext(ctx, e.logger)
	start := time.Now()

	previous, found, err := e.snapshots.Load(ctx, source)
	if err != nil {
		log.Warnw("Stored snapshot unreadable, treating as absent",
			logger.FieldSource, source,
			logger.FieldError, err,
			"corrupt", errors.IsCorruptStateError(err))
		previous, found = nil, false
	}

	res := Compare(previous, found, current)

	if err := e.snapshots.Save(ctx, source, current); err != nil {
		return res, errors.Wrapf(err, "save snapshot for %s", source)
	}

	log.Debugw("Snapshot compared",
		logger.FieldSource, source,
		"previous", len(previous),
		"current", len(current),
		"first_seen", !found,
		logger.FieldOpened, len(res.Opened),
		logger.FieldClosed, len(res.Closed),
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	return res, nil
}
