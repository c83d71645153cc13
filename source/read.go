package source

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/listing"
	"github.com/teranos/jobpulse/logger"
)

// ReadSnapshot reads the listings file at relPath inside the clone. found is
// false when the file does not exist.
//
// Invalid entries are dropped; the returned error then wraps
// errors.ErrInvalidListing and snap still holds the valid listings. A file
// that is not a listings array yields a nil snapshot and an error.
func ReadSnapshot(repo Repository, relPath string) (snap listing.Snapshot, found bool, err error) {
	path := filepath.Join(repo.Dir, filepath.FromSlash(relPath))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "read %s", path)
	}

	snap, err = listing.ParseSnapshot(data)
	if err != nil {
		return snap, true, errors.Wrapf(err, "parse %s", path)
	}
	return snap, true, nil
}

// Acquirer syncs a repository and reads its current snapshot.
type Acquirer struct {
	syncer  *Syncer
	relPath string
	logger  *zap.SugaredLogger
}

// NewAcquirer creates an Acquirer reading relPath from each clone. A nil
// syncer reads whatever is on disk.
func NewAcquirer(syncer *Syncer, relPath string, log *zap.SugaredLogger) *Acquirer {
	if relPath == "" {
		relPath = DefaultListingsPath
	}
	return &Acquirer{
		syncer:  syncer,
		relPath: relPath,
		logger:  logger.OrNop(log).Named("source"),
	}
}

// Acquire brings repo up to date and returns its snapshot. found is false
// when the clone has no listings file.
func (a *Acquirer) Acquire(ctx context.Context, repo Repository) (listing.Snapshot, bool, error) {
	if a.syncer != nil {
		if err := a.syncer.Sync(ctx, repo); err != nil {
			return nil, false, err
		}
	}

	snap, found, err := ReadSnapshot(repo, a.relPath)
	if err != nil && errors.Is(err, errors.ErrInvalidListing) && snap != nil {
		a.logger.Warnw("Skipped invalid listings",
			logger.FieldSource, repo.Slug,
			logger.FieldCount, len(snap),
			logger.FieldError, err.Error())
		return snap, found, nil
	}
	return snap, found, err
}
