package source

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/logger"
	"github.com/teranos/jobpulse/sym"
)

// Syncer brings local clones up to date.
type Syncer struct {
	depth  int
	logger *zap.SugaredLogger
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithDepth sets the clone and pull depth. 0 fetches full history.
func WithDepth(depth int) SyncerOption {
	return func(s *Syncer) { s.depth = depth }
}

// NewSyncer creates a Syncer doing shallow, single-branch clones.
func NewSyncer(log *zap.SugaredLogger, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		depth:  1,
		logger: logger.OrNop(log).Named("source"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync fast-forwards the clone of repo, or clones it when missing. A clone
// that cannot be updated is removed and cloned again.
func (s *Syncer) Sync(ctx context.Context, repo Repository) error {
	start := time.Now()

	if isClone(repo.Dir) {
		err := s.pull(ctx, repo)
		if err == nil {
			s.logger.Debugw("Repository up to date",
				logger.FieldSymbol, sym.Source,
				logger.FieldSource, repo.Slug,
				logger.FieldDurationMS, time.Since(start).Milliseconds())
			return nil
		}
		if ctx.Err() != nil {
			return errors.Wrapf(ctx.Err(), "sync %s", repo.Slug)
		}
		s.logger.Warnw("Pull failed, re-cloning",
			logger.FieldSource, repo.Slug,
			logger.FieldPath, repo.Dir,
			logger.FieldError, err.Error())
	}

	if err := s.clone(ctx, repo); err != nil {
		return errors.Wrapf(err, "sync %s", repo.Slug)
	}

	s.logger.Infow("Cloned repository",
		logger.FieldSymbol, sym.Source,
		logger.FieldSource, repo.Slug,
		logger.FieldPath, repo.Dir,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return nil
}

func (s *Syncer) pull(ctx context.Context, repo Repository) error {
	r, err := git.PlainOpen(repo.Dir)
	if err != nil {
		return errors.Wrap(err, "open clone")
	}
	wt, err := r.Worktree()
	if err != nil {
		return errors.Wrap(err, "open worktree")
	}

	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:   git.DefaultRemoteName,
		SingleBranch: true,
		Depth:        s.depth,
		Force:        true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return errors.Wrap(err, "pull")
	}
	return nil
}

func (s *Syncer) clone(ctx context.Context, repo Repository) error {
	if err := os.RemoveAll(repo.Dir); err != nil {
		return errors.Wrapf(err, "remove %s", repo.Dir)
	}
	if err := os.MkdirAll(filepath.Dir(repo.Dir), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(repo.Dir))
	}

	_, err := git.PlainCloneContext(ctx, repo.Dir, false, &git.CloneOptions{
		URL:          repo.URL,
		SingleBranch: true,
		Depth:        s.depth,
	})
	if err != nil {
		_ = os.RemoveAll(repo.Dir)
		return errors.Wrapf(err, "clone %s", repo.URL)
	}
	return nil
}

func isClone(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, git.GitDirName))
	return err == nil
}
