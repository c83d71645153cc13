package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/jobpulse/am"
	"github.com/teranos/jobpulse/db"
	"github.com/teranos/jobpulse/diff"
	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/logger"
	"github.com/teranos/jobpulse/queue"
	"github.com/teranos/jobpulse/sink"
	"github.com/teranos/jobpulse/sink/discord"
	"github.com/teranos/jobpulse/sink/logsink"
	"github.com/teranos/jobpulse/source"
	"github.com/teranos/jobpulse/store"
	"github.com/teranos/jobpulse/store/memory"
	"github.com/teranos/jobpulse/store/redisstore"
	"github.com/teranos/jobpulse/store/sqlstore"
	"github.com/teranos/jobpulse/watch"
)

// loadConfig loads and validates the configuration named by --config.
func loadConfig(cmd *cobra.Command) (*am.Config, error) {
	cfg, err := am.Load(configFlag(cmd))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stores bundles the persistence backends and their shutdown.
type stores struct {
	snapshots store.SnapshotStore
	alerts    store.AlertStore
	close     func() error
}

// openStores connects to the configured backend.
func openStores(ctx context.Context, cfg *am.Config, log *zap.SugaredLogger) (*stores, error) {
	switch cfg.Storage.Driver {
	case am.DriverSQLite, am.DriverPostgres:
		dialect := db.DialectSQLite
		if cfg.Storage.Driver == am.DriverPostgres {
			dialect = db.DialectPostgres
		}
		conn, err := db.OpenWithMigrations(ctx, dialect, cfg.StorageDSN(), log)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s storage", cfg.Storage.Driver)
		}
		st := sqlstore.New(conn, dialect, log)
		return &stores{snapshots: st, alerts: st, close: conn.Close}, nil

	case am.DriverRedis:
		rdb, err := redisstore.Connect(ctx, cfg.StorageDSN())
		if err != nil {
			return nil, errors.Wrap(err, "open redis storage")
		}
		st := redisstore.New(rdb, redisstore.DefaultPrefix, log)
		return &stores{snapshots: st, alerts: st, close: rdb.Close}, nil

	default:
		return nil, errors.Newf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// sinkFactory builds the sink for one category.
type sinkFactory func(cat am.CategoryConfig) (sink.Sink, error)

func discordSinks(log *zap.SugaredLogger) sinkFactory {
	return func(cat am.CategoryConfig) (sink.Sink, error) {
		client, err := discord.NewClient(cat.Discord.WebhookURL, discord.WithLogger(log))
		if err != nil {
			return nil, errors.Wrapf(err, "category %s", cat.Name)
		}
		return client, nil
	}
}

func dryRunSinks(s *logsink.Sink) sinkFactory {
	return func(am.CategoryConfig) (sink.Sink, error) { return s, nil }
}

// buildCategories turns configured categories into watch categories.
func buildCategories(cfg *am.Config, newSink sinkFactory) ([]watch.Category, error) {
	out := make([]watch.Category, 0, len(cfg.Categories))
	for _, cc := range cfg.Categories {
		s, err := newSink(cc)
		if err != nil {
			return nil, err
		}
		cat := watch.Category{
			Name:     cc.Name,
			Sink:     s,
			Renderer: discord.NewRenderer(cc.Discord.RoleID),
		}
		for _, raw := range cc.Repositories {
			repo, err := source.ParseRepository(raw, cfg.Storage.ReposDir)
			if err != nil {
				return nil, errors.Wrapf(err, "category %s", cc.Name)
			}
			cat.Repositories = append(cat.Repositories, repo)
		}
		out = append(out, cat)
	}
	return out, nil
}

// app is a fully wired watcher.
type app struct {
	cfg     *am.Config
	watcher *watch.Watcher
	stores  *stores
	sinks   sinkFactory
}

type appOptions struct {
	dryRun bool
	dry    *logsink.Sink
}

// newApp wires storage, delivery and acquisition from cfg. In dry-run mode
// nothing is persisted and notifications are only logged.
func newApp(ctx context.Context, cfg *am.Config, opts appOptions) (*app, error) {
	log := logger.Logger

	st, err := openStores(ctx, cfg, log.Named("db"))
	if err != nil {
		return nil, err
	}

	sinks := discordSinks(log)
	snapshots, alerts := st.snapshots, st.alerts
	if opts.dryRun {
		sinks = dryRunSinks(opts.dry)
		snapshots = memory.NewSnapshotStore(st.snapshots)
		alerts = memory.NewAlertStore()
	}

	categories, err := buildCategories(cfg, sinks)
	if err != nil {
		st.close()
		return nil, err
	}

	q := queue.New(cfg.QueueInterval(), log)
	acquirer := source.NewAcquirer(source.NewSyncer(log), cfg.Listings.Path, log)

	w := watch.New(watch.Config{
		Acquirer:    acquirer,
		Engine:      diff.NewEngine(snapshots, log),
		Alerts:      alerts,
		Queue:       q,
		Categories:  categories,
		MaxPostAge:  cfg.MaxPostAge(),
		CallTimeout: cfg.CallTimeout(),
		Logger:      log,
	})

	return &app{cfg: cfg, watcher: w, stores: st, sinks: sinks}, nil
}

// reload applies a reloaded configuration's categories to the watcher.
// Storage and schedule changes need a restart.
func (a *app) reload(cfg *am.Config) error {
	categories, err := buildCategories(cfg, a.sinks)
	if err != nil {
		return err
	}
	a.watcher.SetCategories(categories)
	return nil
}

func (a *app) Close() error {
	return a.stores.close()
}
