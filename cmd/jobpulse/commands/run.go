package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/jobpulse/am"
	"github.com/teranos/jobpulse/logger"
	"github.com/teranos/jobpulse/sym"
	"github.com/teranos/jobpulse/watch"
)

// RunCmd starts the watcher daemon.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: sym.CommandDescriptions["run"],
	Long: sym.Pulse + ` Watch repositories on a schedule.

Every tick clones or fast-forwards each configured repository, compares its
listings with the last snapshot and announces what opened and closed. A tick
that fires while the previous cycle is still running is skipped.

Category changes in the config file are picked up at the next cycle.

Example:
  jobpulse run                       # Use the configured schedule
  jobpulse run --now                 # Also run one cycle immediately`,
	RunE: runDaemon,
}

func init() {
	RunCmd.Flags().Bool("now", false, "Run one cycle immediately (overrides schedule.run_on_start)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("now") {
		cfg.Schedule.RunOnStart, _ = cmd.Flags().GetBool("now")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := watch.NewScheduler(cfg.Schedule.Cron, a.watcher, logger.Logger, watch.WithRunOnStart(cfg.Schedule.RunOnStart))
	if err != nil {
		return err
	}

	if path := am.UsedConfigFile(configFlag(cmd)); path != "" {
		cw, err := am.NewConfigWatcher(path, logger.Logger)
		if err != nil {
			logger.Warnw("Config hot reload disabled", logger.FieldPath, path, logger.FieldError, err.Error())
		} else {
			cw.OnReload(func(next *am.Config) error {
				if next.Schedule.Cron != cfg.Schedule.Cron || next.Storage != cfg.Storage {
					logger.Warnw("Schedule and storage changes apply after restart", logger.FieldSymbol, sym.AM)
				}
				return a.reload(next)
			})
			cw.Start()
			defer cw.Stop()
		}
	}

	if !logger.JSONOutput {
		pterm.DefaultHeader.WithFullWidth().Println("jobpulse")
		pterm.Info.Printfln("Schedule: %s (next %s)", cfg.Schedule.Cron, sched.Next().Format("15:04:05"))
		pterm.Info.Printfln("Categories: %d, storage: %s", len(cfg.Categories), cfg.Storage.Driver)
		pterm.Info.Printfln("Press Ctrl+C to stop")
	}

	sched.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Infow("Shutting down, waiting for the running cycle", logger.FieldSymbol, sym.PulseClose)

	stopped := make(chan struct{})
	go func() {
		sched.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-sigChan:
		// Snapshots are already saved, so undelivered notifications are lost.
		logger.Warnw("Forced shutdown, pending notifications dropped", logger.FieldSymbol, sym.PulseClose)
		cancel()
		<-stopped
	}
	return nil
}

func configFlag(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
