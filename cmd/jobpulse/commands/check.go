package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/jobpulse/logger"
	"github.com/teranos/jobpulse/sink/logsink"
	"github.com/teranos/jobpulse/sym"
	"github.com/teranos/jobpulse/watch"
)

// CheckCmd runs a single cycle.
var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: sym.CommandDescriptions["check"],
	Long: sym.Pulse + ` Run one comparison cycle now and print a summary.

With --dry-run, repositories are still synced but snapshots and alert history
are not written and notifications are logged instead of sent. The comparison
starts from the persisted snapshots, so a dry run shows what the next real
cycle would announce.

Examples:
  jobpulse check
  jobpulse check --dry-run -vv      # Also log every payload`,
	RunE: runCheck,
}

func init() {
	CheckCmd.Flags().Bool("dry-run", false, "Log notifications instead of sending them and persist nothing")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := appOptions{dryRun: dryRun}
	if dryRun {
		opts.dry = logsink.New(logger.Logger)
	}

	a, err := newApp(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.watcher.RunCycle(ctx)
	if err != nil {
		return err
	}

	if dryRun {
		pterm.Warning.Println("DRY RUN: nothing was sent or saved")
	}
	printReport(report)
	if dryRun {
		pterm.Info.Printfln("%d notification call(s) would have been made", len(opts.dry.Calls()))
	}
	return nil
}

func printReport(report watch.Report) {
	if logger.JSONOutput {
		return
	}

	rows := pterm.TableData{{"Category", "Source", "Listings", "Opened", "Closed", "Stale", "Status"}}
	for _, s := range report.Sources {
		status := pterm.Green("ok")
		if s.Skipped {
			status = pterm.Red("skipped: " + s.Reason)
		}
		rows = append(rows, []string{
			s.Category,
			s.Source,
			strconv.Itoa(s.Listings),
			strconv.Itoa(s.Opened),
			strconv.Itoa(s.Closed),
			strconv.Itoa(s.Stale),
			status,
		})
	}

	pterm.DefaultSection.Println("Cycle " + report.CycleID)
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		logger.Warnw("Failed to render table", logger.FieldError, err.Error())
	}
	summary := fmt.Sprintf("%s %d opened, %s %d closed, %d delivered, %d failed in %s",
		sym.Opened, report.Opened(), sym.Closed, report.Closed(),
		report.Delivered, report.Failed, report.Duration.Round(time.Millisecond))
	if report.Failed > 0 {
		pterm.Warning.Println(summary)
	} else {
		pterm.Success.Println(summary)
	}
}
