package commands

import (
	"context"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/listing"
	"github.com/teranos/jobpulse/logger"
	"github.com/teranos/jobpulse/store"
	"github.com/teranos/jobpulse/sym"
)

// AlertsCmd groups alert history commands.
var AlertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: sym.CommandDescriptions["alerts"],
	Long: `Inspect and repair alert history.

Every announced listing keeps the handles of its notifications until the
listing closes. Clearing a slug forgets the notifications, so they are not
edited when the listing closes.

Examples:
  jobpulse alerts ls
  jobpulse alerts ls SimplifyJobs/Summer2026-Internships/acme/1234
  jobpulse alerts clear SimplifyJobs/Summer2026-Internships/acme/1234`,
}

var alertsLsCmd = &cobra.Command{
	Use:   "ls [slug]",
	Short: "List listings with live notifications",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAlertsLs,
}

var alertsClearCmd = &cobra.Command{
	Use:   "clear <slug>",
	Short: "Forget the notifications of a listing",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsClear,
}

func init() {
	AlertsCmd.AddCommand(alertsLsCmd)
	AlertsCmd.AddCommand(alertsClearCmd)
}

func withAlertStore(cmd *cobra.Command, fn func(ctx context.Context, alerts store.AlertStore) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStores(ctx, cfg, logger.Logger.Named("db"))
	if err != nil {
		return err
	}
	defer st.close()
	return fn(ctx, st.alerts)
}

func runAlertsLs(cmd *cobra.Command, args []string) error {
	return withAlertStore(cmd, func(ctx context.Context, alerts store.AlertStore) error {
		var slugs []listing.AlertSlug
		if len(args) == 1 {
			slugs = []listing.AlertSlug{listing.AlertSlug(args[0])}
		} else {
			var err error
			if slugs, err = alerts.Slugs(ctx); err != nil {
				return errors.Wrap(err, "list slugs")
			}
		}

		if len(slugs) == 0 {
			pterm.Info.Println("No live notifications")
			return nil
		}

		rows := pterm.TableData{{"Slug", "Notifications", "Handles", "First sent"}}
		for _, slug := range slugs {
			history, err := alerts.History(ctx, slug)
			if err != nil {
				return errors.Wrapf(err, "history of %s", slug)
			}
			rows = append(rows, historyRow(slug, history))
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	})
}

func historyRow(slug listing.AlertSlug, history []store.AlertRecord) []string {
	handles := ""
	first := "-"
	for i, rec := range history {
		if i > 0 {
			handles += ", "
		}
		handles += rec.Handle
		if i == 0 && !rec.CreatedAt.IsZero() {
			first = rec.CreatedAt.Local().Format("2006-01-02 15:04")
		}
	}
	return []string{string(slug), strconv.Itoa(len(history)), handles, first}
}

func runAlertsClear(cmd *cobra.Command, args []string) error {
	slug := listing.AlertSlug(args[0])
	return withAlertStore(cmd, func(ctx context.Context, alerts store.AlertStore) error {
		history, err := alerts.History(ctx, slug)
		if err != nil {
			return errors.Wrapf(err, "history of %s", slug)
		}
		if err := alerts.Clear(ctx, slug); err != nil {
			return errors.Wrapf(err, "clear %s", slug)
		}
		pterm.Success.Printfln("Cleared %d notification(s) for %s", len(history), slug)
		return nil
	})
}
