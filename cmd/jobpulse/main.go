package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/jobpulse/cmd/jobpulse/commands"
	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/logger"
)

var rootCmd = &cobra.Command{
	Use:   "jobpulse",
	Short: "jobpulse - announce job listings as they open and close",
	Long: `jobpulse watches job-listing repositories and announces listings to
Discord when they open, editing the announcement when they close.

Available commands:
  run     - Watch repositories on a schedule
  check   - Run one comparison cycle now
  alerts  - Inspect and repair alert history
  am      - Show and validate configuration
  version - Show version information

Examples:
  jobpulse run                     # Start the watcher
  jobpulse check --dry-run         # Preview what the next cycle would announce
  jobpulse alerts ls               # List listings with live announcements
  jobpulse am show --format json   # Show effective configuration`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: search /etc/jobpulse, ~/.jobpulse and the working directory)")
	rootCmd.PersistentFlags().Bool("json", false, "Emit JSON logs")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (-v debug, -vv debug with payloads)")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.AlertsCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}
