/*
main.go - Command-line front end for the time-entry engine

PURPOSE:
  Runs the same computation as the HTTP API without a server: one shift,
  a holiday calendar, or a JSON file of shift plans through the batch
  executor. Output is JSON on stdout.

COMMANDS:
  compute   One shift from date + wall-clock start/end
  holidays  Statutory (and stored custom) holidays for a year and region
  batch     A JSON array of shift plans, optionally stored in SQLite

EXAMPLES:
  timeentry compute --date 2024-03-30 --start 22:00 --end 06:00 --bundesland BY
  timeentry compute --date 2024-03-04 --start 08:00 --end 17:00 --break 12:00-12:45
  timeentry holidays --year 2024 --bundesland NW
  timeentry batch --file shifts.json --db timeentry.db

ENVIRONMENT:
  Defaults come from TE_TIMEZONE, TE_BUNDESLAND and the TE_BATCH_* retry
  settings (config/config.go). Logs go to stderr (LOG_LEVEL, LOG_FORMAT).
*/
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/timeentry-engine/config"
	"github.com/warp/timeentry-engine/logger"
)

func main() {
	opt := logger.FromEnv()
	opt.Writer = os.Stderr
	logger.Init(opt)

	if err := newRootCmd(config.Load()).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd creates the top-level "timeentry" command.
func newRootCmd(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:          "timeentry",
		Short:        "Compute payroll time entries with breaks and premiums",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfg.Timezone, "tz", cfg.Timezone, "payroll time zone")
	root.PersistentFlags().StringVar(&cfg.DefaultBundesland, "bundesland", cfg.DefaultBundesland, "Bundesland for holidays (e.g. BY, NW)")

	root.AddCommand(
		newComputeCmd(&cfg),
		newHolidaysCmd(&cfg),
		newBatchCmd(&cfg),
	)

	return root
}
