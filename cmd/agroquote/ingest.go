package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"agroquote/internal/domain"
	"agroquote/internal/gather"
	"agroquote/internal/scrape"
	"agroquote/internal/sink"
	"agroquote/internal/store"
)

var (
	flagDate            string
	flagStart           string
	flagEnd             string
	flagDays            int
	flagForce           bool
	flagParallel        bool
	flagWorkers         int
	flagContinueOnError bool
	flagAllDays         bool
)

var singleCmd = &cobra.Command{
	Use:   "single",
	Short: "Ingest one date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		o, closeFn, err := current.orchestrator(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		report, err := o.Single(cmd.Context(), flagDate)
		if err != nil {
			return err
		}
		printReport(report)
		return exitStatus(report)
	},
}

var rangeCmd = &cobra.Command{
	Use:   "range",
	Short: "Ingest every date between --start and --end",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dr, err := gather.ParseDateRange(flagStart, flagEnd)
		if err != nil {
			return err
		}
		return current.runRange(cmd, dr)
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Ingest the last --days days (30 by default)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dr := gather.LastDays(time.Now(), flagDays)
		if flagStart != "" || flagEnd != "" {
			start, end := dr.StartDate(), dr.EndDate()
			if flagStart != "" {
				start = flagStart
			}
			if flagEnd != "" {
				end = flagEnd
			}
			var err error
			if dr, err = gather.ParseDateRange(start, end); err != nil {
				return err
			}
		}
		return current.runRange(cmd, dr)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Push stored records between --start and --end to the configured secondary destination",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dr, err := gather.ParseDateRange(flagStart, flagEnd)
		if err != nil {
			return err
		}
		o, closeFn, err := current.orchestrator(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		if !current.hasLoader() {
			return errors.New("no secondary destination configured (sheets or export.csv_dir)")
		}
		return o.Export(cmd.Context(), dr)
	},
}

func init() {
	singleCmd.Flags().StringVar(&flagDate, "date", "", "date to ingest (YYYY-MM-DD)")
	singleCmd.MarkFlagRequired("date")

	rangeCmd.Flags().StringVar(&flagStart, "start", "", "first date (YYYY-MM-DD)")
	rangeCmd.Flags().StringVar(&flagEnd, "end", "", "last date (YYYY-MM-DD)")
	rangeCmd.MarkFlagRequired("start")
	rangeCmd.MarkFlagRequired("end")

	backfillCmd.Flags().IntVar(&flagDays, "days", 30, "number of days before today")
	backfillCmd.Flags().StringVar(&flagStart, "start", "", "override the first date (YYYY-MM-DD)")
	backfillCmd.Flags().StringVar(&flagEnd, "end", "", "override the last date (YYYY-MM-DD)")

	for _, c := range []*cobra.Command{rangeCmd, backfillCmd} {
		c.Flags().BoolVar(&flagForce, "force", false, "re-ingest dates that already have data")
		c.Flags().BoolVar(&flagParallel, "parallel", false, "process dates concurrently")
		c.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent dates in parallel mode (default from config)")
		c.Flags().BoolVar(&flagContinueOnError, "continue-on-error", false, "keep going after a failed date")
		c.Flags().BoolVar(&flagAllDays, "all-days", false, "include weekends and holidays")
	}

	exportCmd.Flags().StringVar(&flagStart, "start", "", "first date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&flagEnd, "end", "", "last date (YYYY-MM-DD)")
	exportCmd.MarkFlagRequired("start")
	exportCmd.MarkFlagRequired("end")
}

func (a *app) options(cmd *cobra.Command) gather.Options {
	ic := a.cfg.Ingest
	opts := gather.Options{
		Force:            flagForce,
		Parallel:         ic.Parallel,
		Workers:          ic.Workers,
		StopOnError:      ic.StopOnError,
		BusinessDaysOnly: ic.BusinessDaysOnly,
	}
	if cmd.Flags().Changed("parallel") {
		opts.Parallel = flagParallel
	}
	if flagWorkers > 0 {
		opts.Workers = flagWorkers
	}
	if cmd.Flags().Changed("continue-on-error") {
		opts.StopOnError = !flagContinueOnError
	}
	if cmd.Flags().Changed("all-days") {
		opts.BusinessDaysOnly = !flagAllDays
	}
	return opts
}

func (a *app) runRange(cmd *cobra.Command, dr gather.DateRange) error {
	o, closeFn, err := a.orchestrator(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := o.Run(cmd.Context(), dr, a.options(cmd))
	printReport(report)
	if err != nil {
		return err
	}
	return exitStatus(report)
}

func (a *app) hasLoader() bool {
	return a.cfg.Sheets.Enabled() || a.cfg.Export.CSVDir != ""
}

// orchestrator wires the scraper, store, ledger, run log and secondary
// loader. The returned func releases the ledger.
func (a *app) orchestrator(ctx context.Context) (*gather.Orchestrator, func(), error) {
	cfg := a.cfg
	earliest, err := cfg.Ingest.Earliest()
	if err != nil {
		return nil, nil, err
	}
	holidays := cfg.Ingest.Holidays
	if len(holidays) == 0 {
		holidays = gather.DefaultHolidays
	}

	scraper := scrape.NewScraper(cfg.Scrape.BaseURL, cfg.Scrape.Timeout(), cfg.Scrape.RequestsPerSec, cfg.Scrape.Burst, cfg.Scrape.UserAgent)
	o := gather.NewOrchestrator(scraper, a.store, gather.NewCalendar(holidays, earliest))
	o.SetRunLog(runLogPath(cfg.Storage.DataDir))

	closeFn := func() {}
	if cfg.Storage.SQLitePath != "" {
		ledger, err := store.OpenLedger(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		o.SetRecorder(ledger)
		closeFn = func() { ledger.Close() }
	}

	switch {
	case cfg.Sheets.Enabled():
		loader, err := sink.NewSheetsLoader(ctx, cfg.Sheets.CredentialsFile)
		if err != nil {
			a.log.Warn("sheets disabled, data saved locally only", "error", err)
			break
		}
		o.SetLoader(loader, cfg.Sheets.SpreadsheetID)
	case cfg.Export.CSVDir != "":
		o.SetLoader(sink.CSVLoader{}, cfg.Export.CSVDir)
	}
	return o, closeFn, nil
}

func printReport(r domain.Report) {
	if r.RunID == "" {
		return
	}
	fmt.Printf("\nRun %s (%s)\n", r.RunID, r.Mode)
	fmt.Printf("  success: %d  empty: %d  skipped: %d  errors: %d  records: %d\n",
		r.Success, r.Empty, r.Skipped, r.Errors, r.Records)
	if r.Halted() {
		fmt.Printf("  halted at %s: %s\n", r.HaltedAt, r.HaltReason)
	}
	fmt.Printf("  took %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}

func exitStatus(r domain.Report) error {
	if r.Errors > 0 {
		return errors.Newf("%d of %d dates failed", r.Errors, len(r.Outcomes))
	}
	return nil
}
