package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"agroquote/internal/domain"
	"agroquote/internal/gather"
	"agroquote/internal/store"
)

var (
	flagType       string
	flagStates     []string
	flagIndicators []string
	flagLimit      int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show file counts and sizes per table type",
	RunE: func(_ *cobra.Command, _ []string) error {
		stats, err := current.store.Stats()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tFILES\tSIZE (MB)")
		var files int
		var size float64
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%d\t%.2f\n", s.Type, s.Files, s.SizeMB)
			files += s.Files
			size += s.SizeMB
		}
		fmt.Fprintf(w, "total\t%d\t%.2f\n", files, size)
		return w.Flush()
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "List table types with their columns",
	RunE: func(_ *cobra.Command, _ []string) error {
		info, err := current.store.Info()
		if err != nil {
			return err
		}
		for _, t := range info {
			fmt.Printf("%s: %d files\n", t.Type, t.Files)
			if len(t.Columns) > 0 {
				fmt.Printf("  columns: %s\n", strings.Join(t.Columns, ", "))
			}
		}
		if last := current.store.LastCompleted(); last != "" {
			fmt.Printf("last ingested date: %s\n", last)
		}
		return nil
	},
}

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Print a stored time series for one table type",
	RunE: func(cmd *cobra.Command, _ []string) error {
		v, ok := domain.ParseVariant(flagType)
		if !ok {
			return errors.Newf("unknown table type %q", flagType)
		}
		dr, err := gather.ParseDateRange(flagStart, flagEnd)
		if err != nil {
			return err
		}
		records, err := current.store.ReadSeries(cmd.Context(), v, dr.StartDate(), dr.EndDate(), store.SeriesFilter{
			States:     flagStates,
			Indicators: flagIndicators,
		})
		if err != nil {
			return err
		}
		tab := domain.Flatten(v, records)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, strings.Join(tab.Header, "\t"))
		for _, row := range tab.Rows {
			fmt.Fprintln(w, strings.Join(row, "\t"))
		}
		return w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent ingestion runs from the ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ledger, err := store.OpenLedger(current.cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer ledger.Close()

		runs, err := ledger.RecentRuns(cmd.Context(), flagLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tRUN\tMODE\tOK\tEMPTY\tSKIPPED\tERRORS\tRECORDS\tHALTED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
				r.StartedAt.Format(time.DateTime), r.RunID, r.Mode,
				r.Success, r.Empty, r.Skipped, r.Errors, r.Records, r.HaltedAt)
		}
		return w.Flush()
	},
}

func init() {
	seriesCmd.Flags().StringVar(&flagType, "type", string(domain.VariantRegional), "table type")
	seriesCmd.Flags().StringVar(&flagStart, "start", "", "first date (YYYY-MM-DD)")
	seriesCmd.Flags().StringVar(&flagEnd, "end", "", "last date (YYYY-MM-DD)")
	seriesCmd.Flags().StringSliceVar(&flagStates, "state", nil, "keep only these states")
	seriesCmd.Flags().StringSliceVar(&flagIndicators, "indicator", nil, "keep only these indicator names")
	seriesCmd.MarkFlagRequired("start")
	seriesCmd.MarkFlagRequired("end")

	historyCmd.Flags().IntVar(&flagLimit, "limit", 10, "number of runs to show")
}

// runLogPath places the run log next to the Parquet tree.
func runLogPath(dataDir string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(dataDir)), gather.RunLogName)
}
