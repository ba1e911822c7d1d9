package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"agroquote/internal/config"
	"agroquote/internal/store"
	"agroquote/internal/util"
)

// app holds what every subcommand needs once the config is loaded.
type app struct {
	cfg     *config.Config
	store   *store.ParquetStore
	log     *slog.Logger
	logFile io.Closer
}

var (
	cfgPath string
	current *app
)

var rootCmd = &cobra.Command{
	Use:   "agroquote",
	Short: "Ingest daily cattle quotation tables into partitioned Parquet files",
	Long: `agroquote scrapes the daily quotation pages of Notícias Agrícolas, classifies
each table (simple indicators, per-state indicators, futures contracts,
restocking and external markets) and stores the normalized records as
Parquet partitions, one file per table per day.

Examples:
  agroquote single --date 2024-01-15
  agroquote range --start 2024-01-01 --end 2024-01-31 --parallel
  agroquote backfill --days 30
  agroquote stats`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if current != nil {
			current.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default $AGROQUOTE_CONFIG or "+config.DefaultPath+")")

	rootCmd.AddCommand(singleCmd, rangeCmd, backfillCmd, exportCmd)
	rootCmd.AddCommand(statsCmd, infoCmd, seriesCmd, historyCmd)
}

func newApp(path string) (*app, error) {
	if path == "" {
		path = os.Getenv("AGROQUOTE_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	// Dual logger: stdout + daily log file.
	a := &app{cfg: cfg}
	var w io.Writer = os.Stdout
	if cfg.Logging.Dir != "" {
		f, err := util.OpenDailyLog(cfg.Logging.Dir, "agroquote", time.Now())
		if err != nil {
			return nil, errors.Wrap(err, "failed to open log file")
		}
		a.logFile = f
		w = io.MultiWriter(os.Stdout, f)
	}
	a.log = util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, w)
	util.SetDefault(a.log)

	a.store = store.NewParquetStore(cfg.Storage.DataDir)
	a.store.ReadWorkers = cfg.Ingest.ReadWorkers
	return a, nil
}

func (a *app) Close() {
	a.store.Close()
	if a.logFile != nil {
		a.logFile.Close()
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
