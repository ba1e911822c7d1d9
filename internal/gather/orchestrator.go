package gather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"agroquote/internal/domain"
	"agroquote/internal/quote"
	"agroquote/internal/store"
)

const (
	ModeSingle     = "single"
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
)

// Options controls how Run walks a date range.
type Options struct {
	// Force re-ingests dates that already have partitions or empty markers.
	Force bool
	// Parallel processes dates concurrently with at most Workers in flight.
	Parallel bool
	Workers  int
	// StopOnError halts a sequential run at the first failing date.
	StopOnError bool
	// BusinessDaysOnly drops weekends and fixed holidays.
	BusinessDaysOnly bool
}

// Mode names the execution strategy selected by o.
func (o Options) Mode() string {
	if o.Parallel {
		return ModeParallel
	}
	return ModeSequential
}

// Candidate is a planned date. A non-empty SkipReason means the date will be
// reported as skipped without being fetched.
type Candidate struct {
	Date       string
	SkipReason string
}

// Orchestrator ingests dates through a Fetcher into a Store.
type Orchestrator struct {
	fetcher  Fetcher
	store    Store
	calendar *Calendar

	recorder   Recorder
	loader     Loader
	exportDest string
	runLogPath string

	log      *slog.Logger
	now      func() time.Time
	newRunID func() string
}

// NewOrchestrator creates an Orchestrator. Recorder, loader and run log are
// optional and attached with the Set methods.
func NewOrchestrator(f Fetcher, s Store, cal *Calendar) *Orchestrator {
	return &Orchestrator{
		fetcher:  f,
		store:    s,
		calendar: cal,
		log:      slog.Default().With("component", "orchestrator"),
		now:      time.Now,
		newRunID: func() string { return uuid.NewString() },
	}
}

// SetRecorder attaches a ledger that receives every finished report.
func (o *Orchestrator) SetRecorder(r Recorder) { o.recorder = r }

// SetLoader attaches a secondary destination fed after each range run.
func (o *Orchestrator) SetLoader(l Loader, dest string) {
	o.loader = l
	o.exportDest = dest
}

// SetRunLog sets the path of the human-readable run log.
func (o *Orchestrator) SetRunLog(path string) { o.runLogPath = path }

// Plan enumerates the range and decides, per date, whether it will be
// fetched or skipped.
func (o *Orchestrator) Plan(dr DateRange, opts Options) ([]Candidate, error) {
	var plan []Candidate
	for _, day := range Enumerate(dr.Start, dr.End) {
		date := day.Format(domain.DateLayout)
		c := Candidate{Date: date}

		switch {
		case !o.calendar.HasPotentialData(day):
			c.SkipReason = "outside the published data window"
		case opts.BusinessDaysOnly && !o.calendar.IsBusinessDay(day):
			c.SkipReason = "not a business day"
		case !opts.Force:
			exists, err := o.store.HasDate(date)
			if err != nil {
				return nil, errors.Wrapf(err, "checking existing data for %s", date)
			}
			if exists {
				c.SkipReason = "already ingested"
			} else if o.store.IsMarkedEmpty(date) {
				c.SkipReason = "previously empty"
			}
		}
		plan = append(plan, c)
	}
	return plan, nil
}

// IngestOne fetches, extracts and persists a single date.
func (o *Orchestrator) IngestOne(ctx context.Context, date string) domain.Outcome {
	log := o.log.With("date", date)

	payload, err := o.fetcher.Fetch(ctx, date)
	if err != nil {
		err = errors.Mark(err, domain.ErrFetch)
		log.Error("fetch failed", "error", err)
		return domain.Outcome{Date: date, Status: domain.StatusError, Detail: err.Error()}
	}

	if payload.Failed() {
		switch {
		case payload.Skipped:
			log.Info("date skipped by source", "reason", payload.Error)
			return domain.Outcome{Date: date, Status: domain.StatusSkipped, Detail: payload.Error}
		case payload.Empty:
			o.markEmpty(log, date)
			log.Info("no tables published", "reason", payload.Error)
			return domain.Outcome{Date: date, Status: domain.StatusEmpty, Detail: payload.Error}
		default:
			log.Error("fetch failed", "error", payload.Error)
			return domain.Outcome{Date: date, Status: domain.StatusError, Detail: payload.Error}
		}
	}

	tables := mergePartitions(quote.Extract(payload))
	if len(tables) == 0 {
		o.markEmpty(log, date)
		log.Info("no quotation records extracted", "raw_tables", len(payload.Tables))
		return domain.Outcome{Date: date, Status: domain.StatusEmpty, Detail: domain.ErrEmptyResult.Error()}
	}

	if err := o.persist(ctx, date, tables); err != nil {
		log.Error("persisting tables failed", "error", err)
		return domain.Outcome{Date: date, Status: domain.StatusError, Detail: err.Error()}
	}

	records := quote.RecordCount(tables)
	log.Info("date ingested", "tables", len(tables), "records", records)
	return domain.Outcome{
		Date:    date,
		Status:  domain.StatusSuccess,
		Records: records,
		Tables:  len(tables),
		Detail:  fmt.Sprintf("%d tables, %d records", len(tables), records),
	}
}

// persist writes one partition per table. The returned error is marked
// domain.ErrPersistence.
func (o *Orchestrator) persist(ctx context.Context, date string, tables []quote.Table) error {
	for _, t := range tables {
		if _, err := o.store.Write(ctx, t.Variant, t.Name, date, t.Records); err != nil {
			return errors.Mark(errors.Wrapf(err, "writing table %q", t.Name), domain.ErrPersistence)
		}
	}
	return nil
}

// mergePartitions folds tables that map to the same partition (variant and
// sanitized name) into one, keeping first-seen order.
func mergePartitions(tables []quote.Table) []quote.Table {
	type key struct {
		variant domain.Variant
		name    string
	}
	index := make(map[key]int, len(tables))
	var out []quote.Table
	for _, t := range tables {
		k := key{t.Variant, store.SanitizeTableName(t.Name)}
		if i, ok := index[k]; ok {
			out[i].Records = append(out[i].Records, t.Records...)
			continue
		}
		index[k] = len(out)
		out = append(out, quote.Table{
			Variant: t.Variant,
			Name:    t.Name,
			Records: append([]domain.Record(nil), t.Records...),
		})
	}
	return out
}

func (o *Orchestrator) markEmpty(log *slog.Logger, date string) {
	if err := o.store.MarkEmpty(date); err != nil {
		log.Warn("recording empty marker failed", "error", err)
	}
}

// Single ingests one date regardless of filters and existing data.
func (o *Orchestrator) Single(ctx context.Context, date string) (domain.Report, error) {
	day, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return domain.Report{}, errors.Wrapf(err, "invalid date %q", date)
	}
	report := o.newReport(ModeSingle)
	report = report.With(o.IngestOne(ctx, date))
	return o.finish(ctx, report, DateRange{Start: day, End: day}), nil
}

// Run ingests every date of dr according to opts. The returned report is
// complete even when the run halted; the error is non-nil only when the
// range could not be planned or ctx was cancelled.
func (o *Orchestrator) Run(ctx context.Context, dr DateRange, opts Options) (domain.Report, error) {
	plan, err := o.Plan(dr, opts)
	if err != nil {
		return domain.Report{}, err
	}

	report := o.newReport(opts.Mode())
	o.log.Info("run started",
		"run_id", report.RunID, "mode", report.Mode,
		"start", dr.StartDate(), "end", dr.EndDate(), "dates", len(plan))

	if opts.Parallel {
		report = o.runParallel(ctx, plan, opts.Workers, report)
	} else {
		report = o.runSequential(ctx, plan, opts.StopOnError, report)
	}

	report = o.finish(ctx, report, dr)
	return report, ctx.Err()
}

func (o *Orchestrator) runSequential(ctx context.Context, plan []Candidate, stopOnError bool, report domain.Report) domain.Report {
	for _, c := range plan {
		if ctx.Err() != nil {
			return report
		}
		if c.SkipReason != "" {
			report = report.With(skipped(c))
			continue
		}
		out := o.IngestOne(ctx, c.Date)
		report = report.With(out)
		if out.Status == domain.StatusError && stopOnError {
			report.HaltedAt = c.Date
			report.HaltReason = out.Detail
			o.log.Error("run halted", "date", c.Date, "reason", out.Detail)
			return report
		}
	}
	return report
}

func (o *Orchestrator) runParallel(ctx context.Context, plan []Candidate, workers int, report domain.Report) domain.Report {
	var pending []string
	for _, c := range plan {
		if c.SkipReason != "" {
			report = report.With(skipped(c))
			continue
		}
		pending = append(pending, c.Date)
	}
	if len(pending) == 0 {
		return report
	}

	results := make(chan domain.Outcome, len(pending))
	var g errgroup.Group
	g.SetLimit(max(1, workers))
	for _, date := range pending {
		if ctx.Err() != nil {
			break
		}
		date := date
		g.Go(func() error {
			results <- o.IngestOne(ctx, date)
			return nil
		})
	}
	g.Wait()
	close(results)

	for out := range results {
		report = report.With(out)
	}
	return report
}

// completionMarker is implemented by stores that track the latest date
// that finished ingestion.
type completionMarker interface {
	MarkCompleted(date string) error
}

// lastCompleted returns the latest date of r that finished with data or
// was confirmed empty.
func lastCompleted(r domain.Report) string {
	last := ""
	for _, out := range r.Outcomes {
		done := out.Status == domain.StatusSuccess || out.Status == domain.StatusEmpty
		if done && out.Date > last {
			last = out.Date
		}
	}
	return last
}

func skipped(c Candidate) domain.Outcome {
	return domain.Outcome{Date: c.Date, Status: domain.StatusSkipped, Detail: c.SkipReason}
}

func (o *Orchestrator) newReport(mode string) domain.Report {
	return domain.Report{
		RunID:     o.newRunID(),
		Mode:      mode,
		StartedAt: o.now(),
	}
}

// finish stamps the report and feeds the run log, ledger and secondary
// loader. Failures past this point are logged and never fail the run.
func (o *Orchestrator) finish(ctx context.Context, report domain.Report, dr DateRange) domain.Report {
	report.FinishedAt = o.now()
	log := o.log.With("run_id", report.RunID)

	if m, ok := o.store.(completionMarker); ok {
		if last := lastCompleted(report); last != "" {
			if err := m.MarkCompleted(last); err != nil {
				log.Warn("recording last completed date failed", "error", err)
			}
		}
	}

	if o.runLogPath != "" {
		if err := AppendRunLog(o.runLogPath, report); err != nil {
			log.Warn("writing run log failed", "path", o.runLogPath, "error", err)
		}
	}
	if o.recorder != nil {
		if err := o.recorder.SaveRun(context.WithoutCancel(ctx), report); err != nil {
			log.Warn("recording run failed", "error", err)
		}
	}
	if o.loader != nil && report.Success > 0 {
		if err := o.Export(ctx, dr); err != nil {
			log.Warn("secondary load failed, data saved locally only", "error", err)
		}
	}

	log.Info("run finished",
		"success", report.Success, "empty", report.Empty,
		"skipped", report.Skipped, "errors", report.Errors,
		"records", report.Records, "halted_at", report.HaltedAt)
	return report
}
