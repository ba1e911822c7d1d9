// Package gather drives ingestion over a date range: it enumerates and
// filters candidate dates, fetches and extracts each one, persists the
// results and aggregates per-date outcomes into a run report.
package gather

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"agroquote/internal/domain"
	"agroquote/internal/store"
)

// Fetcher retrieves the quotation tables published for one date. Fetch
// failures are reported through the payload's error marker; a returned
// error means the fetch could not be attempted (e.g. cancellation).
type Fetcher interface {
	Fetch(ctx context.Context, date string) (domain.RawPayload, error)
}

// Loader pushes a flattened table to a secondary destination and returns
// the number of cells written.
type Loader interface {
	Load(ctx context.Context, dest, tab string, t domain.Tabular) (int, error)
}

// Store is the persistence the orchestrator writes through.
type Store interface {
	store.PartitionStore
	store.EmptyMarker
}

// Recorder persists finished run reports.
type Recorder interface {
	SaveRun(ctx context.Context, r domain.Report) error
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses two YYYY-MM-DD dates.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(domain.DateLayout, start)
	if err != nil {
		return DateRange{}, errors.Wrapf(err, "invalid start date %q", start)
	}
	e, err := time.Parse(domain.DateLayout, end)
	if err != nil {
		return DateRange{}, errors.Wrapf(err, "invalid end date %q", end)
	}
	if e.Before(s) {
		return DateRange{}, errors.Newf("end date %s is before start date %s", end, start)
	}
	return DateRange{Start: s, End: e}, nil
}

// LastDays returns the range covering the n days before now, up to and
// including now.
func LastDays(now time.Time, n int) DateRange {
	end := truncateDay(now)
	return DateRange{Start: end.AddDate(0, 0, -n), End: end}
}

// StartDate and EndDate render the range bounds as YYYY-MM-DD.
func (r DateRange) StartDate() string { return r.Start.Format(domain.DateLayout) }
func (r DateRange) EndDate() string   { return r.End.Format(domain.DateLayout) }

// Enumerate returns every calendar day from start to end inclusive.
func Enumerate(start, end time.Time) []time.Time {
	var days []time.Time
	for d := truncateDay(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
