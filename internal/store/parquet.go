package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/parquet-go/parquet-go"
	"golang.org/x/sync/errgroup"

	"agroquote/internal/domain"
)

const (
	partitionPrefix = "cotacoes_"
	partitionExt    = ".parquet"
)

// ParquetStore keeps canonical records as Parquet files on disk.
//
// Layout: <DataDir>/<variant>/<YYYY>/<MM>/<table>/cotacoes_<YYYY-MM-DD>.parquet
type ParquetStore struct {
	DataDir string

	// ReadWorkers bounds concurrent partition loads in Read. Values below
	// two load sequentially.
	ReadWorkers int

	log *slog.Logger

	progressOnce sync.Once
	progress     *progressTracker
	progressErr  error
}

// NewParquetStore creates a ParquetStore rooted at dataDir.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{
		DataDir: dataDir,
		log:     slog.Default().With("component", "store"),
	}
}

// Close releases the empty-marker file handle.
func (s *ParquetStore) Close() error {
	if s.progress != nil {
		return s.progress.Close()
	}
	return nil
}

// RecordSet is the result of Read. Records are the full typed records; Rows
// is the same data restricted to the projected columns.
type RecordSet struct {
	Variant domain.Variant
	Records []domain.Record
	Rows    []Row
}

// Row is a column-projected record.
type Row map[string]any

// Len returns the number of records.
func (rs *RecordSet) Len() int { return len(rs.Records) }

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Write replaces the partition file for (v, table, date). The file is written
// to a temporary name and renamed into place so readers never observe a
// partial partition.
func (s *ParquetStore) Write(_ context.Context, v domain.Variant, table, date string, records []domain.Record) (string, error) {
	if len(records) == 0 {
		return "", nil
	}
	path, err := s.PartitionPath(v, table, date)
	if err != nil {
		return "", err
	}

	switch v {
	case domain.VariantSimple:
		err = writePartition[domain.SimpleIndicator](path, records)
	case domain.VariantRegional:
		err = writePartition[domain.RegionalIndicator](path, records)
	case domain.VariantFutures:
		err = writePartition[domain.FuturesContract](path, records)
	case domain.VariantRestocking:
		err = writePartition[domain.Restocking](path, records)
	case domain.VariantExternal:
		err = writePartition[domain.ExternalMarket](path, records)
	default:
		err = errors.Newf("unknown variant %q", v)
	}
	if err != nil {
		return "", errors.Wrapf(err, "writing %s/%s for %s", v, table, date)
	}
	return path, nil
}

func writePartition[T domain.Record](path string, records []domain.Record) error {
	rows := make([]T, 0, len(records))
	for _, r := range records {
		row, ok := r.(T)
		if !ok {
			return errors.Newf("record of type %T does not match partition type %T", r, row)
		}
		rows = append(rows, row)
	}
	return writeParquetFile(path, rows)
}

// ---------------------------------------------------------------------------
// Reading
// ---------------------------------------------------------------------------

type partition struct {
	path string
	date string
}

type loaded struct {
	records []domain.Record
	rows    []Row
}

// Read loads every partition of v dated within [start, end]. Files that fail
// to decode are logged and skipped. A missing variant directory yields an
// empty set.
//
// Column projection is per file: requested names absent from a file are
// dropped, and a file holding none of them is projected in full.
func (s *ParquetStore) Read(ctx context.Context, v domain.Variant, start, end string, columns []string) (*RecordSet, error) {
	rs := &RecordSet{Variant: v}
	if start > end {
		return rs, nil
	}
	parts, err := s.partitions(v, start, end)
	if err != nil {
		return nil, err
	}

	results := make([]loaded, len(parts))
	load := func(i int) {
		p := parts[i]
		recs, fileCols, err := readPartition(v, p.path)
		if err != nil {
			s.log.Warn("skipping unreadable partition", "path", p.path, "error", err)
			return
		}
		cols := projectColumns(columns, fileCols)
		var kept []domain.Record
		var rows []Row
		for _, r := range recs {
			d := r.RecordDate()
			if d < start || d > end {
				continue
			}
			kept = append(kept, r)
			rows = append(rows, projectRow(r, cols))
		}
		results[i] = loaded{records: kept, rows: rows}
	}

	if s.ReadWorkers > 1 && len(parts) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.ReadWorkers)
		for i := range parts {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				load(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range parts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			load(i)
		}
	}

	for _, l := range results {
		rs.Records = append(rs.Records, l.records...)
		rs.Rows = append(rs.Rows, l.rows...)
	}
	return rs, nil
}

// SeriesFilter narrows ReadSeries to some states and indicator names. Empty
// slices do not filter.
type SeriesFilter struct {
	States     []string
	Indicators []string
}

// ReadSeries reads v over [start, end], applies filter and returns the
// records ordered by date.
func (s *ParquetStore) ReadSeries(ctx context.Context, v domain.Variant, start, end string, filter SeriesFilter) ([]domain.Record, error) {
	rs, err := s.Read(ctx, v, start, end, nil)
	if err != nil {
		return nil, err
	}
	var out []domain.Record
	for _, r := range rs.Records {
		if !matches(domain.FieldValue(r, "state"), filter.States) {
			continue
		}
		if !matches(domain.FieldValue(r, "indicator_name"), filter.Indicators) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordDate() < out[j].RecordDate()
	})
	return out, nil
}

func matches(value any, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	s, ok := value.(string)
	if !ok {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(s, a) {
			return true
		}
	}
	return false
}

func readPartition(v domain.Variant, path string) ([]domain.Record, []string, error) {
	switch v {
	case domain.VariantSimple:
		return readTyped[domain.SimpleIndicator](path)
	case domain.VariantRegional:
		return readTyped[domain.RegionalIndicator](path)
	case domain.VariantFutures:
		return readTyped[domain.FuturesContract](path)
	case domain.VariantRestocking:
		return readTyped[domain.Restocking](path)
	case domain.VariantExternal:
		return readTyped[domain.ExternalMarket](path)
	}
	return nil, nil, errors.Newf("unknown variant %q", v)
}

func readTyped[T domain.Record](path string) ([]domain.Record, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	cols, err := fileColumns(f, st.Size())
	if err != nil {
		return nil, nil, err
	}
	rows, err := parquet.Read[T](f, st.Size())
	if err != nil {
		return nil, nil, err
	}
	out := make([]domain.Record, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, cols, nil
}

func fileColumns(f *os.File, size int64) ([]string, error) {
	pf, err := parquet.OpenFile(f, size)
	if err != nil {
		return nil, err
	}
	var cols []string
	for _, field := range pf.Schema().Fields() {
		cols = append(cols, field.Name())
	}
	return cols, nil
}

// projectColumns keeps the requested columns present in the file, in file
// order. With nothing requested, or nothing valid requested, every file
// column is kept.
func projectColumns(requested, available []string) []string {
	if len(requested) == 0 {
		return available
	}
	want := make(map[string]bool, len(requested))
	for _, c := range requested {
		want[c] = true
	}
	var cols []string
	for _, c := range available {
		if want[c] {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return available
	}
	return cols
}

func projectRow(r domain.Record, cols []string) Row {
	keep := make(map[string]bool, len(cols))
	for _, c := range cols {
		keep[c] = true
	}
	row := make(Row, len(cols))
	for _, f := range r.Fields() {
		if keep[f.Name] {
			row[f.Name] = f.Value
		}
	}
	return row
}

// partitions lists the partition files of v dated within [start, end],
// visiting only the month directories the range touches.
func (s *ParquetStore) partitions(v domain.Variant, start, end string) ([]partition, error) {
	from, err := time.Parse(domain.DateLayout, start)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing start date %q", start)
	}
	to, err := time.Parse(domain.DateLayout, end)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing end date %q", end)
	}

	var parts []partition
	for m := monthStart(from); !m.After(to); m = m.AddDate(0, 1, 0) {
		pattern := filepath.Join(s.monthDir(v, m), "*", partitionPrefix+"*"+partitionExt)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, path := range matches {
			date := partitionDate(path)
			if date < start || date > end {
				continue
			}
			parts = append(parts, partition{path: path, date: date})
		}
	}
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].date != parts[j].date {
			return parts[i].date < parts[j].date
		}
		return parts[i].path < parts[j].path
	})
	return parts, nil
}

// ---------------------------------------------------------------------------
// Existence and empty markers
// ---------------------------------------------------------------------------

// HasDate reports whether a partition for date exists under any variant.
func (s *ParquetStore) HasDate(date string) (bool, error) {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return false, errors.Wrapf(err, "parsing date %q", date)
	}
	for _, v := range domain.Variants() {
		pattern := filepath.Join(s.monthDir(v, t), "*", partitionPrefix+date+partitionExt)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return false, err
		}
		if len(matches) > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (s *ParquetStore) tracker() (*progressTracker, error) {
	s.progressOnce.Do(func() {
		s.progress, s.progressErr = newProgressTracker(s.DataDir)
	})
	return s.progress, s.progressErr
}

// MarkEmpty records that date was fetched and had no quotation data.
func (s *ParquetStore) MarkEmpty(date string) error {
	pt, err := s.tracker()
	if err != nil {
		return err
	}
	return pt.MarkEmpty(date)
}

// IsMarkedEmpty reports whether date carries an empty marker.
func (s *ParquetStore) IsMarkedEmpty(date string) bool {
	pt, err := s.tracker()
	if err != nil {
		return false
	}
	return pt.IsTriedEmpty(date)
}

// ResetEmpty forgets every empty marker.
func (s *ParquetStore) ResetEmpty() error {
	pt, err := s.tracker()
	if err != nil {
		return err
	}
	return pt.Reset()
}

// MarkCompleted records date as the latest finished date. It never moves
// the marker backwards.
func (s *ParquetStore) MarkCompleted(date string) error {
	pt, err := s.tracker()
	if err != nil {
		return err
	}
	if last := pt.LastCompleted(); last >= date {
		return nil
	}
	return pt.MarkCompleted(date)
}

// LastCompleted returns the latest date recorded by MarkCompleted.
func (s *ParquetStore) LastCompleted() string {
	pt, err := s.tracker()
	if err != nil {
		return ""
	}
	return pt.LastCompleted()
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// PartitionPath returns the file path for a partition.
// Layout: <DataDir>/<variant>/<YYYY>/<MM>/<table>/cotacoes_<YYYY-MM-DD>.parquet
func (s *ParquetStore) PartitionPath(v domain.Variant, table, date string) (string, error) {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return "", errors.Wrapf(err, "parsing date %q", date)
	}
	return filepath.Join(s.monthDir(v, t), SanitizeTableName(table), partitionPrefix+date+partitionExt), nil
}

// monthDir returns <DataDir>/<variant>/<YYYY>/<MM>.
func (s *ParquetStore) monthDir(v domain.Variant, t time.Time) string {
	return filepath.Join(s.DataDir, string(v), t.Format("2006"), t.Format("01"))
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func partitionDate(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(strings.TrimPrefix(base, partitionPrefix), partitionExt)
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".cotacoes-*.tmp")
	if err != nil {
		return err
	}
	if err := parquet.Write(tmp, records); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
