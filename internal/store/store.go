// Package store persists canonical quotation records as date-partitioned
// Parquet files and keeps the bookkeeping that makes ingestion resumable:
// empty-date markers next to the data and a SQLite ledger of past runs.
package store

import (
	"context"

	"agroquote/internal/domain"
)

// PartitionStore writes and reads one Parquet file per (variant, table, date).
type PartitionStore interface {
	// Write replaces the partition for (v, table, date) with records and
	// returns the file path. Writing no records is a no-op.
	Write(ctx context.Context, v domain.Variant, table, date string, records []domain.Record) (string, error)

	// Read loads every partition of v whose date lies in [start, end].
	// Columns restricts the projected rows; unknown names are ignored. When
	// none of the requested names exist in a file, every column of that
	// file is projected.
	Read(ctx context.Context, v domain.Variant, start, end string, columns []string) (*RecordSet, error)

	// HasDate reports whether any variant holds a partition for date.
	HasDate(date string) (bool, error)
}

// EmptyMarker remembers dates that were fetched successfully but yielded
// no quotation data.
type EmptyMarker interface {
	MarkEmpty(date string) error
	IsMarkedEmpty(date string) bool
}

// RunLedger persists run reports and their per-date outcomes.
type RunLedger interface {
	SaveRun(ctx context.Context, r domain.Report) error
	RecentRuns(ctx context.Context, limit int) ([]domain.Report, error)
	Outcomes(ctx context.Context, runID string) ([]domain.Outcome, error)
}

// Compile-time interface checks.
var _ PartitionStore = (*ParquetStore)(nil)
var _ EmptyMarker = (*ParquetStore)(nil)
var _ RunLedger = (*Ledger)(nil)
