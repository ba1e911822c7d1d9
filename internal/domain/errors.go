package domain

import "github.com/cockroachdb/errors"

// Sentinel errors. Callers wrap them with context and test with errors.Is.
var (
	ErrSkippedByFilter = errors.New("date skipped by filter")
	ErrEmptyResult     = errors.New("no quotation data for date")
	ErrFetch           = errors.New("fetch failed")
	ErrPersistence     = errors.New("persistence failed")
	ErrSinkFailure     = errors.New("secondary load failed")
)
