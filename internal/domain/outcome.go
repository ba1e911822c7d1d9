package domain

import "time"

// Status classifies how the ingestion of a single date ended.
type Status string

const (
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Outcome is the result of processing one date.
type Outcome struct {
	Date    string
	Status  Status
	Records int
	Tables  int
	Detail  string
}

// Report aggregates the outcomes of one run. Counters are derived from
// Outcomes by With and never updated in place.
type Report struct {
	RunID      string
	Mode       string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome

	Success int
	Empty   int
	Skipped int
	Errors  int
	Records int

	HaltedAt   string
	HaltReason string
}

// With returns a copy of r with o folded in.
func (r Report) With(o Outcome) Report {
	out := r
	out.Outcomes = append(append([]Outcome(nil), r.Outcomes...), o)
	switch o.Status {
	case StatusSuccess:
		out.Success++
	case StatusEmpty:
		out.Empty++
	case StatusSkipped:
		out.Skipped++
	case StatusError:
		out.Errors++
	}
	out.Records += o.Records
	return out
}

// Halted reports whether the run stopped before processing every candidate.
func (r Report) Halted() bool { return r.HaltedAt != "" }
