package gather

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"agroquote/internal/domain"
)

// RunLogName is the file, kept beside the Parquet tree, that
// accumulates one block per run.
const RunLogName = "etl_logs.txt"

// AppendRunLog appends a human-readable block describing r to path:
//
//	=== ETL run 2024-01-17 08:00:00 (<run-id>) ===
//	SUCCESS 2024-01-15: 2 tables, 10 records
//	ERROR 2024-01-16: HTTP 500
//	HALTED at 2024-01-16: HTTP 500
func AppendRunLog(path string, r domain.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating run log dir")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "opening run log")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "\n=== ETL run %s (%s) ===\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.RunID)
	for _, o := range r.Outcomes {
		fmt.Fprintf(w, "%s %s: %s\n", strings.ToUpper(string(o.Status)), o.Date, o.Detail)
	}
	if r.Halted() {
		fmt.Fprintf(w, "HALTED at %s: %s\n", r.HaltedAt, r.HaltReason)
	}
	fmt.Fprintf(w, "TOTAL success=%d empty=%d skipped=%d errors=%d records=%d\n",
		r.Success, r.Empty, r.Skipped, r.Errors, r.Records)
	return w.Flush()
}
