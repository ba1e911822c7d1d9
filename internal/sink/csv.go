// Package sink loads flattened quotation tables into secondary
// destinations: local CSV files and Google Sheets.
package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"agroquote/internal/domain"
)

// CSVLoader writes each tab as <dest>/<tab>.csv, replacing earlier content.
type CSVLoader struct {
	// Comma is the field separator; zero means ';', which spreadsheet
	// software in pt-BR locales expects alongside decimal commas.
	Comma rune
}

// Load implements gather.Loader.
func (l CSVLoader) Load(_ context.Context, dest, tab string, t domain.Tabular) (int, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, errors.Wrap(err, "creating export dir")
	}
	path := filepath.Join(dest, tab+".csv")
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if l.Comma != 0 {
		w.Comma = l.Comma
	}
	if err := w.Write(t.Header); err != nil {
		return 0, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return 0, errors.Wrapf(err, "writing %s", path)
	}
	return t.Cells(), f.Close()
}
