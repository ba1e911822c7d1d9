package sink

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"agroquote/internal/domain"
)

// SheetsLoader replaces the content of one tab per variant in a Google
// spreadsheet.
type SheetsLoader struct {
	srv *sheets.Service
	log *slog.Logger
}

// NewSheetsLoader authenticates with a service-account credentials file.
func NewSheetsLoader(ctx context.Context, credentialsFile string) (*SheetsLoader, error) {
	srv, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, errors.Wrap(err, "creating sheets client")
	}
	return newSheetsLoader(srv), nil
}

func newSheetsLoader(srv *sheets.Service) *SheetsLoader {
	return &SheetsLoader{srv: srv, log: slog.Default().With("component", "sheets")}
}

// Load implements gather.Loader. dest is the spreadsheet id. The tab is
// created when missing, cleared, then written from A1 with the header row
// first. It returns the number of cells the API reports as updated.
func (l *SheetsLoader) Load(ctx context.Context, dest, tab string, t domain.Tabular) (int, error) {
	if err := l.ensureTab(ctx, dest, tab); err != nil {
		return 0, err
	}

	if _, err := l.srv.Spreadsheets.Values.Clear(dest, tab+"!A:Z", &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return 0, errors.Wrapf(err, "clearing tab %s", tab)
	}

	values := make([][]interface{}, 0, len(t.Rows)+1)
	values = append(values, toRow(t.Header))
	for _, r := range t.Rows {
		values = append(values, toRow(r))
	}
	resp, err := l.srv.Spreadsheets.Values.Update(dest, tab+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return 0, errors.Wrapf(err, "updating tab %s", tab)
	}
	l.log.Info("tab updated", "tab", tab, "cells", resp.UpdatedCells)
	return int(resp.UpdatedCells), nil
}

func (l *SheetsLoader) ensureTab(ctx context.Context, spreadsheetID, tab string) error {
	ss, err := l.srv.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return errors.Wrap(err, "reading spreadsheet")
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: tab},
			},
		}},
	}
	if _, err := l.srv.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return errors.Wrapf(err, "creating tab %s", tab)
	}
	l.log.Info("tab created", "tab", tab)
	return nil
}

func toRow(cells []string) []interface{} {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
