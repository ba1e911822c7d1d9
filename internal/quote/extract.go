package quote

import "agroquote/internal/domain"

// Table is one source table projected into its variant's schema.
type Table struct {
	Variant domain.Variant
	Name    string
	Records []domain.Record
}

// Extract filters, classifies and projects every table of p. Tables left
// without valid rows or without projected records are dropped.
func Extract(p domain.RawPayload) []Table {
	var out []Table
	for _, t := range p.Tables {
		rows := validRows(t.Rows)
		if len(rows) == 0 {
			continue
		}
		v := Classify(t.Title, rows)
		records := Project(v, t.Title, p.Date, rows)
		if len(records) == 0 {
			continue
		}
		out = append(out, Table{Variant: v, Name: t.Title, Records: records})
	}
	return out
}

// RecordCount sums the records of tables.
func RecordCount(tables []Table) int {
	n := 0
	for _, t := range tables {
		n += len(t.Records)
	}
	return n
}
