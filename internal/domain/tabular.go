package domain

import "strconv"

// Tabular is a flattened, stringified view of records suitable for
// spreadsheet-like destinations.
type Tabular struct {
	Header []string
	Rows   [][]string
}

// Cells returns the number of cells including the header row.
func (t Tabular) Cells() int {
	return (len(t.Rows) + 1) * len(t.Header)
}

// Flatten renders records of one variant as a Tabular whose header is the
// variant's field order. Missing optional values become empty strings.
func Flatten(v Variant, records []Record) Tabular {
	t := Tabular{Header: Schema(v)}
	for _, r := range records {
		fields := r.Fields()
		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = stringify(f.Value)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}
