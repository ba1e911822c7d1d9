// Package domain defines the core types shared across agroquote: table
// variants, canonical quotation records, raw scrape payloads and the
// per-date outcomes produced by an ingestion run.
package domain

import "time"

// DateLayout is the calendar date format used everywhere a quotation date is
// rendered: URLs, partition file names and record date columns.
const DateLayout = "2006-01-02"

// Variant identifies the canonical schema a quotation table is projected
// into. The string value doubles as the top-level directory in the store.
type Variant string

const (
	VariantSimple     Variant = "indicadores_simples"
	VariantRegional   Variant = "indicadores_estados"
	VariantFutures    Variant = "contratos_futuros"
	VariantRestocking Variant = "reposicao"
	VariantExternal   Variant = "mercados_externos"
)

// Variants returns every known variant in a stable order.
func Variants() []Variant {
	return []Variant{
		VariantSimple,
		VariantRegional,
		VariantFutures,
		VariantRestocking,
		VariantExternal,
	}
}

// Valid reports whether v is one of the known variants.
func (v Variant) Valid() bool {
	for _, known := range Variants() {
		if v == known {
			return true
		}
	}
	return false
}

// ParseVariant converts a directory or flag value into a Variant.
func ParseVariant(s string) (Variant, bool) {
	v := Variant(s)
	return v, v.Valid()
}

// Cell is one labeled value of a scraped table row. Labels come from the
// detected header row or are positional (column_0, column_1, ...).
type Cell struct {
	Label string
	Value string
}

// SectionLabel is the label of the implicit cell carrying the table title.
const SectionLabel = "section"

// RawRow is a scraped table row. Cell order follows the source table.
type RawRow []Cell

// Get returns the value of the first cell whose label equals label.
func (r RawRow) Get(label string) (string, bool) {
	for _, c := range r {
		if c.Label == label {
			return c.Value, true
		}
	}
	return "", false
}

// RawTable is a titled table as found on the source page.
type RawTable struct {
	Title string
	Rows  []RawRow
}

// RawPayload is what a fetcher returns for one date. Error is set when the
// fetch failed; Skipped and Empty refine what kind of failure it was.
type RawPayload struct {
	Date        string
	URL         string
	CollectedAt time.Time
	Tables      []RawTable
	Error       string
	Skipped     bool
	Empty       bool
}

// Failed reports whether the payload carries an error marker.
func (p RawPayload) Failed() bool { return p.Error != "" }
