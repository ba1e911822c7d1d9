package quote

import "agroquote/internal/domain"

// boilerplate are folded fragments of footer and annotation rows that the
// source page mixes into its quotation tables.
var boilerplate = []string{
	"ver historico",
	"atualizado em:",
	"ultima atualizacao",
	"ponderada considerando",
	"desmama:",
	"peso",
}

// IsValidRow reports whether row holds quotation data rather than a footer,
// a note or nothing at all.
func IsValidRow(row domain.RawRow) bool {
	if len(row) == 0 {
		return false
	}
	for _, c := range row {
		if c.Label == domain.SectionLabel {
			continue
		}
		if containsAny(Fold(c.Label), boilerplate...) || containsAny(Fold(c.Value), boilerplate...) {
			return false
		}
	}
	return true
}

// validRows returns the rows that pass IsValidRow.
func validRows(rows []domain.RawRow) []domain.RawRow {
	out := make([]domain.RawRow, 0, len(rows))
	for _, r := range rows {
		if IsValidRow(r) {
			out = append(out, r)
		}
	}
	return out
}
