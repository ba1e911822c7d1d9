package scrape

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"agroquote/internal/domain"
)

// headerTokens mark a row as the table's header when any cell equals one
// of them (case-insensitive).
var headerTokens = map[string]bool{
	"data":     true,
	"preço":    true,
	"preco":    true,
	"variação": true,
	"variacao": true,
	"estado":   true,
	"região":   true,
	"regiao":   true,
}

// ExtractTables finds every quotation section of doc: an h2 heading followed
// by a table. Headings whose class mentions cotacao or indicador are
// preferred; when none exist every h2 is considered.
func ExtractTables(doc *goquery.Document) []domain.RawTable {
	sections := doc.Find("h2").FilterFunction(func(_ int, h *goquery.Selection) bool {
		class := strings.ToLower(h.AttrOr("class", ""))
		return strings.Contains(class, "cotacao") || strings.Contains(class, "indicador")
	})
	if sections.Length() == 0 {
		sections = doc.Find("h2")
	}

	var tables []domain.RawTable
	sections.Each(func(_ int, h *goquery.Selection) {
		title := cellText(h)
		if title == "" {
			return
		}
		table := nextTable(h)
		if table == nil {
			return
		}
		rows := ExtractTable(table, title)
		if len(rows) == 0 {
			return
		}
		tables = append(tables, domain.RawTable{Title: title, Rows: rows})
	})
	return tables
}

// nextTable returns the first table following h in document order.
func nextTable(h *goquery.Selection) *goquery.Selection {
	for s := h; s.Length() > 0 && !s.Is("body"); s = s.Parent() {
		for n := s.Next(); n.Length() > 0; n = n.Next() {
			if n.Is("table") {
				return n
			}
			if t := n.Find("table").First(); t.Length() > 0 {
				return t
			}
		}
	}
	return nil
}

// ExtractTable converts table rows into labeled cells. The first row with a
// header token supplies labels; cells beyond its width, or every cell when
// no header was seen, are labeled column_<i>. Each row also carries the
// section title.
func ExtractTable(table *goquery.Selection, title string) []domain.RawRow {
	var headers []string
	var rows []domain.RawRow

	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var texts []string
		tr.Find("th, td").Each(func(_ int, c *goquery.Selection) {
			texts = append(texts, cellText(c))
		})
		if len(texts) == 0 {
			return
		}
		if headers == nil && isHeader(texts) {
			headers = texts
			return
		}

		row := make(domain.RawRow, 0, len(texts)+1)
		populated := false
		for j, text := range texts {
			label := "column_" + strconv.Itoa(j)
			if j < len(headers) && headers[j] != "" {
				label = headers[j]
			}
			if text != "" {
				populated = true
			}
			row = append(row, domain.Cell{Label: label, Value: text})
		}
		if !populated {
			return
		}
		rows = append(rows, append(row, domain.Cell{Label: domain.SectionLabel, Value: title}))
	})
	return rows
}

func isHeader(texts []string) bool {
	for _, t := range texts {
		if headerTokens[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
