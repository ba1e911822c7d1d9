package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agroquote/internal/domain"
)

const quotationPage = `<html><body>
<div class="cotacao">
  <h2 class="titulo-cotacao">Boi Gordo - Indicador por Estado</h2>
  <div class="tabela">
    <table>
      <tr><th>Estado</th><th>R$ Médio</th><th>Variação (%)</th></tr>
      <tr><td>São Paulo</td><td>310,45</td><td>+1,2</td><td>extra</td></tr>
      <tr><td></td><td></td><td></td></tr>
      <tr><td>Goiás</td><td>
        295,00</td><td>-0,5</td></tr>
    </table>
  </div>
</div>
<h2 class="titulo-cotacao">Mercado Futuro - Pregão Regular B3</h2>
<table>
  <tr><td>Jan/24</td><td>296,15</td></tr>
</table>
<h2 class="titulo-cotacao">Sem tabela</h2>
</body></html>`

func newTestScraper(url string) *Scraper {
	s := NewScraper(url, 5*time.Second, 0, 1, "")
	s.now = func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestExtractTables(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(quotationPage))
	require.NoError(t, err)

	tables := ExtractTables(doc)
	require.Len(t, tables, 2)

	regional := tables[0]
	assert.Equal(t, "Boi Gordo - Indicador por Estado", regional.Title)
	require.Len(t, regional.Rows, 2, "blank rows are dropped")

	first := regional.Rows[0]
	v, _ := first.Get("Estado")
	assert.Equal(t, "São Paulo", v)
	v, _ = first.Get("R$ Médio")
	assert.Equal(t, "310,45", v)
	v, _ = first.Get("column_3")
	assert.Equal(t, "extra", v, "cells beyond the header are positional")
	v, _ = first.Get(domain.SectionLabel)
	assert.Equal(t, regional.Title, v)

	v, _ = regional.Rows[1].Get("R$ Médio")
	assert.Equal(t, "295,00", v, "whitespace is collapsed")

	futures := tables[1]
	v, _ = futures.Rows[0].Get("column_0")
	assert.Equal(t, "Jan/24", v)
}

func TestExtractTablesFallsBackToAllHeadings(t *testing.T) {
	page := `<html><body><h2>Indicador</h2><table><tr><td>Data</td><td>Preço</td></tr><tr><td>15/01</td><td>298,50</td></tr></table></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	tables := ExtractTables(doc)
	require.Len(t, tables, 1)
	v, ok := tables[0].Rows[0].Get("Preço")
	require.True(t, ok)
	assert.Equal(t, "298,50", v)
}

func TestFetch(t *testing.T) {
	var gotPath, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(quotationPage))
	}))
	defer srv.Close()

	s := newTestScraper(srv.URL + "/cotacoes/boi-gordo/")
	p, err := s.Fetch(context.Background(), "2024-01-15")
	require.NoError(t, err)

	assert.Equal(t, "/cotacoes/boi-gordo/2024-01-15", gotPath)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.False(t, p.Failed())
	assert.Equal(t, "2024-01-15", p.Date)
	assert.Equal(t, srv.URL+"/cotacoes/boi-gordo/2024-01-15", p.URL)
	assert.Len(t, p.Tables, 2)
}

func TestFetchLatin1(t *testing.T) {
	page := "<html><body><h2>Reposi\xe7\xe3o</h2><table><tr><td>Estado</td><td>Bezerro</td></tr><tr><td>Goi\xe1s</td><td>2.400,00</td></tr></table></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte(page))
	}))
	defer srv.Close()

	p, err := newTestScraper(srv.URL).Fetch(context.Background(), "2024-01-15")
	require.NoError(t, err)
	require.Len(t, p.Tables, 1)
	assert.Equal(t, "Reposição", p.Tables[0].Title)
	v, _ := p.Tables[0].Rows[0].Get("Estado")
	assert.Equal(t, "Goiás", v)
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		skipped bool
		empty   bool
	}{
		{"not found", http.StatusNotFound, "", true, false},
		{"server error", http.StatusInternalServerError, "", false, false},
		{"no tables", http.StatusOK, "<html><body><p>Sem cotações</p></body></html>", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p, err := newTestScraper(srv.URL).Fetch(context.Background(), "2024-01-15")
			require.NoError(t, err)
			assert.True(t, p.Failed())
			assert.Equal(t, tt.skipped, p.Skipped)
			assert.Equal(t, tt.empty, p.Empty)
		})
	}
}

func TestFetchCancelled(t *testing.T) {
	s := NewScraper("http://127.0.0.1:1", time.Second, 0.001, 1, "")
	ctx, cancel := context.WithCancel(context.Background())

	// Drain the single burst token so the next Wait blocks.
	require.True(t, s.limiter.Allow())
	cancel()

	_, err := s.Fetch(ctx, "2024-01-15")
	assert.Error(t, err)
}
