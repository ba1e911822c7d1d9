package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"agroquote/internal/domain"
)

func sampleTable() domain.Tabular {
	v := 1.2
	return domain.Flatten(domain.VariantRegional, []domain.Record{
		domain.RegionalIndicator{Date: "2024-01-15", State: "São Paulo", PriceBRL: 310.45, VariationPct: &v, IndicatorName: "Boi"},
		domain.RegionalIndicator{Date: "2024-01-15", State: "Goiás", PriceBRL: 295, IndicatorName: "Boi"},
	})
}

func TestCSVLoader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "export")
	cells, err := CSVLoader{}.Load(context.Background(), dir, "indicadores_estados", sampleTable())
	require.NoError(t, err)
	assert.Equal(t, 18, cells)

	f, err := os.Open(filepath.Join(dir, "indicadores_estados.csv"))
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, domain.Schema(domain.VariantRegional), records[0])
	assert.Equal(t, []string{"2024-01-15", "Goiás", "295", "", "", "Boi"}, records[2])
}

type fakeSheetsAPI struct {
	mu      sync.Mutex
	tabs    []string
	calls   []string
	written [][]interface{}
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	f.calls = append(f.calls, r.Method+" "+path[strings.LastIndex(path, "/")+1:])
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		var sh []map[string]any
		for _, tab := range f.tabs {
			sh = append(sh, map[string]any{"properties": map[string]any{"title": tab}})
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1", "sheets": sh})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req sheets.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.tabs = append(f.tabs, rq.AddSheet.Properties.Title)
			}
		}
		fmt.Fprint(w, `{"spreadsheetId":"sheet-1"}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		fmt.Fprint(w, `{"spreadsheetId":"sheet-1"}`)
	case r.Method == http.MethodPut:
		var vr sheets.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.written = vr.Values
		cells := 0
		for _, row := range vr.Values {
			cells += len(row)
		}
		fmt.Fprintf(w, `{"spreadsheetId":"sheet-1","updatedCells":%d}`, cells)
	default:
		http.Error(w, "unexpected request", http.StatusBadRequest)
	}
}

func newFakeSheetsLoader(t *testing.T, api *fakeSheetsAPI) *SheetsLoader {
	t.Helper()
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	srv, err := sheets.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/"),
		option.WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	return newSheetsLoader(srv)
}

func TestSheetsLoaderCreatesMissingTab(t *testing.T) {
	api := &fakeSheetsAPI{tabs: []string{"Sheet1"}}
	l := newFakeSheetsLoader(t, api)

	cells, err := l.Load(context.Background(), "sheet-1", "indicadores_estados", sampleTable())
	require.NoError(t, err)
	assert.Equal(t, 18, cells)
	assert.Contains(t, api.tabs, "indicadores_estados")
	require.Len(t, api.written, 3)
	assert.Equal(t, "state", api.written[0][1])
	assert.Equal(t, "São Paulo", api.written[1][1])
	assert.Equal(t, "", api.written[2][3])
}

func TestSheetsLoaderReusesExistingTab(t *testing.T) {
	api := &fakeSheetsAPI{tabs: []string{"indicadores_estados"}}
	l := newFakeSheetsLoader(t, api)

	_, err := l.Load(context.Background(), "sheet-1", "indicadores_estados", sampleTable())
	require.NoError(t, err)
	for _, c := range api.calls {
		assert.NotContains(t, c, ":batchUpdate")
	}
	assert.Len(t, api.calls, 3)
}

func TestSheetsLoaderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	}))
	defer ts.Close()
	srv, err := sheets.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/"),
		option.WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	_, err = newSheetsLoader(srv).Load(context.Background(), "sheet-1", "x", sampleTable())
	assert.Error(t, err)
}
