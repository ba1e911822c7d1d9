// Package scrape fetches the daily quotation page of the source site and
// turns its titled HTML tables into raw payloads.
package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"agroquote/internal/domain"
)

// DefaultBaseURL is the cattle quotation section of Notícias Agrícolas.
const DefaultBaseURL = "https://www.noticiasagricolas.com.br/cotacoes/boi-gordo"

// DefaultUserAgent mimics a desktop browser; the site serves a reduced page
// to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Scraper fetches <BaseURL>/<YYYY-MM-DD> pages.
type Scraper struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	log       *slog.Logger
	now       func() time.Time
}

// NewScraper creates a Scraper. requestsPerSec <= 0 disables throttling.
func NewScraper(baseURL string, timeout time.Duration, requestsPerSec float64, burst int, userAgent string) *Scraper {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	limit := rate.Inf
	if requestsPerSec > 0 {
		limit = rate.Limit(requestsPerSec)
	}
	return &Scraper{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, max(1, burst)),
		log:       slog.Default().With("component", "scraper"),
		now:       time.Now,
	}
}

// URL returns the page address for date.
func (s *Scraper) URL(date string) string {
	return s.baseURL + "/" + date
}

// Fetch downloads and parses the page for date. HTTP and parse failures are
// reported through the payload's error marker; only cancellation while
// waiting for the rate limiter returns an error.
func (s *Scraper) Fetch(ctx context.Context, date string) (domain.RawPayload, error) {
	p := domain.RawPayload{Date: date, URL: s.URL(date), CollectedAt: s.now()}

	if err := s.limiter.Wait(ctx); err != nil {
		return p, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		p.Error = err.Error()
		return p, nil
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return p, ctx.Err()
		}
		p.Error = err.Error()
		return p, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		p.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		p.Skipped = true
		return p, nil
	}
	if resp.StatusCode != http.StatusOK {
		p.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return p, nil
	}

	var body io.Reader = resp.Body
	if r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type")); err == nil {
		body = r
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		p.Error = "parsing page: " + err.Error()
		return p, nil
	}

	p.Tables = ExtractTables(doc)
	if len(p.Tables) == 0 {
		p.Error = "no quotation tables found"
		p.Empty = true
	}
	s.log.Debug("page parsed", "date", date, "tables", len(p.Tables))
	return p, nil
}
