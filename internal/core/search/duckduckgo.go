package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/lueurxax/event-scout/internal/core/links"
	"github.com/lueurxax/event-scout/internal/platform/htmlutils"
)

const (
	duckDuckGoDefaultURL     = "https://html.duckduckgo.com/html/"
	duckDuckGoDefaultTimeout = 30 * time.Second
	duckDuckGoMaxResults     = 5
	duckDuckGoRedirectParam  = "uddg"
	duckDuckGoUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

	selectorResult  = ".result"
	selectorAd      = "result--ad"
	selectorTitle   = "a.result__a"
	selectorSnippet = ".result__snippet"
)

// DuckDuckGoConfig holds configuration for the DuckDuckGo HTML backend.
type DuckDuckGoConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
	RPS     float64
	Year    int // appended to queries that do not mention it yet
}

// DuckDuckGo scrapes the JavaScript-free DuckDuckGo results page.
type DuckDuckGo struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	enabled    bool
	year       int
}

// NewDuckDuckGo creates a DuckDuckGo backend.
func NewDuckDuckGo(cfg DuckDuckGoConfig) *DuckDuckGo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = duckDuckGoDefaultURL
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = duckDuckGoDefaultTimeout
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	return &DuckDuckGo{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		enabled:    cfg.Enabled,
		year:       cfg.Year,
	}
}

// Name returns the backend name.
func (d *DuckDuckGo) Name() BackendName {
	return BackendDuckDuckGo
}

// Search scrapes at most 5 organic results. Ads are skipped.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if !d.enabled {
		return nil, ErrBackendDisabled
	}

	limit = min(resultLimit(limit), duckDuckGoMaxResults)

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("duckduckgo rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.buildSearchURL(query), nil)
	if err != nil {
		return nil, fmt.Errorf("create duckduckgo request: %w", err)
	}

	req.Header.Set("User-Agent", duckDuckGoUserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(errWrapFmtWithCode, ErrUnexpectedStatus, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo html: %w", err)
	}

	return parseDuckDuckGoResults(doc, limit), nil
}

func (d *DuckDuckGo) buildSearchURL(query string) string {
	params := url.Values{}
	params.Set("q", d.withYear(query))

	sep := "?"
	if strings.Contains(d.baseURL, "?") {
		sep = "&"
	}

	return d.baseURL + sep + params.Encode()
}

func (d *DuckDuckGo) withYear(query string) string {
	if d.year <= 0 {
		return query
	}

	year := strconv.Itoa(d.year)
	if strings.Contains(query, year) {
		return query
	}

	return strings.TrimSpace(query) + " " + year
}

func parseDuckDuckGoResults(doc *goquery.Document, limit int) []Result {
	results := make([]Result, 0, limit)

	doc.Find(selectorResult).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.HasClass(selectorAd) {
			return true
		}

		anchor := sel.Find(selectorTitle).First()

		href, ok := anchor.Attr("href")
		if !ok {
			return true
		}

		target := resolveRedirect(href)
		if !links.IsHTTPURL(target) {
			return true
		}

		results = append(results, Result{
			Title:   htmlutils.StripHTML(anchor.Text()),
			URL:     target,
			Snippet: htmlutils.StripHTML(sel.Find(selectorSnippet).First().Text()),
		})

		return len(results) < limit
	})

	return results
}

// resolveRedirect unwraps DuckDuckGo's //duckduckgo.com/l/?uddg=<target> links.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	if target := u.Query().Get(duckDuckGoRedirectParam); target != "" {
		return target
	}

	return href
}
