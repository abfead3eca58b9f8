package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/lueurxax/event-scout/internal/core/links"
	"github.com/lueurxax/event-scout/internal/platform/htmlutils"
)

const (
	searxngDefaultTimeout     = 30 * time.Second
	searxngSearchPath         = "/search"
	searxngResponseFormatJSON = "json"
	searxngCategoriesGeneral  = "general"
	httpHeaderAccept          = "Accept"
	httpContentTypeJSON       = "application/json"
)

var errSearxNGAPIError = errors.New("searxng api error")

// SearxNGConfig holds configuration for the SearxNG backend.
type SearxNGConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
	Engines []string // optional: e.g. ["google", "duckduckgo", "bing"]
}

// SearxNG queries a SearxNG metasearch instance through its JSON API.
type SearxNG struct {
	baseURL    string
	httpClient *http.Client
	enabled    bool
	engines    []string
}

// NewSearxNG creates a SearxNG backend.
func NewSearxNG(cfg SearxNGConfig) *SearxNG {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = searxngDefaultTimeout
	}

	return &SearxNG{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		enabled:    cfg.Enabled && cfg.BaseURL != "",
		engines:    cfg.Engines,
	}
}

// Name returns the backend name.
func (s *SearxNG) Name() BackendName {
	return BackendSearxNG
}

// Search performs a query against the instance.
func (s *SearxNG) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if !s.enabled {
		return nil, ErrBackendDisabled
	}

	limit = resultLimit(limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.buildSearchURL(query), nil)
	if err != nil {
		return nil, fmt.Errorf("create searxng request: %w", err)
	}

	// SearxNG answers HTML unless JSON is requested explicitly
	req.Header.Set(httpHeaderAccept, httpContentTypeJSON)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(errWrapFmtWithCode, ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read searxng response: %w", err)
	}

	return parseSearxNGResponse(body, limit)
}

func (s *SearxNG) buildSearchURL(query string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", searxngResponseFormatJSON)
	params.Set("categories", searxngCategoriesGeneral)

	if len(s.engines) > 0 {
		params.Set("engines", strings.Join(s.engines, ","))
	}

	return s.baseURL + searxngSearchPath + "?" + params.Encode()
}

type searxngResponse struct {
	Query   string          `json:"query"`
	Results []searxngResult `json:"results"`
}

type searxngResult struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Engine  string  `json:"engine"`
	Score   float64 `json:"score"`
}

func parseSearxNGResponse(body []byte, limit int) ([]Result, error) {
	if err := checkSearxNGError(body); err != nil {
		return nil, err
	}

	var resp searxngResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse searxng json: %w", err)
	}

	results := make([]Result, 0, min(len(resp.Results), limit))

	for _, item := range resp.Results {
		if len(results) >= limit {
			break
		}

		if !links.IsHTTPURL(item.URL) {
			continue
		}

		results = append(results, Result{
			Title:   htmlutils.StripHTML(item.Title),
			URL:     item.URL,
			Snippet: htmlutils.StripHTML(item.Content),
		})
	}

	return results, nil
}

func checkSearxNGError(body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	if trimmed != "" && trimmed[0] != '{' && trimmed[0] != '[' {
		// Not JSON, usually an HTML error page or a rate-limit notice
		return fmt.Errorf("%w: %s", errSearxNGAPIError, htmlutils.Truncate(trimmed, maxErrorBodyChars))
	}

	return nil
}
