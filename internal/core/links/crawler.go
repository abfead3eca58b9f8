package links

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
	"github.com/lueurxax/event-scout/internal/platform/htmlutils"
	"github.com/lueurxax/event-scout/internal/platform/observability"
)

const (
	defaultMaxContentLength = 20000
	crawlStatusOK           = "ok"
	crawlStatusError        = "error"
	crawlStatusEmpty        = "empty"
)

// Page is the text of a crawled URL.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Fetcher downloads raw page bytes.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Crawler fetches a URL and reduces it to plain text for extraction.
type Crawler struct {
	fetcher Fetcher
	maxLen  int
	logger  *zerolog.Logger
}

// NewCrawler builds a crawler. maxLen caps the returned text in runes.
func NewCrawler(fetcher Fetcher, maxLen int, logger *zerolog.Logger) *Crawler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if maxLen <= 0 {
		maxLen = defaultMaxContentLength
	}

	return &Crawler{fetcher: fetcher, maxLen: maxLen, logger: logger}
}

// Fetch downloads rawURL and returns its readable text. Schema.org events
// declared on the page are listed ahead of the article body.
func (c *Crawler) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if !IsHTTPURL(rawURL) {
		return nil, fmt.Errorf("crawl %q: %w", rawURL, coreerrors.ErrInvalidInput)
	}

	start := time.Now()

	body, err := c.fetcher.Fetch(ctx, rawURL)

	observability.CrawlLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		observability.CrawlRequests.WithLabelValues(crawlStatusError).Inc()
		return nil, fmt.Errorf("crawl %s: %w", rawURL, err)
	}

	content := ExtractWebContent(body, rawURL, c.maxLen)

	page := &Page{
		URL:   rawURL,
		Title: content.Title,
		Text:  pageText(content, c.maxLen),
	}

	if page.Text == "" {
		observability.CrawlRequests.WithLabelValues(crawlStatusEmpty).Inc()
		return nil, fmt.Errorf("crawl %s: %w", rawURL, coreerrors.ErrEmptyResponse)
	}

	observability.CrawlRequests.WithLabelValues(crawlStatusOK).Inc()

	c.logger.Debug().
		Str("url", rawURL).
		Int("events_ld", len(content.Events)).
		Int("text_len", len(page.Text)).
		Msg("crawled page")

	return page, nil
}

func pageText(content *WebContent, maxLen int) string {
	var sb strings.Builder

	for _, ev := range content.Events {
		sb.WriteString("Event: ")
		sb.WriteString(ev.Name)

		for _, part := range []string{ev.StartDate, ev.Location, ev.Description} {
			if part != "" {
				sb.WriteString(" | ")
				sb.WriteString(part)
			}
		}

		sb.WriteString("\n")
	}

	if content.Description != "" && !strings.Contains(content.Content, content.Description) {
		sb.WriteString(content.Description)
		sb.WriteString("\n")
	}

	sb.WriteString(content.Content)

	text := strings.TrimSpace(sb.String())

	return htmlutils.Truncate(text, maxLen)
}
