package links

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-shiori/go-readability"
	"github.com/goccy/go-json"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/lueurxax/event-scout/internal/platform/htmlutils"
)

const (
	maxFeedItems  = 30
	ldTypeKey     = "@type"
	ldGraphKey    = "@graph"
	ldEventSuffix = "Event"
)

// WebContent is the readable part of a downloaded page.
type WebContent struct {
	Title       string
	Description string
	Content     string
	PublishedAt time.Time
	Events      []LDEvent // schema.org events declared in JSON-LD
}

// LDEvent is a schema.org Event found in JSON-LD markup.
type LDEvent struct {
	Name        string
	StartDate   string
	EndDate     string
	Description string
	Location    string
	URL         string
}

// ExtractWebContent turns raw page bytes into text. Feeds are read item by
// item, HTML goes through readability with meta tags and JSON-LD as fallbacks.
func ExtractWebContent(body []byte, rawURL string, maxLen int) *WebContent {
	if feedContent, ok := tryExtractFeed(body, maxLen); ok {
		return feedContent
	}

	meta := extractMetaTags(body)
	ld := extractJSONLD(body)

	content := &WebContent{
		Title:       coalesce(ld.Title, meta.OGTitle, meta.Title),
		Description: coalesce(ld.Description, meta.OGDescription, meta.Description),
		PublishedAt: coalesceTime(parseDate(ld.PublishedAt), parseDate(meta.PublishedTime)),
		Events:      ld.Events,
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return content
	}

	// Readability failure is not fatal; meta tags and JSON-LD still carry signal.
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return content
	}

	content.Title = coalesce(content.Title, article.Title)
	content.Description = coalesce(content.Description, article.Excerpt)
	content.Content = htmlutils.Truncate(collapseSpace(article.TextContent), maxLen)

	if content.PublishedAt.IsZero() && article.PublishedTime != nil {
		content.PublishedAt = *article.PublishedTime
	}

	return content
}

// tryExtractFeed reads RSS/Atom/JSON feeds. Event calendars commonly publish
// one item per event, so every item contributes a line.
func tryExtractFeed(body []byte, maxLen int) (*WebContent, bool) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil || len(feed.Items) == 0 {
		return nil, false
	}

	var sb strings.Builder

	for i, item := range feed.Items {
		if i == maxFeedItems {
			break
		}

		sb.WriteString(feedItemLine(item))
		sb.WriteString("\n")
	}

	first := feed.Items[0]

	return &WebContent{
		Title:       coalesce(feed.Title, first.Title),
		Description: htmlutils.StripHTML(feed.Description),
		Content:     htmlutils.Truncate(sb.String(), maxLen),
		PublishedAt: coalesceTime(toTime(first.PublishedParsed), toTime(first.UpdatedParsed)),
	}, true
}

func feedItemLine(item *gofeed.Item) string {
	parts := []string{strings.TrimSpace(item.Title)}

	if t := coalesceTime(toTime(item.PublishedParsed), toTime(item.UpdatedParsed)); !t.IsZero() {
		parts = append(parts, t.Format(time.DateOnly))
	}

	if text := htmlutils.StripHTML(coalesce(item.Description, item.Content)); text != "" {
		parts = append(parts, text)
	}

	return strings.Join(parts, " | ")
}

func toTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	return *t
}

// JSONLD collects the article and event facts declared in JSON-LD blocks.
type JSONLD struct {
	Title       string
	Description string
	PublishedAt string
	Events      []LDEvent
}

func extractJSONLD(body []byte) JSONLD {
	var ld JSONLD

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ld
	}

	var traverse func(*html.Node)

	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" && isLDScript(n) {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				parseLDJSON(n.FirstChild.Data, &ld)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(doc)

	return ld
}

func isLDScript(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key == "type" && strings.EqualFold(attr.Val, "application/ld+json") {
			return true
		}
	}

	return false
}

func parseLDJSON(data string, ld *JSONLD) {
	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return
	}

	processLDValue(v, ld)
}

func processLDValue(v any, ld *JSONLD) {
	switch m := v.(type) {
	case map[string]any:
		extractFromLDMap(m, ld)

		if graph, ok := m[ldGraphKey].([]any); ok {
			for _, item := range graph {
				processLDValue(item, ld)
			}
		}
	case []any:
		for _, item := range m {
			processLDValue(item, ld)
		}
	}
}

func extractFromLDMap(m map[string]any, ld *JSONLD) {
	t := ldType(m[ldTypeKey])

	switch {
	case strings.HasSuffix(t, ldEventSuffix) || t == "Festival" || t == "Hackathon":
		ev := LDEvent{
			Name:        ldString(m["name"]),
			StartDate:   ldString(m["startDate"]),
			EndDate:     ldString(m["endDate"]),
			Description: ldString(m["description"]),
			Location:    ldName(m["location"]),
			URL:         ldString(m["url"]),
		}

		if ev.Name != "" {
			ld.Events = append(ld.Events, ev)
		}
	case t == "NewsArticle" || t == "Article" || t == "BlogPosting" || t == "WebPage":
		if title := ldString(m["headline"]); title != "" {
			ld.Title = title
		}

		if desc := ldString(m["description"]); desc != "" {
			ld.Description = desc
		}

		if date := ldString(m["datePublished"]); date != "" {
			ld.PublishedAt = date
		}
	}
}

// ldType accepts both "@type": "Event" and "@type": ["Event", "Thing"].
func ldType(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.HasSuffix(s, ldEventSuffix) {
				return s
			}
		}

		if len(t) > 0 {
			s, _ := t[0].(string) //nolint:errcheck // non-string types are ignored
			return s
		}
	}

	return ""
}

func ldString(v any) string {
	s, _ := v.(string) //nolint:errcheck // non-string values are ignored
	return strings.TrimSpace(s)
}

// ldName reads a plain string or the name of a nested object such as Place.
func ldName(v any) string {
	switch a := v.(type) {
	case string:
		return strings.TrimSpace(a)
	case map[string]any:
		return ldString(a["name"])
	case []any:
		if len(a) > 0 {
			return ldName(a[0])
		}
	}

	return ""
}

func coalesceTime(times ...time.Time) time.Time {
	for _, t := range times {
		if !t.IsZero() {
			return t
		}
	}

	return time.Time{}
}

type MetaTags struct {
	Title         string
	Description   string
	OGTitle       string
	OGDescription string
	PublishedTime string
}

func extractMetaTags(body []byte) MetaTags {
	var meta MetaTags

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return meta
	}

	var traverse func(*html.Node)

	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			processMetaElement(n, &meta)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(doc)

	return meta
}

func processMetaElement(n *html.Node, meta *MetaTags) {
	switch n.Data {
	case "title":
		if meta.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			meta.Title = strings.TrimSpace(n.FirstChild.Data)
		}
	case "meta":
		applyMetaTag(n, meta)
	}
}

func applyMetaTag(n *html.Node, meta *MetaTags) {
	name, content := getMetaAttrs(n)

	switch strings.ToLower(name) {
	case "description":
		meta.Description = content
	case "og:title":
		meta.OGTitle = content
	case "og:description":
		meta.OGDescription = content
	case "article:published_time":
		meta.PublishedTime = content
	}
}

func getMetaAttrs(n *html.Node) (string, string) {
	var name, content string

	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "name", "property":
			name = attr.Val
		case "content":
			content = attr.Val
		}
	}

	return name, content
}

func coalesce(strs ...string) string {
	for _, s := range strs {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}

	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}
	}

	return t
}
