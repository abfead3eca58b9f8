// Package discovery runs search queries and collects candidate event pages.
package discovery

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/core/links"
	"github.com/lueurxax/event-scout/internal/core/search"
	"github.com/lueurxax/event-scout/internal/platform/observability"
)

const (
	stageDiscovered = "discovered_urls"
	stageStale      = "stale_results"
	stageFiltered   = "filtered_domains"

	logKeyQuery     = "query"
	logKeyComponent = "component"
)

// Fetcher queries the search backend chain.
type Fetcher struct {
	backend search.Backend
	domains *DomainFilter
	year    int
	limit   int
	logger  *zerolog.Logger
}

// New creates a Fetcher returning at most limit results per query.
func New(backend search.Backend, year, limit int, logger *zerolog.Logger) *Fetcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	l := logger.With().Str(logKeyComponent, "discovery").Logger()

	return &Fetcher{
		backend: backend,
		year:    year,
		limit:   limit,
		logger:  &l,
	}
}

// WithDomainFilter drops results whose host the filter rejects.
func (f *Fetcher) WithDomainFilter(df *DomainFilter) *Fetcher {
	f.domains = df
	return f
}

// Discover returns current results for one query. Results whose title names
// the prior year but not the target year are dropped, as are results on
// filtered hosts. A failing backend yields an empty list.
func (f *Fetcher) Discover(ctx context.Context, query string) []search.Result {
	results, err := f.backend.Search(ctx, query, f.limit)
	if err != nil {
		f.logger.Warn().Err(err).Str(logKeyQuery, query).Msg("search failed, no results for query")
		return nil
	}

	fresh := make([]search.Result, 0, len(results))

	for _, r := range results {
		if IsStale(r.Title, f.year) {
			observability.PipelineStageItems.WithLabelValues(stageStale).Inc()
			continue
		}

		if f.domains != nil && !f.domains.AllowsURL(r.URL) {
			observability.PipelineStageItems.WithLabelValues(stageFiltered).Inc()
			continue
		}

		fresh = append(fresh, r)
	}

	return fresh
}

// Source runs one discovery query.
type Source interface {
	Discover(ctx context.Context, query string) []search.Result
}

// NewSession starts a URL-deduplicating discovery run.
func (f *Fetcher) NewSession() *Session {
	return NewSession(f)
}

// NewSession starts a URL-deduplicating run over src.
func NewSession(src Source) *Session {
	return &Session{
		source: src,
		seen:   make(map[string]bool),
	}
}

// IsStale reports whether title mentions the year before year without
// mentioning year itself.
func IsStale(title string, year int) bool {
	if year <= 0 {
		return false
	}

	return strings.Contains(title, strconv.Itoa(year-1)) && !strings.Contains(title, strconv.Itoa(year))
}

// Session remembers URLs across queries of one run.
type Session struct {
	source  Source
	seen    map[string]bool
	results []search.Result
}

// Discover runs query and returns only results whose normalized URL has not
// been seen earlier in the session.
func (s *Session) Discover(ctx context.Context, query string) []search.Result {
	found := s.source.Discover(ctx, query)
	added := make([]search.Result, 0, len(found))

	for _, r := range found {
		key := links.NormalizeURL(r.URL)
		if s.seen[key] {
			continue
		}

		s.seen[key] = true

		added = append(added, r)
	}

	s.results = append(s.results, added...)
	observability.PipelineStageItems.WithLabelValues(stageDiscovered).Add(float64(len(added)))

	return added
}

// Results returns every unique result in discovery order.
func (s *Session) Results() []search.Result {
	return s.results
}

// URLs returns the unique result URLs in discovery order.
func (s *Session) URLs() []string {
	urls := make([]string, len(s.results))
	for i, r := range s.results {
		urls[i] = r.URL
	}

	return urls
}
