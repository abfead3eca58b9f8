// Package planner turns interests and search history into web search queries.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/core/llm"
	"github.com/lueurxax/event-scout/internal/platform/observability"
)

const (
	defaultMaxQueries = 10
	minQueryLength    = 3
	maxQueryLength    = 150

	stagePlanned = "planned_queries"

	logKeyInterests = "interests"
	logKeyComponent = "component"
)

// discoveryTemplates always run before the planner output.
var discoveryTemplates = []string{
	"best %s events conferences %d list",
	"%s official events calendar %d",
	"%s news releases blog %d",
}

// DiscoveryTemplates returns the fixed seed queries for one interest term.
func DiscoveryTemplates(interest string, year int) []string {
	interest = strings.TrimSpace(interest)
	if interest == "" {
		return nil
	}

	out := make([]string, 0, len(discoveryTemplates))
	for _, tmpl := range discoveryTemplates {
		out = append(out, fmt.Sprintf(tmpl, interest, year))
	}

	return out
}

// Planner asks the model for diversified search queries.
type Planner struct {
	llm        llm.Client
	year       int
	maxQueries int
	logger     *zerolog.Logger
}

// New creates a Planner. maxQueries <= 0 uses the default cap.
func New(client llm.Client, year, maxQueries int, logger *zerolog.Logger) *Planner {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if maxQueries <= 0 {
		maxQueries = defaultMaxQueries
	}

	l := logger.With().Str(logKeyComponent, "planner").Logger()

	return &Planner{
		llm:        client,
		year:       year,
		maxQueries: maxQueries,
		logger:     &l,
	}
}

// Plan expands an interest string into search queries. Any model or parse
// failure yields an empty list.
func (p *Planner) Plan(ctx context.Context, interests string) []string {
	interests = strings.TrimSpace(interests)
	if interests == "" {
		return nil
	}

	raw, err := llm.CompleteList[string](ctx, p.llm, llm.Request{
		Task:   llm.TaskTypeQueryPlan,
		Prompt: llm.QueryPlanPrompt(interests, p.year),
	})
	if err != nil {
		p.logger.Warn().Err(err).Str(logKeyInterests, interests).Msg("query planning failed")
		return nil
	}

	qb := NewQueryBuilder(p.maxQueries)
	qb.Add(raw...)

	queries := qb.Queries()
	observability.PipelineStageItems.WithLabelValues(stagePlanned).Add(float64(len(queries)))

	return queries
}

// QueryBuilder collects queries in order, dropping case-insensitive
// duplicates, out-of-range lengths and anything past the cap.
type QueryBuilder struct {
	queries []string
	seen    map[string]bool
	limit   int
}

// NewQueryBuilder creates a builder holding at most limit queries (0 means no cap).
func NewQueryBuilder(limit int) *QueryBuilder {
	return &QueryBuilder{
		seen:  make(map[string]bool),
		limit: limit,
	}
}

// Add appends queries that pass the filters.
func (qb *QueryBuilder) Add(queries ...string) {
	for _, q := range queries {
		if qb.Full() {
			return
		}

		q = strings.Join(strings.Fields(q), " ")

		n := len([]rune(q))
		if n < minQueryLength || n > maxQueryLength {
			continue
		}

		key := strings.ToLower(q)
		if qb.seen[key] {
			continue
		}

		qb.seen[key] = true
		qb.queries = append(qb.queries, q)
	}
}

// Full reports whether the cap is reached.
func (qb *QueryBuilder) Full() bool {
	return qb.limit > 0 && len(qb.queries) >= qb.limit
}

// Queries returns the collected queries.
func (qb *QueryBuilder) Queries() []string {
	return qb.queries
}
