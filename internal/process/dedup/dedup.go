// Package dedup reconciles candidates with the catalog: exact title match
// first, then embedding similarity, then field-level merge precedence.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/core/domain"
	"github.com/lueurxax/event-scout/internal/platform/observability"
)

const (
	// DefaultSimilarityThreshold is the strict lower bound for a semantic match.
	DefaultSimilarityThreshold float32 = 0.88
	// DefaultDescriptionDelta is how many runes longer a description must be to win.
	DefaultDescriptionDelta = 20

	outcomeInserted = "inserted"
	outcomeMerged   = "merged"
	outcomeSkipped  = "skipped"

	logKeyTitle     = "title"
	logKeyEventID   = "event_id"
	logKeyMatch     = "match"
	logKeyComponent = "component"
)

// Store is the catalog persistence used by the Merger.
type Store interface {
	ListEvents(ctx context.Context) ([]domain.Event, error)
	InsertEvent(ctx context.Context, e domain.Event) (string, error)
	UpdateEvent(ctx context.Context, e domain.Event) error
}

// Config configures a Merger.
type Config struct {
	Threshold        float32
	DescriptionDelta int
	Year             int
}

// Result counts the outcome of one Merge call.
type Result struct {
	Inserted int
	Merged   int
	Skipped  int
}

// Merger writes candidates into the catalog without creating duplicates.
type Merger struct {
	store     Store
	threshold float32
	delta     int
	year      int
	now       func() time.Time
	logger    *zerolog.Logger
}

// New creates a Merger.
func New(store Store, cfg Config, logger *zerolog.Logger) *Merger {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultSimilarityThreshold
	}

	if cfg.DescriptionDelta <= 0 {
		cfg.DescriptionDelta = DefaultDescriptionDelta
	}

	l := logger.With().Str(logKeyComponent, "dedup").Logger()

	return &Merger{
		store:     store,
		threshold: cfg.Threshold,
		delta:     cfg.DescriptionDelta,
		year:      cfg.Year,
		now:       time.Now,
		logger:    &l,
	}
}

// Merge inserts or updates each candidate in order. The catalog is loaded
// once and kept current in memory, so later candidates dedup against earlier
// ones from the same batch. The first store error aborts the batch and is
// returned together with the counts so far.
func (m *Merger) Merge(ctx context.Context, candidates []domain.Candidate) (Result, error) {
	var res Result

	if len(candidates) == 0 {
		return res, nil
	}

	catalog, err := m.store.ListEvents(ctx)
	if err != nil {
		return res, fmt.Errorf("list catalog: %w", err)
	}

	for _, c := range candidates {
		idx, how := m.match(catalog, c)

		if idx < 0 {
			e, err := m.insert(ctx, c)
			if err != nil {
				return res, err
			}

			catalog = append(catalog, e)
			res.Inserted++

			observability.MergeOutcomes.WithLabelValues(outcomeInserted).Inc()

			continue
		}

		stored := catalog[idx]
		if !m.shouldUpdate(stored, c) {
			res.Skipped++

			observability.MergeOutcomes.WithLabelValues(outcomeSkipped).Inc()
			m.logger.Debug().Str(logKeyTitle, c.Title).Str(logKeyEventID, stored.ID).Str(logKeyMatch, how).Msg("duplicate without new detail")

			continue
		}

		updated := m.applyCandidate(stored, c)
		if err := m.store.UpdateEvent(ctx, updated); err != nil {
			return res, fmt.Errorf("update event %s: %w", stored.ID, err)
		}

		catalog[idx] = updated
		res.Merged++

		observability.MergeOutcomes.WithLabelValues(outcomeMerged).Inc()
		m.logger.Debug().Str(logKeyTitle, c.Title).Str(logKeyEventID, stored.ID).Str(logKeyMatch, how).Msg("merged into existing event")
	}

	observability.CatalogSize.Set(float64(len(catalog)))

	return res, nil
}

func (m *Merger) insert(ctx context.Context, c domain.Candidate) (domain.Event, error) {
	e := domain.Event{
		Title:       c.Title,
		Date:        c.Date,
		Description: c.Description,
		Link:        c.Link,
		Category:    c.Category,
		Verified:    c.Verified,
		UpdatedAt:   m.now(),
		Embedding:   c.Embedding,
	}

	if e.Date == "" {
		e.Date = domain.SentinelDate(m.year)
	}

	if e.Category == "" {
		e.Category = domain.CategoryOther
	}

	id, err := m.store.InsertEvent(ctx, e)
	if err != nil {
		return e, fmt.Errorf("insert event %q: %w", c.Title, err)
	}

	e.ID = id

	return e, nil
}

// shouldUpdate applies merge precedence: a more specific date replacing a
// low-confidence one, a materially longer description, or escalated
// verification.
func (m *Merger) shouldUpdate(stored domain.Event, c domain.Candidate) bool {
	if upgradesDate(stored.Date, c.Date) {
		return true
	}

	if runeLen(c.Description) > runeLen(stored.Description)+m.delta {
		return true
	}

	return c.Verified && !stored.Verified
}

// applyCandidate overwrites the mutable fields of stored. ID and title never
// change, and a known stored date is never replaced by an unknown one.
func (m *Merger) applyCandidate(stored domain.Event, c domain.Candidate) domain.Event {
	out := stored

	if domain.IsKnownDate(c.Date) || upgradesDate(stored.Date, c.Date) {
		out.Date = c.Date
	}

	out.Description = c.Description
	out.Link = c.Link
	out.Verified = c.Verified
	out.UpdatedAt = m.now()

	out.Category = c.Category
	if out.Category == "" {
		out.Category = domain.CategoryOther
	}

	if len(c.Embedding) > 0 {
		out.Embedding = c.Embedding
	}

	return out
}

// upgradesDate reports whether candidate should replace a low-confidence
// stored date. A partial date such as YYYY-03-00 beats the sentinel.
func upgradesDate(stored, candidate string) bool {
	if !domain.IsLowConfidence(stored) {
		return false
	}

	if domain.IsKnownDate(candidate) {
		return true
	}

	return domain.DatePrecision(candidate) > domain.DatePrecision(stored)
}

func runeLen(s string) int {
	return len([]rune(s))
}
