package dedup

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/lueurxax/event-scout/internal/core/domain"
)

const testYear = 2026

var errDatabase = errors.New("database error")

type memStore struct {
	events    []domain.Event
	nextID    int
	inserts   int
	updates   int
	failAfter int // fail writes once this many succeeded; 0 disables
	listErr   error
}

func (s *memStore) ListEvents(context.Context) ([]domain.Event, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}

	out := make([]domain.Event, len(s.events))
	copy(out, s.events)

	return out, nil
}

func (s *memStore) InsertEvent(_ context.Context, e domain.Event) (string, error) {
	if s.failAfter > 0 && s.inserts+s.updates >= s.failAfter {
		return "", errDatabase
	}

	s.nextID++
	s.inserts++
	e.ID = fmt.Sprintf("ev-%d", s.nextID)
	s.events = append(s.events, e)

	return e.ID, nil
}

func (s *memStore) UpdateEvent(_ context.Context, e domain.Event) error {
	if s.failAfter > 0 && s.inserts+s.updates >= s.failAfter {
		return errDatabase
	}

	s.updates++

	for i := range s.events {
		if s.events[i].ID == e.ID {
			s.events[i] = e
			return nil
		}
	}

	return errDatabase
}

func newTestMerger(store Store, now time.Time) *Merger {
	m := New(store, Config{Year: testYear}, nil)
	m.now = func() time.Time { return now }

	return m
}

// unitAt returns a unit vector at cosine similarity sim to [1, 0].
func unitAt(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

func TestMergeIdempotent(t *testing.T) {
	store := &memStore{}
	m := newTestMerger(store, time.Now())
	c := domain.Candidate{Title: "GTC 2026", Date: "2026-03-17", Description: "GPU conference", Verified: true, Embedding: []float32{1, 0}}

	first, err := m.Merge(context.Background(), []domain.Candidate{c})
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}

	second, err := m.Merge(context.Background(), []domain.Candidate{c})
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}

	if first.Inserted != 1 {
		t.Errorf("first.Inserted = %d, want 1", first.Inserted)
	}

	if second.Inserted != 0 || second.Merged+second.Skipped != 1 {
		t.Errorf("second = %+v, want a merge or skip", second)
	}

	if len(store.events) != 1 {
		t.Errorf("catalog has %d rows, want 1", len(store.events))
	}
}

func TestMergeSameBatchDedups(t *testing.T) {
	store := &memStore{}
	c := domain.Candidate{Title: "CES 2026", Date: "2026-01-06"}

	res, err := newTestMerger(store, time.Now()).Merge(context.Background(), []domain.Candidate{c, c})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	if res.Inserted != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v, want 1 inserted and 1 skipped", res)
	}
}

func TestMergeSimilarityBoundary(t *testing.T) {
	tests := []struct {
		name     string
		sim      float64
		wantRows int
	}{
		{name: "0.89 merges", sim: 0.89, wantRows: 1},
		{name: "0.80 stays apart", sim: 0.80, wantRows: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{events: []domain.Event{{
				ID: "ev-0", Title: "NVIDIA GTC", Date: "2026-01-00", Embedding: []float32{1, 0},
			}}}

			c := domain.Candidate{Title: "GPU Technology Conference", Date: "2026-03-17", Embedding: unitAt(tt.sim)}

			if _, err := newTestMerger(store, time.Now()).Merge(context.Background(), []domain.Candidate{c}); err != nil {
				t.Fatalf("merge: %v", err)
			}

			if len(store.events) != tt.wantRows {
				t.Errorf("catalog has %d rows, want %d", len(store.events), tt.wantRows)
			}
		})
	}
}

func TestMergeExactTitleBeatsEmbedding(t *testing.T) {
	store := &memStore{events: []domain.Event{
		{ID: "ev-a", Title: "Other Event", Date: "2026-01-00", Embedding: []float32{1, 0}},
		{ID: "ev-b", Title: "GTC 2026", Date: "2026-01-00", Embedding: []float32{0, 1}},
	}}

	c := domain.Candidate{Title: "gtc  2026", Date: "2026-03-17", Embedding: []float32{1, 0}}

	res, err := newTestMerger(store, time.Now()).Merge(context.Background(), []domain.Candidate{c})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	if res.Merged != 1 {
		t.Fatalf("result = %+v, want one merge", res)
	}

	if store.events[1].Date != "2026-03-17" || store.events[0].Date != "2026-01-00" {
		t.Errorf("wrong row updated: %+v", store.events)
	}

	if store.events[1].Title != "GTC 2026" {
		t.Errorf("title changed to %q", store.events[1].Title)
	}
}

func TestMergePrecedence(t *testing.T) {
	stale := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		stored     domain.Event
		cand       domain.Candidate
		wantUpdate bool
		wantDate   string
	}{
		{
			name:       "no date downgrade",
			stored:     domain.Event{Date: "2026-03-15", Description: "desc", Verified: true},
			cand:       domain.Candidate{Date: "2026-01-00", Description: "desc", Verified: true},
			wantUpdate: false,
			wantDate:   "2026-03-15",
		},
		{
			name:       "date upgrade",
			stored:     domain.Event{Date: "2026-01-00", Description: "desc"},
			cand:       domain.Candidate{Date: "2026-03-15", Description: "desc"},
			wantUpdate: true,
			wantDate:   "2026-03-15",
		},
		{
			name:       "partial date beats sentinel",
			stored:     domain.Event{Date: "2026-01-00", Description: "desc", Verified: true},
			cand:       domain.Candidate{Date: "2026-03-00", Description: "desc", Verified: true},
			wantUpdate: true,
			wantDate:   "2026-03-00",
		},
		{
			name:       "sentinel does not replace partial date",
			stored:     domain.Event{Date: "2026-03-00", Description: "desc"},
			cand:       domain.Candidate{Date: "2026-01-00", Description: "desc" + strings.Repeat("x", 21)},
			wantUpdate: true,
			wantDate:   "2026-03-00",
		},
		{
			name:       "jan first is low confidence",
			stored:     domain.Event{Date: "2026-01-01"},
			cand:       domain.Candidate{Date: "2026-04-02"},
			wantUpdate: true,
			wantDate:   "2026-04-02",
		},
		{
			name:       "richer description keeps known date",
			stored:     domain.Event{Date: "2026-03-15", Description: "short"},
			cand:       domain.Candidate{Date: "2026-01-00", Description: "short" + strings.Repeat("x", 21)},
			wantUpdate: true,
			wantDate:   "2026-03-15",
		},
		{
			name:       "description exactly 20 longer is not enough",
			stored:     domain.Event{Date: "2026-03-15", Description: "short"},
			cand:       domain.Candidate{Date: "2026-03-15", Description: "short" + strings.Repeat("x", 20)},
			wantUpdate: false,
			wantDate:   "2026-03-15",
		},
		{
			name:       "verification escalates",
			stored:     domain.Event{Date: "2026-03-15"},
			cand:       domain.Candidate{Date: "2026-03-15", Verified: true},
			wantUpdate: true,
			wantDate:   "2026-03-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.stored.ID = "ev-1"
			tt.stored.Title = "Event"
			tt.stored.UpdatedAt = stale
			tt.cand.Title = "Event"

			store := &memStore{events: []domain.Event{tt.stored}}

			res, err := newTestMerger(store, now).Merge(context.Background(), []domain.Candidate{tt.cand})
			if err != nil {
				t.Fatalf("merge: %v", err)
			}

			got := store.events[0]

			if (res.Merged == 1) != tt.wantUpdate {
				t.Fatalf("result = %+v, wantUpdate %v", res, tt.wantUpdate)
			}

			if got.Date != tt.wantDate {
				t.Errorf("date = %q, want %q", got.Date, tt.wantDate)
			}

			if tt.wantUpdate && !got.UpdatedAt.Equal(now) {
				t.Errorf("updated_at = %v, want %v", got.UpdatedAt, now)
			}

			if !tt.wantUpdate && !got.UpdatedAt.Equal(stale) {
				t.Errorf("updated_at changed on skip: %v", got.UpdatedAt)
			}

			if got.ID != "ev-1" || got.Title != "Event" {
				t.Errorf("immutable fields changed: %+v", got)
			}
		})
	}
}

func TestMergeInsertDefaults(t *testing.T) {
	store := &memStore{}

	if _, err := newTestMerger(store, time.Now()).Merge(context.Background(), []domain.Candidate{{Title: "Mystery Meetup"}}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	got := store.events[0]
	if got.Date != "2026-01-00" || got.Category != domain.CategoryOther {
		t.Errorf("defaults not applied: %+v", got)
	}
}

func TestMergeAbortsOnStoreError(t *testing.T) {
	store := &memStore{failAfter: 1}
	batch := []domain.Candidate{{Title: "First"}, {Title: "Second"}, {Title: "Third"}}

	res, err := newTestMerger(store, time.Now()).Merge(context.Background(), batch)
	if !errors.Is(err, errDatabase) {
		t.Fatalf("err = %v, want %v", err, errDatabase)
	}

	if res.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", res.Inserted)
	}

	if len(store.events) != 1 {
		t.Errorf("catalog has %d rows, want 1", len(store.events))
	}
}

func TestMergeListError(t *testing.T) {
	store := &memStore{listErr: errDatabase}

	if _, err := newTestMerger(store, time.Now()).Merge(context.Background(), []domain.Candidate{{Title: "x"}}); !errors.Is(err, errDatabase) {
		t.Fatalf("err = %v, want %v", err, errDatabase)
	}
}

func TestFirstSimilarSkipsMissingEmbeddings(t *testing.T) {
	catalog := []domain.Event{
		{ID: "a"},
		{ID: "b", Embedding: unitAt(0.95)},
		{ID: "c", Embedding: []float32{1, 0}},
	}

	if got := FirstSimilar(catalog, []float32{1, 0}, 0.88); got != 1 {
		t.Errorf("FirstSimilar = %d, want 1", got)
	}

	if got := FirstSimilar(catalog, []float32{0, 1}, 0.88); got != -1 {
		t.Errorf("FirstSimilar = %d, want -1", got)
	}
}

// staleStore serves a catalog snapshot taken before any concurrent writes.
type staleStore struct {
	*memStore
	snapshot []domain.Event
}

func (s *staleStore) ListEvents(context.Context) ([]domain.Event, error) {
	out := make([]domain.Event, len(s.snapshot))
	copy(out, s.snapshot)

	return out, nil
}

// Two ingestions that list the catalog before either writes both insert the
// same event. There is no store locking; the duplicate stays until cleaned up.
func TestConcurrentMergesInsertDuplicate(t *testing.T) {
	shared := &memStore{}
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cand := domain.Candidate{Title: "NVIDIA GTC", Date: "2026-03-16", Embedding: []float32{1, 0}}

	for i := 0; i < 2; i++ {
		view := &staleStore{memStore: shared}

		res, err := newTestMerger(view, now).Merge(context.Background(), []domain.Candidate{cand})
		if err != nil {
			t.Fatalf("merge %d: %v", i, err)
		}

		if res.Inserted != 1 {
			t.Fatalf("merge %d: result = %+v, want one insert", i, res)
		}
	}

	if len(shared.events) != 2 || shared.events[0].Title != shared.events[1].Title {
		t.Fatalf("catalog = %+v, want the same event twice", shared.events)
	}

	res, err := newTestMerger(shared, now).Merge(context.Background(), []domain.Candidate{cand})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	if res.Inserted != 0 || len(shared.events) != 2 {
		t.Errorf("sequential merge result = %+v, rows = %d; want no new row", res, len(shared.events))
	}
}
