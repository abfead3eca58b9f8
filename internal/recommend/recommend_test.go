package recommend

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lueurxax/event-scout/internal/core/domain"
	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
	"github.com/lueurxax/event-scout/internal/core/llm"
	"github.com/lueurxax/event-scout/internal/process/pipeline"
)

const testInterests = "AI"

// unitAt returns a unit vector at cosine similarity sim to [1, 0].
func unitAt(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

type mapEncoder struct {
	vectors map[string][]float32
	calls   []string
}

func (m *mapEncoder) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	m.calls = append(m.calls, text)

	v, ok := m.vectors[text]
	if !ok {
		return nil, errors.New("encoder unavailable")
	}

	return v, nil
}

type verdictLLM struct {
	byTitle map[string]string
	err     error
	prompts []string
}

func (v *verdictLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	v.prompts = append(v.prompts, req.Prompt)

	if v.err != nil {
		return "", v.err
	}

	for title, reply := range v.byTitle {
		if strings.Contains(req.Prompt, "Event title: "+title+"\n") {
			return reply, nil
		}
	}

	return `{"is_match": true, "reason": "ok"}`, nil
}

func (v *verdictLLM) GetProviderStatuses() []llm.ProviderStatus { return nil }

type recordingWriter struct {
	ids []string
	err error
}

func (w *recordingWriter) SetEventEmbedding(_ context.Context, id string, _ []float32) error {
	w.ids = append(w.ids, id)
	return w.err
}

func interestEncoder() *mapEncoder {
	return &mapEncoder{vectors: map[string][]float32{testInterests: {1, 0}}}
}

func TestRecommendStableOrdering(t *testing.T) {
	events := []domain.Event{
		{ID: "low", Title: "Low", Embedding: unitAt(0.3)},
		{ID: "mid-a", Title: "Mid A", Embedding: unitAt(0.5)},
		{ID: "top", Title: "Top", Embedding: unitAt(0.9)},
		{ID: "mid-b", Title: "Mid B", Embedding: unitAt(0.5)},
	}

	recs := NewEngine(interestEncoder(), &verdictLLM{}, nil, EngineConfig{CategoryCheckThreshold: 0.25}, nil).
		Recommend(context.Background(), testInterests, events)

	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}

	require.Equal(t, []string{"top", "mid-a", "mid-b", "low"}, ids)
	require.InDelta(t, 0.9, recs[0].Score, 1e-5)
	require.Equal(t, "Based on your interest in 'AI', this event matches your preferences at 90.0%", recs[0].Reason)
}

func TestRecommendTopKAndCategoryCheck(t *testing.T) {
	events := []domain.Event{
		{ID: "a", Title: "Rejected", Embedding: unitAt(0.8)},
		{ID: "b", Title: "Broken", Embedding: unitAt(0.7)},
		{ID: "c", Title: "Weak", Embedding: unitAt(0.2)},
		{ID: "d", Title: "Weakest", Embedding: unitAt(0.1)},
	}

	client := &verdictLLM{byTitle: map[string]string{
		"Rejected": `{"is_match": false, "reason": "about cooking"}`,
		"Broken":   `not json at all`,
	}}

	recs := NewEngine(interestEncoder(), client, nil, EngineConfig{TopK: 3, CategoryCheckThreshold: 0.25}, nil).
		Recommend(context.Background(), testInterests, events)

	require.Len(t, recs, 2)
	require.Equal(t, "b", recs[0].ID, "a failed check keeps the event")
	require.Equal(t, "c", recs[1].ID, "events at or below the threshold skip the check")
	require.Len(t, client.prompts, 2)
}

func TestRecommendLazyEmbeddings(t *testing.T) {
	enc := interestEncoder()
	enc.vectors["Fresh Event details"] = unitAt(0.6)

	writer := &recordingWriter{err: errors.New("readonly")}
	events := []domain.Event{
		{ID: "fresh", Title: "Fresh Event", Description: "details"},
		{ID: "broken", Title: "Unencodable"},
	}

	recs := NewEngine(enc, &verdictLLM{}, writer, EngineConfig{}, nil).Recommend(context.Background(), testInterests, events)

	require.Len(t, recs, 1)
	require.Equal(t, "fresh", recs[0].ID)
	require.Equal(t, []string{"fresh"}, writer.ids)
}

func TestRecommendInterestEncodeFailure(t *testing.T) {
	events := []domain.Event{{ID: "a", Title: "A", Embedding: unitAt(0.9)}}

	recs := NewEngine(&mapEncoder{}, &verdictLLM{}, nil, EngineConfig{}, nil).Recommend(context.Background(), testInterests, events)
	require.Empty(t, recs)
}

func TestTriggerHasEnoughMatches(t *testing.T) {
	trigger := NewTrigger(nil, nil, TriggerConfig{StrongMatchScore: 0.35, MinStrongMatches: 4})

	strong := func(n int) []domain.Recommendation {
		recs := []domain.Recommendation{{Score: 0.34}}
		for range n {
			recs = append(recs, domain.Recommendation{Score: 0.35})
		}

		return recs
	}

	require.True(t, trigger.HasEnoughMatches(strong(4)))
	require.False(t, trigger.HasEnoughMatches(strong(3)))
	require.False(t, trigger.HasEnoughMatches(nil))
}

type memProfiles struct {
	profiles map[string]domain.Profile
	err      error
}

func (m memProfiles) GetProfile(_ context.Context, username string) (domain.Profile, error) {
	if m.err != nil {
		return domain.Profile{}, m.err
	}

	p, ok := m.profiles[username]
	if !ok {
		return domain.Profile{}, coreerrors.ErrProfileNotFound
	}

	return p, nil
}

type memCatalog struct {
	events []domain.Event
}

func (m *memCatalog) ListEvents(context.Context) ([]domain.Event, error) {
	return m.events, nil
}

type fixedRecommender struct {
	recs  []domain.Recommendation
	calls int
}

func (f *fixedRecommender) Recommend(context.Context, string, []domain.Event) []domain.Recommendation {
	f.calls++
	return f.recs
}

type stubRefresher struct {
	enough  bool
	err     error
	ingests []string
}

func (s *stubRefresher) HasEnoughMatches([]domain.Recommendation) bool { return s.enough }

func (s *stubRefresher) IngestAndRecompute(_ context.Context, interests string) ([]domain.Event, error) {
	s.ingests = append(s.ingests, interests)
	return nil, s.err
}

var defaultProfile = memProfiles{profiles: map[string]domain.Profile{
	domain.DefaultUsername: {Username: domain.DefaultUsername, Interests: []string{"人工智慧", "Robotics"}},
}}

func TestServiceDisplayThresholdEdges(t *testing.T) {
	engine := &fixedRecommender{recs: []domain.Recommendation{
		{ID: "edge", Score: 0.25},
		{ID: "below", Score: 0.2499},
	}}

	svc := NewService(defaultProfile, &memCatalog{events: []domain.Event{{ID: "x"}}}, engine,
		&stubRefresher{enough: true}, ServiceConfig{DisplayMinScore: 0.25}, nil)

	recs, err := svc.Recommendations(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "edge", recs[0].ID)
}

func TestServiceIngestsWhenCatalogWeak(t *testing.T) {
	engine := &fixedRecommender{recs: []domain.Recommendation{{ID: "a", Score: 0.5}}}
	refresher := &stubRefresher{}

	svc := NewService(defaultProfile, &memCatalog{events: []domain.Event{{ID: "a"}}}, engine, refresher, ServiceConfig{}, nil)

	_, err := svc.Recommendations(context.Background(), domain.DefaultUsername)
	require.NoError(t, err)
	require.Equal(t, []string{"AI, Robotics"}, refresher.ingests)
	require.Equal(t, 2, engine.calls)
}

func TestServiceServesCatalogWhenIngestFails(t *testing.T) {
	engine := &fixedRecommender{recs: []domain.Recommendation{{ID: "a", Score: 0.5}}}
	refresher := &stubRefresher{err: errors.New("search down")}

	svc := NewService(defaultProfile, &memCatalog{events: []domain.Event{{ID: "a"}}}, engine, refresher,
		ServiceConfig{DisplayMinScore: 0.25}, nil)

	recs, err := svc.Recommendations(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, 1, engine.calls)
}

func TestServiceUnknownUser(t *testing.T) {
	svc := NewService(defaultProfile, &memCatalog{}, &fixedRecommender{}, &stubRefresher{}, ServiceConfig{}, nil)

	recs, err := svc.Recommendations(context.Background(), "stranger")
	require.NoError(t, err)
	require.Empty(t, recs)

	errDB := errors.New("db down")
	svc = NewService(memProfiles{err: errDB}, &memCatalog{}, &fixedRecommender{}, &stubRefresher{}, ServiceConfig{}, nil)

	_, err = svc.Recommendations(context.Background(), "")
	require.ErrorIs(t, err, errDB)
}

type catalogIngester struct {
	catalog *memCatalog
	events  []domain.Event
	calls   int
}

func (c *catalogIngester) Ingest(context.Context, string) (pipeline.Stats, error) {
	c.calls++
	c.catalog.events = append(c.catalog.events, c.events...)

	return pipeline.Stats{Inserted: len(c.events)}, nil
}

func TestEmptyCatalogEndToEnd(t *testing.T) {
	catalog := &memCatalog{}
	ingester := &catalogIngester{catalog: catalog, events: []domain.Event{
		{ID: "gtc", Title: "GTC 2026", Embedding: unitAt(0.8)},
		{ID: "bake", Title: "Bake Off", Embedding: unitAt(0.1)},
	}}

	enc := &mapEncoder{vectors: map[string][]float32{"AI, Robotics": {1, 0}}}
	engine := NewEngine(enc, &verdictLLM{}, nil, EngineConfig{CategoryCheckThreshold: 0.25}, nil)
	trigger := NewTrigger(ingester, catalog, TriggerConfig{StrongMatchScore: 0.35, MinStrongMatches: 4})

	svc := NewService(defaultProfile, catalog, engine, trigger, ServiceConfig{DisplayMinScore: 0.25}, nil)

	recs, err := svc.Recommendations(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 1, ingester.calls)
	require.Len(t, recs, 1)
	require.Equal(t, "gtc", recs[0].ID)
	require.NotEmpty(t, recs[0].Reason)
}
