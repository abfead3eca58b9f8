package telegrambot

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/event-scout/internal/core/domain"
	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
	"github.com/lueurxax/event-scout/internal/core/llm"
	"github.com/lueurxax/event-scout/internal/process/pipeline"
)

type captureSender struct {
	texts []string
}

func (c *captureSender) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := msg.(tgbotapi.MessageConfig); ok {
		c.texts = append(c.texts, m.Text)
	}

	return tgbotapi.Message{}, nil
}

func (c *captureSender) last() string {
	if len(c.texts) == 0 {
		return ""
	}

	return c.texts[len(c.texts)-1]
}

type memProfiles struct {
	saved map[string]domain.Profile
}

func (m *memProfiles) GetProfile(_ context.Context, username string) (domain.Profile, error) {
	p, ok := m.saved[username]
	if !ok {
		return domain.Profile{}, coreerrors.ErrProfileNotFound
	}

	return p, nil
}

func (m *memProfiles) SaveProfile(_ context.Context, p domain.Profile) error {
	m.saved[p.Username] = p
	return nil
}

type fixedRecommender struct {
	recs []domain.Recommendation
	err  error
	user string
}

func (f *fixedRecommender) Recommendations(_ context.Context, username string) ([]domain.Recommendation, error) {
	f.user = username
	return f.recs, f.err
}

type recordingIngester struct {
	got []string
}

func (r *recordingIngester) Ingest(_ context.Context, interests string) (pipeline.Stats, error) {
	r.got = append(r.got, interests)
	return pipeline.Stats{Queries: 8, Inserted: 3, Merged: 1}, nil
}

type countCatalog int

func (c countCatalog) CountEvents(context.Context) (int, error) { return int(c), nil }

type stateReporter string

func (s stateReporter) BreakerState() string { return string(s) }

type healthFlag bool

func (h healthFlag) Healthy() bool { return bool(h) }

type statusLLM struct{}

func (statusLLM) Complete(context.Context, llm.Request) (string, error) { return "", nil }

func (statusLLM) GetProviderStatuses() []llm.ProviderStatus {
	return []llm.ProviderStatus{
		{Name: "openai", Priority: 100, Available: true, CircuitBreakerOK: true},
		{Name: "ollama", Priority: 10, Available: true, CircuitBreakerOK: false},
	}
}

func command(text string) *tgbotapi.Message {
	cmdLen := strings.IndexByte(text, ' ')
	if cmdLen < 0 {
		cmdLen = len(text)
	}

	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: 42},
		From:     &tgbotapi.User{ID: 7, UserName: "ana"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
}

func newTestBot(deps Deps) (*Bot, *captureSender) {
	sender := &captureSender{}
	return newBot(sender, nil, deps, nil), sender
}

func TestInterestsSaveAndShow(t *testing.T) {
	profiles := &memProfiles{saved: map[string]domain.Profile{}}
	b, sender := newTestBot(Deps{Profiles: profiles})
	ctx := context.Background()

	b.handleMessage(ctx, command("/interests"))
	require.Contains(t, sender.last(), "No interests yet")

	b.handleMessage(ctx, command("/interests AI, robotics ; <CES>"))
	require.Equal(t, []string{"AI", "robotics", "<CES>"}, profiles.saved["ana"].Interests)
	require.Contains(t, sender.last(), "&lt;CES&gt;")

	b.handleMessage(ctx, command("/interests"))
	require.Contains(t, sender.last(), "AI, robotics, &lt;CES&gt;")
}

func TestRecommendFormatsResults(t *testing.T) {
	rec := &fixedRecommender{recs: []domain.Recommendation{
		{Title: "GTC 2026", Date: "2026-03-16", Verified: true, Link: "https://nvidia.com/gtc", Reason: "Based on your interest"},
		{Title: "CES 2026", Date: "2026-01-00", Reason: "r"},
	}}

	b, sender := newTestBot(Deps{Recommender: rec})
	b.handleMessage(context.Background(), command("/recommend"))

	require.Equal(t, "ana", rec.user)
	out := sender.last()
	require.Contains(t, out, "<b>1. GTC 2026</b>")
	require.Contains(t, out, "2026-03-16 ✅")
	require.Contains(t, out, "2026 (date TBD)")
	require.Contains(t, out, `<a href="https://nvidia.com/gtc">`)
}

func TestRecommendEmptyAndError(t *testing.T) {
	b, sender := newTestBot(Deps{Recommender: &fixedRecommender{}})
	b.handleMessage(context.Background(), command("/recommend"))
	require.Contains(t, sender.last(), "No matching events yet")

	b, sender = newTestBot(Deps{Recommender: &fixedRecommender{err: errors.New("db <down>")}})
	b.handleMessage(context.Background(), command("/recommend"))
	require.Contains(t, sender.last(), "db &lt;down&gt;")
}

func TestIngestUsesArgumentsOrProfile(t *testing.T) {
	profiles := &memProfiles{saved: map[string]domain.Profile{
		"ana": {Username: "ana", Interests: []string{"Robotics"}},
	}}
	ing := &recordingIngester{}
	b, sender := newTestBot(Deps{Profiles: profiles, Ingester: ing})

	b.handleMessage(context.Background(), command("/ingest AI，quantum"))
	b.handleMessage(context.Background(), command("/ingest"))

	require.Equal(t, []string{"AI, quantum", "Robotics"}, ing.got)
	require.Contains(t, sender.last(), "Inserted: <b>3</b>")
}

func TestStatus(t *testing.T) {
	b, sender := newTestBot(Deps{Catalog: countCatalog(12), Search: stateReporter("half-open"), Encoder: healthFlag(false), LLM: statusLLM{}})
	b.handleMessage(context.Background(), command("/status"))

	out := sender.last()
	require.Contains(t, out, "Catalog: 12 events")
	require.Contains(t, out, "<code>half-open</code>")
	require.Contains(t, out, "Embeddings: circuit open")
	require.Contains(t, out, "openai (priority 100): ok")
	require.Contains(t, out, "ollama (priority 10): unavailable")
}

func TestRepliesAreSanitized(t *testing.T) {
	b, sender := newTestBot(Deps{})
	b.sendMessage(42, `<b>ok</b> <script>alert(1)</script><a href="javascript:x">link</a>`)

	out := sender.last()
	require.Contains(t, out, "<b>ok</b>")
	require.NotContains(t, out, "<script>")
	require.NotContains(t, out, "javascript:")
}

func TestDisplayDate(t *testing.T) {
	require.Equal(t, "date TBD", displayDate("TBD"))
	require.Equal(t, "2026 (date TBD)", displayDate("2026-01-00"))
	require.Equal(t, "2026-05 (day TBD)", displayDate("2026-05-00"))
	require.Equal(t, "2026-05-12", displayDate("2026-05-12"))
}

func TestProfileNameAndAccess(t *testing.T) {
	require.Equal(t, "ana", profileName(&tgbotapi.User{ID: 1, UserName: "ana"}))
	require.Equal(t, "tg_99", profileName(&tgbotapi.User{ID: 99}))
	require.Equal(t, domain.DefaultUsername, profileName(nil))

	open := newBot(&captureSender{}, nil, Deps{}, nil)
	require.True(t, open.isAllowed(5))

	closed := newBot(&captureSender{}, []int64{1}, Deps{}, nil)
	require.True(t, closed.isAllowed(1))
	require.False(t, closed.isAllowed(5))
}
