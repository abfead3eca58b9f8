package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lueurxax/event-scout/internal/core/domain"
	"github.com/lueurxax/event-scout/internal/core/llm"
)

type stubLLM struct {
	reply  string
	err    error
	prompt string
	calls  int
}

func (s *stubLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	s.calls++
	s.prompt = req.Prompt

	return s.reply, s.err
}

func (s *stubLLM) GetProviderStatuses() []llm.ProviderStatus { return nil }

var batch = []domain.Candidate{
	{Title: "GTC 2026", Date: "2026-03-17", Description: "GPU conference", Link: "https://gtc.example.com", Category: "ai"},
	{Title: "Old Summit", Date: "2025-06-01", Link: "https://old.example.com"},
	{Title: "Build 2026", Date: "2026-01-00", Link: "https://build.example.com", Embedding: []float32{1, 0}},
}

func TestVerifyKeepsAndRestoresFields(t *testing.T) {
	client := &stubLLM{reply: `{"events": [
		{"title": "GTC 2026", "date": "2026-03-17", "description": ""},
		{"title": "build 2026", "date": "May 19, 2026", "description": "Developer conference", "link": "https://news.example.com/build"},
		{"title": "Invented Expo 2026", "date": "2026-09-09", "description": "not real"}
	]}`}

	got := New(client, 2026, nil).Verify(context.Background(), batch)

	require.Equal(t, []domain.Candidate{
		{Title: "GTC 2026", Date: "2026-03-17", Description: "GPU conference", Link: "https://gtc.example.com", Category: "ai", Verified: true},
		{Title: "Build 2026", Date: "2026-05-19", Description: "Developer conference", Link: "https://news.example.com/build", Verified: true, Embedding: []float32{1, 0}},
	}, got)

	require.Contains(t, client.prompt, `"title":"Old Summit"`)
	require.False(t, batch[0].Verified)
}

func TestVerifyDropsOffYearDates(t *testing.T) {
	client := &stubLLM{reply: `[{"title": "Old Summit", "date": "2025-06-01"}]`}

	require.Empty(t, New(client, 2026, nil).Verify(context.Background(), batch))
}

func TestVerifyFailsClosed(t *testing.T) {
	require.Empty(t, New(&stubLLM{err: errors.New("timeout")}, 2026, nil).Verify(context.Background(), batch))
	require.Empty(t, New(&stubLLM{reply: "I could not verify these."}, 2026, nil).Verify(context.Background(), batch))
}

func TestVerifyEmptyInputSkipsModel(t *testing.T) {
	client := &stubLLM{}

	require.Nil(t, New(client, 2026, nil).Verify(context.Background(), nil))
	require.Zero(t, client.calls)
}
