package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lueurxax/event-scout/internal/core/search"
)

type fakeBackend struct {
	byQuery map[string][]search.Result
	err     error
}

func (f *fakeBackend) Name() search.BackendName { return "fake" }

func (f *fakeBackend) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.byQuery[query], nil
}

func TestDiscoverDropsStaleTitles(t *testing.T) {
	backend := &fakeBackend{byQuery: map[string][]search.Result{
		"ai": {
			{Title: "AI Summit 2025 recap", URL: "https://a.example.com"},
			{Title: "AI Summit 2025 and 2026 dates", URL: "https://b.example.com"},
			{Title: "AI Summit", URL: "https://c.example.com"},
		},
	}}

	results := New(backend, 2026, 10, nil).Discover(context.Background(), "ai")

	require.Len(t, results, 2)
	require.Equal(t, "https://b.example.com", results[0].URL)
	require.Equal(t, "https://c.example.com", results[1].URL)
}

func TestDiscoverBackendFailure(t *testing.T) {
	backend := &fakeBackend{err: errors.Join(search.ErrAllBackendsFailed, errors.New("down"))}

	require.Empty(t, New(backend, 2026, 10, nil).Discover(context.Background(), "ai"))
}

func TestSessionDedupsNormalizedURLs(t *testing.T) {
	backend := &fakeBackend{byQuery: map[string][]search.Result{
		"first": {
			{Title: "One", URL: "https://Example.com/events#top"},
			{Title: "Two", URL: "https://example.com/other"},
		},
		"second": {
			{Title: "One again", URL: "https://example.com/events"},
			{Title: "Three", URL: "https://third.example.com"},
		},
	}}

	session := New(backend, 2026, 10, nil).NewSession()

	require.Len(t, session.Discover(context.Background(), "first"), 2)
	require.Len(t, session.Discover(context.Background(), "second"), 1)
	require.Equal(t, []string{
		"https://Example.com/events#top",
		"https://example.com/other",
		"https://third.example.com",
	}, session.URLs())
}

func TestIsStale(t *testing.T) {
	require.True(t, IsStale("CES 2025 highlights", 2026))
	require.False(t, IsStale("CES 2025 vs CES 2026", 2026))
	require.False(t, IsStale("CES", 2026))
	require.False(t, IsStale("CES 2025", 0))
}

func TestDomainFilter(t *testing.T) {
	open := NewDomainFilter("", "")
	require.True(t, open.AllowsURL("https://www.nvidia.com/gtc/"))
	require.False(t, open.AllowsURL("https://m.youtube.com/watch?v=1"))
	require.False(t, open.AllowsURL("https://x.com/CES/status/1"))
	require.False(t, open.AllowsURL("::not a url"))

	deny := NewDomainFilter("", "eventbrite.com, https://www.Meetup.com/")
	require.False(t, deny.AllowsURL("https://www.eventbrite.com/e/123"))
	require.False(t, deny.AllowsURL("https://meetup.com/ai"))
	require.True(t, deny.AllowsURL("https://ces.tech"))

	allow := NewDomainFilter("ces.tech", "ces.tech")
	require.True(t, allow.AllowsURL("https://www.ces.tech/schedule"))
	require.False(t, allow.AllowsURL("https://gsma.com/mwc"))
}

func TestDiscoverAppliesDomainFilter(t *testing.T) {
	backend := &fakeBackend{byQuery: map[string][]search.Result{
		"ces": {
			{Title: "CES 2026 on YouTube", URL: "https://youtube.com/watch?v=ces"},
			{Title: "CES 2026", URL: "https://www.ces.tech"},
		},
	}}

	results := New(backend, 2026, 10, nil).
		WithDomainFilter(NewDomainFilter("", "")).
		Discover(context.Background(), "ces")

	require.Len(t, results, 1)
	require.Equal(t, "https://www.ces.tech", results[0].URL)
}
