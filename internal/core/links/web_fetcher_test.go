package links

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testHTMLBody = "<html><body>Developer Day 2026</body></html>"

func TestWebFetcherExtractDomain(t *testing.T) {
	fetcher := NewWebFetcher(1, time.Second)

	tests := []struct {
		rawURL string
		want   string
	}{
		{rawURL: "https://events.example.com/2026", want: "events.example.com"},
		{rawURL: "https://EXAMPLE.COM/page", want: "example.com"},
		{rawURL: "https://example.com:8080/page", want: "example.com:8080"},
		{rawURL: "not a valid url", want: ""},
		{rawURL: "", want: ""},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, fetcher.extractDomain(tt.rawURL), tt.rawURL)
	}
}

func TestWebFetcherDomainLimiterReused(t *testing.T) {
	fetcher := NewWebFetcher(0, 0)

	a := fetcher.getDomainLimiter("example.com")
	require.Same(t, a, fetcher.getDomainLimiter("example.com"))
	require.NotSame(t, a, fetcher.getDomainLimiter("other.com"))
}

func TestWebFetcherFetch(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		var headers http.Header

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers = r.Header.Clone()
			_, _ = w.Write([]byte(testHTMLBody))
		}))
		defer server.Close()

		body, err := NewWebFetcher(10, 5*time.Second).Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		require.Equal(t, testHTMLBody, string(body))
		require.Contains(t, headers.Get("User-Agent"), "EventScout")
		require.Contains(t, headers.Get("Accept"), "application/rss+xml")
	})

	t.Run("status not ok", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := NewWebFetcher(10, 5*time.Second).Fetch(context.Background(), server.URL)
		require.ErrorIs(t, err, ErrHTTPStatusNotOK)
	})

	t.Run("body capped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("a", maxBodySizeBytes+1024)))
		}))
		defer server.Close()

		body, err := NewWebFetcher(10, 5*time.Second).Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		require.Len(t, body, maxBodySizeBytes)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewWebFetcher(10, 5*time.Second).Fetch(ctx, "http://127.0.0.1:1")
		require.Error(t, err)
	})

	t.Run("redirect loop", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/again", http.StatusFound)
		}))
		defer server.Close()

		_, err := NewWebFetcher(10, 5*time.Second).Fetch(context.Background(), server.URL)
		require.ErrorIs(t, err, ErrTooManyRedirects)
	})
}
