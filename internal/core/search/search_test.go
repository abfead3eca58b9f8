package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
)

const searxngBody = `{
  "query": "ai conference 2026",
  "results": [
    {"url": "https://devday.example.com", "title": "<b>DevDay</b> 2026", "content": "Keynotes &amp; workshops", "engine": "google"},
    {"url": "javascript:alert(1)", "title": "bad", "content": "", "engine": "bing"},
    {"url": "https://summit.example.com", "title": "AI Summit", "content": "June", "engine": "bing"},
    {"url": "https://third.example.com", "title": "Third", "content": "", "engine": "bing"}
  ]
}`

const duckDuckGoBody = `<html><body>
<div class="result result--ad"><a class="result__a" href="https://ads.example.com">Sponsored</a></div>
<div class="result results_links">
  <h2 class="result__title"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fdevday.example.com%2F2026&amp;rut=abc">DevDay 2026</a></h2>
  <a class="result__snippet">October <b>6</b> in San Francisco</a>
</div>
<div class="result results_links">
  <h2 class="result__title"><a class="result__a" href="https://summit.example.com">AI Summit</a></h2>
  <a class="result__snippet">June</a>
</div>
<div class="result"><span>no anchor</span></div>
</body></html>`

func TestSearxNGSearch(t *testing.T) {
	var gotPath, gotAccept string

	var gotQuery url.Values

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotAccept = r.Header.Get("Accept")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searxngBody))
	}))
	defer srv.Close()

	backend := NewSearxNG(SearxNGConfig{Enabled: true, BaseURL: srv.URL + "/", Engines: []string{"google", "bing"}})

	results, err := backend.Search(context.Background(), "ai conference 2026", 2)
	require.NoError(t, err)
	require.Equal(t, []Result{
		{Title: "DevDay 2026", URL: "https://devday.example.com", Snippet: "Keynotes & workshops"},
		{Title: "AI Summit", URL: "https://summit.example.com", Snippet: "June"},
	}, results)

	require.Equal(t, "/search", gotPath)
	require.Equal(t, "json", gotQuery.Get("format"))
	require.Equal(t, "google,bing", gotQuery.Get("engines"))
	require.Equal(t, "ai conference 2026", gotQuery.Get("q"))
	require.Equal(t, "application/json", gotAccept)
}

func TestSearxNGErrors(t *testing.T) {
	_, err := NewSearxNG(SearxNGConfig{Enabled: true}).Search(context.Background(), "q", 5)
	require.ErrorIs(t, err, ErrBackendDisabled)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "limited" {
			_, _ = w.Write([]byte("<html>Too many requests</html>"))
			return
		}

		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	backend := NewSearxNG(SearxNGConfig{Enabled: true, BaseURL: srv.URL})

	_, err = backend.Search(context.Background(), "down", 5)
	require.ErrorIs(t, err, ErrUnexpectedStatus)

	_, err = backend.Search(context.Background(), "limited", 5)
	require.ErrorIs(t, err, errSearxNGAPIError)
}

func TestDuckDuckGoSearch(t *testing.T) {
	var gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")

		_, _ = w.Write([]byte(duckDuckGoBody))
	}))
	defer srv.Close()

	backend := NewDuckDuckGo(DuckDuckGoConfig{Enabled: true, BaseURL: srv.URL, Year: 2026})

	results, err := backend.Search(context.Background(), "ai conference", 10)
	require.NoError(t, err)
	require.Equal(t, "ai conference 2026", gotQuery)
	require.Equal(t, []Result{
		{Title: "DevDay 2026", URL: "https://devday.example.com/2026", Snippet: "October 6 in San Francisco"},
		{Title: "AI Summit", URL: "https://summit.example.com", Snippet: "June"},
	}, results)

	results, err = backend.Search(context.Background(), "ai conference 2026", 1)
	require.NoError(t, err)
	require.Equal(t, "ai conference 2026", gotQuery)
	require.Len(t, results, 1)
}

func TestDuckDuckGoDisabled(t *testing.T) {
	_, err := NewDuckDuckGo(DuckDuckGoConfig{}).Search(context.Background(), "q", 5)
	require.ErrorIs(t, err, ErrBackendDisabled)
	require.ErrorIs(t, err, coreerrors.ErrClientDisabled)
}

func TestResolveRedirect(t *testing.T) {
	require.Equal(t, "https://a.example.com/x", resolveRedirect("//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example.com%2Fx"))
	require.Equal(t, "https://b.example.com", resolveRedirect("https://b.example.com"))
}

type fakeBackend struct {
	name    BackendName
	results []Result
	err     error
	calls   atomic.Int32
}

func (f *fakeBackend) Name() BackendName { return f.name }

func (f *fakeBackend) Search(context.Context, string, int) ([]Result, error) {
	f.calls.Add(1)
	return f.results, f.err
}

var hit = []Result{{Title: "Event", URL: "https://event.example.com"}}

func TestChainPrefersPrimary(t *testing.T) {
	primary := &fakeBackend{name: BackendSearxNG, results: hit}
	secondary := &fakeBackend{name: BackendDuckDuckGo, results: []Result{{Title: "other"}}}

	results, err := NewChain(primary, secondary, ChainConfig{}, nil).Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Equal(t, hit, results)
	require.Zero(t, secondary.calls.Load())
}

func TestChainFallsBackOnEmptyOrError(t *testing.T) {
	secondary := &fakeBackend{name: BackendDuckDuckGo, results: hit}

	empty := &fakeBackend{name: BackendSearxNG}
	results, err := NewChain(empty, secondary, ChainConfig{}, nil).Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Equal(t, hit, results)

	failing := &fakeBackend{name: BackendSearxNG, err: errors.New("boom")}
	results, err = NewChain(failing, secondary, ChainConfig{}, nil).Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Equal(t, hit, results)
	require.EqualValues(t, 2, secondary.calls.Load())
}

func TestChainAllFailed(t *testing.T) {
	errPrimary := errors.New("primary down")
	errSecondary := errors.New("secondary down")

	chain := NewChain(
		&fakeBackend{name: BackendSearxNG, err: errPrimary},
		&fakeBackend{name: BackendDuckDuckGo, err: errSecondary},
		ChainConfig{}, nil,
	)

	_, err := chain.Search(context.Background(), "q", 5)
	require.ErrorIs(t, err, ErrAllBackendsFailed)
	require.ErrorIs(t, err, errPrimary)
	require.ErrorIs(t, err, errSecondary)
}

func TestChainWithoutSecondary(t *testing.T) {
	results, err := NewChain(&fakeBackend{name: BackendSearxNG}, nil, ChainConfig{}, nil).Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Empty(t, results)

	_, err = NewChain(nil, nil, ChainConfig{}, nil).Search(context.Background(), "q", 5)
	require.NoError(t, err)
}

func TestChainCircuitOpensAndSkipsPrimary(t *testing.T) {
	primary := &fakeBackend{name: BackendSearxNG, err: errors.New("boom")}
	secondary := &fakeBackend{name: BackendDuckDuckGo, results: hit}

	chain := NewChain(primary, secondary, ChainConfig{CircuitWindow: time.Minute, CircuitReset: time.Hour}, nil)

	for range circuitMinRequests {
		_, err := chain.Search(context.Background(), "q", 5)
		require.NoError(t, err)
	}

	require.Equal(t, "open", chain.BreakerState())

	results, err := chain.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Equal(t, hit, results)
	require.EqualValues(t, circuitMinRequests, primary.calls.Load())
	require.EqualValues(t, circuitMinRequests+1, secondary.calls.Load())
}

func TestChainBreakerStateWithoutPrimary(t *testing.T) {
	require.Equal(t, "none", NewChain(nil, &fakeBackend{}, ChainConfig{}, nil).BreakerState())
}
