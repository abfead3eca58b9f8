// Package search queries web search backends for candidate event pages.
package search

import (
	"context"
	"errors"
	"fmt"

	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
)

// BackendName identifies a search backend.
type BackendName string

// Backend name constants.
const (
	BackendSearxNG    BackendName = "searxng"
	BackendDuckDuckGo BackendName = "duckduckgo"
	BackendChain      BackendName = "chain"
)

var (
	// ErrBackendDisabled indicates the backend is switched off in config.
	ErrBackendDisabled = fmt.Errorf("search backend: %w", coreerrors.ErrClientDisabled)

	// ErrUnexpectedStatus indicates a non-200 answer from a backend.
	ErrUnexpectedStatus = errors.New("search backend unexpected status")

	// ErrAllBackendsFailed indicates neither the primary nor the fallback answered.
	ErrAllBackendsFailed = errors.New("all search backends failed")
)

const (
	errWrapFmtWithCode = "%w: %d"
	maxErrorBodyChars  = 200
	defaultMaxResults  = 10
)

// Result is a single search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Backend runs one query and returns at most limit results.
type Backend interface {
	Name() BackendName
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

func resultLimit(limit int) int {
	if limit <= 0 {
		return defaultMaxResults
	}

	return limit
}
