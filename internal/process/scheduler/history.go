package scheduler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/platform/observability"
)

const (
	historyFileMode = 0o644
	historyDirMode  = 0o755
	tempPattern     = ".keywords-*.tmp"
)

var defaultSeeds = []string{
	"AI conferences %d",
	"NVIDIA earnings %d",
	"CES %d",
}

// DefaultSeeds returns the keywords used when no history exists yet.
func DefaultSeeds(year int) []string {
	out := make([]string, len(defaultSeeds))
	for i, s := range defaultSeeds {
		out[i] = fmt.Sprintf(s, year)
	}

	return out
}

// History persists searched keywords as a JSON array of strings.
type History struct {
	path   string
	year   int
	logger *zerolog.Logger
}

// NewHistory creates a History stored at path.
func NewHistory(path string, year int, logger *zerolog.Logger) *History {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &History{path: path, year: year, logger: logger}
}

// Load returns the stored keywords. A missing, unreadable or corrupt file
// yields the default seeds.
func (h *History) Load() []string {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.Warn().Err(err).Str(logKeyPath, h.path).Msg("cannot read keyword history, using seeds")
		}

		return DefaultSeeds(h.year)
	}

	var keywords []string
	if err := json.Unmarshal(data, &keywords); err != nil {
		h.logger.Warn().Err(err).Str(logKeyPath, h.path).Msg("corrupt keyword history, using seeds")
		return DefaultSeeds(h.year)
	}

	return keywords
}

// Save replaces the file atomically: write a temp file in the same
// directory, fsync it, then rename over the old one.
func (h *History) Save(keywords []string) error {
	if keywords == nil {
		keywords = []string{}
	}

	data, err := json.MarshalIndent(keywords, "", "  ")
	if err != nil {
		return fmt.Errorf("encode keyword history: %w", err)
	}

	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, historyDirMode); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}

	tmpName := tmp.Name()

	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp history: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp history: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp history: %w", err)
	}

	if err := os.Chmod(tmpName, historyFileMode); err != nil {
		return fmt.Errorf("chmod temp history: %w", err)
	}

	if err := os.Rename(tmpName, h.path); err != nil {
		return fmt.Errorf("replace keyword history: %w", err)
	}

	observability.SchedulerHistorySize.Set(float64(len(keywords)))

	return nil
}

// Merge appends added to existing, skipping entries already present
// (case-insensitively) and keeping order.
func Merge(existing, added []string) []string {
	out := make([]string, 0, len(existing)+len(added))
	seen := make(map[string]bool, len(existing)+len(added))

	for _, list := range [][]string{existing, added} {
		for _, k := range list {
			k = strings.TrimSpace(k)
			key := strings.ToLower(k)

			if k == "" || seen[key] {
				continue
			}

			seen[key] = true

			out = append(out, k)
		}
	}

	return out
}
