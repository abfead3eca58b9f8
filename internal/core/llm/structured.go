package llm

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
	"github.com/lueurxax/event-scout/internal/platform/observability"
)

const markdownFence = "```"

// Wrapper keys checked first when a list arrives inside an object.
var listWrapperKeys = []string{"events", "items", "results", "keywords", "queries", "data"}

var validate = validator.New()

var errNoObject = errors.New("no object in list")

// CompleteList runs a structured request and decodes the reply as a list.
func CompleteList[T any](ctx context.Context, c Client, req Request) ([]T, error) {
	req.Structured = true

	raw, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	return DecodeList[T](req.Task, raw)
}

// CompleteObject runs a structured request and decodes the reply as one object.
func CompleteObject[T any](ctx context.Context, c Client, req Request) (T, error) {
	req.Structured = true

	raw, err := c.Complete(ctx, req)
	if err != nil {
		var zero T
		return zero, err
	}

	return DecodeObject[T](req.Task, raw)
}

// DecodeList decodes model output into a list of records. It accepts a bare
// array, an object wrapping an array, or a single object treated as a
// one-element list. Embedded JSON values are tried in order until one
// decodes. Records failing validation are dropped.
func DecodeList[T any](task TaskType, raw string) ([]T, error) {
	var lastErr error = coreerrors.ErrEmptyResponse

	for _, body := range jsonBodies(raw) {
		items, err := decodeListBody[T](body)
		if err != nil {
			lastErr = err
			continue
		}

		valid := items[:0]

		for _, item := range items {
			if validateRecord(item) == nil {
				valid = append(valid, item)
			}
		}

		return valid, nil
	}

	observability.LLMParseFailures.WithLabelValues(string(task)).Inc()

	return nil, fmt.Errorf("%w: %s: %w", coreerrors.ErrParseFailed, task, lastErr)
}

// DecodeObject decodes model output into one record. A list yields its first element.
func DecodeObject[T any](task TaskType, raw string) (T, error) {
	var lastErr error = coreerrors.ErrEmptyResponse

	for _, body := range jsonBodies(raw) {
		out, err := decodeObjectBody[T](body)
		if err != nil {
			lastErr = err
			continue
		}

		return out, nil
	}

	observability.LLMParseFailures.WithLabelValues(string(task)).Inc()

	var zero T

	return zero, fmt.Errorf("%w: %s: %w", coreerrors.ErrParseFailed, task, lastErr)
}

func decodeObjectBody[T any](body string) (T, error) {
	var zero T

	if strings.HasPrefix(body, "[") {
		var items []T
		if err := json.Unmarshal([]byte(body), &items); err != nil {
			return zero, fmt.Errorf("decode array: %w", err)
		}

		if len(items) == 0 {
			return zero, errNoObject
		}

		return validatedRecord(items[0])
	}

	var out T
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return zero, fmt.Errorf("decode object: %w", err)
	}

	return validatedRecord(out)
}

func validatedRecord[T any](v T) (T, error) {
	if err := validateRecord(v); err != nil {
		var zero T
		return zero, err
	}

	return v, nil
}

func decodeListBody[T any](body string) ([]T, error) {
	switch {
	case strings.HasPrefix(body, "["):
		var items []T
		if err := json.Unmarshal([]byte(body), &items); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}

		return items, nil
	case strings.HasPrefix(body, "{"):
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(body), &fields); err != nil {
			return nil, fmt.Errorf("decode object: %w", err)
		}

		if arr, ok := firstArray(fields); ok {
			var items []T
			if err := json.Unmarshal(arr, &items); err != nil {
				return nil, fmt.Errorf("decode wrapped array: %w", err)
			}

			return items, nil
		}

		var single T
		if err := json.Unmarshal([]byte(body), &single); err != nil {
			return nil, fmt.Errorf("decode single object: %w", err)
		}

		return []T{single}, nil
	}

	return nil, coreerrors.ErrEmptyResponse
}

// firstArray returns the first array value, checking wrapper keys before the
// remaining keys in sorted order.
func firstArray(fields map[string]json.RawMessage) (json.RawMessage, bool) {
	for _, key := range listWrapperKeys {
		if v, ok := fields[key]; ok && isArray(v) {
			return v, true
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		if isArray(fields[k]) {
			return fields[k], true
		}
	}

	return nil, false
}

func isArray(v json.RawMessage) bool {
	return strings.HasPrefix(strings.TrimSpace(string(v)), "[")
}

func validateRecord(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return nil
	}

	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validate record: %w", err)
	}

	return nil
}

// jsonBodies returns the valid JSON arrays and objects embedded in text, in
// order of appearance, or the trimmed text itself when there are none.
// Brackets inside strings are ignored.
func jsonBodies(text string) []string {
	candidate := stripMarkdownFence(text)

	var bodies []string

	for i := 0; i < len(candidate); i++ {
		if candidate[i] != '[' && candidate[i] != '{' {
			continue
		}

		end := matchingBracket(candidate, i)
		if end < 0 {
			continue
		}

		if json.Valid([]byte(candidate[i : end+1])) {
			bodies = append(bodies, candidate[i:end+1])
			i = end
		}
	}

	if len(bodies) == 0 {
		return []string{strings.TrimSpace(text)}
	}

	return bodies
}

func stripMarkdownFence(text string) string {
	start := strings.Index(text, markdownFence)
	if start < 0 {
		return text
	}

	rest := text[start+len(markdownFence):]

	// Drop the language tag line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}

	if end := strings.Index(rest, markdownFence); end >= 0 {
		rest = rest[:end]
	}

	return rest
}

// matchingBracket returns the index closing the bracket at start, or -1.
func matchingBracket(s string, start int) int {
	stack := make([]byte, 0, 8)
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}

			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}

	return -1
}
