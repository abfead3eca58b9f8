// Package htmlutils provides HTML processing utilities for crawled pages and
// Telegram messages.
//
// The package handles:
//   - UTF-16 length calculation (Telegram's native encoding)
//   - Tag stripping for crawled page text
//   - Sanitization down to Telegram-supported tags
//   - Splitting long messages at readable boundaries
package htmlutils

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/microcosm-cc/bluemonday"
)

// TelegramMessageLimit is the maximum message length in UTF-16 code units.
const TelegramMessageLimit = 4096

var (
	stripPolicy    = newStripPolicy()
	telegramPolicy = newTelegramPolicy()

	whitespaceRun = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankLines    = regexp.MustCompile(`\n\s*\n+`)
)

func newStripPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)

	return p
}

func newTelegramPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "i", "u", "s", "code", "pre", "blockquote")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "tg")
	p.RequireParseableURLs(true)

	return p
}

// utf16Len returns the number of UTF-16 code units needed to encode the string.
// Characters outside the BMP (emoji, etc.) require surrogate pairs.
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// utf16Slice returns the longest prefix of s that fits within maxUnits UTF-16 code units.
func utf16Slice(s string, maxUnits int) string {
	units := 0

	for i, r := range s {
		runeUnits := 1
		if r > 0xFFFF {
			runeUnits = 2
		}

		if units+runeUnits > maxUnits {
			return s[:i]
		}

		units += runeUnits
	}

	return s
}

// SanitizeHTML keeps only Telegram-supported tags and safe links.
func SanitizeHTML(text string) string {
	return telegramPolicy.Sanitize(text)
}

// StripHTML removes all markup and returns readable text with collapsed whitespace.
func StripHTML(text string) string {
	plain := html.UnescapeString(stripPolicy.Sanitize(text))
	plain = whitespaceRun.ReplaceAllString(plain, " ")
	plain = blankLines.ReplaceAllString(plain, "\n\n")

	return strings.TrimSpace(plain)
}

// EscapeText escapes user or model text for an HTML parse-mode message.
func EscapeText(text string) string {
	return html.EscapeString(text)
}

// Truncate returns s cut to at most maxRunes runes.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}

	count := 0

	for i := range s {
		if count == maxRunes {
			return s[:i]
		}

		count++
	}

	return s
}

// splitAfter lists boundaries in priority order; the separator stays in the current part.
var splitAfter = []string{
	"\n\n",
	"\n",
	" ",
}

// SplitMessage splits text into parts of at most limit UTF-16 code units,
// preferring paragraph, then line, then word boundaries.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf16Len(text) <= limit {
		return []string{text}
	}

	var parts []string

	remaining := text
	for remaining != "" {
		part, rest := findBestSplit(remaining, limit)
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}

		remaining = rest
	}

	return parts
}

func findBestSplit(text string, maxUnits int) (toWrite, remainder string) {
	if utf16Len(text) <= maxUnits {
		return text, ""
	}

	searchText := utf16Slice(text, maxUnits)

	for _, sep := range splitAfter {
		if pos := strings.LastIndex(searchText, sep); pos > 0 {
			splitAt := pos + len(sep)
			return searchText[:splitAt], text[splitAt:]
		}
	}

	return searchText, text[len(searchText):]
}
