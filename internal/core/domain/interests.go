package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// interestAliases maps common non-English interest terms to the English terms
// the catalog is written in.
// Traditional forms come first; simplified spellings are accepted too.
var interestAliases = map[string]string{
	"機器學習": "Machine Learning",
	"人工智慧": "AI",
	"機器人":  "Robotics",
	"大數據":  "Big Data",
	"美國金融": "US Finance",
	"美國政治": "US Politics",

	"机器学习": "Machine Learning",
	"人工智能": "AI",
	"机器人":  "Robotics",
	"大数据":  "Big Data",
	"美国金融": "US Finance",
	"美国政治": "US Politics",
}

const interestSeparator = ", "

// ParseInterests splits a free-text interest list into trimmed terms.
func ParseInterests(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', '，', ';', '；', '\n':
			return true
		}

		return false
	})

	terms := make([]string, 0, len(fields))

	for _, f := range fields {
		if t := strings.TrimSpace(f); t != "" {
			terms = append(terms, t)
		}
	}

	return terms
}

// NormalizeInterests applies aliases and drops case-insensitive duplicates,
// keeping the first occurrence.
func NormalizeInterests(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))

	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}

		if alias, ok := interestAliases[t]; ok {
			t = alias
		}

		key := TitleKey(t)
		if seen[key] {
			continue
		}

		seen[key] = true

		out = append(out, t)
	}

	return out
}

// JoinInterests flattens terms into the stored and scored representation.
func JoinInterests(terms []string) string {
	return strings.Join(terms, interestSeparator)
}

// TitleKey returns the comparison key for exact title matching:
// NFKC-normalized, case-folded and whitespace-collapsed.
func TitleKey(title string) string {
	folded := cases.Fold().String(norm.NFKC.String(title))

	return strings.Join(strings.FieldsFunc(folded, unicode.IsSpace), " ")
}
