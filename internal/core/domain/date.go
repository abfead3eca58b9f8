package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateUnknown marks an event whose date could not be determined at all.
const DateUnknown = "TBD"

const isoDateLayout = "2006-01-02"

var (
	isoDatePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	partialDatePattern = regexp.MustCompile(`^(\d{4})-\d{2}-00$`)
	yearOnlyPattern    = regexp.MustCompile(`^\d{4}$`)
)

// SentinelDate returns the low-confidence placeholder for "year known, day unknown".
func SentinelDate(year int) string {
	return fmt.Sprintf("%d-01-00", year)
}

// IsSentinel reports whether date is the sentinel of the given year.
func IsSentinel(date string, year int) bool {
	return strings.TrimSpace(date) == SentinelDate(year)
}

// IsKnownDate reports whether date carries a concrete day.
// Sentinels, partial dates and unknown markers are not known.
func IsKnownDate(date string) bool {
	d := strings.TrimSpace(date)
	if d == "" || isUnknownMarker(d) {
		return false
	}

	return !partialDatePattern.MatchString(d)
}

// IsLowConfidence reports whether a stored date should yield to a known one.
// YYYY-01-01 counts as low confidence because extractors default to it when
// only the year is known.
func IsLowConfidence(date string) bool {
	if !IsKnownDate(date) {
		return true
	}

	return strings.HasSuffix(strings.TrimSpace(date), "-01-01")
}

// DatePrecision ranks how specific a date is: 0 unknown, 1 year only
// (the sentinel), 2 month known, 3 full day.
func DatePrecision(date string) int {
	d := strings.TrimSpace(date)

	switch {
	case d == "" || isUnknownMarker(d):
		return 0
	case partialDatePattern.MatchString(d):
		if d[5:7] == "01" {
			return 1
		}

		return 2
	}

	return 3
}

// NormalizeDate converts free-form model output into ISO form.
// Unknown markers and partial dates are kept, unparseable input becomes the
// sentinel of year.
func NormalizeDate(raw string, year int) string {
	d := strings.TrimSpace(raw)

	switch {
	case d == "":
		return SentinelDate(year)
	case isUnknownMarker(d):
		return DateUnknown
	case partialDatePattern.MatchString(d):
		return d
	case yearOnlyPattern.MatchString(d):
		y, err := strconv.Atoi(d)
		if err != nil {
			return SentinelDate(year)
		}

		return SentinelDate(y)
	case isoDatePattern.MatchString(d):
		if _, err := time.Parse(isoDateLayout, d); err == nil {
			return d
		}

		return SentinelDate(year)
	}

	t, err := dateparse.ParseAny(d)
	if err != nil {
		return SentinelDate(year)
	}

	return t.Format(isoDateLayout)
}

// DateYear extracts the year of an ISO or partial date, or 0.
func DateYear(date string) int {
	d := strings.TrimSpace(date)
	if len(d) < 4 {
		return 0
	}

	y, err := strconv.Atoi(d[:4])
	if err != nil {
		return 0
	}

	return y
}

func isUnknownMarker(d string) bool {
	switch strings.ToLower(d) {
	case "tbd", "tba", "unknown", "n/a":
		return true
	}

	return false
}
