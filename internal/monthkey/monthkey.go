// Package monthkey maps instants to canonical calendar-month identifiers.
//
// A month key is the ASCII string "YYYY-MM" computed in UTC regardless of
// the machine's locale, so every device agrees on which month an instant
// belongs to. Daily boundaries elsewhere in the app deliberately use local
// time instead; only month keys are pinned to UTC.
package monthkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidKey is returned when a string is not a syntactically valid
// "YYYY-MM" key or does not name a real UTC calendar month.
var ErrInvalidKey = errors.New("invalid month key")

// KeyOf returns the month key containing t, interpreted in UTC.
func KeyOf(t time.Time) string {
	u := t.UTC()
	year, month := u.Year(), u.Month()
	if year < 0 || year > 9999 {
		return "1970-01"
	}
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// Range returns the half-open interval [start, end) covered by key:
// start is the first instant of the month at UTC, end the first instant
// of the following month.
func Range(key string) (start, end time.Time, err error) {
	year, month, err := parse(key)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end, nil
}

// Valid reports whether key names a real UTC calendar month.
func Valid(key string) bool {
	_, _, err := parse(key)
	return err == nil
}

// LastKeys returns the key containing from followed by the previous n-1
// keys, in descending chronological order. For n <= 0 it returns nil.
func LastKeys(n int, from time.Time) []string {
	if n <= 0 {
		return nil
	}
	start, _, err := Range(KeyOf(from))
	if err != nil {
		// KeyOf output always parses; keep the fallback anyway.
		start = from.UTC()
	}
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		keys = append(keys, KeyOf(start.AddDate(0, -i, 0)))
	}
	return keys
}

func parse(key string) (year, month int, err error) {
	parts := strings.Split(key, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if year < 0 || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return year, month, nil
}
