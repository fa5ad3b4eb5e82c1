package transaction

import (
	"slices"
	"time"
)

// DefaultWindow is the month the feed is narrowed to
var DefaultWindow = Window{Year: 2029, Month: time.January}

// Window is a calendar month evaluated in UTC
type Window struct {
	Year  int
	Month time.Month
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	t = t.UTC()
	return t.Year() == w.Year && t.Month() == w.Month
}

// Filter is a function that determines if a record meets a specific criterion
type Filter func(Record) bool

// InMonth keeps records dated within the given UTC calendar month
func InMonth(year int, month time.Month) Filter {
	w := Window{Year: year, Month: month}
	return func(r Record) bool {
		t, ok := ParseDate(r.Date)
		return ok && w.Contains(t)
	}
}

// Apply returns the records matching every filter, preserving input order
func Apply(records Records, filters ...Filter) Records {
	out := make(Records, 0, len(records))
	for _, r := range records {
		if matchesAll(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

func matchesAll(r Record, filters []Filter) bool {
	for _, f := range filters {
		if !f(r) {
			return false
		}
	}
	return true
}

// FilterByDate keeps the records dated inside w and orders them by date.
// Records without a parseable date are dropped. Equal dates keep feed order.
func FilterByDate(records Records, w Window) Records {
	kept := Apply(records, InMonth(w.Year, w.Month))

	slices.SortStableFunc(kept, func(a, b Record) int {
		ta, _ := ParseDate(a.Date)
		tb, _ := ParseDate(b.Date)
		return ta.Compare(tb)
	})
	return kept
}

// zone-less layouts are read as UTC
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 timestamp. ok is false for empty or malformed input.
func ParseDate(s string) (t time.Time, ok bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
