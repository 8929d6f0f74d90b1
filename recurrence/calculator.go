package recurrence

import (
	"time"
)

// DateLayout is the calendar-day key format used across the engine
const DateLayout = "2006-01-02"

// DayOf truncates t to midnight of its calendar day, keeping its location
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WholeDaysBetween counts calendar days from a to b using each time's own
// wall-clock date. Daylight-saving shifts do not affect the count, and spans
// wider than a time.Duration can hold are counted exactly.
func WholeDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int((to.Unix() - from.Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// IsOccurrence reports whether candidate's calendar day is a valid occurrence of
// the series anchored at anchor. The rule is assumed valid.
func IsOccurrence(anchor, candidate time.Time, rule Rule) bool {
	if rule.pattern == nil {
		return false
	}
	days := WholeDaysBetween(anchor, candidate)
	if days < 0 {
		return false
	}
	if !rule.pattern.matches(anchor, candidate, days) {
		return false
	}
	if end, ok := rule.endDate.Get(); ok && WholeDaysBetween(end, candidate) > 0 {
		return false
	}
	if limit, ok := rule.maxOccurrences.Get(); ok && rule.pattern.index(days) > limit {
		return false
	}
	return true
}

// OccurrenceIndex returns the 1-based position of candidate within the series.
// The anchor day is 1. Candidates before the anchor also report 1.
func OccurrenceIndex(anchor, candidate time.Time, rule Rule) int {
	if rule.pattern == nil {
		return 0
	}
	days := WholeDaysBetween(anchor, candidate)
	if days < 0 {
		return 1
	}
	return rule.pattern.index(days)
}

// Occurrences lists every calendar day in [windowStart, windowEnd] that is a
// valid occurrence. Returned days are midnight in windowStart's location.
// A reversed window yields nil.
func Occurrences(rule Rule, anchor, windowStart, windowEnd time.Time) []time.Time {
	if rule.pattern == nil {
		return nil
	}
	first := DayOf(windowStart)
	total := WholeDaysBetween(windowStart, windowEnd)
	if total < 0 {
		return nil
	}

	// Days before the anchor can never match
	skip := WholeDaysBetween(first, anchor)
	if skip > total {
		return nil
	}

	var out []time.Time
	for i := max(skip, 0); i <= total; i++ {
		day := first.AddDate(0, 0, i)
		if IsOccurrence(anchor, day, rule) {
			out = append(out, day)
		}
	}
	return out
}

// Advance moves a due date to the next occurrence with calendar arithmetic:
// days for daily/weekly, AddDate months or years for monthly/yearly.
// This intentionally differs from the bucket test used by IsOccurrence.
func Advance(due time.Time, rule Rule) time.Time {
	if rule.pattern == nil {
		return due
	}
	return rule.pattern.advance(due)
}
