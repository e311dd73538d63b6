// Package recurrence implements the date arithmetic for recurring tasks.
// All functions are pure: they never touch the clock or any external state.
package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// Pattern identifies how a recurring task's next instance is dated.
type Pattern string

// Supported recurrence patterns.
const (
	Daily    Pattern = "daily"
	Weekly   Pattern = "weekly"
	BiWeekly Pattern = "bi-weekly"
	Monthly  Pattern = "monthly"
	Yearly   Pattern = "yearly"
)

// Errors returned by the calculator.
var (
	// ErrZeroTime is returned when an input time is the zero instant.
	ErrZeroTime = errors.New("time must be a valid instant")

	// ErrUnknownPattern is returned when a pattern is not one of the five
	// supported values.
	ErrUnknownPattern = errors.New("unknown recurrence pattern")

	// ErrNegativeCount is returned when an occurrence count is negative.
	ErrNegativeCount = errors.New("count must be non-negative")

	// ErrNonProgressing is returned by OccurrencesUntil when an iteration
	// fails to advance past the previous occurrence. This guards the bounded
	// generation loop against patterns that would otherwise spin forever.
	ErrNonProgressing = errors.New("recurrence pattern did not advance")
)

// Patterns returns all valid recurrence patterns.
func Patterns() []Pattern {
	return []Pattern{Daily, Weekly, BiWeekly, Monthly, Yearly}
}

// Valid reports whether p is one of the supported patterns.
func (p Pattern) Valid() bool {
	switch p {
	case Daily, Weekly, BiWeekly, Monthly, Yearly:
		return true
	}
	return false
}

// Description returns a human-readable description of the pattern.
func (p Pattern) Description() string {
	switch p {
	case Daily:
		return "Daily (every day)"
	case Weekly:
		return "Weekly (every 7 days)"
	case BiWeekly:
		return "Bi-weekly (every 14 days)"
	case Monthly:
		return "Monthly (same day each month)"
	case Yearly:
		return "Yearly (same date each year)"
	}
	return fmt.Sprintf("Unknown pattern: %s", string(p))
}

// Next computes the occurrence following current for the given pattern.
// Monthly and yearly additions are calendar-aware and clamp to the last
// valid day of the target month, so Jan 31 + monthly lands on Feb 28 (or
// Feb 29 in a leap year) and Feb 29 + yearly lands on Feb 28. The result
// keeps current's location.
func Next(current time.Time, pattern Pattern) (time.Time, error) {
	if current.IsZero() {
		return time.Time{}, ErrZeroTime
	}
	if !pattern.Valid() {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPattern, string(pattern))
	}

	switch pattern {
	case Daily:
		return current.AddDate(0, 0, 1), nil
	case Weekly:
		return current.AddDate(0, 0, 7), nil
	case BiWeekly:
		return current.AddDate(0, 0, 14), nil
	case Monthly:
		return addMonths(current, 1), nil
	case Yearly:
		return addMonths(current, 12), nil
	}

	// Unreachable: Valid() covers all cases.
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPattern, string(pattern))
}

// Occurrences computes count successive occurrences starting after start,
// each obtained by applying Next to the previous one. A count of zero yields
// an empty slice.
func Occurrences(start time.Time, pattern Pattern, count int) ([]time.Time, error) {
	if count < 0 {
		return nil, ErrNegativeCount
	}
	if count == 0 {
		return []time.Time{}, nil
	}

	out := make([]time.Time, 0, count)
	current := start
	for i := 0; i < count; i++ {
		next, err := Next(current, pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
		current = next
	}
	return out, nil
}

// OccurrencesUntil computes occurrences strictly after start and at or
// before end, stopping after maxCount entries. maxCount bounds the loop
// against pathological inputs; an iteration that does not move forward
// returns ErrNonProgressing.
func OccurrencesUntil(start time.Time, pattern Pattern, end time.Time, maxCount int) ([]time.Time, error) {
	if maxCount < 0 {
		return nil, ErrNegativeCount
	}
	if !end.After(start) {
		return []time.Time{}, nil
	}

	out := []time.Time{}
	current := start
	for len(out) < maxCount {
		next, err := Next(current, pattern)
		if err != nil {
			return nil, err
		}
		if !next.After(current) {
			return nil, fmt.Errorf("%w: %s stuck at %s", ErrNonProgressing, string(pattern), current.Format(time.RFC3339))
		}
		if next.After(end) {
			break
		}
		out = append(out, next)
		current = next
	}
	return out, nil
}

// addMonths advances t by the given number of months, clamping the day of
// month to the last valid day of the target month instead of letting the
// date normalize into the following month (time.AddDate would turn
// Jan 31 + 1 month into Mar 3).
func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	target := time.Date(year, month+time.Month(months), 1, hour, min, sec, t.Nanosecond(), t.Location())
	if last := lastDayOfMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

// lastDayOfMonth returns the number of days in the given month.
func lastDayOfMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
