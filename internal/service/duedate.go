package service

import (
	"fmt"
	"strings"
	"time"
)

// dueDateLayouts are the accepted due-date text formats, tried in order.
// Layouts without an explicit offset are interpreted in the caller's
// timezone and converted to UTC.
var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDueDate interprets a due-date string in the caller's IANA timezone
// (UTC when empty) and returns the instant in UTC. Only structured formats
// are accepted; free-form natural language is out of scope.
func ParseDueDate(text, timezone string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("%w: empty due date", ErrInvalidDueDate)
	}

	loc := time.UTC
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: unknown timezone %q", ErrInvalidDueDate, timezone)
		}
	}

	for _, layout := range dueDateLayouts {
		if parsed, err := time.ParseInLocation(layout, text, loc); err == nil {
			return parsed.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: cannot parse %q", ErrInvalidDueDate, text)
}
