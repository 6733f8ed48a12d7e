package utils

import (
	"fmt"
	"time"
)

// ParseTimeParam parses an optional query parameter as RFC 3339 or as a
// calendar date (YYYY-MM-DD, midnight UTC). An empty string yields nil.
func ParseTimeParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return &t, nil
}
