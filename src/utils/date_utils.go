package utils

import (
	"strings"
	"time"
)

const DateOnlyFormat = "2006-01-02"

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateOnlyFormat,
}

// DateOnly reduces any of the datetime representations the CRM returns to a
// date-only string ("2006-01-02"). Unrecognized input yields "".
func DateOnly(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateOnlyFormat)
		}
	}
	return ""
}
