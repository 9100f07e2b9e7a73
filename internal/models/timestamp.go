package models

import (
	"strings"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"

	"github.com/relvacode/iso8601"
)

// ParseTimestamp parses an ISO-8601 timestamp and normalizes it to UTC.
// A trailing Z means UTC; a timestamp without offset is taken as UTC.
func ParseTimestamp(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, apperr.Validation(field, "is required")
	}
	t, err := iso8601.ParseString(value)
	if err != nil {
		return time.Time{}, apperr.Validation(field, "must be an ISO-8601 timestamp")
	}
	return t.UTC(), nil
}
