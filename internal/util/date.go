package util

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDateLocal parses a YYYY-MM-DD date and returns the start of that day in local time.
func ParseDateLocal(dateStr string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(dateStr))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", dateStr)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local), nil
}

// ParseOptionalDate treats an empty string as "no date".
func ParseOptionalDate(dateStr string) (sql.NullTime, error) {
	if strings.TrimSpace(dateStr) == "" {
		return sql.NullTime{}, nil
	}
	t, err := ParseDateLocal(dateStr)
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

// FormatDate renders a date as YYYY-MM-DD, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// FormatNullDate is FormatDate for nullable columns.
func FormatNullDate(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return FormatDate(t.Time)
}
