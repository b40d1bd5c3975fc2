package engine

import (
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// ParseDate parses a date in ISO-8601 YYYY-MM-DD (the standard), the legacy
// DD/MM/YY form, or ISO with a trailing time component. Legacy two-digit
// years map <=30 to 20YY and everything else to 19YY. The field name is only
// used to build the error.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, &DateFormatError{Field: field, Value: value}
	}

	if t, err := time.Parse(isoDate, value); err == nil {
		return t, nil
	}

	if strings.Contains(value, "/") {
		if t, ok := parseLegacyDate(value); ok {
			return t, nil
		}
	}

	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, &DateFormatError{Field: field, Value: value}
}

// parseLegacyDate handles D/M/YY and DD/MM/YY.
func parseLegacyDate(value string) (time.Time, bool) {
	parts := strings.Split(value, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if year < 0 || year > 99 {
		return time.Time{}, false
	}
	if year <= 30 {
		year += 2000
	} else {
		year += 1900
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range components; reject anything that moved.
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders a date in the standard ISO-8601 form.
func FormatDate(t time.Time) string {
	return t.Format(isoDate)
}
