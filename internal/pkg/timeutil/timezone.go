package timeutil

import (
	"time"
)

const dateLayout = "2006-01-02"

// Location returns the named IANA location, or UTC if timezone is empty or invalid
func Location(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsValidTimezone checks if a timezone string is valid
func IsValidTimezone(timezone string) bool {
	if timezone == "" {
		return false
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}

// ConvertToUserTimezone converts a time to the user's timezone.
// If timezone is empty or invalid the time is returned in UTC.
func ConvertToUserTimezone(t time.Time, timezone string) time.Time {
	return t.In(Location(timezone))
}

// LocalDate formats t as YYYY-MM-DD in t's own location. Zero times give "".
func LocalDate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(now.Location()).Format(dateLayout)
}

// SameDay reports whether t falls on the same calendar day as now, in now's location
func SameDay(t, now time.Time) bool {
	if t.IsZero() {
		return false
	}
	y1, m1, d1 := t.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
