// Package records normalizes raw fault log entries into strict fault records.
package records

import (
	"time"
)

// dateLayout is the compact YYYYMMDD encoding used by the fault log.
const dateLayout = "20060102"

// ParseDate decodes an 8-digit YYYYMMDD string into a UTC calendar date.
// The second return value is false for any other input, including
// impossible calendar dates such as month 13 or February 30.
func ParseDate(s string) (time.Time, bool) {
	if len(s) != 8 {
		return time.Time{}, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return time.Time{}, false
		}
	}

	// time.Parse rejects out-of-range months and days.
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
