package timeparser

import (
	"fmt"
	"time"
)

var readingDateFormats = []string{
	"02/01/2006 15:04:05", // DD/MM/YYYY HH:mm:ss
	"02/01/2006",          // DD/MM/YYYY
	time.RFC3339,
}

// ParseReadingDate parses a kiosk-entered reading date. Zone-less formats
// are interpreted in loc.
func ParseReadingDate(dateStr string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	var lastErr error
	for _, format := range readingDateFormats {
		t, err := time.ParseInLocation(format, dateStr, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse reading date '%s': %w", dateStr, lastErr)
}

// IsWithinTolerance checks if the reading date is within tolerance of the request time
func IsWithinTolerance(readingTime, receivedTime time.Time, toleranceMinutes int) bool {
	diff := readingTime.Sub(receivedTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(toleranceMinutes)*time.Minute
}

// StartOfDay returns local midnight of t's day in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfMonth returns midnight of the first day of t's month
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// DayWindow returns the half-open [midnight, next midnight) interval containing t
func DayWindow(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}
