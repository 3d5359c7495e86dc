package timebucket

import (
	"fmt"
	"time"
)

// ParseReadingTimestamp attempts to parse a reading timestamp with multiple formats
func ParseReadingTimestamp(dateStr string) (time.Time, error) {
	formats := []string{
		time.RFC3339,          // Standard RFC3339
		"2006-01-02 15:04:05", // Plain date-time
		"02/01/2006 15:04:05", // DD/MM/YYYY HH:mm:ss (legacy meters)
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", dateStr, lastErr)
}

// DayKey returns the UTC calendar date of t in YYYY-MM-DD form.
// Used to bucket hourly readings into daily totals.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// HourOfDay returns the UTC hour bucket (0-23) for t.
func HourOfDay(t time.Time) int {
	return t.UTC().Hour()
}

// DayOfWeek returns the UTC weekday name for t.
func DayOfWeek(t time.Time) string {
	return t.UTC().Weekday().String()
}
