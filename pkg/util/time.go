package util

import (
	"time"
)

// StartOfHour truncates t to the start of its wall clock hour in t's own location
func StartOfHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}
