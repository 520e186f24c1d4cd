package model

import "time"

const day = 24 * time.Hour

// DaysBetween counts calendar days (UTC) from a to b; negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(truncateDay(b).Sub(truncateDay(a)) / day)
}

// OverdueDays is the number of whole days at exceeds due, never negative.
func OverdueDays(due, at time.Time) int {
	if !at.After(due) {
		return 0
	}
	return int(at.Sub(due) / day)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns midnight UTC of t's date.
func StartOfDay(t time.Time) time.Time {
	return truncateDay(t)
}
