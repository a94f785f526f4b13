package util

import "time"

// WeekNumber returns the ISO 8601 week number for t.
func WeekNumber(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

// Slot returns the (day-of-week, week-number) sibling slot key for t.
// Day of week is 0=Sunday, matching time.Weekday.
func Slot(t time.Time) (dayOfWeek, weekNumber int) {
	return int(t.Weekday()), WeekNumber(t)
}

// At returns t's date at the given UTC hour.
func At(t time.Time, hour int) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), hour, 0, 0, 0, time.UTC)
}
