package util

import (
	"time"
)

// DateLayout is the canonical calendar-date format used for DailyStats
// document ids and nudge dates.
const DateLayout = "2006-01-02"

// DayWindow returns the inclusive [00:00:00, 23:59:59.999] UTC window for
// the given YYYY-MM-DD date string.
func DayWindow(date string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := start.Add(24*time.Hour - time.Millisecond)
	return start, end, nil
}

// PreviousDate returns the calendar date preceding now, in UTC.
func PreviousDate(now time.Time) string {
	return now.UTC().AddDate(0, 0, -1).Format(DateLayout)
}

// LastNDates returns the n calendar dates ending at now's UTC date,
// most recent first.
func LastNDates(now time.Time, n int) []string {
	dates := make([]string, 0, n)
	day := now.UTC()
	for i := 0; i < n; i++ {
		dates = append(dates, day.AddDate(0, 0, -i).Format(DateLayout))
	}
	return dates
}

// WeekID returns the leaderboard week identifier for now: the date of the
// most recent Sunday, in UTC.
func WeekID(now time.Time) string {
	day := now.UTC()
	offset := int(day.Weekday())
	return day.AddDate(0, 0, -offset).Format(DateLayout)
}

// NextDailyFire returns the next wall-clock UTC occurrence of hh:mm after now.
func NextDailyFire(now time.Time, hour, minute int) time.Time {
	utc := now.UTC()
	next := time.Date(utc.Year(), utc.Month(), utc.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(utc) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
