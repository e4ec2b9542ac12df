package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayWindow(t *testing.T) {
	from, to, err := DayWindow("2026-03-04")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04T00:00:00Z", from.Format(time.RFC3339))
	assert.Equal(t, "2026-03-04T23:59:59.999Z", to.Format("2006-01-02T15:04:05.999Z07:00"))

	_, _, err = DayWindow("04/03/2026")
	assert.Error(t, err)
}

func TestPreviousDate(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-02-28", PreviousDate(now))

	// A local time just past midnight resolves against the UTC day, which
	// is still the evening before.
	elsewhere := time.Date(2026, 3, 4, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	assert.Equal(t, "2026-03-02", PreviousDate(elsewhere))
}

func TestLastNDates(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{
		"2026-03-04", "2026-03-03", "2026-03-02", "2026-03-01",
		"2026-02-28", "2026-02-27", "2026-02-26",
	}, LastNDates(now, 7))
}

func TestWeekID(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"midweek", time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC), "2026-03-01"},
		{"sunday is its own week", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), "2026-03-01"},
		{"saturday belongs to the past sunday", time.Date(2026, 3, 7, 23, 0, 0, 0, time.UTC), "2026-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekID(tt.now))
		})
	}
}

func TestNextDailyFire(t *testing.T) {
	now := time.Date(2026, 3, 4, 2, 0, 0, 0, time.UTC)
	next := NextDailyFire(now, 3, 0)
	assert.Equal(t, time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC), next)

	// Already past today's slot: tomorrow.
	afterwards := time.Date(2026, 3, 4, 3, 0, 1, 0, time.UTC)
	next = NextDailyFire(afterwards, 3, 0)
	assert.Equal(t, time.Date(2026, 3, 5, 3, 0, 0, 0, time.UTC), next)

	// Exactly at the slot also rolls over, so a timer rearm never fires twice.
	exact := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)
	next = NextDailyFire(exact, 3, 0)
	assert.Equal(t, time.Date(2026, 3, 5, 3, 0, 0, 0, time.UTC), next)
}

func TestIntervalFingerprint(t *testing.T) {
	id := IntervalFingerprint("https://github.com", "2026-03-04T09:00:00Z", "2026-03-04T09:10:00Z")
	assert.Equal(t, id, IntervalFingerprint("https://github.com", "2026-03-04T09:00:00Z", "2026-03-04T09:10:00Z"))
	assert.Regexp(t, `^2026-03-04-[0-9a-f]{8}$`, id)

	other := IntervalFingerprint("https://github.com", "2026-03-04T09:00:01Z", "2026-03-04T09:10:00Z")
	assert.NotEqual(t, id, other)
}
