package quota

import "time"

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"
)

// Month returns the UTC month period containing t.
func Month(t time.Time) string {
	return t.UTC().Format(monthLayout)
}

// Day returns the UTC day period containing t.
func Day(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// RolledOver returns rec as it reads at now: a counter whose period is not
// the current one is reset to zero and restamped. rec is not modified.
func RolledOver(rec Record, now time.Time) Record {
	month, day := Month(now), Day(now)
	if rec.MonthlyPeriod != month {
		rec.MonthlyCount = 0
		rec.MonthlyPeriod = month
	}
	if rec.DailyPeriod != day {
		rec.DailyCount = 0
		rec.DailyPeriod = day
	}
	return rec
}
