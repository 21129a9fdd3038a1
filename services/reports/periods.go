package reports

import (
	"time"

	"claritybackend/models"
)

// PeriodWindow returns the most recent fully-completed window of the given
// period type before now: [start, end) in UTC. Weekly windows run Monday to
// Monday; monthly windows are whole calendar months.
func PeriodWindow(period models.ReportPeriod, now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	switch period {
	case models.ReportPeriodWeekly:
		end := startOfWeek(now)
		return end.AddDate(0, 0, -7), end
	case models.ReportPeriodMonthly:
		end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return end.AddDate(0, -1, 0), end
	default:
		end := startOfWeek(now)
		return end.AddDate(0, 0, -7), end
	}
}

// startOfWeek returns Monday 00:00 UTC of the week containing t.
func startOfWeek(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// bucketCount returns the number of day buckets in a window: 7 for weekly,
// days-in-month for monthly.
func bucketCount(period models.ReportPeriod, periodStart time.Time) int {
	if period == models.ReportPeriodWeekly {
		return 7
	}
	return daysInMonth(periodStart)
}

func daysInMonth(t time.Time) int {
	t = t.UTC()
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 1, 0).Add(-24 * time.Hour).Day()
}

// bucketIndex maps a timestamp onto its day bucket within the window.
// Weekly buckets are weekday positions starting Monday; monthly buckets are
// day-of-month minus one. Returns -1 for timestamps outside the window.
func bucketIndex(period models.ReportPeriod, periodStart, periodEnd, at time.Time) int {
	at = at.UTC()
	if at.Before(periodStart) || !at.Before(periodEnd) {
		return -1
	}
	if period == models.ReportPeriodWeekly {
		return int(at.Sub(periodStart).Hours() / 24)
	}
	return at.Day() - 1
}
