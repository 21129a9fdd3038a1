package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"claritybackend/models"
)

func TestPeriodWindow_Weekly(t *testing.T) {
	// Wednesday March 11th 2026 -> the completed week Mon Mar 2 to Mon Mar 9.
	now := time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC)
	start, end := PeriodWindow(models.ReportPeriodWeekly, now)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), end)
}

func TestPeriodWindow_WeeklyOnMonday(t *testing.T) {
	// A Monday belongs to the new week; the window is the week just ended.
	now := time.Date(2026, 3, 9, 6, 0, 0, 0, time.UTC)
	start, end := PeriodWindow(models.ReportPeriodWeekly, now)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), end)
}

func TestPeriodWindow_WeeklyOnSunday(t *testing.T) {
	// Sunday is the last day of its week; the completed window is still the
	// previous one.
	now := time.Date(2026, 3, 8, 23, 0, 0, 0, time.UTC)
	start, end := PeriodWindow(models.ReportPeriodWeekly, now)
	assert.Equal(t, time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), end)
}

func TestPeriodWindow_Monthly(t *testing.T) {
	now := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)
	start, end := PeriodWindow(models.ReportPeriodMonthly, now)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestPeriodWindow_MonthlyAcrossYearBoundary(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	start, end := PeriodWindow(models.ReportPeriodMonthly, now)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestBucketCount(t *testing.T) {
	assert.Equal(t, 7, bucketCount(models.ReportPeriodWeekly, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 31, bucketCount(models.ReportPeriodMonthly, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 30, bucketCount(models.ReportPeriodMonthly, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 28, bucketCount(models.ReportPeriodMonthly, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
	// Leap year February
	assert.Equal(t, 29, bucketCount(models.ReportPeriodMonthly, time.Date(2028, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBucketIndex(t *testing.T) {
	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	weekEnd := weekStart.AddDate(0, 0, 7)

	t.Run("Weekly", func(t *testing.T) {
		assert.Equal(t, 0, bucketIndex(models.ReportPeriodWeekly, weekStart, weekEnd, weekStart))
		assert.Equal(t, 0, bucketIndex(models.ReportPeriodWeekly, weekStart, weekEnd, weekStart.Add(23*time.Hour)))
		assert.Equal(t, 1, bucketIndex(models.ReportPeriodWeekly, weekStart, weekEnd, weekStart.Add(24*time.Hour)))
		assert.Equal(t, 6, bucketIndex(models.ReportPeriodWeekly, weekStart, weekEnd, weekEnd.Add(-time.Second)))
	})

	t.Run("OutsideWindow", func(t *testing.T) {
		assert.Equal(t, -1, bucketIndex(models.ReportPeriodWeekly, weekStart, weekEnd, weekStart.Add(-time.Second)))
		assert.Equal(t, -1, bucketIndex(models.ReportPeriodWeekly, weekStart, weekEnd, weekEnd))
	})

	t.Run("Monthly", func(t *testing.T) {
		monthStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		monthEnd := monthStart.AddDate(0, 1, 0)
		assert.Equal(t, 0, bucketIndex(models.ReportPeriodMonthly, monthStart, monthEnd, monthStart))
		assert.Equal(t, 14, bucketIndex(models.ReportPeriodMonthly, monthStart, monthEnd, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)))
		assert.Equal(t, 30, bucketIndex(models.ReportPeriodMonthly, monthStart, monthEnd, time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)))
	})
}
