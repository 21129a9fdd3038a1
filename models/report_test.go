package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportDataScan(t *testing.T) {
	t.Run("NilColumnYieldsZeroValue", func(t *testing.T) {
		d := ReportData{TotalMessages: 42}
		require.NoError(t, d.Scan(nil))
		assert.Equal(t, ReportData{}, d)
	})

	t.Run("AcceptsBytesAndString", func(t *testing.T) {
		payload := `{"total_messages":7,"flagged_messages":2}`

		var fromBytes ReportData
		require.NoError(t, fromBytes.Scan([]byte(payload)))
		assert.Equal(t, 7, fromBytes.TotalMessages)

		var fromString ReportData
		require.NoError(t, fromString.Scan(payload))
		assert.Equal(t, 2, fromString.FlaggedMessages)
	})

	t.Run("RejectsUnsupportedType", func(t *testing.T) {
		var d ReportData
		assert.Error(t, d.Scan(12345))
	})
}

// A stored report must read back exactly as written: flag breakdown, chart
// series and message examples are all order-sensitive arrays the report page
// renders positionally.
func TestReportDataRoundTrip(t *testing.T) {
	original := ReportData{
		TotalMessages:   40,
		FlaggedMessages: 6,
		FlagBreakdown: []FlagBreakdownEntry{
			{FlagID: 1, FlagName: "Harsh tone", Count: 4, Percentage: 66.7, MessageIDs: []string{"ai_1", "ai_2", "ai_3", "ai_4"}},
			{FlagID: 5, FlagName: "Personal criticism", Count: 2, Percentage: 33.3, MessageIDs: []string{"ai_5", "ai_6"}},
		},
		Trends: []FlagTrend{
			{FlagID: 1, FlagName: "Harsh tone", PreviousCount: 2, CurrentCount: 4, ChangePercent: 100, Direction: TrendUp},
		},
		PartnerAnalysis: []PartnerSummary{
			{PartnerID: "U222222", MessagesExchanged: 12, FlagCount: 3, Trend: TrendStable},
			{PartnerID: "U333333", MessagesExchanged: 5, FlagCount: 1, Trend: TrendDown},
		},
		ChartMetadata: ChartMetadata{
			BucketLabels:   []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
			CurrentSeries:  []int{0, 2, 0, 1, 3, 0, 0},
			PreviousSeries: []int{1, 0, 0, 0, 1, 0, 0},
			FlagSeries:     map[string][]int{"1": {0, 2, 0, 1, 1, 0, 0}, "5": {0, 0, 0, 0, 2, 0, 0}},
			ScoreHistory: []ScorePoint{
				{PeriodStart: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Score: 88},
				{PeriodStart: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), Score: 91},
			},
		},
		MessageExamples: []MessageExample{
			{ChannelID: "C111111", MessageTS: "1757000000.000100", Text: "just fix it already", FlagIDs: []int{1, 5}, SeverityScore: 1.7},
			{ChannelID: "C111111", MessageTS: "1757000300.000200", Text: "ok", FlagIDs: []int{8}, SeverityScore: 0.3},
		},
		Recommendations: []string{"Slow down on review threads"},
		Insights:        []string{"Most flags cluster on Friday afternoons"},
		Achievements:    []string{"Score improved two weeks running"},
	}

	value, err := original.Value()
	require.NoError(t, err)

	var restored ReportData
	require.NoError(t, restored.Scan(value))

	assert.Equal(t, original.FlagBreakdown, restored.FlagBreakdown)
	assert.Equal(t, original.ChartMetadata, restored.ChartMetadata)
	assert.Equal(t, original.MessageExamples, restored.MessageExamples)
	assert.Equal(t, original, restored)
}
