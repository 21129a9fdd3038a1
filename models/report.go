package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type ReportPeriod string

const (
	ReportPeriodWeekly  ReportPeriod = "weekly"
	ReportPeriodMonthly ReportPeriod = "monthly"
)

// ReportTTL is how long a report stays readable after creation. Expired
// reports are treated as not-found by readers even while physically present.
const ReportTTL = 90 * 24 * time.Hour

type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// Score trend labels for the report header.
const (
	ScoreTrendImproving = "improving"
	ScoreTrendDeclining = "declining"
	ScoreTrendSteady    = "steady"
)

// FlagBreakdownEntry: one bucket per distinct flag id in the window.
// Percentage is relative to the total flagged-message count, so a message
// carrying multiple flags contributes to multiple buckets and the raw sum
// across buckets may exceed 100.
type FlagBreakdownEntry struct {
	FlagID     int      `json:"flag_id"`
	FlagName   string   `json:"flag_name"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"`
	MessageIDs []string `json:"message_ids"`
}

type FlagTrend struct {
	FlagID        int            `json:"flag_id"`
	FlagName      string         `json:"flag_name"`
	PreviousCount int            `json:"previous_count"`
	CurrentCount  int            `json:"current_count"`
	ChangePercent float64        `json:"change_percent"`
	Direction     TrendDirection `json:"direction"`
}

type PartnerSummary struct {
	PartnerID         string         `json:"partner_id"`
	MessagesExchanged int            `json:"messages_exchanged"`
	FlagCount         int            `json:"flag_count"`
	Trend             TrendDirection `json:"trend"`
}

type ScorePoint struct {
	PeriodStart time.Time `json:"period_start"`
	Score       int       `json:"score"`
}

// ChartMetadata carries the pre-bucketed series the report page renders.
// CurrentSeries and PreviousSeries are equal length and calendar-aligned:
// index i is the same weekday (weekly) or day-of-month (monthly) in both
// periods, never a raw array-offset alignment.
type ChartMetadata struct {
	BucketLabels   []string     `json:"bucket_labels"`
	CurrentSeries  []int        `json:"current_series"`
	PreviousSeries []int        `json:"previous_series"`
	FlagSeries     map[string][]int `json:"flag_series"`
	ScoreHistory   []ScorePoint `json:"score_history"`
}

type MessageExample struct {
	ChannelID     string  `json:"channel_id"`
	MessageTS     string  `json:"message_ts"`
	Text          string  `json:"text"`
	FlagIDs       []int   `json:"flag_ids"`
	SeverityScore float64 `json:"severity_score"`
}

// ReportData is the aggregated payload stored as JSONB alongside the report
// row and returned verbatim from the public report endpoint.
type ReportData struct {
	TotalMessages   int                  `json:"total_messages"`
	FlaggedMessages int                  `json:"flagged_messages"`
	FlagBreakdown   []FlagBreakdownEntry `json:"flag_breakdown"`
	Trends          []FlagTrend          `json:"trends"`
	PartnerAnalysis []PartnerSummary     `json:"partner_analysis"`
	ChartMetadata   ChartMetadata        `json:"chart_metadata"`
	MessageExamples []MessageExample     `json:"message_examples"`
	Recommendations []string             `json:"recommendations"`
	Insights        []string             `json:"insights"`
	Achievements    []string             `json:"achievements"`
}

// Value implements driver.Valuer so ReportData persists as JSONB.
func (d ReportData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner for the JSONB column.
func (d *ReportData) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	case nil:
		*d = ReportData{}
		return nil
	default:
		return fmt.Errorf("unsupported type for ReportData: %T", src)
	}
}

// Report is one generated communication report. Created once per
// (user, period, period window) by the scheduler, never mutated afterwards.
// ReportToken is the sole access key for the public report URL.
type Report struct {
	ID                 string       `db:"id"                  json:"id"`
	ReportToken        string       `db:"report_token"        json:"report_token"`
	WorkspaceID        string       `db:"workspace_id"        json:"workspace_id"`
	SlackUserID        string       `db:"slack_user_id"       json:"slack_user_id"`
	Period             ReportPeriod `db:"period"              json:"period"`
	PeriodStart        time.Time    `db:"period_start"        json:"period_start"`
	PeriodEnd          time.Time    `db:"period_end"          json:"period_end"`
	CommunicationScore int          `db:"communication_score" json:"communication_score"`
	PreviousScore      *int         `db:"previous_score"      json:"previous_score"`
	ScoreChange        int          `db:"score_change"        json:"score_change"`
	ScoreTrend         string       `db:"score_trend"         json:"score_trend"`
	Data               ReportData   `db:"data"                json:"data"`
	CreatedAt          time.Time    `db:"created_at"          json:"created_at"`
	ExpiresAt          time.Time    `db:"expires_at"          json:"expires_at"`
}
