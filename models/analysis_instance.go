package models

import (
	"time"

	"github.com/lib/pq"
)

// AnalysisInstance is one flagged message. Messages the analyzer does not flag
// are never persisted - only their daily activity counter is bumped. Instances
// are immutable once created; the report aggregator reads them in bulk.
//
// MessageTS is the Slack message timestamp, kept for permalink deep-linking.
// It is not a primary key: Slack timestamps are only unique per channel.
type AnalysisInstance struct {
	ID            string         `db:"id"             json:"id"`
	WorkspaceID   string         `db:"workspace_id"   json:"workspace_id"`
	SlackUserID   string         `db:"slack_user_id"  json:"slack_user_id"`
	ChannelID     string         `db:"channel_id"     json:"channel_id"`
	MessageTS     string         `db:"message_ts"     json:"message_ts"`
	FlagIDs       pq.Int64Array  `db:"flag_ids"       json:"flag_ids"`
	TargetIDs     pq.StringArray `db:"target_ids"     json:"target_ids"`
	OriginalText  string         `db:"original_text"  json:"original_text"`
	RephrasedText string         `db:"rephrased_text" json:"rephrased_text"`
	CreatedAt     time.Time      `db:"created_at"     json:"created_at"`
}

// MessageActivity is the per-day analyzed-message counter for one user in one
// workspace. It counts every message the analyzer processed, flagged or not,
// and supplies the report aggregator's total-message denominators.
type MessageActivity struct {
	WorkspaceID      string    `db:"workspace_id"      json:"workspace_id"`
	SlackUserID      string    `db:"slack_user_id"     json:"slack_user_id"`
	Day              time.Time `db:"day"               json:"day"`
	MessagesAnalyzed int       `db:"messages_analyzed" json:"messages_analyzed"`
}
