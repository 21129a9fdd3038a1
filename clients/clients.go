package clients

import (
	"context"
	"encoding/json"

	"claritybackend/models"
)

// SlackUser is the slice of a Slack user profile the app cares about.
type SlackUser struct {
	ID          string
	Name        string
	DisplayName string
	RealName    string
}

// SlackClient is the slice of the Slack Web API this app uses. One client is
// created per workspace with that workspace's bot token.
type SlackClient interface {
	// PostEphemeral sends a message only the given user can see. All coaching
	// output is ephemeral - suggestions are private by design.
	PostEphemeral(ctx context.Context, channelID, userID, text string) error
	PostMessage(ctx context.Context, channelID, text string) error
	GetPermalink(channelID, messageTS string) (string, error)
	GetUserInfo(ctx context.Context, userID string) (*SlackUser, error)
}

// AnalyzeMessageRequest asks the coach to evaluate one message against the
// user's active flag list.
type AnalyzeMessageRequest struct {
	Text  string
	Flags []models.FlagDefinition
}

// AnalyzeMessageResult is the coach's verdict. FlagIDs reference 1-based
// positions in the request's flag list. TargetIDs are Slack user ids the
// message was directed at, when the coach could identify any.
type AnalyzeMessageResult struct {
	Flagged   bool
	FlagIDs   []int
	TargetIDs []string
	Rephrase  string
	Coaching  string
}

// ReportInsightsRequest asks the coach to draft free-text report sections
// from the window's aggregates.
type ReportInsightsRequest struct {
	CommunicationScore int
	TotalMessages      int
	FlaggedMessages    int
	TopFlags           []string
	ExampleTexts       []string
}

// CoachClient is the LLM backend. GenerateReportInsights returns the raw
// JSON payload; callers normalize it, since the model's output shape is
// untrusted.
type CoachClient interface {
	AnalyzeMessage(ctx context.Context, req AnalyzeMessageRequest) (*AnalyzeMessageResult, error)
	RephraseMessage(ctx context.Context, text string) (string, error)
	GenerateReportInsights(ctx context.Context, req ReportInsightsRequest) (json.RawMessage, error)
}
