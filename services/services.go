package services

import (
	"context"
	"time"

	"github.com/samber/mo"

	"claritybackend/models"
)

// WorkspacesService defines the interface for workspace lifecycle operations
type WorkspacesService interface {
	UpsertWorkspace(ctx context.Context, slackTeamID, slackTeamName, slackAuthToken string) (*models.Workspace, error)
	GetWorkspaceByID(ctx context.Context, id string) (mo.Option[*models.Workspace], error)
	GetWorkspaceBySlackTeamID(ctx context.Context, slackTeamID string) (mo.Option[*models.Workspace], error)
	GetActiveWorkspaces(ctx context.Context) ([]*models.Workspace, error)
	DeactivateWorkspace(ctx context.Context, id string) error
}

// EntitlementsService gates feature use against a workspace's subscription.
//
// CheckAccess never returns an error: storage failures are logged and
// converted to a fail-closed denial, and an entitlement denial is a normal
// negative result, not an error.
type EntitlementsService interface {
	CheckAccess(ctx context.Context, workspaceID string, feature models.Feature) models.AccessResult
	RecordUsage(ctx context.Context, workspaceID string, feature models.Feature) error
	ApplySubscriptionChange(ctx context.Context, workspaceID string, sub models.Subscription) error
	ResetExpiredBillingPeriods(ctx context.Context) (int64, error)
}

// CoachingFlagsService manages a user's coaching flag list
type CoachingFlagsService interface {
	ListFlagDefinitions(ctx context.Context, workspaceID, slackUserID string) ([]models.FlagDefinition, error)
	CreateFlag(ctx context.Context, workspaceID, slackUserID, name, description string) (*models.CoachingFlag, error)
	SetFlagEnabled(ctx context.Context, workspaceID, slackUserID string, position int, enabled bool) error
	DeleteFlag(ctx context.Context, workspaceID, slackUserID string, position int) error
}

// AnalysesService persists analysis outcomes and activity counters
type AnalysesService interface {
	RecordAnalyzedMessage(ctx context.Context, workspaceID, slackUserID string, at time.Time) error
	CreateAnalysisInstance(ctx context.Context, instance *models.AnalysisInstance) error
	GetInstancesInWindow(ctx context.Context, workspaceID, slackUserID string, start, end time.Time) ([]*models.AnalysisInstance, error)
	GetActivityInWindow(ctx context.Context, workspaceID, slackUserID string, start, end time.Time) ([]*models.MessageActivity, error)
	GetActiveUserIDsInWindow(ctx context.Context, workspaceID string, start, end time.Time) ([]string, error)
}

// ReportsService builds and serves communication reports
type ReportsService interface {
	GenerateReport(
		ctx context.Context,
		workspace *models.Workspace,
		slackUserID string,
		period models.ReportPeriod,
		now time.Time,
	) (mo.Option[*models.Report], error)
	GetReportByToken(ctx context.Context, token string) (mo.Option[*models.Report], error)
	GetLatestReportForUser(
		ctx context.Context,
		workspaceID, slackUserID string,
		period models.ReportPeriod,
	) (mo.Option[*models.Report], error)
}

// TransactionManager runs a function inside a database transaction
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}
