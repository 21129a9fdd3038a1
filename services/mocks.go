package services

import (
	"context"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"claritybackend/models"
)

// MockWorkspacesService is a mock implementation of WorkspacesService
type MockWorkspacesService struct {
	mock.Mock
}

func (m *MockWorkspacesService) UpsertWorkspace(
	ctx context.Context,
	slackTeamID, slackTeamName, slackAuthToken string,
) (*models.Workspace, error) {
	args := m.Called(ctx, slackTeamID, slackTeamName, slackAuthToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workspace), args.Error(1)
}

func (m *MockWorkspacesService) GetWorkspaceByID(
	ctx context.Context,
	id string,
) (mo.Option[*models.Workspace], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(mo.Option[*models.Workspace]), args.Error(1)
}

func (m *MockWorkspacesService) GetWorkspaceBySlackTeamID(
	ctx context.Context,
	slackTeamID string,
) (mo.Option[*models.Workspace], error) {
	args := m.Called(ctx, slackTeamID)
	return args.Get(0).(mo.Option[*models.Workspace]), args.Error(1)
}

func (m *MockWorkspacesService) GetActiveWorkspaces(ctx context.Context) ([]*models.Workspace, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Workspace), args.Error(1)
}

func (m *MockWorkspacesService) DeactivateWorkspace(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEntitlementsService is a mock implementation of EntitlementsService
type MockEntitlementsService struct {
	mock.Mock
}

func (m *MockEntitlementsService) CheckAccess(
	ctx context.Context,
	workspaceID string,
	feature models.Feature,
) models.AccessResult {
	args := m.Called(ctx, workspaceID, feature)
	return args.Get(0).(models.AccessResult)
}

func (m *MockEntitlementsService) RecordUsage(
	ctx context.Context,
	workspaceID string,
	feature models.Feature,
) error {
	args := m.Called(ctx, workspaceID, feature)
	return args.Error(0)
}

func (m *MockEntitlementsService) ApplySubscriptionChange(
	ctx context.Context,
	workspaceID string,
	sub models.Subscription,
) error {
	args := m.Called(ctx, workspaceID, sub)
	return args.Error(0)
}

func (m *MockEntitlementsService) ResetExpiredBillingPeriods(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockCoachingFlagsService is a mock implementation of CoachingFlagsService
type MockCoachingFlagsService struct {
	mock.Mock
}

func (m *MockCoachingFlagsService) ListFlagDefinitions(
	ctx context.Context,
	workspaceID, slackUserID string,
) ([]models.FlagDefinition, error) {
	args := m.Called(ctx, workspaceID, slackUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FlagDefinition), args.Error(1)
}

func (m *MockCoachingFlagsService) CreateFlag(
	ctx context.Context,
	workspaceID, slackUserID, name, description string,
) (*models.CoachingFlag, error) {
	args := m.Called(ctx, workspaceID, slackUserID, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CoachingFlag), args.Error(1)
}

func (m *MockCoachingFlagsService) SetFlagEnabled(
	ctx context.Context,
	workspaceID, slackUserID string,
	position int,
	enabled bool,
) error {
	args := m.Called(ctx, workspaceID, slackUserID, position, enabled)
	return args.Error(0)
}

func (m *MockCoachingFlagsService) DeleteFlag(
	ctx context.Context,
	workspaceID, slackUserID string,
	position int,
) error {
	args := m.Called(ctx, workspaceID, slackUserID, position)
	return args.Error(0)
}

// MockAnalysesService is a mock implementation of AnalysesService
type MockAnalysesService struct {
	mock.Mock
}

func (m *MockAnalysesService) RecordAnalyzedMessage(
	ctx context.Context,
	workspaceID, slackUserID string,
	at time.Time,
) error {
	args := m.Called(ctx, workspaceID, slackUserID, at)
	return args.Error(0)
}

func (m *MockAnalysesService) CreateAnalysisInstance(
	ctx context.Context,
	instance *models.AnalysisInstance,
) error {
	args := m.Called(ctx, instance)
	return args.Error(0)
}

func (m *MockAnalysesService) GetInstancesInWindow(
	ctx context.Context,
	workspaceID, slackUserID string,
	start, end time.Time,
) ([]*models.AnalysisInstance, error) {
	args := m.Called(ctx, workspaceID, slackUserID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AnalysisInstance), args.Error(1)
}

func (m *MockAnalysesService) GetActivityInWindow(
	ctx context.Context,
	workspaceID, slackUserID string,
	start, end time.Time,
) ([]*models.MessageActivity, error) {
	args := m.Called(ctx, workspaceID, slackUserID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MessageActivity), args.Error(1)
}

func (m *MockAnalysesService) GetActiveUserIDsInWindow(
	ctx context.Context,
	workspaceID string,
	start, end time.Time,
) ([]string, error) {
	args := m.Called(ctx, workspaceID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockReportsService is a mock implementation of ReportsService
type MockReportsService struct {
	mock.Mock
}

func (m *MockReportsService) GenerateReport(
	ctx context.Context,
	workspace *models.Workspace,
	slackUserID string,
	period models.ReportPeriod,
	now time.Time,
) (mo.Option[*models.Report], error) {
	args := m.Called(ctx, workspace, slackUserID, period, now)
	return args.Get(0).(mo.Option[*models.Report]), args.Error(1)
}

func (m *MockReportsService) GetReportByToken(
	ctx context.Context,
	token string,
) (mo.Option[*models.Report], error) {
	args := m.Called(ctx, token)
	return args.Get(0).(mo.Option[*models.Report]), args.Error(1)
}

func (m *MockReportsService) GetLatestReportForUser(
	ctx context.Context,
	workspaceID, slackUserID string,
	period models.ReportPeriod,
) (mo.Option[*models.Report], error) {
	args := m.Called(ctx, workspaceID, slackUserID, period)
	return args.Get(0).(mo.Option[*models.Report]), args.Error(1)
}

// MockTransactionManager is a mock implementation of TransactionManager that
// simply executes the function without a real transaction.
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	for _, call := range m.ExpectedCalls {
		if call.Method == "WithTransaction" {
			args := m.Called(ctx, fn)
			if args.Error(0) != nil {
				return args.Error(0)
			}
			break
		}
	}
	return fn(ctx)
}
