package reports

import (
	"context"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"claritybackend/models"
)

// MockReportsRepository is a mock implementation of ReportsRepository
type MockReportsRepository struct {
	mock.Mock
}

func (m *MockReportsRepository) CreateReport(ctx context.Context, report *models.Report) (bool, error) {
	args := m.Called(ctx, report)
	return args.Bool(0), args.Error(1)
}

func (m *MockReportsRepository) GetReportByToken(
	ctx context.Context,
	token string,
	now time.Time,
) (mo.Option[*models.Report], error) {
	args := m.Called(ctx, token, now)
	return args.Get(0).(mo.Option[*models.Report]), args.Error(1)
}

func (m *MockReportsRepository) GetRecentReports(
	ctx context.Context,
	workspaceID, slackUserID string,
	period models.ReportPeriod,
	before time.Time,
	limit int,
) ([]*models.Report, error) {
	args := m.Called(ctx, workspaceID, slackUserID, period, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Report), args.Error(1)
}

func (m *MockReportsRepository) GetLatestReportForUser(
	ctx context.Context,
	workspaceID, slackUserID string,
	period models.ReportPeriod,
	now time.Time,
) (mo.Option[*models.Report], error) {
	args := m.Called(ctx, workspaceID, slackUserID, period, now)
	return args.Get(0).(mo.Option[*models.Report]), args.Error(1)
}
