package reports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"claritybackend/clients"
	"claritybackend/core"
	"claritybackend/models"
	"claritybackend/services"
)

// Wednesday March 11th 2026; the completed week is Mar 2 to Mar 9.
var generateNow = time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC)

func freeWorkspace() *models.Workspace {
	periodStart := generateNow.AddDate(0, 0, -5)
	periodEnd := generateNow.AddDate(0, 0, 25)
	workspace := &models.Workspace{
		ID:            core.NewID("ws"),
		SlackTeamID:   "T123456",
		SlackTeamName: "Acme",
		Active:        true,
	}
	workspace.Tier = models.SubscriptionTierFree
	workspace.Status = models.SubscriptionStatusActive
	workspace.CurrentPeriodStart = &periodStart
	workspace.CurrentPeriodEnd = &periodEnd
	return workspace
}

func proWorkspace() *models.Workspace {
	workspace := freeWorkspace()
	workspace.Tier = models.SubscriptionTierPro
	return workspace
}

func setupReportsService(coachClient clients.CoachClient) (
	*ReportsService,
	*MockReportsRepository,
	*services.MockAnalysesService,
	*services.MockCoachingFlagsService,
) {
	mockRepo := new(MockReportsRepository)
	mockAnalyses := new(services.MockAnalysesService)
	mockFlags := new(services.MockCoachingFlagsService)
	service := NewReportsService(mockRepo, mockAnalyses, mockFlags, coachClient)
	return service, mockRepo, mockAnalyses, mockFlags
}

func TestGenerateReport(t *testing.T) {
	windowStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		service, mockRepo, mockAnalyses, mockFlags := setupReportsService(nil)
		workspace := freeWorkspace()

		instances := []*models.AnalysisInstance{
			flaggedInstance("ai_1", windowStart.Add(26*time.Hour), []int64{1}),
		}
		activity := []*models.MessageActivity{
			{WorkspaceID: workspace.ID, SlackUserID: "U111111", Day: windowStart, MessagesAnalyzed: 10},
		}

		mockAnalyses.On("GetInstancesInWindow", mock.Anything, workspace.ID, "U111111", windowStart, windowEnd).
			Return(instances, nil)
		mockAnalyses.On("GetActivityInWindow", mock.Anything, workspace.ID, "U111111", windowStart, windowEnd).
			Return(activity, nil)
		mockFlags.On("ListFlagDefinitions", mock.Anything, workspace.ID, "U111111").
			Return(models.DefaultCoachingFlags(), nil)
		mockRepo.On("GetRecentReports", mock.Anything, workspace.ID, "U111111", models.ReportPeriodWeekly, windowStart, 2).
			Return([]*models.Report{}, nil)
		mockRepo.On("CreateReport", mock.Anything, mock.MatchedBy(func(report *models.Report) bool {
			return report.WorkspaceID == workspace.ID &&
				report.SlackUserID == "U111111" &&
				report.Period == models.ReportPeriodWeekly &&
				report.PeriodStart.Equal(windowStart) &&
				report.PeriodEnd.Equal(windowEnd) &&
				core.IsValidReportToken(report.ReportToken) &&
				report.CreatedAt.Equal(generateNow) &&
				report.ExpiresAt.Equal(report.CreatedAt.Add(models.ReportTTL))
		})).Return(true, nil)

		maybeReport, err := service.GenerateReport(context.Background(), workspace, "U111111", models.ReportPeriodWeekly, generateNow)

		require.NoError(t, err)
		require.True(t, maybeReport.IsPresent())
		report := maybeReport.MustGet()
		assert.Equal(t, 10, report.Data.TotalMessages)
		assert.Equal(t, 1, report.Data.FlaggedMessages)
		assert.Equal(t, 93, report.CommunicationScore) // 100 * (1 - 0.7/10)
		mockRepo.AssertExpectations(t)
	})

	t.Run("NoActivity_Skipped", func(t *testing.T) {
		service, mockRepo, mockAnalyses, _ := setupReportsService(nil)
		workspace := freeWorkspace()

		mockAnalyses.On("GetInstancesInWindow", mock.Anything, workspace.ID, "U111111", windowStart, windowEnd).
			Return([]*models.AnalysisInstance{}, nil)
		mockAnalyses.On("GetActivityInWindow", mock.Anything, workspace.ID, "U111111", windowStart, windowEnd).
			Return([]*models.MessageActivity{}, nil)

		maybeReport, err := service.GenerateReport(context.Background(), workspace, "U111111", models.ReportPeriodWeekly, generateNow)

		require.NoError(t, err)
		assert.False(t, maybeReport.IsPresent())
		mockRepo.AssertNotCalled(t, "CreateReport", mock.Anything, mock.Anything)
	})

	t.Run("AlreadyExists_None", func(t *testing.T) {
		service, mockRepo, mockAnalyses, mockFlags := setupReportsService(nil)
		workspace := freeWorkspace()

		instances := []*models.AnalysisInstance{
			flaggedInstance("ai_1", windowStart.Add(26*time.Hour), []int64{1}),
		}

		mockAnalyses.On("GetInstancesInWindow", mock.Anything, workspace.ID, "U111111", windowStart, windowEnd).
			Return(instances, nil)
		mockAnalyses.On("GetActivityInWindow", mock.Anything, workspace.ID, "U111111", windowStart, windowEnd).
			Return([]*models.MessageActivity{}, nil)
		mockFlags.On("ListFlagDefinitions", mock.Anything, workspace.ID, "U111111").
			Return(models.DefaultCoachingFlags(), nil)
		mockRepo.On("GetRecentReports", mock.Anything, workspace.ID, "U111111", models.ReportPeriodWeekly, windowStart, 2).
			Return([]*models.Report{}, nil)
		mockRepo.On("CreateReport", mock.Anything, mock.Anything).Return(false, nil)

		maybeReport, err := service.GenerateReport(context.Background(), workspace, "U111111", models.ReportPeriodWeekly, generateNow)

		require.NoError(t, err)
		assert.False(t, maybeReport.IsPresent())
	})

	t.Run("UpstreamFailure_FallsBackToLocal", func(t *testing.T) {
		mockCoach := new(clients.MockCoachClient)
		service, mockRepo, mockAnalyses, mockFlags := setupReportsService(mockCoach)
		workspace := proWorkspace()

		instances := []*models.AnalysisInstance{
			flaggedInstance("ai_1", windowStart.Add(26*time.Hour), []int64{1}),
		}

		mockAnalyses.On("GetInstancesInWindow", mock.Anything, workspace.ID, "U111111", windowStart, windowEnd).
			Return(instances, nil)
		mockAnalyses.On("GetActivityInWindow", mock.Anything, workspace.ID, "U111111", windowStart, windowEnd).
			Return([]*models.MessageActivity{}, nil)
		mockFlags.On("ListFlagDefinitions", mock.Anything, workspace.ID, "U111111").
			Return(models.DefaultCoachingFlags(), nil)
		mockRepo.On("GetRecentReports", mock.Anything, workspace.ID, "U111111", models.ReportPeriodWeekly, windowStart, 2).
			Return([]*models.Report{}, nil)
		mockCoach.On("GenerateReportInsights", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("model overloaded"))
		mockRepo.On("CreateReport", mock.Anything, mock.Anything).Return(true, nil)

		maybeReport, err := service.GenerateReport(context.Background(), workspace, "U111111", models.ReportPeriodWeekly, generateNow)

		require.NoError(t, err)
		require.True(t, maybeReport.IsPresent())
		assert.NotEmpty(t, maybeReport.MustGet().Data.Recommendations)
		mockCoach.AssertExpectations(t)
	})

	t.Run("FreeTier_NoUpstreamCall", func(t *testing.T) {
		mockCoach := new(clients.MockCoachClient)
		service, mockRepo, mockAnalyses, mockFlags := setupReportsService(mockCoach)
		workspace := freeWorkspace()

		instances := []*models.AnalysisInstance{
			flaggedInstance("ai_1", windowStart.Add(26*time.Hour), []int64{1}),
		}

		mockAnalyses.On("GetInstancesInWindow", mock.Anything, workspace.ID, "U111111", windowStart, windowEnd).
			Return(instances, nil)
		mockAnalyses.On("GetActivityInWindow", mock.Anything, workspace.ID, "U111111", windowStart, windowEnd).
			Return([]*models.MessageActivity{}, nil)
		mockFlags.On("ListFlagDefinitions", mock.Anything, workspace.ID, "U111111").
			Return(models.DefaultCoachingFlags(), nil)
		mockRepo.On("GetRecentReports", mock.Anything, workspace.ID, "U111111", models.ReportPeriodWeekly, windowStart, 2).
			Return([]*models.Report{}, nil)
		mockRepo.On("CreateReport", mock.Anything, mock.Anything).Return(true, nil)

		_, err := service.GenerateReport(context.Background(), workspace, "U111111", models.ReportPeriodWeekly, generateNow)

		require.NoError(t, err)
		mockCoach.AssertNotCalled(t, "GenerateReportInsights", mock.Anything, mock.Anything)
	})

	t.Run("LapsedProTier_NoUpstreamCall", func(t *testing.T) {
		mockCoach := new(clients.MockCoachClient)
		service, mockRepo, mockAnalyses, mockFlags := setupReportsService(mockCoach)
		workspace := proWorkspace()
		workspace.Status = models.SubscriptionStatusCanceled

		instances := []*models.AnalysisInstance{
			flaggedInstance("ai_1", windowStart.Add(26*time.Hour), []int64{1}),
		}

		mockAnalyses.On("GetInstancesInWindow", mock.Anything, workspace.ID, "U111111", windowStart, windowEnd).
			Return(instances, nil)
		mockAnalyses.On("GetActivityInWindow", mock.Anything, workspace.ID, "U111111", windowStart, windowEnd).
			Return([]*models.MessageActivity{}, nil)
		mockFlags.On("ListFlagDefinitions", mock.Anything, workspace.ID, "U111111").
			Return(models.DefaultCoachingFlags(), nil)
		mockRepo.On("GetRecentReports", mock.Anything, workspace.ID, "U111111", models.ReportPeriodWeekly, windowStart, 2).
			Return([]*models.Report{}, nil)
		mockRepo.On("CreateReport", mock.Anything, mock.Anything).Return(true, nil)

		_, err := service.GenerateReport(context.Background(), workspace, "U111111", models.ReportPeriodWeekly, generateNow)

		require.NoError(t, err)
		mockCoach.AssertNotCalled(t, "GenerateReportInsights", mock.Anything, mock.Anything)
	})

	t.Run("NilWorkspace_Error", func(t *testing.T) {
		service, _, _, _ := setupReportsService(nil)
		_, err := service.GenerateReport(context.Background(), nil, "U111111", models.ReportPeriodWeekly, generateNow)
		require.Error(t, err)
	})

	t.Run("UnknownPeriod_Error", func(t *testing.T) {
		service, _, _, _ := setupReportsService(nil)
		_, err := service.GenerateReport(context.Background(), freeWorkspace(), "U111111", models.ReportPeriod("daily"), generateNow)
		require.Error(t, err)
	})
}

func TestGetReportByToken(t *testing.T) {
	t.Run("MalformedToken_NoneWithoutLookup", func(t *testing.T) {
		service, mockRepo, _, _ := setupReportsService(nil)

		maybeReport, err := service.GetReportByToken(context.Background(), "not-a-token")

		require.NoError(t, err)
		assert.False(t, maybeReport.IsPresent())
		mockRepo.AssertNotCalled(t, "GetReportByToken", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ValidToken", func(t *testing.T) {
		service, mockRepo, _, _ := setupReportsService(nil)

		token, err := core.NewReportToken()
		require.NoError(t, err)
		report := &models.Report{ID: core.NewID("rep"), ReportToken: token}

		mockRepo.On("GetReportByToken", mock.Anything, token, mock.Anything).
			Return(mo.Some(report), nil)

		maybeReport, err := service.GetReportByToken(context.Background(), token)

		require.NoError(t, err)
		require.True(t, maybeReport.IsPresent())
		assert.Equal(t, report.ID, maybeReport.MustGet().ID)
	})
}
