package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/samber/mo"

	"claritybackend/clients"
	"claritybackend/core"
	"claritybackend/models"
	"claritybackend/services"
)

// ReportsRepository is the slice of the report store this service needs.
// Satisfied by *db.PostgresReportsRepository.
type ReportsRepository interface {
	CreateReport(ctx context.Context, report *models.Report) (bool, error)
	GetReportByToken(ctx context.Context, token string, now time.Time) (mo.Option[*models.Report], error)
	GetRecentReports(ctx context.Context, workspaceID, slackUserID string, period models.ReportPeriod, before time.Time, limit int) ([]*models.Report, error)
	GetLatestReportForUser(ctx context.Context, workspaceID, slackUserID string, period models.ReportPeriod, now time.Time) (mo.Option[*models.Report], error)
}

// ReportsService builds and persists communication reports. The aggregation
// itself is the pure BuildReport; this service gathers its inputs, asks the
// coach for narrative sections when the tier includes them, and writes the
// result exactly once per (user, period, window).
type ReportsService struct {
	reportsRepo  ReportsRepository
	analyses     services.AnalysesService
	flagsService services.CoachingFlagsService
	coachClient  clients.CoachClient
}

func NewReportsService(
	reportsRepo ReportsRepository,
	analyses services.AnalysesService,
	flagsService services.CoachingFlagsService,
	coachClient clients.CoachClient,
) *ReportsService {
	return &ReportsService{
		reportsRepo:  reportsRepo,
		analyses:     analyses,
		flagsService: flagsService,
		coachClient:  coachClient,
	}
}

// GenerateReport builds the report for the most recent completed window of
// the period type before now. Returns None when the user had no activity in
// the window or a report for the window already exists - a retried job is a
// no-op, at-most-once is enforced by the storage layer's unique index.
func (s *ReportsService) GenerateReport(
	ctx context.Context,
	workspace *models.Workspace,
	slackUserID string,
	period models.ReportPeriod,
	now time.Time,
) (mo.Option[*models.Report], error) {
	if workspace == nil {
		return mo.None[*models.Report](), fmt.Errorf("workspace cannot be nil")
	}
	if period != models.ReportPeriodWeekly && period != models.ReportPeriodMonthly {
		return mo.None[*models.Report](), fmt.Errorf("unknown report period: %s", period)
	}

	start, end := PeriodWindow(period, now)
	log.Printf("📋 Starting to generate %s report for user %s, window %s to %s", period, slackUserID, start, end)

	instances, err := s.analyses.GetInstancesInWindow(ctx, workspace.ID, slackUserID, start, end)
	if err != nil {
		return mo.None[*models.Report](), fmt.Errorf("failed to load instances: %w", err)
	}

	activity, err := s.analyses.GetActivityInWindow(ctx, workspace.ID, slackUserID, start, end)
	if err != nil {
		return mo.None[*models.Report](), fmt.Errorf("failed to load activity: %w", err)
	}
	totalMessages := 0
	for _, day := range activity {
		totalMessages += day.MessagesAnalyzed
	}

	if totalMessages == 0 && len(instances) == 0 {
		log.Printf("📋 Completed successfully - no activity for user %s in window, skipping report", slackUserID)
		return mo.None[*models.Report](), nil
	}

	flagDefs, err := s.flagsService.ListFlagDefinitions(ctx, workspace.ID, slackUserID)
	if err != nil {
		return mo.None[*models.Report](), fmt.Errorf("failed to load flag definitions: %w", err)
	}

	previous, err := s.reportsRepo.GetRecentReports(ctx, workspace.ID, slackUserID, period, start, 2)
	if err != nil {
		return mo.None[*models.Report](), fmt.Errorf("failed to load previous reports: %w", err)
	}

	input := ReportInput{
		WorkspaceID:   workspace.ID,
		SlackUserID:   slackUserID,
		Period:        period,
		PeriodStart:   start,
		PeriodEnd:     end,
		TotalMessages: totalMessages,
		Instances:     instances,
		Flags:         flagDefs,
		Upstream:      s.fetchUpstreamInsights(ctx, workspace, totalMessages, instances, flagDefs),
		Previous:      previous,
	}

	built, err := BuildReport(input)
	if err != nil {
		return mo.None[*models.Report](), fmt.Errorf("failed to build report: %w", err)
	}

	token, err := core.NewReportToken()
	if err != nil {
		return mo.None[*models.Report](), fmt.Errorf("failed to generate report token: %w", err)
	}

	report := &models.Report{
		ID:                 core.NewID("rep"),
		ReportToken:        token,
		WorkspaceID:        workspace.ID,
		SlackUserID:        slackUserID,
		Period:             period,
		PeriodStart:        start,
		PeriodEnd:          end,
		CommunicationScore: built.Score,
		PreviousScore:      built.PreviousScore,
		ScoreChange:        built.ScoreChange,
		ScoreTrend:         built.ScoreTrend,
		Data:               built.Data,
		CreatedAt:          now,
		ExpiresAt:          now.Add(models.ReportTTL),
	}

	created, err := s.reportsRepo.CreateReport(ctx, report)
	if err != nil {
		return mo.None[*models.Report](), fmt.Errorf("failed to persist report: %w", err)
	}
	if !created {
		log.Printf("📋 Completed successfully - report already exists for user %s, window %s", slackUserID, start)
		return mo.None[*models.Report](), nil
	}

	log.Printf("📋 Completed successfully - generated %s report %s for user %s, score %d", period, report.ID, slackUserID, built.Score)
	return mo.Some(report), nil
}

// fetchUpstreamInsights asks the coach for narrative sections when the tier
// includes personal feedback. Any failure degrades to nil: the aggregator's
// local fallbacks take over and the report still renders fully.
func (s *ReportsService) fetchUpstreamInsights(
	ctx context.Context,
	workspace *models.Workspace,
	totalMessages int,
	instances []*models.AnalysisInstance,
	flagDefs []models.FlagDefinition,
) *UpstreamReportPayload {
	if s.coachClient == nil {
		return nil
	}
	if !models.PlanForTier(workspace.EntitledTier()).Grants(models.FeaturePersonalFeedback) {
		return nil
	}

	breakdown := flagBreakdown(instances, flagDefs)
	topFlags := make([]string, 0, 3)
	for i, entry := range breakdown {
		if i >= 3 {
			break
		}
		topFlags = append(topFlags, entry.FlagName)
	}

	exampleTexts := make([]string, 0, maxExamples)
	for i, instance := range instances {
		if i >= maxExamples {
			break
		}
		exampleTexts = append(exampleTexts, instance.OriginalText)
	}

	raw, err := s.coachClient.GenerateReportInsights(ctx, clients.ReportInsightsRequest{
		CommunicationScore: communicationScore(max(totalMessages, len(instances)), instances, flagDefs),
		TotalMessages:      totalMessages,
		FlaggedMessages:    len(instances),
		TopFlags:           topFlags,
		ExampleTexts:       exampleTexts,
	})
	if err != nil {
		log.Printf("⚠️ Failed to generate upstream report insights, falling back to local: %v", err)
		return nil
	}

	payload := &UpstreamReportPayload{}
	if err := json.Unmarshal(raw, payload); err != nil {
		log.Printf("⚠️ Upstream report insights were not valid JSON, falling back to local: %v", err)
		return nil
	}
	return payload
}

// GetReportByToken resolves a public report URL. Expired or unknown tokens
// are both None - readers cannot distinguish the two.
func (s *ReportsService) GetReportByToken(
	ctx context.Context,
	token string,
) (mo.Option[*models.Report], error) {
	log.Printf("📋 Starting to get report by token")
	if !core.IsValidReportToken(token) {
		return mo.None[*models.Report](), nil
	}

	report, err := s.reportsRepo.GetReportByToken(ctx, token, time.Now())
	if err != nil {
		return mo.None[*models.Report](), fmt.Errorf("failed to get report by token: %w", err)
	}

	if report.IsPresent() {
		log.Printf("📋 Completed successfully - retrieved report by token")
	} else {
		log.Printf("📋 Completed successfully - report not found for token")
	}
	return report, nil
}

func (s *ReportsService) GetLatestReportForUser(
	ctx context.Context,
	workspaceID, slackUserID string,
	period models.ReportPeriod,
) (mo.Option[*models.Report], error) {
	log.Printf("📋 Starting to get latest %s report for user %s", period, slackUserID)

	report, err := s.reportsRepo.GetLatestReportForUser(ctx, workspaceID, slackUserID, period, time.Now())
	if err != nil {
		return mo.None[*models.Report](), fmt.Errorf("failed to get latest report: %w", err)
	}

	return report, nil
}
