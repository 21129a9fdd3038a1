package reportscheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"claritybackend/models"
	"claritybackend/services"
	"claritybackend/services/reports"
)

// ReportScheduler owns the periodic jobs: weekly and monthly report
// generation plus the hourly billing rollover sweep. Report uniqueness per
// (user, period, window) is enforced by the storage layer, so a job that
// fires twice - or overlaps a retried run - produces no duplicates here.
type ReportScheduler struct {
	cron                *cron.Cron
	workspacesService   services.WorkspacesService
	analysesService     services.AnalysesService
	reportsService      services.ReportsService
	entitlementsService services.EntitlementsService
}

func NewReportScheduler(
	workspacesService services.WorkspacesService,
	analysesService services.AnalysesService,
	reportsService services.ReportsService,
	entitlementsService services.EntitlementsService,
) *ReportScheduler {
	return &ReportScheduler{
		cron:                cron.New(cron.WithLocation(time.UTC)),
		workspacesService:   workspacesService,
		analysesService:     analysesService,
		reportsService:      reportsService,
		entitlementsService: entitlementsService,
	}
}

// Start registers the cron entries and begins running them. Weekly reports
// fire Monday morning for the completed week, monthly reports on the first
// of the month for the completed month, and the billing sweep every hour.
// Each job runs through wrap so callers can attach alerting and panic
// recovery; pass nil to run jobs bare.
func (s *ReportScheduler) Start(wrap func(taskName string, task func() error) func() error) error {
	if wrap == nil {
		wrap = func(_ string, task func() error) func() error { return task }
	}

	weeklyJob := wrap("WeeklyReportGeneration", func() error {
		return s.runReportGeneration(models.ReportPeriodWeekly)
	})
	if _, err := s.cron.AddFunc("0 6 * * 1", func() { _ = weeklyJob() }); err != nil {
		return fmt.Errorf("failed to schedule weekly report job: %w", err)
	}

	monthlyJob := wrap("MonthlyReportGeneration", func() error {
		return s.runReportGeneration(models.ReportPeriodMonthly)
	})
	if _, err := s.cron.AddFunc("0 6 1 * *", func() { _ = monthlyJob() }); err != nil {
		return fmt.Errorf("failed to schedule monthly report job: %w", err)
	}

	rolloverJob := wrap("BillingRolloverSweep", s.runBillingRollover)
	if _, err := s.cron.AddFunc("0 * * * *", func() { _ = rolloverJob() }); err != nil {
		return fmt.Errorf("failed to schedule billing rollover job: %w", err)
	}

	s.cron.Start()
	log.Printf("✅ Report scheduler started")
	return nil
}

// Stop halts the cron runner, waiting for in-flight jobs to finish.
func (s *ReportScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Printf("🛑 Report scheduler stopped")
}

// runReportGeneration walks every active workspace and generates the period's
// report for each user with flagged messages in the window. One user failing
// never blocks the rest.
func (s *ReportScheduler) runReportGeneration(period models.ReportPeriod) error {
	ctx := context.Background()
	now := time.Now().UTC()
	log.Printf("📋 Starting %s report generation run", period)

	workspaces, err := s.workspacesService.GetActiveWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active workspaces for report run: %w", err)
	}

	generated := 0
	for _, workspace := range workspaces {
		userIDs, err := s.usersWithActivity(ctx, workspace.ID, period, now)
		if err != nil {
			log.Printf("❌ Failed to list active users for workspace %s: %v", workspace.ID, err)
			continue
		}

		for _, userID := range userIDs {
			maybeReport, err := s.reportsService.GenerateReport(ctx, workspace, userID, period, now)
			if err != nil {
				log.Printf("❌ Failed to generate %s report for user %s in workspace %s: %v", period, userID, workspace.ID, err)
				continue
			}
			if maybeReport.IsPresent() {
				generated++
			}
		}
	}

	log.Printf("📋 Completed %s report generation run - %d reports generated across %d workspaces", period, generated, len(workspaces))
	return nil
}

func (s *ReportScheduler) usersWithActivity(
	ctx context.Context,
	workspaceID string,
	period models.ReportPeriod,
	now time.Time,
) ([]string, error) {
	start, end := reports.PeriodWindow(period, now)
	return s.analysesService.GetActiveUserIDsInWindow(ctx, workspaceID, start, end)
}

func (s *ReportScheduler) runBillingRollover() error {
	ctx := context.Background()
	reset, err := s.entitlementsService.ResetExpiredBillingPeriods(ctx)
	if err != nil {
		return fmt.Errorf("billing rollover sweep failed: %w", err)
	}
	if reset > 0 {
		log.Printf("📋 Billing rollover sweep reset %d workspaces", reset)
	}
	return nil
}
