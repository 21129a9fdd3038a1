package analyses

import (
	"context"
	"fmt"
	"log"
	"time"

	"claritybackend/core"
	"claritybackend/db"
	"claritybackend/models"
)

// AnalysesService persists flagged-message records and the per-day analyzed
// message counters the report aggregator later reads in bulk.
type AnalysesService struct {
	instancesRepo *db.PostgresAnalysisInstancesRepository
	activityRepo  *db.PostgresMessageActivityRepository
}

func NewAnalysesService(
	instancesRepo *db.PostgresAnalysisInstancesRepository,
	activityRepo *db.PostgresMessageActivityRepository,
) *AnalysesService {
	return &AnalysesService{instancesRepo: instancesRepo, activityRepo: activityRepo}
}

// RecordAnalyzedMessage bumps the per-day counter for every message the
// analyzer processed, flagged or not.
func (s *AnalysesService) RecordAnalyzedMessage(
	ctx context.Context,
	workspaceID, slackUserID string,
	at time.Time,
) error {
	if err := s.activityRepo.IncrementMessageCount(ctx, workspaceID, slackUserID, at); err != nil {
		return fmt.Errorf("failed to record analyzed message: %w", err)
	}
	return nil
}

// CreateAnalysisInstance persists one flagged message. Instances are
// immutable once written.
func (s *AnalysesService) CreateAnalysisInstance(
	ctx context.Context,
	instance *models.AnalysisInstance,
) error {
	log.Printf("📋 Starting to create analysis instance for user %s in channel %s", instance.SlackUserID, instance.ChannelID)

	if instance.WorkspaceID == "" || instance.SlackUserID == "" {
		return fmt.Errorf("workspace ID and slack user ID are required")
	}
	if len(instance.FlagIDs) == 0 {
		return fmt.Errorf("analysis instance must carry at least one flag")
	}
	if instance.ID == "" {
		instance.ID = core.NewID("ai")
	}

	if err := s.instancesRepo.CreateAnalysisInstance(ctx, instance); err != nil {
		return fmt.Errorf("failed to create analysis instance: %w", err)
	}

	log.Printf("📋 Completed successfully - created analysis instance %s with %d flags", instance.ID, len(instance.FlagIDs))
	return nil
}

func (s *AnalysesService) GetInstancesInWindow(
	ctx context.Context,
	workspaceID, slackUserID string,
	start, end time.Time,
) ([]*models.AnalysisInstance, error) {
	log.Printf("📋 Starting to get analysis instances for user %s between %s and %s", slackUserID, start, end)

	instances, err := s.instancesRepo.GetInstancesInWindow(ctx, workspaceID, slackUserID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get instances in window: %w", err)
	}

	log.Printf("📋 Completed successfully - retrieved %d analysis instances", len(instances))
	return instances, nil
}

func (s *AnalysesService) GetActivityInWindow(
	ctx context.Context,
	workspaceID, slackUserID string,
	start, end time.Time,
) ([]*models.MessageActivity, error) {
	activity, err := s.activityRepo.GetActivityInWindow(ctx, workspaceID, slackUserID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity in window: %w", err)
	}
	return activity, nil
}

func (s *AnalysesService) GetActiveUserIDsInWindow(
	ctx context.Context,
	workspaceID string,
	start, end time.Time,
) ([]string, error) {
	userIDs, err := s.instancesRepo.GetActiveUserIDsInWindow(ctx, workspaceID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get active user IDs in window: %w", err)
	}
	return userIDs, nil
}
