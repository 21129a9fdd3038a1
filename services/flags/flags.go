package flags

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/samber/mo"

	"claritybackend/core"
	"claritybackend/models"
	"claritybackend/services"
)

// CoachingFlagsRepository is the slice of the flag store this service needs.
// Satisfied by *db.PostgresCoachingFlagsRepository.
type CoachingFlagsRepository interface {
	CreateCoachingFlag(ctx context.Context, flag *models.CoachingFlag) error
	GetCoachingFlags(ctx context.Context, workspaceID, slackUserID string) ([]*models.CoachingFlag, error)
	GetCoachingFlagByPosition(ctx context.Context, workspaceID, slackUserID string, position int) (mo.Option[*models.CoachingFlag], error)
	CountCoachingFlags(ctx context.Context, workspaceID, slackUserID string) (int, error)
	SetCoachingFlagEnabled(ctx context.Context, workspaceID, slackUserID string, position int, enabled bool) error
	DeleteCoachingFlag(ctx context.Context, workspaceID, slackUserID string, position int) error
}

// CoachingFlagsService manages the per-user flag list. Flag ids used by the
// analyzer and the report aggregator are 1-based positions in this list, or
// in the default list when the user has configured nothing.
type CoachingFlagsService struct {
	flagsRepo CoachingFlagsRepository
	txManager services.TransactionManager
}

func NewCoachingFlagsService(repo CoachingFlagsRepository, txManager services.TransactionManager) *CoachingFlagsService {
	return &CoachingFlagsService{flagsRepo: repo, txManager: txManager}
}

// ListFlagDefinitions resolves the active flag list for a user: their custom
// flags when any exist, the built-in defaults otherwise. Custom flags carry
// the default severity weight since users do not rank their own severities.
func (s *CoachingFlagsService) ListFlagDefinitions(
	ctx context.Context,
	workspaceID, slackUserID string,
) ([]models.FlagDefinition, error) {
	log.Printf("📋 Starting to list flag definitions for user %s in workspace %s", slackUserID, workspaceID)

	custom, err := s.flagsRepo.GetCoachingFlags(ctx, workspaceID, slackUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flag definitions: %w", err)
	}

	if len(custom) == 0 {
		log.Printf("📋 Completed successfully - no custom flags, using %d defaults", len(models.DefaultCoachingFlags()))
		return models.DefaultCoachingFlags(), nil
	}

	definitions := make([]models.FlagDefinition, 0, len(custom))
	for _, flag := range custom {
		definitions = append(definitions, models.FlagDefinition{
			ID:          flag.Position,
			Name:        flag.Name,
			Description: flag.Description,
			Enabled:     flag.Enabled,
			Weight:      models.DefaultFlagWeight,
		})
	}

	log.Printf("📋 Completed successfully - listed %d custom flag definitions", len(definitions))
	return definitions, nil
}

func (s *CoachingFlagsService) CreateFlag(
	ctx context.Context,
	workspaceID, slackUserID, name, description string,
) (*models.CoachingFlag, error) {
	log.Printf("📋 Starting to create coaching flag for user %s in workspace %s", slackUserID, workspaceID)

	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" {
		return nil, fmt.Errorf("flag name cannot be empty")
	}
	if len(name) > models.MaxFlagNameLength {
		return nil, fmt.Errorf("flag name must be at most %d characters", models.MaxFlagNameLength)
	}
	if len(description) > models.MaxFlagDescriptionLength {
		return nil, fmt.Errorf("flag description must be at most %d characters", models.MaxFlagDescriptionLength)
	}

	count, err := s.flagsRepo.CountCoachingFlags(ctx, workspaceID, slackUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count coaching flags: %w", err)
	}
	if count >= models.MaxCoachingFlags {
		return nil, fmt.Errorf("flag limit reached: at most %d flags per user", models.MaxCoachingFlags)
	}

	flag := &models.CoachingFlag{
		ID:          core.NewID("flag"),
		WorkspaceID: workspaceID,
		SlackUserID: slackUserID,
		Name:        name,
		Description: description,
		Enabled:     true,
	}

	if err := s.flagsRepo.CreateCoachingFlag(ctx, flag); err != nil {
		return nil, fmt.Errorf("failed to create coaching flag: %w", err)
	}

	log.Printf("📋 Completed successfully - created coaching flag %s", flag.ID)
	return flag, nil
}

func (s *CoachingFlagsService) SetFlagEnabled(
	ctx context.Context,
	workspaceID, slackUserID string,
	position int,
	enabled bool,
) error {
	log.Printf("📋 Starting to set coaching flag %d enabled=%t for user %s", position, enabled, slackUserID)
	if position < 1 {
		return fmt.Errorf("flag position must be at least 1")
	}

	if err := s.flagsRepo.SetCoachingFlagEnabled(ctx, workspaceID, slackUserID, position, enabled); err != nil {
		return fmt.Errorf("failed to set coaching flag enabled: %w", err)
	}

	log.Printf("📋 Completed successfully - set coaching flag %d enabled=%t", position, enabled)
	return nil
}

func (s *CoachingFlagsService) DeleteFlag(
	ctx context.Context,
	workspaceID, slackUserID string,
	position int,
) error {
	log.Printf("📋 Starting to delete coaching flag %d for user %s", position, slackUserID)
	if position < 1 {
		return fmt.Errorf("flag position must be at least 1")
	}

	// Delete and position-shift must land together or not at all.
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.flagsRepo.DeleteCoachingFlag(txCtx, workspaceID, slackUserID, position)
	})
	if err != nil {
		return fmt.Errorf("failed to delete coaching flag: %w", err)
	}

	log.Printf("📋 Completed successfully - deleted coaching flag %d", position)
	return nil
}
