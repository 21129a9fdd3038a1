package workspaces

import (
	"context"
	"fmt"
	"log"

	"github.com/samber/mo"

	"claritybackend/core"
	"claritybackend/db"
	"claritybackend/models"
)

type WorkspacesService struct {
	workspacesRepo *db.PostgresWorkspacesRepository
}

func NewWorkspacesService(repo *db.PostgresWorkspacesRepository) *WorkspacesService {
	return &WorkspacesService{workspacesRepo: repo}
}

// UpsertWorkspace creates or reactivates the workspace for a Slack team.
// Reinstalls refresh the team name and bot token and flip the workspace back
// to active; subscription state survives a reinstall untouched.
func (s *WorkspacesService) UpsertWorkspace(
	ctx context.Context,
	slackTeamID, slackTeamName, slackAuthToken string,
) (*models.Workspace, error) {
	log.Printf("📋 Starting to upsert workspace for team: %s", slackTeamID)
	if slackTeamID == "" {
		return nil, fmt.Errorf("slack team ID cannot be empty")
	}
	if slackAuthToken == "" {
		return nil, fmt.Errorf("slack auth token cannot be empty")
	}

	workspace := &models.Workspace{
		ID:             core.NewID("ws"),
		SlackTeamID:    slackTeamID,
		SlackTeamName:  slackTeamName,
		SlackAuthToken: slackAuthToken,
		Active:         true,
	}

	if err := s.workspacesRepo.CreateWorkspace(ctx, workspace); err != nil {
		return nil, fmt.Errorf("failed to upsert workspace: %w", err)
	}

	// The upsert may have kept an existing row's ID; read back the canonical state.
	maybeWorkspace, err := s.workspacesRepo.GetWorkspaceBySlackTeamID(ctx, slackTeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back workspace: %w", err)
	}
	if !maybeWorkspace.IsPresent() {
		return nil, fmt.Errorf("workspace disappeared after upsert")
	}

	result := maybeWorkspace.MustGet()
	log.Printf("📋 Completed successfully - upserted workspace %s for team %s", result.ID, slackTeamID)
	return result, nil
}

func (s *WorkspacesService) GetWorkspaceByID(
	ctx context.Context,
	id string,
) (mo.Option[*models.Workspace], error) {
	log.Printf("📋 Starting to get workspace by ID: %s", id)
	if !core.IsValidULID(id) {
		return mo.None[*models.Workspace](), fmt.Errorf("workspace ID must be a valid ULID")
	}

	workspace, err := s.workspacesRepo.GetWorkspaceByID(ctx, id)
	if err != nil {
		return mo.None[*models.Workspace](), fmt.Errorf("failed to get workspace by ID: %w", err)
	}

	if workspace.IsPresent() {
		log.Printf("📋 Completed successfully - retrieved workspace with ID: %s", id)
	} else {
		log.Printf("📋 Completed successfully - workspace not found with ID: %s", id)
	}
	return workspace, nil
}

func (s *WorkspacesService) GetWorkspaceBySlackTeamID(
	ctx context.Context,
	slackTeamID string,
) (mo.Option[*models.Workspace], error) {
	log.Printf("📋 Starting to get workspace by slack team ID: %s", slackTeamID)
	if slackTeamID == "" {
		return mo.None[*models.Workspace](), fmt.Errorf("slack team ID cannot be empty")
	}

	workspace, err := s.workspacesRepo.GetWorkspaceBySlackTeamID(ctx, slackTeamID)
	if err != nil {
		return mo.None[*models.Workspace](), fmt.Errorf("failed to get workspace by slack team ID: %w", err)
	}

	if workspace.IsPresent() {
		log.Printf("📋 Completed successfully - retrieved workspace for team: %s", slackTeamID)
	} else {
		log.Printf("📋 Completed successfully - workspace not found for team: %s", slackTeamID)
	}
	return workspace, nil
}

func (s *WorkspacesService) GetActiveWorkspaces(ctx context.Context) ([]*models.Workspace, error) {
	log.Printf("📋 Starting to get active workspaces")

	workspaces, err := s.workspacesRepo.GetActiveWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active workspaces: %w", err)
	}

	log.Printf("📋 Completed successfully - retrieved %d active workspaces", len(workspaces))
	return workspaces, nil
}

func (s *WorkspacesService) DeactivateWorkspace(ctx context.Context, id string) error {
	log.Printf("📋 Starting to deactivate workspace: %s", id)
	if !core.IsValidULID(id) {
		return fmt.Errorf("workspace ID must be a valid ULID")
	}

	if err := s.workspacesRepo.DeactivateWorkspace(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate workspace: %w", err)
	}

	log.Printf("📋 Completed successfully - deactivated workspace: %s", id)
	return nil
}
