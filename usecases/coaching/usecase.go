package coaching

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"claritybackend/clients"
	slackclient "claritybackend/clients/slack"
	"claritybackend/models"
	"claritybackend/services"
	"claritybackend/utils"
)

// CoachingUseCase drives the live analysis pipeline: entitlement check,
// LLM analysis, persistence and the ephemeral nudge back to the author.
type CoachingUseCase struct {
	workspacesService   services.WorkspacesService
	entitlementsService services.EntitlementsService
	flagsService        services.CoachingFlagsService
	analysesService     services.AnalysesService
	coachClient         clients.CoachClient
	slackClientFactory  func(authToken string) clients.SlackClient
}

// NewCoachingUseCase creates a new instance of CoachingUseCase
func NewCoachingUseCase(
	workspacesService services.WorkspacesService,
	entitlementsService services.EntitlementsService,
	flagsService services.CoachingFlagsService,
	analysesService services.AnalysesService,
	coachClient clients.CoachClient,
) *CoachingUseCase {
	return &CoachingUseCase{
		workspacesService:   workspacesService,
		entitlementsService: entitlementsService,
		flagsService:        flagsService,
		analysesService:     analysesService,
		coachClient:         coachClient,
		slackClientFactory:  slackclient.NewSlackClient,
	}
}

// WithSlackClientFactory overrides how per-workspace Slack clients are built.
func (u *CoachingUseCase) WithSlackClientFactory(
	factory func(authToken string) clients.SlackClient,
) *CoachingUseCase {
	u.slackClientFactory = factory
	return u
}

// ProcessMessageEvent analyzes one Slack message. Quota is consumed only
// after the analysis itself succeeds: an LLM failure leaves the counter
// untouched so the author is not charged for a message that was never coached.
func (u *CoachingUseCase) ProcessMessageEvent(ctx context.Context, event models.SlackMessageEvent) error {
	if event.BotID != "" || event.Subtype != "" {
		return nil
	}
	if strings.TrimSpace(event.Text) == "" || event.User == "" {
		return nil
	}
	if u.coachClient == nil {
		log.Printf("⚠️ Coach client not configured - skipping message analysis")
		return nil
	}
	log.Printf("📋 Starting to process message event from %s in %s", event.User, event.Channel)

	maybeWorkspace, err := u.workspacesService.GetWorkspaceBySlackTeamID(ctx, event.TeamID)
	if err != nil {
		return fmt.Errorf("failed to get workspace for team %s: %w", event.TeamID, err)
	}
	if !maybeWorkspace.IsPresent() {
		log.Printf("⚠️ Received message event for unknown team %s - skipping", event.TeamID)
		return nil
	}
	workspace := maybeWorkspace.MustGet()
	if !workspace.Active {
		log.Printf("⚠️ Workspace %s is deactivated - skipping message event", workspace.ID)
		return nil
	}

	access := u.entitlementsService.CheckAccess(ctx, workspace.ID, models.FeatureAutoCoaching)
	if !access.Allowed {
		log.Printf("🚫 Auto-coaching denied for workspace %s: %s", workspace.ID, access.Reason)
		return nil
	}

	if err := u.analysesService.RecordAnalyzedMessage(ctx, workspace.ID, event.User, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record message activity: %w", err)
	}

	flags, err := u.flagsService.ListFlagDefinitions(ctx, workspace.ID, event.User)
	if err != nil {
		return fmt.Errorf("failed to list flag definitions: %w", err)
	}
	enabledFlags := enabledOnly(flags)
	if len(enabledFlags) == 0 {
		log.Printf("📋 User %s has all flags disabled - skipping analysis", event.User)
		return nil
	}

	result, err := u.coachClient.AnalyzeMessage(ctx, clients.AnalyzeMessageRequest{
		Text:  event.Text,
		Flags: enabledFlags,
	})
	if err != nil {
		// Analysis never ran, so the quota counter stays where it was.
		return fmt.Errorf("failed to analyze message: %w", err)
	}

	if result.Flagged && len(result.FlagIDs) > 0 {
		if err := u.storeAndNotify(ctx, workspace, event, result); err != nil {
			return err
		}
	}

	if err := u.entitlementsService.RecordUsage(ctx, workspace.ID, models.FeatureAutoCoaching); err != nil {
		return fmt.Errorf("failed to record auto-coaching usage: %w", err)
	}

	log.Printf("📋 Completed processing message event from %s (flagged: %v)", event.User, result.Flagged)
	return nil
}

func (u *CoachingUseCase) storeAndNotify(
	ctx context.Context,
	workspace *models.Workspace,
	event models.SlackMessageEvent,
	result *clients.AnalyzeMessageResult,
) error {
	flagIDs := make([]int64, 0, len(result.FlagIDs))
	for _, id := range result.FlagIDs {
		flagIDs = append(flagIDs, int64(id))
	}
	instance := &models.AnalysisInstance{
		WorkspaceID:   workspace.ID,
		SlackUserID:   event.User,
		ChannelID:     event.Channel,
		MessageTS:     event.TS,
		FlagIDs:       flagIDs,
		TargetIDs:     result.TargetIDs,
		OriginalText:  event.Text,
		RephrasedText: result.Rephrase,
	}
	if err := u.analysesService.CreateAnalysisInstance(ctx, instance); err != nil {
		return fmt.Errorf("failed to create analysis instance: %w", err)
	}

	suggestion := formatSuggestion(result)
	slackClient := u.slackClientFactory(workspace.SlackAuthToken)
	if err := slackClient.PostEphemeral(ctx, event.Channel, event.User, suggestion); err != nil {
		// The instance is stored and will show up in reports either way.
		log.Printf("⚠️ Failed to post ephemeral suggestion to %s: %v", event.User, err)
	}
	return nil
}

// RephraseResult is the outcome of a manual rephrase request. A quota or
// tier denial is a normal outcome, not an error.
type RephraseResult struct {
	Allowed         bool
	Reason          string
	UpgradeRequired bool
	Rephrased       string
}

// RephraseMessage handles the slash-command rephrase path, gated by the
// manual rephrase quota.
func (u *CoachingUseCase) RephraseMessage(
	ctx context.Context,
	teamID, slackUserID, text string,
) (*RephraseResult, error) {
	log.Printf("📋 Starting manual rephrase for user %s in team %s", slackUserID, teamID)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	if u.coachClient == nil {
		return nil, fmt.Errorf("coach client is not configured")
	}

	maybeWorkspace, err := u.workspacesService.GetWorkspaceBySlackTeamID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace for team %s: %w", teamID, err)
	}
	if !maybeWorkspace.IsPresent() {
		return nil, fmt.Errorf("workspace not found for team: %s", teamID)
	}
	workspace := maybeWorkspace.MustGet()

	access := u.entitlementsService.CheckAccess(ctx, workspace.ID, models.FeatureManualRephrase)
	if !access.Allowed {
		return &RephraseResult{
			Allowed:         false,
			Reason:          access.Reason,
			UpgradeRequired: access.UpgradeRequired,
		}, nil
	}

	rephrased, err := u.coachClient.RephraseMessage(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to rephrase message: %w", err)
	}
	if err := u.entitlementsService.RecordUsage(ctx, workspace.ID, models.FeatureManualRephrase); err != nil {
		return nil, fmt.Errorf("failed to record manual rephrase usage: %w", err)
	}

	log.Printf("📋 Completed manual rephrase for user %s", slackUserID)
	return &RephraseResult{Allowed: true, Rephrased: rephrased}, nil
}

func enabledOnly(flags []models.FlagDefinition) []models.FlagDefinition {
	enabled := make([]models.FlagDefinition, 0, len(flags))
	for _, flag := range flags {
		if flag.Enabled {
			enabled = append(enabled, flag)
		}
	}
	return enabled
}

func formatSuggestion(result *clients.AnalyzeMessageResult) string {
	var sb strings.Builder
	sb.WriteString("💬 *A gentler take on your last message:*\n")
	if result.Rephrase != "" {
		sb.WriteString(fmt.Sprintf("> %s\n", result.Rephrase))
	}
	if result.Coaching != "" {
		sb.WriteString(fmt.Sprintf("\n%s", result.Coaching))
	}
	return utils.ConvertMarkdownToSlack(sb.String())
}
