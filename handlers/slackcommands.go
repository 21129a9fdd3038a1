package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/slack-go/slack"

	"claritybackend/models"
	"claritybackend/services"
	"claritybackend/usecases/coaching"
)

const commandHelpText = `*Clarity commands:*
` + "`/clarity rephrase <text>`" + ` - rewrite a message in a more constructive tone
` + "`/clarity flags`" + ` - list your coaching flags
` + "`/clarity flags add <name> | <description>`" + ` - add a custom flag (Pro)
` + "`/clarity flags enable <n>`" + ` / ` + "`disable <n>`" + ` / ` + "`delete <n>`" + `
` + "`/clarity usage`" + ` - show this month's usage
` + "`/clarity report [weekly|monthly]`" + ` - link to your latest report`

type SlackCommandsHandler struct {
	signingSecret       string
	publicBaseURL       string
	coachingUseCase     *coaching.CoachingUseCase
	workspacesService   services.WorkspacesService
	entitlementsService services.EntitlementsService
	flagsService        services.CoachingFlagsService
	reportsService      services.ReportsService
}

func NewSlackCommandsHandler(
	signingSecret string,
	publicBaseURL string,
	coachingUseCase *coaching.CoachingUseCase,
	workspacesService services.WorkspacesService,
	entitlementsService services.EntitlementsService,
	flagsService services.CoachingFlagsService,
	reportsService services.ReportsService,
) *SlackCommandsHandler {
	return &SlackCommandsHandler{
		signingSecret:       signingSecret,
		publicBaseURL:       publicBaseURL,
		coachingUseCase:     coachingUseCase,
		workspacesService:   workspacesService,
		entitlementsService: entitlementsService,
		flagsService:        flagsService,
		reportsService:      reportsService,
	}
}

func (h *SlackCommandsHandler) HandleSlackCommand(w http.ResponseWriter, r *http.Request) {
	log.Printf("⚡ Slack command received from %s", r.RemoteAddr)
	var buf bytes.Buffer
	tee := io.TeeReader(r.Body, &buf)

	verifier, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		log.Printf("❌ Invalid secret verifier: %v", err)
		http.Error(w, "invalid secret verifier", http.StatusUnauthorized)
		return
	}
	if _, err := io.Copy(&verifier, tee); err != nil {
		log.Printf("❌ Failed to read request body: %v", err)
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}
	if err := verifier.Ensure(); err != nil {
		log.Printf("❌ Slack signature verification failed: %v", err)
		http.Error(w, "signature verification failed", http.StatusUnauthorized)
		return
	}

	r.Body = io.NopCloser(&buf)

	command, err := slack.SlashCommandParse(r)
	if err != nil {
		log.Printf("❌ Failed to parse slash command: %v", err)
		http.Error(w, "failed to parse slash command", http.StatusInternalServerError)
		return
	}

	log.Printf("⚡ Parsed slash command: %s %q from user %s", command.Command, command.Text, command.UserID)

	if command.Command != "/clarity" {
		log.Printf("⚠️ Unknown slash command: %s", command.Command)
		w.WriteHeader(http.StatusOK)
		return
	}

	subcommand, rest := splitSubcommand(command.Text)
	switch subcommand {
	case "rephrase":
		h.handleRephraseCommand(w, command, rest)
	case "flags":
		h.handleFlagsCommand(w, r.Context(), command, rest)
	case "usage":
		h.handleUsageCommand(w, r.Context(), command)
	case "report":
		h.handleReportCommand(w, r.Context(), command, rest)
	default:
		writeEphemeral(w, commandHelpText)
	}
}

func (h *SlackCommandsHandler) handleRephraseCommand(
	w http.ResponseWriter,
	command slack.SlashCommand,
	text string,
) {
	if strings.TrimSpace(text) == "" {
		writeEphemeral(w, "Give me something to rephrase: `/clarity rephrase <text>`")
		return
	}

	// The rephrase round-trips through the LLM, so ack now and deliver
	// through the response_url.
	writeEphemeral(w, "✍️ Working on a rephrase...")

	go func() {
		ctx, cancel := contextWithTimeout()
		defer cancel()

		result, err := h.coachingUseCase.RephraseMessage(ctx, command.TeamID, command.UserID, text)
		if err != nil {
			log.Printf("❌ Failed to rephrase message for %s: %v", command.UserID, err)
			respondViaResponseURL(ctx, command.ResponseURL, "Something went wrong rephrasing that message. Please try again.")
			return
		}
		if !result.Allowed {
			message := result.Reason
			if result.UpgradeRequired {
				message += " - upgrade to Pro for a higher limit."
			}
			respondViaResponseURL(ctx, command.ResponseURL, message)
			return
		}
		respondViaResponseURL(ctx, command.ResponseURL, fmt.Sprintf("*Suggested rephrase:*\n> %s", result.Rephrased))
	}()
}

func (h *SlackCommandsHandler) handleFlagsCommand(
	w http.ResponseWriter,
	ctx context.Context,
	command slack.SlashCommand,
	rest string,
) {
	workspace, err := h.lookupWorkspace(ctx, command.TeamID)
	if err != nil {
		log.Printf("❌ Failed to resolve workspace for flags command: %v", err)
		writeEphemeral(w, "Workspace not found. Try reinstalling the app.")
		return
	}

	action, arg := splitSubcommand(rest)
	switch action {
	case "", "list":
		h.listFlags(w, ctx, workspace.ID, command.UserID)
	case "add":
		h.addFlag(w, ctx, workspace.ID, command.UserID, arg)
	case "enable", "disable":
		position, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			writeEphemeral(w, fmt.Sprintf("Usage: `/clarity flags %s <number>`", action))
			return
		}
		if err := h.flagsService.SetFlagEnabled(ctx, workspace.ID, command.UserID, position, action == "enable"); err != nil {
			log.Printf("❌ Failed to toggle flag %d: %v", position, err)
			writeEphemeral(w, fmt.Sprintf("Couldn't update flag %d: %v", position, err))
			return
		}
		writeEphemeral(w, fmt.Sprintf("Flag %d %sd.", position, action))
	case "delete":
		position, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			writeEphemeral(w, "Usage: `/clarity flags delete <number>`")
			return
		}
		if err := h.flagsService.DeleteFlag(ctx, workspace.ID, command.UserID, position); err != nil {
			log.Printf("❌ Failed to delete flag %d: %v", position, err)
			writeEphemeral(w, fmt.Sprintf("Couldn't delete flag %d: %v", position, err))
			return
		}
		writeEphemeral(w, fmt.Sprintf("Flag %d deleted.", position))
	default:
		writeEphemeral(w, commandHelpText)
	}
}

func (h *SlackCommandsHandler) listFlags(w http.ResponseWriter, ctx context.Context, workspaceID, userID string) {
	definitions, err := h.flagsService.ListFlagDefinitions(ctx, workspaceID, userID)
	if err != nil {
		log.Printf("❌ Failed to list flag definitions: %v", err)
		writeEphemeral(w, "Couldn't load your flags. Please try again.")
		return
	}

	var sb strings.Builder
	sb.WriteString("*Your coaching flags:*\n")
	for _, definition := range definitions {
		marker := "✅"
		if !definition.Enabled {
			marker = "⬜"
		}
		sb.WriteString(fmt.Sprintf("%s %d. *%s* - %s\n", marker, definition.ID, definition.Name, definition.Description))
	}
	writeEphemeral(w, sb.String())
}

func (h *SlackCommandsHandler) addFlag(w http.ResponseWriter, ctx context.Context, workspaceID, userID, arg string) {
	access := h.entitlementsService.CheckAccess(ctx, workspaceID, models.FeatureCustomFlags)
	if !access.Allowed {
		message := access.Reason
		if access.UpgradeRequired {
			message += " - upgrade to Pro to define custom flags."
		}
		writeEphemeral(w, message)
		return
	}

	name, description, found := strings.Cut(arg, "|")
	if !found {
		writeEphemeral(w, "Usage: `/clarity flags add <name> | <description>`")
		return
	}

	flag, err := h.flagsService.CreateFlag(ctx, workspaceID, userID, strings.TrimSpace(name), strings.TrimSpace(description))
	if err != nil {
		log.Printf("❌ Failed to create custom flag: %v", err)
		writeEphemeral(w, fmt.Sprintf("Couldn't create flag: %v", err))
		return
	}
	writeEphemeral(w, fmt.Sprintf("Flag %d (*%s*) added.", flag.Position, flag.Name))
}

func (h *SlackCommandsHandler) handleUsageCommand(
	w http.ResponseWriter,
	ctx context.Context,
	command slack.SlashCommand,
) {
	workspace, err := h.lookupWorkspace(ctx, command.TeamID)
	if err != nil {
		log.Printf("❌ Failed to resolve workspace for usage command: %v", err)
		writeEphemeral(w, "Workspace not found. Try reinstalling the app.")
		return
	}

	// Usage is shown against the entitled plan, so a lapsed Pro workspace
	// sees the FREE ceilings it is actually held to.
	plan := models.PlanForTier(workspace.EntitledTier())
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Plan:* %s\n", planDisplayName(plan.Tier)))
	for _, feature := range []models.Feature{models.FeatureAutoCoaching, models.FeatureManualRephrase} {
		limit, ok := plan.MonthlyLimit(feature)
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("• %s: %d / %d\n", featureDisplayName(feature), workspace.UsageFor(feature), limit))
	}
	if workspace.CurrentPeriodEnd != nil {
		sb.WriteString(fmt.Sprintf("Counters reset on %s.", workspace.CurrentPeriodEnd.UTC().Format("Jan 2, 2006")))
	}
	writeEphemeral(w, sb.String())
}

func (h *SlackCommandsHandler) handleReportCommand(
	w http.ResponseWriter,
	ctx context.Context,
	command slack.SlashCommand,
	rest string,
) {
	period := models.ReportPeriodWeekly
	if strings.TrimSpace(rest) == string(models.ReportPeriodMonthly) {
		period = models.ReportPeriodMonthly
	}

	workspace, err := h.lookupWorkspace(ctx, command.TeamID)
	if err != nil {
		log.Printf("❌ Failed to resolve workspace for report command: %v", err)
		writeEphemeral(w, "Workspace not found. Try reinstalling the app.")
		return
	}

	maybeReport, err := h.reportsService.GetLatestReportForUser(ctx, workspace.ID, command.UserID, period)
	if err != nil {
		log.Printf("❌ Failed to get latest report: %v", err)
		writeEphemeral(w, "Couldn't load your report. Please try again.")
		return
	}
	if !maybeReport.IsPresent() {
		writeEphemeral(w, fmt.Sprintf("No %s report yet - reports are generated after your first full %s of activity.", period, periodUnit(period)))
		return
	}
	report := maybeReport.MustGet()

	writeEphemeral(w, fmt.Sprintf(
		"*Your latest %s report* (score %d/100):\n%s/api/reports/%s",
		period, report.CommunicationScore, h.publicBaseURL, report.ReportToken,
	))
}

func (h *SlackCommandsHandler) lookupWorkspace(ctx context.Context, teamID string) (*models.Workspace, error) {
	maybeWorkspace, err := h.workspacesService.GetWorkspaceBySlackTeamID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace for team %s: %w", teamID, err)
	}
	if !maybeWorkspace.IsPresent() {
		return nil, fmt.Errorf("workspace not found for team: %s", teamID)
	}
	return maybeWorkspace.MustGet(), nil
}

func (h *SlackCommandsHandler) SetupEndpoints(router *mux.Router) {
	log.Printf("🚀 Registering Slack commands endpoint")
	router.HandleFunc("/slack/commands", h.HandleSlackCommand).Methods("POST")
	log.Printf("✅ POST /slack/commands endpoint registered")
}

func splitSubcommand(text string) (string, string) {
	trimmed := strings.TrimSpace(text)
	subcommand, rest, _ := strings.Cut(trimmed, " ")
	return strings.ToLower(subcommand), strings.TrimSpace(rest)
}

func writeEphemeral(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"response_type": "ephemeral",
		"text":          text,
	}); err != nil {
		log.Printf("❌ Failed to write ephemeral response: %v", err)
	}
}

func respondViaResponseURL(ctx context.Context, responseURL, text string) {
	payload, err := json.Marshal(map[string]string{
		"response_type": "ephemeral",
		"text":          text,
	})
	if err != nil {
		log.Printf("❌ Failed to marshal response_url payload: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, responseURL, bytes.NewReader(payload))
	if err != nil {
		log.Printf("❌ Failed to build response_url request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("❌ Failed to post to response_url: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("❌ Slack response_url returned status %d", resp.StatusCode)
	}
}

func planDisplayName(tier models.SubscriptionTier) string {
	switch tier {
	case models.SubscriptionTierPro:
		return "Pro"
	default:
		return "Free"
	}
}

func featureDisplayName(feature models.Feature) string {
	switch feature {
	case models.FeatureAutoCoaching:
		return "Auto-coaching"
	case models.FeatureManualRephrase:
		return "Manual rephrases"
	default:
		return string(feature)
	}
}

func periodUnit(period models.ReportPeriod) string {
	if period == models.ReportPeriodMonthly {
		return "month"
	}
	return "week"
}

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}
