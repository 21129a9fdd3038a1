package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"claritybackend/models"
	"claritybackend/services"
	"claritybackend/usecases/coaching"
)

type SlackEventsHandler struct {
	signingSecret     string
	coachingUseCase   *coaching.CoachingUseCase
	workspacesService services.WorkspacesService
}

func NewSlackEventsHandler(
	signingSecret string,
	coachingUseCase *coaching.CoachingUseCase,
	workspacesService services.WorkspacesService,
) *SlackEventsHandler {
	return &SlackEventsHandler{
		signingSecret:     signingSecret,
		coachingUseCase:   coachingUseCase,
		workspacesService: workspacesService,
	}
}

// verifySlackSignature verifies the authenticity of a Slack webhook request
func verifySlackSignature(r *http.Request, signingSecret string, body []byte) error {
	timestamp := r.Header.Get("X-Slack-Request-Timestamp")
	signature := r.Header.Get("X-Slack-Signature")

	if timestamp == "" || signature == "" {
		return fmt.Errorf("missing required headers")
	}

	// Verify timestamp freshness (within 5 minutes)
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp format: %v", err)
	}
	if time.Now().Unix()-ts > 300 {
		return fmt.Errorf("request timestamp too old")
	}

	// Signature base string: v0:timestamp:body
	baseString := fmt.Sprintf("v0:%s:%s", timestamp, string(body))

	mac := hmac.New(sha256.New, []byte(signingSecret))
	mac.Write([]byte(baseString))
	expectedSignature := "v0=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expectedSignature), []byte(signature)) {
		return fmt.Errorf("signature verification failed")
	}

	return nil
}

func (h *SlackEventsHandler) HandleSlackEvent(w http.ResponseWriter, r *http.Request) {
	log.Printf("📨 Slack event received from %s", r.RemoteAddr)

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("❌ Failed to read request body: %v", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := verifySlackSignature(r, h.signingSecret, bodyBytes); err != nil {
		log.Printf("❌ Slack signature verification failed: %v", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body map[string]any
	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		log.Printf("❌ Failed to parse JSON body: %v", err)
		http.Error(w, "failed to parse body", http.StatusBadRequest)
		return
	}

	if body["type"] == "url_verification" {
		log.Printf("🔐 Slack URL verification challenge received")
		challenge, ok := body["challenge"].(string)
		if !ok {
			log.Printf("❌ Challenge not found in verification request")
			http.Error(w, "challenge not found", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte(challenge)); err != nil {
			log.Printf("❌ Failed to write challenge response: %v", err)
		}
		return
	}

	if body["type"] != "event_callback" {
		log.Printf("📋 Non-event callback received: %s", body["type"])
		w.WriteHeader(http.StatusOK)
		return
	}

	teamID, ok := body["team_id"].(string)
	if !ok || teamID == "" {
		log.Printf("❌ Team ID not found in Slack event")
		http.Error(w, "team_id not found", http.StatusBadRequest)
		return
	}

	event, ok := body["event"].(map[string]any)
	if !ok {
		log.Printf("❌ Event payload missing in callback")
		http.Error(w, "event not found", http.StatusBadRequest)
		return
	}

	eventType, _ := event["type"].(string)
	if eventType == "app_uninstalled" {
		h.handleAppUninstalled(teamID)
		w.WriteHeader(http.StatusOK)
		return
	}
	if eventType != "message" {
		log.Printf("📋 Ignoring unsupported event type: %s", eventType)
		w.WriteHeader(http.StatusOK)
		return
	}

	messageEvent := parseMessageEvent(teamID, event)
	log.Printf("📨 Message event - Team: %s, Channel: %s, User: %s", teamID, messageEvent.Channel, messageEvent.User)

	// Ack Slack immediately; analysis runs out of band so the 3-second
	// delivery deadline is never at risk.
	go func() {
		ctx, cancel := contextWithTimeout()
		defer cancel()
		if err := h.coachingUseCase.ProcessMessageEvent(ctx, messageEvent); err != nil {
			log.Printf("❌ Failed to process message event: %v", err)
		}
	}()

	w.WriteHeader(http.StatusOK)
}

// handleAppUninstalled deactivates the workspace so the pipeline stops
// processing its events. The row stays around - subscription state and
// history survive a reinstall.
func (h *SlackEventsHandler) handleAppUninstalled(teamID string) {
	ctx, cancel := contextWithTimeout()
	defer cancel()

	maybeWorkspace, err := h.workspacesService.GetWorkspaceBySlackTeamID(ctx, teamID)
	if err != nil {
		log.Printf("❌ Failed to look up workspace for uninstalled team %s: %v", teamID, err)
		return
	}
	if !maybeWorkspace.IsPresent() {
		log.Printf("⚠️ Uninstall event for unknown team %s", teamID)
		return
	}

	workspace := maybeWorkspace.MustGet()
	if err := h.workspacesService.DeactivateWorkspace(ctx, workspace.ID); err != nil {
		log.Printf("❌ Failed to deactivate workspace %s: %v", workspace.ID, err)
		return
	}
	log.Printf("📋 Deactivated workspace %s after app uninstall", workspace.ID)
}

func parseMessageEvent(teamID string, event map[string]any) models.SlackMessageEvent {
	stringField := func(key string) string {
		value, _ := event[key].(string)
		return value
	}
	return models.SlackMessageEvent{
		TeamID:   teamID,
		Channel:  stringField("channel"),
		User:     stringField("user"),
		Text:     stringField("text"),
		TS:       stringField("ts"),
		ThreadTS: stringField("thread_ts"),
		BotID:    stringField("bot_id"),
		Subtype:  stringField("subtype"),
	}
}

func (h *SlackEventsHandler) SetupEndpoints(router *mux.Router) {
	log.Printf("🚀 Registering Slack events endpoint")
	router.HandleFunc("/slack/events", h.HandleSlackEvent).Methods("POST")
	log.Printf("✅ POST /slack/events endpoint registered")
}
