package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/slack-go/slack"

	"claritybackend/services"
)

// SlackOAuthHandler completes the app install flow: Slack redirects here with
// a temporary code, we exchange it for a bot token and upsert the workspace.
type SlackOAuthHandler struct {
	clientID          string
	clientSecret      string
	publicBaseURL     string
	workspacesService services.WorkspacesService
}

func NewSlackOAuthHandler(
	clientID, clientSecret, publicBaseURL string,
	workspacesService services.WorkspacesService,
) *SlackOAuthHandler {
	return &SlackOAuthHandler{
		clientID:          clientID,
		clientSecret:      clientSecret,
		publicBaseURL:     publicBaseURL,
		workspacesService: workspacesService,
	}
}

func (h *SlackOAuthHandler) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	log.Printf("📨 Slack OAuth callback received from %s", r.RemoteAddr)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		// User cancelled the install dialog.
		log.Printf("⚠️ Slack OAuth callback returned error: %s", errParam)
		http.Error(w, "installation was cancelled", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		log.Printf("❌ Slack OAuth callback missing code parameter")
		http.Error(w, "code parameter is required", http.StatusBadRequest)
		return
	}

	redirectURL := fmt.Sprintf("%s/slack/oauth/callback", h.publicBaseURL)
	oauthResponse, err := slack.GetOAuthV2Response(&http.Client{}, h.clientID, h.clientSecret, code, redirectURL)
	if err != nil {
		log.Printf("❌ Failed to exchange OAuth code with Slack: %v", err)
		http.Error(w, "failed to complete installation", http.StatusBadGateway)
		return
	}

	teamID := oauthResponse.Team.ID
	teamName := oauthResponse.Team.Name
	botAccessToken := oauthResponse.AccessToken
	if teamID == "" || botAccessToken == "" {
		log.Printf("❌ Slack OAuth response missing team ID or bot token")
		http.Error(w, "failed to complete installation", http.StatusBadGateway)
		return
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()
	workspace, err := h.workspacesService.UpsertWorkspace(ctx, teamID, teamName, botAccessToken)
	if err != nil {
		log.Printf("❌ Failed to upsert workspace for team %s: %v", teamID, err)
		http.Error(w, "failed to complete installation", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Installed into workspace %s (team %s)", workspace.ID, teamID)
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "Clarity is installed in %s. Head back to Slack and try /clarity help.\n", teamName)
}

func (h *SlackOAuthHandler) SetupEndpoints(router *mux.Router) {
	log.Printf("🚀 Registering Slack OAuth endpoint")
	router.HandleFunc("/slack/oauth/callback", h.HandleOAuthCallback).Methods("GET")
	log.Printf("✅ GET /slack/oauth/callback endpoint registered")
}
