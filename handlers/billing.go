package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"claritybackend/models"
	"claritybackend/services"
)

// BillingHandler applies subscription changes pushed by the billing system.
// Requests are authenticated with a shared secret header; the billing side is
// the source of truth for tier, status and period bounds.
type BillingHandler struct {
	sharedSecret        string
	workspacesService   services.WorkspacesService
	entitlementsService services.EntitlementsService
}

func NewBillingHandler(
	sharedSecret string,
	workspacesService services.WorkspacesService,
	entitlementsService services.EntitlementsService,
) *BillingHandler {
	return &BillingHandler{
		sharedSecret:        sharedSecret,
		workspacesService:   workspacesService,
		entitlementsService: entitlementsService,
	}
}

type subscriptionChangeRequest struct {
	SlackTeamID        string    `json:"slack_team_id"`
	Tier               string    `json:"tier"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
}

func (h *BillingHandler) HandleSubscriptionChange(w http.ResponseWriter, r *http.Request) {
	log.Printf("💳 Subscription change received from %s", r.RemoteAddr)

	secret := r.Header.Get("X-Billing-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.sharedSecret)) != 1 {
		log.Printf("❌ Billing shared secret mismatch")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req subscriptionChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Failed to parse subscription change body: %v", err)
		http.Error(w, "failed to parse body", http.StatusBadRequest)
		return
	}
	if req.SlackTeamID == "" {
		http.Error(w, "slack_team_id is required", http.StatusBadRequest)
		return
	}

	maybeWorkspace, err := h.workspacesService.GetWorkspaceBySlackTeamID(r.Context(), req.SlackTeamID)
	if err != nil {
		log.Printf("❌ Failed to get workspace for team %s: %v", req.SlackTeamID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !maybeWorkspace.IsPresent() {
		log.Printf("❌ Workspace not found for team %s", req.SlackTeamID)
		http.Error(w, "workspace not found", http.StatusNotFound)
		return
	}
	workspace := maybeWorkspace.MustGet()

	sub := models.Subscription{
		Tier:               models.SubscriptionTier(req.Tier),
		Status:             models.SubscriptionStatus(req.Status),
		CurrentPeriodStart: &req.CurrentPeriodStart,
		CurrentPeriodEnd:   &req.CurrentPeriodEnd,
	}
	if err := h.entitlementsService.ApplySubscriptionChange(r.Context(), workspace.ID, sub); err != nil {
		log.Printf("❌ Failed to apply subscription change for workspace %s: %v", workspace.ID, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Printf("✅ Applied subscription change for workspace %s: tier=%s status=%s", workspace.ID, req.Tier, req.Status)
	w.WriteHeader(http.StatusOK)
}

func (h *BillingHandler) SetupEndpoints(router *mux.Router) {
	log.Printf("🚀 Registering billing endpoint")
	router.HandleFunc("/billing/subscription", h.HandleSubscriptionChange).Methods("POST")
	log.Printf("✅ POST /billing/subscription endpoint registered")
}
