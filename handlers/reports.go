package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"claritybackend/models"
	"claritybackend/services"
)

// ReportsHandler serves generated reports over capability URLs. Possession of
// the token is the only credential; there is no session or login.
type ReportsHandler struct {
	reportsService    services.ReportsService
	workspacesService services.WorkspacesService
}

func NewReportsHandler(
	reportsService services.ReportsService,
	workspacesService services.WorkspacesService,
) *ReportsHandler {
	return &ReportsHandler{
		reportsService:    reportsService,
		workspacesService: workspacesService,
	}
}

// reportResponse is the public shape of a report. The raw row's workspace and
// Slack user ids stay server-side.
type reportResponse struct {
	Period             models.ReportPeriod `json:"period"`
	PeriodStart        string              `json:"period_start"`
	PeriodEnd          string              `json:"period_end"`
	CommunicationScore int                 `json:"communication_score"`
	PreviousScore      *int                `json:"previous_score,omitempty"`
	ScoreChange        int                 `json:"score_change"`
	ScoreTrend         string              `json:"score_trend"`
	Data               models.ReportData   `json:"data"`
	GeneratedAt        string              `json:"generated_at"`
}

func (h *ReportsHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	maybeReport, err := h.reportsService.GetReportByToken(r.Context(), token)
	if err != nil {
		log.Printf("❌ Failed to get report by token: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !maybeReport.IsPresent() {
		// Expired, revoked and never-existed tokens are indistinguishable.
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	report := maybeReport.MustGet()

	data := report.Data
	if !h.hasAdvancedAnalytics(r, report.WorkspaceID) {
		data.Trends = nil
		data.PartnerAnalysis = nil
	}

	response := reportResponse{
		Period:             report.Period,
		PeriodStart:        report.PeriodStart.UTC().Format("2006-01-02"),
		PeriodEnd:          report.PeriodEnd.UTC().Format("2006-01-02"),
		CommunicationScore: report.CommunicationScore,
		PreviousScore:      report.PreviousScore,
		ScoreChange:        report.ScoreChange,
		ScoreTrend:         report.ScoreTrend,
		Data:               data,
		GeneratedAt:        report.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("❌ Failed to encode report response: %v", err)
	}
}

// hasAdvancedAnalytics checks the owning workspace's current tier at read
// time, so a downgrade immediately hides the Pro-only sections of already
// generated reports.
func (h *ReportsHandler) hasAdvancedAnalytics(r *http.Request, workspaceID string) bool {
	maybeWorkspace, err := h.workspacesService.GetWorkspaceByID(r.Context(), workspaceID)
	if err != nil || !maybeWorkspace.IsPresent() {
		if err != nil {
			log.Printf("⚠️ Failed to load workspace %s for report gating: %v", workspaceID, err)
		}
		return false
	}
	workspace := maybeWorkspace.MustGet()
	return models.PlanForTier(workspace.EntitledTier()).Grants(models.FeatureAdvancedReportAnalytics)
}

func (h *ReportsHandler) SetupEndpoints(router *mux.Router) {
	log.Printf("🚀 Registering public report endpoint")
	router.HandleFunc("/api/reports/{token}", h.HandleGetReport).Methods("GET")
	log.Printf("✅ GET /api/reports/{token} endpoint registered")
}
