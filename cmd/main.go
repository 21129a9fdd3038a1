package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"claritybackend/clients"
	anthropicclient "claritybackend/clients/anthropic"
	"claritybackend/config"
	"claritybackend/db"
	"claritybackend/handlers"
	"claritybackend/middleware"
	"claritybackend/services/analyses"
	"claritybackend/services/entitlements"
	"claritybackend/services/flags"
	"claritybackend/services/reports"
	"claritybackend/services/reportscheduler"
	"claritybackend/services/txmanager"
	"claritybackend/services/workspaces"
	"claritybackend/usecases/coaching"
)

func main() {
	if err := run(); err != nil {
		log.Printf("❌ Fatal error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// Initialize error alert middleware
	alertMiddleware := middleware.NewErrorAlertMiddleware(middleware.SlackAlertConfig{
		WebhookURL:  cfg.SlackConfig.AlertWebhookURL,
		Environment: cfg.Environment,
		AppName:     "claritybackend",
		LogsURL:     cfg.ServerLogsURL,
	})

	// Initialize database connection
	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	// Initialize repositories with shared connection
	workspacesRepo := db.NewPostgresWorkspacesRepository(dbConn, cfg.DatabaseSchema)
	coachingFlagsRepo := db.NewPostgresCoachingFlagsRepository(dbConn, cfg.DatabaseSchema)
	analysisInstancesRepo := db.NewPostgresAnalysisInstancesRepository(dbConn, cfg.DatabaseSchema)
	messageActivityRepo := db.NewPostgresMessageActivityRepository(dbConn, cfg.DatabaseSchema)
	reportsRepo := db.NewPostgresReportsRepository(dbConn, cfg.DatabaseSchema)

	// Initialize transaction manager
	txManager := txmanager.NewTransactionManager(dbConn)

	var coachClient clients.CoachClient
	if cfg.AnthropicConfig.IsConfigured() {
		coachClient = anthropicclient.NewCoachClient(cfg.AnthropicConfig.APIKey)
	}

	workspacesService := workspaces.NewWorkspacesService(workspacesRepo)
	entitlementsService := entitlements.NewEntitlementsService(workspacesRepo)
	flagsService := flags.NewCoachingFlagsService(coachingFlagsRepo, txManager)
	analysesService := analyses.NewAnalysesService(analysisInstancesRepo, messageActivityRepo)
	reportsService := reports.NewReportsService(reportsRepo, analysesService, flagsService, coachClient)

	coachingUseCase := coaching.NewCoachingUseCase(
		workspacesService,
		entitlementsService,
		flagsService,
		analysesService,
		coachClient,
	)

	slackEventsHandler := handlers.NewSlackEventsHandler(cfg.SlackConfig.SigningSecret, coachingUseCase, workspacesService)
	slackOAuthHandler := handlers.NewSlackOAuthHandler(
		cfg.SlackConfig.ClientID,
		cfg.SlackConfig.ClientSecret,
		cfg.PublicBaseURL,
		workspacesService,
	)
	slackCommandsHandler := handlers.NewSlackCommandsHandler(
		cfg.SlackConfig.SigningSecret,
		cfg.PublicBaseURL,
		coachingUseCase,
		workspacesService,
		entitlementsService,
		flagsService,
		reportsService,
	)
	reportsHandler := handlers.NewReportsHandler(reportsService, workspacesService)
	billingHandler := handlers.NewBillingHandler(cfg.BillingConfig.SharedSecret, workspacesService, entitlementsService)

	// Create a new router
	router := mux.NewRouter()

	// Setup endpoints with the new router
	slackEventsHandler.SetupEndpoints(router)
	slackOAuthHandler.SetupEndpoints(router)
	slackCommandsHandler.SetupEndpoints(router)
	reportsHandler.SetupEndpoints(router)
	billingHandler.SetupEndpoints(router)

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			log.Printf("❌ Failed to write health check response: %v", err)
		}
	}).Methods("GET")

	// Start the report generation and billing rollover jobs
	scheduler := reportscheduler.NewReportScheduler(
		workspacesService,
		analysesService,
		reportsService,
		entitlementsService,
	)
	if err := scheduler.Start(alertMiddleware.WrapBackgroundTask); err != nil {
		return err
	}
	defer scheduler.Stop()

	// Setup CORS middleware
	allowedOrigins := strings.Split(cfg.CORSAllowedOrigins, ",")
	for i, origin := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(origin)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Setup and handle graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           alertMiddleware.HTTPMiddleware(c.Handler(router)),
		ReadHeaderTimeout: 30 * time.Second,
	}

	return handleGracefulShutdown(server)
}

func handleGracefulShutdown(server *http.Server) error {
	// Channel to listen for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Printf("✅ Listening on http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-stop
	log.Printf("🛑 Shutdown signal received, cleaning up...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown server gracefully
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Server shutdown error: %v", err)
		return err
	}

	log.Printf("✅ Server stopped gracefully")
	return nil
}
