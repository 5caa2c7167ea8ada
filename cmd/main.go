package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"slackimporter/clients/mattermost"
	"slackimporter/clients/slackfiles"
	"slackimporter/config"
	"slackimporter/db"
	"slackimporter/exporters"
	"slackimporter/handlers"
	"slackimporter/importer"
	"slackimporter/middleware"
	"slackimporter/notify"
	"slackimporter/orchestrator"
	"slackimporter/services/entitygraph"
	"slackimporter/services/txmanager"
	"slackimporter/supervisor"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sqlDB, err := db.NewConnection(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer sqlDB.Close()

	if cfg.RunMode != "test" {
		if err := runMigrations(sqlDB.DB, cfg.DatabaseSchema); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	} else {
		log.Printf("⚠️ RUN_MODE=test, skipping migrations")
	}

	notify.Init(cfg.NotifyConfig.WebhookURL, cfg.NotifyConfig.Environment)

	entitiesRepo := db.NewPostgresEntitiesRepository(sqlDB, cfg.DatabaseSchema)
	relationsRepo := db.NewPostgresEntityRelationsRepository(sqlDB, cfg.DatabaseSchema)
	jobsRepo := db.NewPostgresImportJobsRepository(sqlDB, cfg.DatabaseSchema)

	graph := entitygraph.New(entitiesRepo, relationsRepo)
	txManager := txmanager.NewTransactionManager(sqlDB)

	slackFilesClient := slackfiles.New(cfg.SlackConfig.BotToken)

	pipeline := importer.New(jobsRepo, graph, slackFilesClient, txManager, cfg.UploadDir)

	mentionCache := orchestrator.NewMentionCache(graph)

	var exporterOrchestrator *orchestrator.Orchestrator
	if cfg.MattermostConfig.IsConfigured() {
		mmClient := mattermost.New(cfg.MattermostConfig)

		teamResolveCtx, cancelTeamResolve := context.WithTimeout(context.Background(), 10*time.Second)
		teamID := mattermost.ResolveTeamID(teamResolveCtx, mmClient, cfg.MattermostConfig.TeamID, cfg.MattermostConfig.TeamName)
		cancelTeamResolve()
		log.Printf("✅ exporting into mattermost team %s", teamID)

		emojiCreatorID := ""
		meCtx, cancelMe := context.WithTimeout(context.Background(), 10*time.Second)
		if me, err := mmClient.GetUserMe(meCtx); err == nil && me != nil {
			emojiCreatorID = me.ID
		} else {
			log.Printf("⚠️ failed to resolve importing user for custom emoji creator_id: %v", err)
		}
		cancelMe()

		userExporter := exporters.NewUserExporter(mmClient, graph)
		emojiExporter := exporters.NewEmojiExporter(mmClient, slackFilesClient, emojiCreatorID)
		channelExporter := exporters.NewChannelExporter(mmClient, graph, teamID)
		messageExporter := exporters.NewMessageExporter(mmClient, graph, mentionCache)
		reactionExporter := exporters.NewReactionExporter(mmClient, graph)
		attachmentExporter := exporters.NewAttachmentExporter(mmClient, slackFilesClient, graph, cfg.ExportConfig)

		exporterOrchestrator = orchestrator.New(
			jobsRepo,
			graph,
			cfg.ExportConfig,
			mentionCache,
			userExporter,
			emojiExporter,
			channelExporter,
			messageExporter,
			reactionExporter,
			attachmentExporter,
		)
	} else {
		log.Printf("⚠️ Mattermost not configured - export phase disabled, import-only mode")
	}

	sup := supervisor.New(jobsRepo, graph, pipeline, orchestratorAdapter{exporterOrchestrator})

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := sup.ResumeInterruptedJobs(startupCtx); err != nil {
		log.Printf("⚠️ failed to resume interrupted jobs on startup: %v", err)
	}
	cancel()

	alertMiddleware := middleware.NewErrorAlertMiddleware(middleware.AlertConfig{
		WebhookURL:  cfg.NotifyConfig.WebhookURL,
		Environment: cfg.Environment,
		AppName:     "slackimporter",
	})

	resumeTicker := time.NewTicker(cfg.ExportConfig.QueuePollInterval)
	go func() {
		for range resumeTicker.C {
			_ = alertMiddleware.WrapBackgroundTask("ResumeInterruptedJobs", func() error {
				return sup.ResumeInterruptedJobs(context.Background())
			})()
		}
	}()
	defer resumeTicker.Stop()

	router := mux.NewRouter()

	httpHandler := handlers.New(sup, graph, cfg.UploadDir)
	authMiddleware := middleware.NewAPIKeyMiddleware(cfg.APIKey)
	httpHandler.SetupEndpoints(router, authMiddleware)

	allowedOrigins := strings.Split(cfg.CORSAllowedOrigins, ",")
	for i, origin := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(origin)
	}
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           alertMiddleware.HTTPMiddleware(corsMiddleware.Handler(router)),
		ReadHeaderTimeout: 30 * time.Second,
	}

	return handleGracefulShutdown(server)
}

// orchestratorAdapter lets supervisor.New take a possibly-nil
// *orchestrator.Orchestrator: export stays unavailable (returning an error
// instead of panicking) when Mattermost isn't configured.
type orchestratorAdapter struct {
	orch *orchestrator.Orchestrator
}

func (a orchestratorAdapter) Run(ctx context.Context, anchorJobID *int64) error {
	if a.orch == nil {
		return fmt.Errorf("mattermost is not configured, export is unavailable")
	}
	return a.orch.Run(ctx, anchorJobID)
}

// runMigrations applies db/migrations against the configured schema,
// grounded on the bulk-import/export example repo's use of golang-migrate
// (the teacher itself never runs migrations in-process).
func runMigrations(sqlDB *sql.DB, schema string) error {
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{SchemaName: schema})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://db/migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to initialize migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Printf("✅ database migrations applied")
	return nil
}

func handleGracefulShutdown(server *http.Server) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("✅ Listening on http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ Server error: %v", err)
		}
	}()

	<-stop
	log.Printf("🛑 Shutdown signal received, cleaning up...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Server shutdown error: %v", err)
		return err
	}

	log.Printf("✅ Server stopped gracefully")
	return nil
}
