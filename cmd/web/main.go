package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/lookaloud/internal/api"
	"github.com/timmy/lookaloud/internal/config"
	"github.com/timmy/lookaloud/internal/logger"
	"github.com/timmy/lookaloud/internal/presenter"
	"github.com/timmy/lookaloud/internal/repository"
	"github.com/timmy/lookaloud/internal/service"
	"github.com/timmy/lookaloud/internal/storage"
	"github.com/timmy/lookaloud/internal/workflow"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewFromEnv(nil)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	defaults, err := cfg.Workflow.DefaultOptions()
	if err != nil {
		appLogger.Fatalf("Invalid workflow defaults: %v", err)
	}

	describeService := service.NewDescribeService(&service.DescribeConfig{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		UserAgent: cfg.Backend.UserAgent,
	})

	stats := workflow.NewStatsObserver()
	observers := []workflow.Observer{workflow.NewLoggingObserver(), stats}

	ctx := context.Background()

	var history *repository.SubmissionRepository
	if cfg.Database.Enabled {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			appLogger.Fatalf("Failed to initialize database: %v", err)
		}
		defer func() { _ = repository.Close(db) }()

		history = repository.NewSubmissionRepository(db)
		observers = append(observers, workflow.NewHistoryObserver(history))
	}

	var archiver *service.AudioArchiver
	if cfg.Storage.Enabled {
		store, err := storage.NewStorage(&cfg.Storage)
		if err != nil {
			appLogger.Fatalf("Failed to initialize storage: %v", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			appLogger.Fatalf("Failed to ensure storage bucket: %v", err)
		}

		archiver = service.NewAudioArchiver(describeService, store, cfg.Storage.Prefix)
		var recorder workflow.ArchiveKeyRecorder
		if history != nil {
			recorder = history
		}
		observers = append(observers, workflow.NewArchiveObserver(archiver, recorder))
	}

	controller := workflow.NewController(
		describeService,
		service.NewProseKeywordExtractor(cfg.Workflow.MaxKeywords),
		workflow.WithDefaults(defaults),
		workflow.WithMaxKeywords(cfg.Workflow.MaxKeywords),
		workflow.WithObservers(observers...),
	)

	tmpl, err := presenter.Templates()
	if err != nil {
		appLogger.Fatalf("Failed to parse templates: %v", err)
	}

	deps := api.RouterDeps{
		Controller: controller,
		Audio:      describeService,
		Stats:      stats,
		Templates:  tmpl,
		BackendURL: describeService.BaseURL(),
	}
	if history != nil {
		deps.History = history
	}
	if archiver != nil {
		deps.Archive = archiver
	}
	router := api.SetupRouter(deps, cfg.Server)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port":    cfg.Server.Port,
			"mode":    cfg.Server.Mode,
			"backend": describeService.BaseURL(),
			"timeout": cfg.Backend.Timeout.String(),
		}).Info("Starting web server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorf("Server forced to shutdown: %v", err)
	}
	controller.Wait()

	appLogger.Info("Server exited")
}
