package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/studyengine/internal/api"
	"github.com/example/studyengine/internal/database"
	"github.com/example/studyengine/internal/seed"
	"github.com/example/studyengine/internal/study"
	"github.com/example/studyengine/internal/sweeper"
)

func init() {
	// Load .env file if present; real deployments set variables directly
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := database.Connect(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	topicRepo := database.NewTopicRepository()
	itemRepo := database.NewItemRepository()
	progressRepo := database.NewProgressRepository()
	sessionRepo := database.NewSessionRepository()
	practiceRepo := database.NewPracticeRepository()
	outboxRepo := database.NewOutboxRepository()

	// One-shot content load before serving traffic
	if seedFile := os.Getenv("SEED_FILE"); seedFile != "" {
		config := seed.DefaultImportConfig()
		config.FilePath = seedFile
		result, err := seed.NewImporter(topicRepo, itemRepo).Import(context.Background(), config)
		if err != nil {
			logger.Error("content import failed", "file", seedFile, "error", err)
			os.Exit(1)
		}
		logger.Info("content imported",
			"file", seedFile,
			"topics_created", result.TopicsCreated,
			"items_created", result.ItemsCreated,
			"errors", len(result.Errors))
	}

	service := study.NewService(study.Deps{
		Topics:       topicRepo,
		Items:        itemRepo,
		Progress:     progressRepo,
		Sessions:     sessionRepo,
		Recorder:     practiceRepo,
		Outbox:       outboxRepo,
		SessionLimit: sessionLimitFromEnv(logger),
		Logger:       logger,
	})

	sweep := sweeper.New(outboxRepo, practiceRepo, time.Minute, logger)
	sweep.Start()
	defer sweep.Stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: api.NewRouter(api.NewHandler(service, topicRepo, itemRepo, logger)),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		sig := <-sigChan
		logger.Info("received signal", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
		close(done)
	}()

	logger.Info("study engine listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("server stopped")
}

// sessionLimitFromEnv reads the default queue size override, falling back to
// the built-in default on absent or unusable values
func sessionLimitFromEnv(logger *slog.Logger) int {
	raw := os.Getenv("SESSION_LIMIT")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > study.MaxSessionLimit {
		logger.Warn("ignoring invalid SESSION_LIMIT", "value", raw)
		return 0
	}
	return limit
}
