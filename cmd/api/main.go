package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fableloom/fableloom/internal/config"
	"github.com/fableloom/fableloom/internal/handlers"
	"github.com/fableloom/fableloom/internal/logger"
	"github.com/fableloom/fableloom/internal/middleware"
	"github.com/fableloom/fableloom/internal/services"
	"github.com/fableloom/fableloom/internal/storage"
	"github.com/fableloom/fableloom/pkg/narrative"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Fableloom API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	var llmService services.LLMService
	switch strings.ToLower(cfg.LLMProvider) {
	case "groq":
		if cfg.GroqAPIKey == "" {
			log.Error("Groq API key is required when using groq provider")
			os.Exit(1)
		}
		llmService = services.NewGroqService(cfg.GroqAPIKey, cfg.ModelName, log)
		log.Info("Using Groq LLM provider")
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Error("Anthropic API key is required when using anthropic provider")
			os.Exit(1)
		}
		llmService = services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, log)
		log.Info("Using Anthropic LLM provider")
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider, "supported", []string{"groq", "anthropic"})
		os.Exit(1)
	}

	store := storage.NewRedisStore(cfg.RedisURL, log)
	storeCtx, storeCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storeCancel()

	if err := store.WaitForConnection(storeCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer initCancel()
	if err := llmService.InitModel(initCtx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}

	engine := narrative.NewEngine(llmService, narrative.Params{
		SummaryInterval: cfg.SummaryInterval,
		SummaryBatch:    cfg.SummaryBatch,
		HistoryWindow:   cfg.HistoryWindow,
		StabilizeBelow:  cfg.StabilizeBelow,
	}, log)

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(store, llmService, cfg.ModelName, log))

	storyHandler := handlers.NewStoryHandler(store, log)
	mux.Handle("/v1/stories", storyHandler)
	mux.Handle("/v1/stories/", storyHandler)

	mux.Handle("/v1/generate", handlers.NewGenerateHandler(engine, store, log))
	mux.Handle("/v1/refine", handlers.NewRefineHandler(engine, store, log))

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
