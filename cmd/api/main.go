// Package main is the entry point for the delivery coordination server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/buzz-lite/delivery-coordinator/internal/config"
	"github.com/buzz-lite/delivery-coordinator/internal/dedupe"
	"github.com/buzz-lite/delivery-coordinator/internal/events"
	"github.com/buzz-lite/delivery-coordinator/internal/gateway"
	"github.com/buzz-lite/delivery-coordinator/internal/handler"
	"github.com/buzz-lite/delivery-coordinator/internal/middleware"
	"github.com/buzz-lite/delivery-coordinator/internal/nlu"
	"github.com/buzz-lite/delivery-coordinator/internal/service"
	"github.com/buzz-lite/delivery-coordinator/internal/store"
	"github.com/buzz-lite/delivery-coordinator/pkg/logger"
	"github.com/buzz-lite/delivery-coordinator/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting coordination server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "delivery-coordinator", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Event publishing is optional; without NATS the server runs standalone.
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.Connect(cfg.NATSURL, log)
		if err != nil {
			log.Warn("failed to connect to NATS, events disabled", zap.Error(err))
		} else {
			defer publisher.Close()
		}
	}

	// Open stores
	for _, path := range []string{cfg.DeliveriesFile, cfg.ConversationsFile} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			log.Error("failed to create data directory", zap.Error(err))
			os.Exit(1)
		}
	}
	deliveries, err := store.NewDeliveryStore(cfg.DeliveriesFile)
	if err != nil {
		log.Error("failed to open delivery store", zap.Error(err))
		os.Exit(1)
	}
	conversations, err := store.NewConversationStore(cfg.ConversationsFile)
	if err != nil {
		log.Error("failed to open conversation store", zap.Error(err))
		os.Exit(1)
	}

	// Initialize extraction client
	provider := nlu.Provider(cfg.ExtractionProvider)
	apiKey := cfg.OpenAIAPIKey
	if provider == nlu.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	}
	extractor, err := nlu.NewExtractor(provider, apiKey, cfg.ExtractionTimeout)
	if err != nil {
		log.Error("failed to create extraction client", zap.Error(err))
		os.Exit(1)
	}

	// Initialize outbound gateway; the allow-list is rebuilt from persisted
	// batches so restarts do not silence ongoing conversations.
	allowlist := gateway.NewAllowlist()
	allowlist.Add(deliveries.RecipientPhones()...)
	sender, err := gateway.NewGreenAPIGateway(gateway.Config{
		BaseURL:    cfg.GreenAPIBaseURL,
		InstanceID: cfg.GreenAPIInstanceID,
		Token:      cfg.GreenAPIToken,
		Timeout:    cfg.GreenAPITimeout,
	}, allowlist, log)
	if err != nil {
		log.Error("failed to create messaging gateway", zap.Error(err))
		os.Exit(1)
	}

	// Initialize services
	filter := dedupe.New(cfg.DedupeWindow, cfg.DedupeRetention)
	webhookSvc := service.NewWebhookService(filter, deliveries, conversations,
		extractor, sender, publisher, cfg.HistoryLimit, log)
	batchSvc := service.NewBatchService(deliveries, allowlist, sender,
		publisher, webhookSvc, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(publisher)
	webhookHandler := handler.NewWebhookHandler(webhookSvc, log)
	batchHandler := handler.NewBatchHandler(batchSvc, log)
	resetHandler := handler.NewResetHandler(webhookSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Provider webhook (no auth; Green API cannot carry a bearer token)
	r.Group(func(r chi.Router) {
		r.Use(middleware.WebhookRateLimit(cfg.WebhookRateLimit))
		r.Post("/webhook", webhookHandler.Receive)
	})

	// Operator API with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.APIRateLimit(cfg.APIRateLimit))

		r.Route("/batches", func(r chi.Router) {
			r.Post("/", batchHandler.Create)
			r.Get("/", batchHandler.List)
			r.Get("/{id}/export", batchHandler.Export)
		})

		r.Post("/conversations/{phone}/reset", resetHandler.Reset)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
