// Portal Gateway - WhatsApp student portal server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/portal-gateway/internal/api"
	"github.com/ashureev/portal-gateway/internal/config"
	"github.com/ashureev/portal-gateway/internal/conversation"
	"github.com/ashureev/portal-gateway/internal/messaging"
	"github.com/ashureev/portal-gateway/internal/middleware"
	"github.com/ashureev/portal-gateway/internal/portal"
	"github.com/ashureev/portal-gateway/internal/session"
	"github.com/ashureev/portal-gateway/internal/store"
	"github.com/ashureev/portal-gateway/internal/telemetry"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, logCloser, err := telemetry.NewLogger(cfg.Telemetry.LogFile, slog.LevelInfo)
	if err != nil {
		slog.Error("Failed to open log file", "error", err)
		os.Exit(1)
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.Init(ctx, cfg.Telemetry.Enabled, cfg.Telemetry.Dir, version)
	if err != nil {
		slog.Error("Failed to initialize telemetry", "error", err)
		os.Exit(1)
	}

	sessions := session.NewMemoryStore()

	metrics, err := telemetry.NewMetrics(provider.Meter, sessions.Count)
	if err != nil {
		slog.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}

	// journal stays a nil interface when disabled so handlers can test for it.
	var journal store.Journal
	if cfg.Journal.Enabled {
		sqlite, err := store.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			slog.Error("Failed to initialize journal", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := sqlite.Close(); closeErr != nil {
				slog.Error("Failed to close journal", "error", closeErr)
			}
		}()
		if err := sqlite.Ping(ctx); err != nil {
			slog.Error("Journal health check failed", "error", err)
			os.Exit(1)
		}
		journal = sqlite
		slog.Info("Journal connected", "path", cfg.Journal.DBPath)
	}

	portalClient := portal.NewClient(cfg.PortalBaseURL, cfg.UpstreamTimeout, portal.WithObserver(metrics))
	authClient := portal.NewAuthClient(cfg.AuthBaseURL, cfg.UpstreamTimeout)

	var messenger conversation.Messenger = messaging.LogSender{}
	if cfg.MessagingConfigured() {
		messenger = messaging.NewClient(cfg.WhatsApp.APIURL, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.AuthToken, nil, metrics)
		slog.Info("WhatsApp messaging enabled", "phone_number_id", cfg.WhatsApp.PhoneNumberID)
	} else {
		slog.Warn("WhatsApp credentials missing, replies will only be logged")
	}

	opts := []conversation.Option{conversation.WithMetrics(metrics)}
	if journal != nil {
		opts = append(opts, conversation.WithJournal(journal))
	}
	engine := conversation.NewEngine(sessions, authClient, portalClient, messenger, opts...)

	hooks := []session.SweepHook{}
	if journal != nil {
		hooks = append(hooks, func(ctx context.Context) {
			n, err := journal.Prune(ctx, cfg.Journal.Retention)
			if err != nil {
				slog.Error("Journal prune failed", "error", err)
				return
			}
			metrics.JournalPruned(ctx, n)
		})
	}
	session.StartSweepWorker(ctx, sessions, cfg.Session.SweepInterval, cfg.Session.TTL, func(phones []string) {
		metrics.SessionsExpired(ctx, len(phones))
	}, hooks...)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	limiter.StartCleanup(ctx, cfg.RateLimit.Window)

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(limiter.Middleware)
	r.Use(metrics.Middleware)

	if cfg.WhatsApp.AppSecret == "" {
		slog.Warn("WHATSAPP_APP_SECRET not set, webhook signatures are not verified")
	}
	if cfg.AdminAPIToken == "" {
		slog.Info("ADMIN_API_TOKEN not set, conversation journal API disabled")
	}
	handler := api.NewHandler(engine, authClient, sessions, journal,
		api.WithVerifyToken(cfg.WhatsApp.VerifyToken),
		api.WithAppSecret(cfg.WhatsApp.AppSecret),
		api.WithAdminToken(cfg.AdminAPIToken),
		api.WithMetrics(provider.Snapshots),
	)
	handler.RegisterRoutes(r)

	// Upstream calls can take UPSTREAM_TIMEOUT each, several per turn.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 4 * cfg.UpstreamTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		slog.Error("Telemetry shutdown failed", "error", err)
	}

	slog.Info("Server stopped successfully")
}
