// Package api provides HTTP handlers for the gateway API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/portal-gateway/internal/conversation"
	"github.com/ashureev/portal-gateway/internal/session"
	"github.com/ashureev/portal-gateway/internal/store"
	"github.com/ashureev/portal-gateway/internal/telemetry"
)

const defaultHealthTimeout = 5 * time.Second

// MessageProcessor handles one normalized inbound message.
type MessageProcessor interface {
	Handle(ctx context.Context, phone, text string) conversation.Turn
}

// MetricsSource reports the current metric values.
type MetricsSource interface {
	Snapshot(ctx context.Context) (telemetry.Snapshot, error)
}

// Handler serves the webhook, login, health, metrics and journal endpoints.
type Handler struct {
	engine        MessageProcessor
	auth          conversation.Authenticator
	sessions      session.Store
	journal       store.Journal
	metrics       MetricsSource
	verifyToken   string
	appSecret     string
	adminToken    string
	healthTimeout time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithVerifyToken sets the token expected by the webhook subscription handshake.
func WithVerifyToken(token string) Option {
	return func(h *Handler) { h.verifyToken = token }
}

// WithAppSecret makes webhook deliveries require a valid X-Hub-Signature-256.
func WithAppSecret(secret string) Option {
	return func(h *Handler) { h.appSecret = secret }
}

// WithAdminToken enables the operator routes behind a bearer token.
func WithAdminToken(token string) Option {
	return func(h *Handler) { h.adminToken = token }
}

// WithMetrics serves src at /metrics.
func WithMetrics(src MetricsSource) Option {
	return func(h *Handler) { h.metrics = src }
}

// NewHandler creates a Handler. journal may be nil when journaling is off.
func NewHandler(engine MessageProcessor, auth conversation.Authenticator, sessions session.Store, journal store.Journal, opts ...Option) *Handler {
	h := &Handler{
		engine:        engine,
		auth:          auth,
		sessions:      sessions,
		journal:       journal,
		healthTimeout: defaultHealthTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts every route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/metrics", h.Metrics)
	r.Route("/api", func(r chi.Router) {
		r.Get("/whatsapp/webhook", h.VerifyWebhook)
		r.With(h.RequireSignature).Post("/whatsapp/webhook", h.ReceiveWebhook)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Get("/conversations/{phone}", h.Conversation)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
