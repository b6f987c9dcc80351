package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/portal-gateway/internal/identity"
	"github.com/ashureev/portal-gateway/internal/store"
)

// Health returns the health status of the gateway and its stores.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.healthTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]any{"status": "healthy", "checks": checks}
	statusCode := http.StatusOK

	if n, err := h.sessions.Count(ctx); err != nil {
		slog.Error("session store health check failed", "error", err)
		checks["sessions"] = "unreachable"
		status["status"] = "degraded"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["sessions"] = "ok"
		status["active_sessions"] = n
	}

	switch {
	case h.journal == nil:
		checks["journal"] = "disabled"
	case h.journal.Ping(ctx) != nil:
		slog.Error("journal health check failed")
		checks["journal"] = "unreachable"
		status["status"] = "degraded"
		statusCode = http.StatusServiceUnavailable
	default:
		checks["journal"] = "ok"
	}

	JSON(w, statusCode, status)
}

// Conversation returns the latest journal events for a phone, oldest first.
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		Error(w, http.StatusNotFound, "journal disabled")
		return
	}
	phone := identity.NormalizePhone(chi.URLParam(r, "phone"))
	if phone == "" {
		Error(w, http.StatusBadRequest, "phone is required")
		return
	}

	limit := store.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.journal.Recent(r.Context(), phone, limit)
	if err != nil {
		slog.Error("failed to read journal", "phone", identity.Mask(phone), "error", err)
		Error(w, http.StatusInternalServerError, "failed to read conversation")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"phone": phone, "events": events})
}

// Metrics returns a JSON snapshot of the gateway counters.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		Error(w, http.StatusNotFound, "metrics disabled")
		return
	}
	snap, err := h.metrics.Snapshot(r.Context())
	if err != nil {
		slog.Error("failed to collect metrics", "error", err)
		Error(w, http.StatusInternalServerError, "failed to collect metrics")
		return
	}
	JSON(w, http.StatusOK, snap)
}
