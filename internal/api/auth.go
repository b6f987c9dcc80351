package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/portal-gateway/internal/portal"
)

type loginRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// Login signs in against the portal and returns the AuthResult. The status is
// 200 on success, 401 for rejected credentials and 502 for upstream failures.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		JSON(w, http.StatusBadRequest, portal.AuthResult{Error: "Request body must be JSON with string username and password"})
		return
	}
	if req.Username == nil || strings.TrimSpace(*req.Username) == "" {
		JSON(w, http.StatusBadRequest, portal.AuthResult{Error: "Username is required and must be a string"})
		return
	}
	if req.Password == nil || *req.Password == "" {
		JSON(w, http.StatusBadRequest, portal.AuthResult{Error: "Password is required and must be a string"})
		return
	}

	username := strings.TrimSpace(*req.Username)
	res := h.auth.Login(r.Context(), username, *req.Password)
	switch {
	case res.Success:
		slog.Info("api login succeeded", "username", username)
		JSON(w, http.StatusOK, res)
	case res.InvalidCredentials:
		JSON(w, http.StatusUnauthorized, res)
	default:
		slog.Warn("api login failed upstream", "username", username, "error", res.Error)
		JSON(w, http.StatusBadGateway, res)
	}
}
