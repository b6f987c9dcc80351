package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/portal-gateway/internal/identity"
)

const signatureHeader = "X-Hub-Signature-256"

// RequireSignature rejects webhook deliveries whose X-Hub-Signature-256 is
// not the HMAC-SHA256 of the raw body under the app secret. Without a secret
// every delivery passes.
func (h *Handler) RequireSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.appSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
		if err != nil {
			Error(w, http.StatusBadRequest, "failed to read body")
			return
		}
		if len(body) > maxWebhookBody {
			Error(w, http.StatusRequestEntityTooLarge, "webhook payload too large")
			return
		}
		if !validSignature(h.appSecret, body, r.Header.Get(signatureHeader)) {
			slog.Warn("webhook signature rejected", "remote_ip", identity.IPFromRequest(r))
			Error(w, http.StatusUnauthorized, "invalid signature")
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func validSignature(secret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// RequireAdmin guards operator routes with a bearer token. When no token is
// configured the routes do not exist.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.adminToken == "" {
			Error(w, http.StatusNotFound, "not found")
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			slog.Warn("admin request rejected", "path", r.URL.Path, "remote_ip", identity.IPFromRequest(r))
			w.Header().Set("WWW-Authenticate", `Bearer realm="portal-gateway"`)
			Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
