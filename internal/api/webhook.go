package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/portal-gateway/internal/identity"
)

const maxWebhookBody = 1 << 20

type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				MessagingProduct string           `json:"messaging_product"`
				Messages         []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`
}

// text returns the user's input. Interactive replies carry it in the reply id.
func (m inboundMessage) text() string {
	switch {
	case m.Text != nil:
		return m.Text.Body
	case m.Interactive != nil && m.Interactive.ButtonReply != nil:
		return m.Interactive.ButtonReply.ID
	case m.Interactive != nil && m.Interactive.ListReply != nil:
		return m.Interactive.ListReply.ID
	default:
		return ""
	}
}

// inbound is a normalized (phone, text) pair.
type inbound struct {
	Phone string
	Text  string
}

// extractMessages flattens every message in the envelope.
func extractMessages(p webhookPayload) []inbound {
	var out []inbound
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.From == "" {
					continue
				}
				out = append(out, inbound{Phone: msg.From, Text: msg.text()})
			}
		}
	}
	return out
}

// VerifyWebhook answers the Cloud API subscription handshake.
func (h *Handler) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if h.verifyToken == "" || q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != h.verifyToken {
		slog.Warn("webhook verification failed", "mode", q.Get("hub.mode"))
		w.WriteHeader(http.StatusForbidden)
		return
	}
	slog.Info("webhook verified")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

// ReceiveWebhook processes every message in the delivery before answering.
// Deliveries without messages, such as status callbacks, are acknowledged.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	dec := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBody))
	if err := dec.Decode(&payload); err != nil {
		Error(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}
	if payload.Object == "" || payload.Entry == nil {
		Error(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	messages := extractMessages(payload)
	if len(messages) == 0 {
		JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	// A client disconnect must not abort a half-finished turn.
	ctx := context.WithoutCancel(r.Context())
	for _, m := range messages {
		turn := h.engine.Handle(ctx, m.Phone, strings.TrimSpace(m.Text))
		slog.Info("message processed",
			"phone", identity.Mask(turn.Phone),
			"state_before", turn.StateBefore,
			"state_after", turn.StateAfter,
			"replies", len(turn.Replies),
			"delivered", turn.Delivered)
	}
	JSON(w, http.StatusOK, map[string]any{"status": "success", "processed": len(messages)})
}
