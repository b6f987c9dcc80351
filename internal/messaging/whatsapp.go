// Package messaging delivers replies through the WhatsApp Cloud API.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashureev/portal-gateway/internal/identity"
)

// MaxTextLength is the Cloud API limit for a text message body.
const MaxTextLength = 4096

const defaultTimeout = 10 * time.Second

var tracer = otel.Tracer("github.com/ashureev/portal-gateway/internal/messaging")

// Observer receives the result of every outbound message.
type Observer interface {
	MessageSent(ctx context.Context, kind string, delivered bool)
}

// Client posts messages to {apiURL}/{phoneNumberID}/messages.
type Client struct {
	apiURL        string
	phoneNumberID string
	token         string
	http          *http.Client
	observer      Observer
}

// NewClient creates a Cloud API client. A nil httpClient gets a 10s timeout.
func NewClient(apiURL, phoneNumberID, token string, httpClient *http.Client, observer Observer) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiURL:        strings.TrimRight(apiURL, "/"),
		phoneNumberID: phoneNumberID,
		token:         token,
		http:          httpClient,
		observer:      observer,
	}
}

type textPayload struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// SendText delivers text, split into several messages when it exceeds the
// API limit. Failures are logged and reported as false, never retried.
func (c *Client) SendText(ctx context.Context, to, text string) bool {
	return c.send(ctx, "text", to, text)
}

// SendMenu delivers a numbered menu.
func (c *Client) SendMenu(ctx context.Context, to, header, body string, options []string) bool {
	return c.send(ctx, "menu", to, FormatMenu(header, body, options))
}

func (c *Client) send(ctx context.Context, kind, to, text string) bool {
	ok := true
	for _, chunk := range SplitText(text, MaxTextLength) {
		if err := c.post(ctx, to, chunk); err != nil {
			slog.Error("whatsapp send failed", "phone", identity.Mask(to), "kind", kind, "error", err)
			ok = false
			break
		}
	}
	if c.observer != nil {
		c.observer.MessageSent(ctx, kind, ok)
	}
	return ok
}

func (c *Client) post(ctx context.Context, to, text string) error {
	ctx, span := tracer.Start(ctx, "whatsapp.send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	p := textPayload{MessagingProduct: "whatsapp", RecipientType: "individual", To: to, Type: "text"}
	p.Text.Body = text
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.apiURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return fmt.Errorf("post message: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		span.SetStatus(codes.Error, resp.Status)
		return fmt.Errorf("whatsapp api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// FormatMenu renders a header, body and numbered options as one text message.
func FormatMenu(header, body string, options []string) string {
	var b strings.Builder
	b.WriteString("*" + header + "*\n\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
	}
	b.WriteString("\nReply with a number to select an option.")
	return b.String()
}

// SplitText breaks text into chunks of at most limit runes, preferring line
// breaks.
func SplitText(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for utf8.RuneCountInString(text) > limit {
		end := runeOffset(text, limit)
		cut := strings.LastIndexByte(text[:end], '\n')
		if cut <= 0 {
			cut = end
		}
		chunks = append(chunks, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// runeOffset returns the byte index just past the first n runes of s.
func runeOffset(s string, n int) int {
	for i := range s {
		if n == 0 {
			return i
		}
		n--
	}
	return len(s)
}

// LogSender writes replies to the log instead of sending them. It stands in
// when no Cloud API credentials are configured.
type LogSender struct{}

// SendText logs text and reports success.
func (LogSender) SendText(_ context.Context, to, text string) bool {
	slog.Info("outbound message (not sent)",
		"phone", identity.Mask(to),
		"runes", utf8.RuneCountInString(text),
		"first_line", firstLine(text))
	return true
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

// SendMenu logs the formatted menu and reports success.
func (l LogSender) SendMenu(ctx context.Context, to, header, body string, options []string) bool {
	return l.SendText(ctx, to, FormatMenu(header, body, options))
}
