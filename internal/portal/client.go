package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ashureev/portal-gateway/internal/domain"
)

const (
	userAgent       = "CUT-WhatsApp-Bot/1.0"
	maxResponseSize = 4 << 20
	// DefaultTimeout bounds every portal call.
	DefaultTimeout = 30 * time.Second
)

var tracer = otel.Tracer("github.com/ashureev/portal-gateway/internal/portal")

// Result is a classified response with its decoded payload.
type Result[T any] struct {
	Outcome
	Data T
}

// Observer receives the classification of every portal call.
type Observer interface {
	UpstreamOutcome(ctx context.Context, endpoint, outcome string)
}

// Client calls the portal JSON API at {baseURL}/api/<endpoint>/{reg}/{token}.
type Client struct {
	baseURL  string
	http     *http.Client
	group    singleflight.Group
	observer Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithObserver reports every classified outcome to o.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a portal client with a per-call timeout.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchHomeData returns the aggregated dashboard for the student.
func (c *Client) FetchHomeData(ctx context.Context, reg, token string) Result[domain.HomeData] {
	body, err := json.Marshal(map[string]string{"reg_number": reg, "token": token})
	if err != nil {
		return Result[domain.HomeData]{Outcome: transient(MsgUnexpected)}
	}
	out := c.call(ctx, EndpointHomeData, http.MethodPost, c.endpointURL(EndpointHomeData, reg, token, nil), body, true)
	return decode[domain.HomeData](out)
}

// FetchWifiStatus reports whether campus WiFi is active. A null body means inactive.
func (c *Client) FetchWifiStatus(ctx context.Context, reg, token string) Result[domain.WifiStatus] {
	out := c.call(ctx, EndpointWifiStatus, http.MethodGet, c.endpointURL(EndpointWifiStatus, reg, token, nil), nil, true)
	res := Result[domain.WifiStatus]{Outcome: out}
	if out.OK() {
		res.Data = domain.WifiStatus{Active: hasBody(out.Payload), Message: out.Message}
	}
	return res
}

// ActivateWifi requests WiFi activation. It is never coalesced.
func (c *Client) ActivateWifi(ctx context.Context, reg, token string) Result[domain.WifiActivation] {
	out := c.call(ctx, EndpointActivateWifi, http.MethodGet, c.endpointURL(EndpointActivateWifi, reg, token, nil), nil, false)
	return decode[domain.WifiActivation](out)
}

// FetchResultPeriods lists periods with published results.
func (c *Client) FetchResultPeriods(ctx context.Context, reg, token string) Result[[]domain.ResultPeriod] {
	out := c.call(ctx, EndpointResultPeriods, http.MethodGet, c.endpointURL(EndpointResultPeriods, reg, token, nil), nil, true)
	return decode[[]domain.ResultPeriod](out)
}

// FetchResults returns the graded modules for one period.
func (c *Client) FetchResults(ctx context.Context, reg, token, periodID string) Result[domain.StudentResults] {
	q := url.Values{"p": []string{periodID}}
	out := c.call(ctx, EndpointResults, http.MethodGet, c.endpointURL(EndpointResults, reg, token, q), nil, true)
	return decode[domain.StudentResults](out)
}

func (c *Client) endpointURL(ep Endpoint, reg, token string, q url.Values) string {
	u := fmt.Sprintf("%s/api/%s/%s/%s", c.baseURL, ep, url.PathEscape(reg), url.PathEscape(token))
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// call performs the request and classifies it. Identical idempotent calls in
// flight at the same time share one upstream request.
func (c *Client) call(ctx context.Context, ep Endpoint, method, target string, body []byte, coalesce bool) Outcome {
	ctx, span := tracer.Start(ctx, "portal."+string(ep),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("portal.endpoint", string(ep))),
	)
	defer span.End()

	var raw RawResponse
	if coalesce {
		key := method + " " + target
		v, _, shared := c.group.Do(key, func() (any, error) {
			return c.do(ctx, method, target, body), nil
		})
		raw = v.(RawResponse)
		span.SetAttributes(attribute.Bool("portal.coalesced", shared))
	} else {
		raw = c.do(ctx, method, target, body)
	}

	out := Classify(ep, raw)
	span.SetAttributes(
		attribute.Int("http.status_code", raw.StatusCode),
		attribute.String("portal.outcome", out.Kind.String()),
	)
	if raw.Err != nil {
		span.RecordError(raw.Err)
	}
	if out.Kind != KindSuccess {
		span.SetStatus(codes.Error, out.Message)
		slog.Warn("portal call not successful",
			"endpoint", ep,
			"status", raw.StatusCode,
			"outcome", out.Kind.String(),
			"error", raw.Err)
	}
	if c.observer != nil {
		c.observer.UpstreamOutcome(ctx, string(ep), out.Kind.String())
	}
	return out
}

func (c *Client) do(ctx context.Context, method, target string, body []byte) RawResponse {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return RawResponse{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return RawResponse{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return RawResponse{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	return RawResponse{StatusCode: resp.StatusCode, Body: data}
}

func decode[T any](out Outcome) Result[T] {
	res := Result[T]{Outcome: out}
	if !out.OK() {
		return res
	}
	if err := json.Unmarshal(out.Payload, &res.Data); err != nil {
		res.Outcome = transient(MsgUnexpected)
		return res
	}
	return res
}
