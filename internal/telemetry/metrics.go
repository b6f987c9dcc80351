package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records gateway counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	httpRequests     metric.Int64Counter
	httpDuration     metric.Float64Histogram
	messagesReceived metric.Int64Counter
	messagesSent     metric.Int64Counter
	upstreamOutcomes metric.Int64Counter
	loginAttempts    metric.Int64Counter
	sessionsExpired  metric.Int64Counter
	journalPruned    metric.Int64Counter
}

// NewMetrics registers the gateway instruments on meter. activeSessions, when
// non-nil, backs the active session gauge.
func NewMetrics(meter metric.Meter, activeSessions func(context.Context) (int, error)) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.httpRequests, err = meter.Int64Counter("gateway.http.requests",
		metric.WithDescription("HTTP requests served")); err != nil {
		return nil, fmt.Errorf("register http requests counter: %w", err)
	}
	if m.httpDuration, err = meter.Float64Histogram("gateway.http.duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("register http duration histogram: %w", err)
	}
	if m.messagesReceived, err = meter.Int64Counter("gateway.messages.received",
		metric.WithDescription("Inbound WhatsApp messages")); err != nil {
		return nil, fmt.Errorf("register messages received counter: %w", err)
	}
	if m.messagesSent, err = meter.Int64Counter("gateway.messages.sent",
		metric.WithDescription("Outbound WhatsApp messages by result")); err != nil {
		return nil, fmt.Errorf("register messages sent counter: %w", err)
	}
	if m.upstreamOutcomes, err = meter.Int64Counter("gateway.upstream.outcomes",
		metric.WithDescription("Classified portal responses by endpoint and outcome")); err != nil {
		return nil, fmt.Errorf("register upstream outcomes counter: %w", err)
	}
	if m.loginAttempts, err = meter.Int64Counter("gateway.login.attempts",
		metric.WithDescription("Portal login attempts by result")); err != nil {
		return nil, fmt.Errorf("register login attempts counter: %w", err)
	}
	if m.sessionsExpired, err = meter.Int64Counter("gateway.sessions.expired",
		metric.WithDescription("Sessions purged by the sweep worker")); err != nil {
		return nil, fmt.Errorf("register sessions expired counter: %w", err)
	}
	if m.journalPruned, err = meter.Int64Counter("gateway.journal.pruned",
		metric.WithDescription("Journal events removed by retention")); err != nil {
		return nil, fmt.Errorf("register journal pruned counter: %w", err)
	}

	if activeSessions != nil {
		_, err = meter.Int64ObservableGauge("gateway.sessions.active",
			metric.WithDescription("Sessions currently held in memory"),
			metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
				n, err := activeSessions(ctx)
				if err != nil {
					return err
				}
				o.Observe(int64(n))
				return nil
			}))
		if err != nil {
			return nil, fmt.Errorf("register active sessions gauge: %w", err)
		}
	}

	return m, nil
}

// MessageReceived counts one inbound message.
func (m *Metrics) MessageReceived(ctx context.Context) {
	if m == nil {
		return
	}
	m.messagesReceived.Add(ctx, 1)
}

// MessageSent counts one outbound message of the given kind.
func (m *Metrics) MessageSent(ctx context.Context, kind string, delivered bool) {
	if m == nil {
		return
	}
	m.messagesSent.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("delivered", delivered),
	))
}

// UpstreamOutcome counts a classified portal response.
func (m *Metrics) UpstreamOutcome(ctx context.Context, endpoint, outcome string) {
	if m == nil {
		return
	}
	m.upstreamOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("outcome", outcome),
	))
}

// LoginAttempt counts a login attempt.
func (m *Metrics) LoginAttempt(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// SessionsExpired counts sessions removed by one sweep.
func (m *Metrics) SessionsExpired(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.sessionsExpired.Add(ctx, int64(n))
}

// JournalPruned counts journal rows removed by retention.
func (m *Metrics) JournalPruned(ctx context.Context, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.journalPruned.Add(ctx, n)
}

// Middleware records request count and latency per route pattern and status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", route),
			attribute.String("status", strconv.Itoa(status)),
		)
		m.httpRequests.Add(r.Context(), 1, attrs)
		m.httpDuration.Record(r.Context(), float64(time.Since(start).Microseconds())/1000, attrs)
	})
}
